package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ConsentRecord represents a single row of the GDPR_USER_CONSENT ledger.
// Rows are append-only; the latest row per (user, type) carries the
// current decision.
type ConsentRecord struct {
	RecordID      string  `db:"RECORD_ID" json:"recordId"`
	UserID        string  `db:"USER_ID" json:"userId"`
	ConsentType   string  `db:"CONSENT_TYPE" json:"consentType"`
	Granted       bool    `db:"GRANTED" json:"granted"`
	VersionID     *string `db:"VERSION_ID" json:"versionId,omitempty"`
	PolicyVersion string  `db:"POLICY_VERSION" json:"policyVersion"`
	Metadata      JSON    `db:"METADATA" json:"metadata,omitempty"`
	CreatedTime   int64   `db:"CREATED_TIME" json:"createdTime"`
	UpdatedTime   int64   `db:"UPDATED_TIME" json:"updatedTime"`
	WithdrawnTime *int64  `db:"WITHDRAWN_TIME" json:"withdrawnTime,omitempty"`
}

// ConsentVersion represents the GDPR_CONSENT_VERSION table
type ConsentVersion struct {
	VersionID   string `db:"VERSION_ID" json:"versionId"`
	Version     string `db:"VERSION" json:"version"`
	Summary     string `db:"SUMMARY" json:"summary"`
	ChangesJSON JSON   `db:"CHANGES" json:"changes,omitempty"`
	CreatedTime int64  `db:"CREATED_TIME" json:"createdTime"`
}

// ConsentMeta captures the request context recorded alongside a consent
// decision. The IP address is stored masked, never raw.
type ConsentMeta struct {
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Source    string `json:"source,omitempty"`
}

// JSON type for handling JSON fields in MySQL
type JSON json.RawMessage

// Scan implements the sql.Scanner interface for JSON
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSON: %T", value)
	}

	var temp interface{}
	if err := json.Unmarshal(bytes, &temp); err != nil {
		return fmt.Errorf("invalid JSON data: %w", err)
	}

	cleanBytes, err := json.Marshal(temp)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	*j = JSON(cleanBytes)
	return nil
}

// Value implements the driver.Valuer interface for JSON
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// MarshalJSON implements json.Marshaler
func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = JSON(data)
	return nil
}

// ConsentTypeInfo describes a catalog entry as exposed over the API
type ConsentTypeInfo struct {
	Slug         string `json:"slug"`
	Category     string `json:"category"`
	LegalBasis   string `json:"legalBasis"`
	Required     bool   `json:"required"`
	DefaultValue bool   `json:"defaultValue"`
	CanWithdraw  bool   `json:"canWithdraw"`
	Description  string `json:"description,omitempty"`
}

// ConsentStatusView is the aggregated per-user consent state: one entry
// per catalog type, with the decision resolved from the latest ledger
// row or the type default when no row exists.
type ConsentStatusView struct {
	UserID        string                      `json:"userId"`
	PolicyVersion string                      `json:"policyVersion"`
	Consents      map[string]ConsentTypeState `json:"consents"`
	Summary       ConsentSummary              `json:"summary"`
	UpdatedTime   int64                       `json:"updatedTime"`
}

// ConsentSummary aggregates the resolved decisions
type ConsentSummary struct {
	Active          int `json:"active"`
	Total           int `json:"total"`
	ComplianceScore int `json:"complianceScore"`
}

// ConsentTypeState is the resolved decision for one consent type
type ConsentTypeState struct {
	Granted       bool   `json:"granted"`
	Status        string `json:"status"`
	Required      bool   `json:"required"`
	CanWithdraw   bool   `json:"canWithdraw"`
	LegalBasis    string `json:"legalBasis"`
	Source        string `json:"source"`
	Version       string `json:"version,omitempty"`
	DecidedTime   *int64 `json:"decidedTime,omitempty"`
	WithdrawnTime *int64 `json:"withdrawnTime,omitempty"`
}

// Sources for a resolved consent decision
const (
	ConsentSourceRecord  = "record"
	ConsentSourceDefault = "default"
)

// Per-type consent statuses
const (
	ConsentStatusActive    = "active"
	ConsentStatusWithdrawn = "withdrawn"
	ConsentStatusNotGiven  = "not_given"
)

// ConsentChange describes one type whose decision changed between two
// points of the ledger history
type ConsentChange struct {
	From      *bool `json:"from"`
	To        bool  `json:"to"`
	Timestamp int64 `json:"timestamp"`
}

// ChangeSet summarizes what an update operation changed
type ChangeSet struct {
	Previous map[string]bool          `json:"previous"`
	Current  map[string]bool          `json:"current"`
	Changes  map[string]ConsentChange `json:"changes"`
}

// HasChanges reports whether the update actually flipped any decision
func (c *ChangeSet) HasChanges() bool {
	return len(c.Changes) > 0
}

// ConsentUpdateAPIRequest represents the API payload for a bulk consent update
type ConsentUpdateAPIRequest struct {
	Consents map[string]bool `json:"consents" binding:"required"`
	Source   string          `json:"source,omitempty"`
}

// ConsentGrantAPIRequest represents the API payload for granting or renewing a single consent
type ConsentGrantAPIRequest struct {
	ConsentType string `json:"consentType" binding:"required"`
	Source      string `json:"source,omitempty"`
}

// ConsentDefaultsAPIRequest represents the optional API payload for
// seeding a user's consent decisions at registration
type ConsentDefaultsAPIRequest struct {
	Initial map[string]bool `json:"initial,omitempty"`
	Source  string          `json:"source,omitempty"`
}

// ConsentWithdrawAPIRequest represents the API payload for withdrawing a single consent
type ConsentWithdrawAPIRequest struct {
	ConsentType string `json:"consentType" binding:"required"`
	Source      string `json:"source,omitempty"`
}

// ConsentUpdateAPIResponse is returned after a bulk update
type ConsentUpdateAPIResponse struct {
	UserID    string             `json:"userId"`
	ChangeSet *ChangeSet         `json:"changeSet"`
	Status    *ConsentStatusView `json:"status"`
}

// ConsentVersionAPIRequest represents the API payload for publishing a new policy version
type ConsentVersionAPIRequest struct {
	Version string                 `json:"version" binding:"required"`
	Summary string                 `json:"summary,omitempty"`
	Changes map[string]interface{} `json:"changes,omitempty"`
}

// ToConsentVersion converts the API payload to the internal model.
// ID and timestamps are filled by the service.
func (req *ConsentVersionAPIRequest) ToConsentVersion() (*ConsentVersion, error) {
	v := &ConsentVersion{
		Version: req.Version,
		Summary: req.Summary,
	}
	if len(req.Changes) > 0 {
		raw, err := json.Marshal(req.Changes)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal version changes: %w", err)
		}
		v.ChangesJSON = JSON(raw)
	}
	return v, nil
}

// EncodeConsentMeta serializes request context metadata for storage
func EncodeConsentMeta(meta *ConsentMeta) (JSON, error) {
	if meta == nil {
		return nil, nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal consent metadata: %w", err)
	}
	return JSON(raw), nil
}

// DecodeConsentMeta deserializes stored request context metadata
func DecodeConsentMeta(raw JSON) (*ConsentMeta, error) {
	if raw == nil {
		return nil, nil
	}
	var meta ConsentMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal consent metadata: %w", err)
	}
	return &meta, nil
}

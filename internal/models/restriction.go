package models

import "encoding/json"

// ProcessingRestriction represents the GDPR_PROCESSING_RESTRICTION table
type ProcessingRestriction struct {
	RestrictionID string  `db:"RESTRICTION_ID" json:"restrictionId"`
	UserID        string  `db:"USER_ID" json:"userId"`
	Type          string  `db:"RESTRICTION_TYPE" json:"type"`
	Reason        *string `db:"REASON" json:"reason,omitempty"`
	Categories    JSON    `db:"CATEGORIES" json:"categories,omitempty"`
	Status        string  `db:"STATUS" json:"status"`
	CreatedTime   int64   `db:"CREATED_TIME" json:"createdTime"`
	UpdatedTime   int64   `db:"UPDATED_TIME" json:"updatedTime"`
	ExpiresTime   *int64  `db:"EXPIRES_TIME" json:"expiresTime,omitempty"`
	LiftedTime    *int64  `db:"LIFTED_TIME" json:"liftedTime,omitempty"`
}

// Restriction lifecycle statuses
const (
	RestrictionStatusActive  = "ACTIVE"
	RestrictionStatusLifted  = "LIFTED"
	RestrictionStatusExpired = "EXPIRED"
)

// Restriction types
const (
	RestrictionTypeProcessing         = "processing"
	RestrictionTypeAutomatedDecisions = "automated_decisions"
	RestrictionTypeMarketing          = "marketing"
	RestrictionTypeAnalytics          = "analytics"
	RestrictionTypeThirdParty         = "third_party"
)

// restrictedProcessing maps a restriction type to the processing
// activities it blocks. The blanket "processing" type blocks everything
// and is handled separately in AppliesTo.
var restrictedProcessing = map[string]string{
	RestrictionTypeAutomatedDecisions: "automated_decisions",
	RestrictionTypeMarketing:          "marketing",
	RestrictionTypeAnalytics:          "analytics",
	RestrictionTypeThirdParty:         "third_party",
}

// KnownRestrictionTypes lists the accepted restriction types
func KnownRestrictionTypes() []string {
	return []string{
		RestrictionTypeProcessing,
		RestrictionTypeAutomatedDecisions,
		RestrictionTypeMarketing,
		RestrictionTypeAnalytics,
		RestrictionTypeThirdParty,
	}
}

// IsKnownRestrictionType reports whether a restriction type is accepted
func IsKnownRestrictionType(t string) bool {
	if t == RestrictionTypeProcessing {
		return true
	}
	_, ok := restrictedProcessing[t]
	return ok
}

// CategoryList decodes the stored category scope. An empty list means
// the restriction covers all data categories.
func (r *ProcessingRestriction) CategoryList() []string {
	if r.Categories == nil {
		return nil
	}
	var cats []string
	if err := json.Unmarshal(r.Categories, &cats); err != nil {
		return nil
	}
	return cats
}

// AppliesTo reports whether this restriction blocks the given processing
// activity on the given data category. A blanket "processing" restriction
// blocks every activity; others block only their mapped activity. An
// empty category scope covers all categories.
func (r *ProcessingRestriction) AppliesTo(processingType, dataCategory string) bool {
	if r.Status != RestrictionStatusActive {
		return false
	}

	if r.Type != RestrictionTypeProcessing {
		blocked, ok := restrictedProcessing[r.Type]
		if !ok || blocked != processingType {
			return false
		}
	}

	cats := r.CategoryList()
	if len(cats) == 0 || dataCategory == "" {
		return true
	}
	for _, c := range cats {
		if c == dataCategory {
			return true
		}
	}
	return false
}

// RestrictionCreateAPIRequest represents the API payload for placing a restriction
type RestrictionCreateAPIRequest struct {
	Type       string   `json:"type" binding:"required"`
	Reason     string   `json:"reason,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// RestrictionCheckAPIResponse is the answer to a processing-allowed query
type RestrictionCheckAPIResponse struct {
	Allowed      bool   `json:"allowed"`
	RestrictedBy string `json:"restrictedBy,omitempty"`
}

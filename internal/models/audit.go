package models

// AuditLog represents the GDPR_AUDIT_LOG table. Entries are immutable
// once written.
type AuditLog struct {
	AuditID     string  `db:"AUDIT_ID" json:"auditId"`
	UserID      string  `db:"USER_ID" json:"userId"`
	Action      string  `db:"ACTION" json:"action"`
	EntityType  string  `db:"ENTITY_TYPE" json:"entityType"`
	EntityID    *string `db:"ENTITY_ID" json:"entityId,omitempty"`
	IPAddress   *string `db:"IP_ADDRESS" json:"ipAddress,omitempty"`
	UserAgent   *string `db:"USER_AGENT" json:"userAgent,omitempty"`
	Details     JSON    `db:"DETAILS" json:"details,omitempty"`
	CreatedTime int64   `db:"CREATED_TIME" json:"createdTime"`
}

// Audit actions
const (
	AuditActionConsentGranted      = "consent_granted"
	AuditActionConsentWithdrawn    = "consent_withdrawn"
	AuditActionConsentRenewed      = "consent_renewed"
	AuditActionConsentsUpdated     = "consents_updated"
	AuditActionDefaultsCreated     = "consent_defaults_created"
	AuditActionVersionPublished    = "consent_version_published"
	AuditActionExportRequested     = "export_requested"
	AuditActionExportCompleted     = "export_completed"
	AuditActionExportFailed        = "export_failed"
	AuditActionExportDownloaded    = "export_downloaded"
	AuditActionExportExpired       = "export_expired"
	AuditActionRestrictionCreated  = "restriction_created"
	AuditActionRestrictionLifted   = "restriction_lifted"
	AuditActionRestrictionExpired  = "restriction_expired"
)

// Audit entity types
const (
	AuditEntityConsent        = "consent"
	AuditEntityConsentVersion = "consent_version"
	AuditEntityExport         = "data_export"
	AuditEntityRestriction    = "processing_restriction"
)

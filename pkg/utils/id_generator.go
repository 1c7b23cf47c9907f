package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// GenerateID generates a new UUID for record identifiers
func GenerateID() string {
	return uuid.New().String()
}

// GenerateConsentRecordID generates a unique consent ledger record ID
func GenerateConsentRecordID() string {
	return "CONSENT-" + uuid.New().String()
}

// GenerateVersionID generates a unique consent version ID
func GenerateVersionID() string {
	return "CVER-" + uuid.New().String()
}

// GenerateExportID generates a unique data export ID
func GenerateExportID() string {
	return "EXPORT-" + uuid.New().String()
}

// GenerateRestrictionID generates a unique processing restriction ID
func GenerateRestrictionID() string {
	return "RESTR-" + uuid.New().String()
}

// GenerateAuditID generates a unique audit log entry ID
func GenerateAuditID() string {
	return "AUDIT-" + uuid.New().String()
}

// GenerateExportToken generates an opaque, unguessable download token
func GenerateExportToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to UUID pair
		return uuid.New().String() + uuid.New().String()
	}
	return hex.EncodeToString(buf)
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

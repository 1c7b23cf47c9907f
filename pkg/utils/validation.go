package utils

import (
	"fmt"
)

// ValidateUserID validates user ID format
func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if len(userID) > 255 {
		return fmt.Errorf("user ID too long (max 255 characters)")
	}
	return nil
}

// ValidateConsentType validates consent type slug format
func ValidateConsentType(consentType string) error {
	if consentType == "" {
		return fmt.Errorf("consent type cannot be empty")
	}
	if len(consentType) > 64 {
		return fmt.Errorf("consent type too long (max 64 characters)")
	}
	return nil
}

// ValidateExportToken validates export download token format
func ValidateExportToken(token string) error {
	if token == "" {
		return fmt.Errorf("export token cannot be empty")
	}
	if len(token) > 128 {
		return fmt.Errorf("export token too long (max 128 characters)")
	}
	return nil
}

// ValidateLimit clamps a pagination limit to a sane range
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// ValidateOffset clamps a pagination offset to a non-negative value
func ValidateOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

package models

import "net/http"

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message, details string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Common error codes
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeGone                = "GONE"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeValidationError     = "VALIDATION_ERROR"
	ErrCodeUnknownConsentType  = "UNKNOWN_CONSENT_TYPE"
	ErrCodeConsentNotFound     = "CONSENT_NOT_FOUND"
	ErrCodeExportNotFound      = "EXPORT_NOT_FOUND"
	ErrCodeExportNotReady      = "EXPORT_NOT_READY"
	ErrCodeExportExpired       = "EXPORT_EXPIRED"
	ErrCodeExportFileMissing   = "EXPORT_FILE_MISSING"
	ErrCodeUnsupportedFormat   = "UNSUPPORTED_FORMAT"
	ErrCodeInvalidCategory     = "INVALID_CATEGORY"
	ErrCodeRestrictionNotFound = "RESTRICTION_NOT_FOUND"
	ErrCodeRestrictionLimit    = "RESTRICTION_LIMIT_EXCEEDED"
)

// HTTPStatusForErrorCode returns the appropriate HTTP status code for an error code
func HTTPStatusForErrorCode(code string) int {
	switch code {
	case ErrCodeBadRequest, ErrCodeValidationError, ErrCodeUnknownConsentType, ErrCodeUnsupportedFormat, ErrCodeInvalidCategory:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound, ErrCodeConsentNotFound, ErrCodeExportNotFound, ErrCodeRestrictionNotFound, ErrCodeExportFileMissing:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodeExportNotReady:
		return http.StatusConflict
	case ErrCodeGone, ErrCodeExportExpired:
		return http.StatusGone
	case ErrCodeRestrictionLimit:
		return http.StatusUnprocessableEntity
	case ErrCodeInternalError, ErrCodeDatabaseError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewSuccessResponse creates a new success response
func NewSuccessResponse(message string, data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Message: message,
		Data:    data,
	}
}

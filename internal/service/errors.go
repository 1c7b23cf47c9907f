package service

import "errors"

// Sentinel errors returned by the service layer. Handlers map these to
// API error codes.
var (
	// ErrUnknownConsentType is returned for a consent type not in the catalog
	ErrUnknownConsentType = errors.New("unknown consent type")

	// ErrUnsupportedFormat is returned for an export format that is not configured
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrInvalidCategory is returned for an unrecognized export data category
	ErrInvalidCategory = errors.New("invalid export category")

	// ErrExportNotFound is returned when no export carries the given token
	ErrExportNotFound = errors.New("export not found")

	// ErrExportNotReady is returned when downloading an export that is still being produced
	ErrExportNotReady = errors.New("export not ready")

	// ErrExportExpired is returned when downloading an export past its retention window
	ErrExportExpired = errors.New("export expired")

	// ErrFileMissing is returned when a completed export's file is gone from storage
	ErrFileMissing = errors.New("export file missing")

	// ErrRestrictionLimit is returned when a user already has the maximum number of active restrictions
	ErrRestrictionLimit = errors.New("active restriction limit reached")

	// ErrInvalidRestrictionType is returned for an unrecognized restriction type
	ErrInvalidRestrictionType = errors.New("invalid restriction type")

	// ErrRestrictionNotFound is returned when lifting a restriction that does not exist or is not active
	ErrRestrictionNotFound = errors.New("restriction not found")
)

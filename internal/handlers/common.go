package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/florenceegi/gdpr-api/internal/models"
	"github.com/florenceegi/gdpr-api/internal/service"
	"github.com/florenceegi/gdpr-api/internal/utils"
	pkgutils "github.com/florenceegi/gdpr-api/pkg/utils"
)

// requestMeta builds the request context stored with consent decisions.
// The client IP is masked before it leaves the handler.
func requestMeta(c *gin.Context, source string) *models.ConsentMeta {
	if source == "" {
		source = "api"
	}
	return &models.ConsentMeta{
		IPAddress: pkgutils.MaskIPAddress(c.ClientIP()),
		UserAgent: pkgutils.SummarizeUserAgent(c.Request.UserAgent()),
		Source:    source,
	}
}

// auditContext builds the audit request context with the same masking
func auditContext(c *gin.Context) *service.AuditContext {
	return &service.AuditContext{
		IPAddress: pkgutils.MaskIPAddress(c.ClientIP()),
		UserAgent: pkgutils.SummarizeUserAgent(c.Request.UserAgent()),
	}
}

// sendServiceError maps service sentinel errors to API error responses
func sendServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownConsentType):
		utils.SendErrorForCode(c, models.ErrCodeUnknownConsentType, "Unknown consent type", err.Error())
	case errors.Is(err, service.ErrUnsupportedFormat):
		utils.SendErrorForCode(c, models.ErrCodeUnsupportedFormat, "Unsupported export format", err.Error())
	case errors.Is(err, service.ErrInvalidCategory):
		utils.SendErrorForCode(c, models.ErrCodeInvalidCategory, "Invalid export category", err.Error())
	case errors.Is(err, service.ErrExportNotFound):
		utils.SendErrorForCode(c, models.ErrCodeExportNotFound, "Export not found", "")
	case errors.Is(err, service.ErrExportNotReady):
		utils.SendErrorForCode(c, models.ErrCodeExportNotReady, "Export is not ready for download", "")
	case errors.Is(err, service.ErrExportExpired):
		utils.SendErrorForCode(c, models.ErrCodeExportExpired, "Export has expired", "")
	case errors.Is(err, service.ErrFileMissing):
		utils.SendErrorForCode(c, models.ErrCodeExportFileMissing, "Export file is no longer available", "")
	case errors.Is(err, service.ErrRestrictionLimit):
		utils.SendErrorForCode(c, models.ErrCodeRestrictionLimit, "Active restriction limit reached", "")
	case errors.Is(err, service.ErrInvalidRestrictionType):
		utils.SendBadRequestError(c, "Invalid restriction type", err.Error())
	case errors.Is(err, service.ErrRestrictionNotFound):
		utils.SendErrorForCode(c, models.ErrCodeRestrictionNotFound, "Restriction not found", "")
	default:
		utils.SendInternalServerError(c, "Internal server error", err.Error())
	}
}

// userIDParam extracts and validates the userId path parameter
func userIDParam(c *gin.Context) (string, bool) {
	userID := c.Param("userId")
	if err := pkgutils.ValidateUserID(userID); err != nil {
		utils.SendValidationError(c, err.Error())
		return "", false
	}
	return userID, true
}

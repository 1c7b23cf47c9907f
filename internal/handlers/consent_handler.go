package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/florenceegi/gdpr-api/internal/models"
	"github.com/florenceegi/gdpr-api/internal/service"
	"github.com/florenceegi/gdpr-api/internal/utils"
	pkgutils "github.com/florenceegi/gdpr-api/pkg/utils"
)

// ConsentHandler handles consent-related HTTP requests
type ConsentHandler struct {
	consentService *service.ConsentService
}

// NewConsentHandler creates a new consent handler instance
func NewConsentHandler(consentService *service.ConsentService) *ConsentHandler {
	return &ConsentHandler{consentService: consentService}
}

// GetStatus handles GET /users/:userId/consents
func (h *ConsentHandler) GetStatus(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	view, err := h.consentService.GetStatus(c.Request.Context(), userID)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, view)
}

// UpdateConsents handles PUT /users/:userId/consents
func (h *ConsentHandler) UpdateConsents(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var request models.ConsentUpdateAPIRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}
	if len(request.Consents) == 0 {
		utils.SendValidationError(c, "consents must not be empty")
		return
	}

	changeSet, err := h.consentService.UpdateConsents(c.Request.Context(), userID, request.Consents, requestMeta(c, request.Source))
	if err != nil {
		sendServiceError(c, err)
		return
	}

	status, err := h.consentService.GetStatus(c.Request.Context(), userID)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, &models.ConsentUpdateAPIResponse{
		UserID:    userID,
		ChangeSet: changeSet,
		Status:    status,
	})
}

// Grant handles POST /users/:userId/consents/grant
func (h *ConsentHandler) Grant(c *gin.Context) {
	h.singleDecision(c, h.consentService.Grant)
}

// Renew handles POST /users/:userId/consents/renew
func (h *ConsentHandler) Renew(c *gin.Context) {
	h.singleDecision(c, h.consentService.Renew)
}

func (h *ConsentHandler) singleDecision(c *gin.Context, op func(context.Context, string, string, *models.ConsentMeta) (bool, error)) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var request models.ConsentGrantAPIRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}
	if err := pkgutils.ValidateConsentType(request.ConsentType); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	applied, err := op(c.Request.Context(), userID, request.ConsentType, requestMeta(c, request.Source))
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, gin.H{
		"userId":      userID,
		"consentType": request.ConsentType,
		"applied":     applied,
	})
}

// Withdraw handles POST /users/:userId/consents/withdraw
func (h *ConsentHandler) Withdraw(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var request models.ConsentWithdrawAPIRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}
	if err := pkgutils.ValidateConsentType(request.ConsentType); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	withdrawn, err := h.consentService.Withdraw(c.Request.Context(), userID, request.ConsentType, requestMeta(c, request.Source))
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, gin.H{
		"userId":      userID,
		"consentType": request.ConsentType,
		"withdrawn":   withdrawn,
	})
}

// CreateDefaults handles POST /users/:userId/consents/defaults. The
// body is optional; it may seed initial decisions.
func (h *ConsentHandler) CreateDefaults(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var request models.ConsentDefaultsAPIRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			utils.SendBadRequestError(c, "Invalid request body", err.Error())
			return
		}
	}
	if request.Source == "" {
		request.Source = "registration"
	}

	created, err := h.consentService.CreateDefaults(c.Request.Context(), userID, request.Initial, requestMeta(c, request.Source))
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendCreatedResponse(c, gin.H{
		"userId":  userID,
		"created": created,
	})
}

// Check handles GET /users/:userId/consents/check?type=
func (h *ConsentHandler) Check(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	consentType := c.Query("type")
	if err := pkgutils.ValidateConsentType(consentType); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	granted, err := h.consentService.HasConsent(c.Request.Context(), userID, consentType)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, gin.H{
		"userId":      userID,
		"consentType": consentType,
		"granted":     granted,
	})
}

// History handles GET /users/:userId/consents/history
func (h *ConsentHandler) History(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	pagination := utils.PaginationFromQuery(c)
	records, total, err := h.consentService.History(c.Request.Context(), userID, pagination.Limit, pagination.Offset)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, gin.H{
		"records":    records,
		"pagination": utils.CalculatePaginationMetadata(total, pagination.Limit, pagination.Offset),
	})
}

// DetailedHistory handles GET /users/:userId/consents/history/detailed
func (h *ConsentHandler) DetailedHistory(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	pagination := utils.PaginationFromQuery(c)
	entries, total, err := h.consentService.DetailedHistory(c.Request.Context(), userID, pagination.Limit, pagination.Offset)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, gin.H{
		"entries":    entries,
		"pagination": utils.CalculatePaginationMetadata(total, pagination.Limit, pagination.Offset),
	})
}

// ListTypes handles GET /consent-types
func (h *ConsentHandler) ListTypes(c *gin.Context) {
	utils.SendOKResponse(c, gin.H{"types": h.consentService.Types()})
}

// CurrentVersion handles GET /consent-versions/current
func (h *ConsentHandler) CurrentVersion(c *gin.Context) {
	version, err := h.consentService.CurrentVersion(c.Request.Context())
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, version)
}

// ListVersions handles GET /consent-versions
func (h *ConsentHandler) ListVersions(c *gin.Context) {
	pagination := utils.PaginationFromQuery(c)
	versions, err := h.consentService.ListVersions(c.Request.Context(), pagination.Limit, pagination.Offset)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, gin.H{"versions": versions})
}

// CreateVersion handles POST /consent-versions
func (h *ConsentHandler) CreateVersion(c *gin.Context) {
	var request models.ConsentVersionAPIRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	version, err := h.consentService.CreateVersion(c.Request.Context(), &request)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendCreatedResponse(c, version)
}

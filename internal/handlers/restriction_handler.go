package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/florenceegi/gdpr-api/internal/models"
	"github.com/florenceegi/gdpr-api/internal/service"
	"github.com/florenceegi/gdpr-api/internal/utils"
)

// RestrictionHandler handles processing restriction HTTP requests
type RestrictionHandler struct {
	restrictionService *service.RestrictionService
}

// NewRestrictionHandler creates a new restriction handler instance
func NewRestrictionHandler(restrictionService *service.RestrictionService) *RestrictionHandler {
	return &RestrictionHandler{restrictionService: restrictionService}
}

// Create handles POST /users/:userId/restrictions
func (h *RestrictionHandler) Create(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var request models.RestrictionCreateAPIRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	restriction, err := h.restrictionService.Create(c.Request.Context(), userID, &request, auditContext(c))
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendCreatedResponse(c, restriction)
}

// List handles GET /users/:userId/restrictions
func (h *RestrictionHandler) List(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	restrictions, err := h.restrictionService.ListActive(c.Request.Context(), userID)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, gin.H{"restrictions": restrictions})
}

// Lift handles DELETE /users/:userId/restrictions/:restrictionId
func (h *RestrictionHandler) Lift(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	restrictionID := c.Param("restrictionId")
	if restrictionID == "" {
		utils.SendValidationError(c, "restrictionId is required")
		return
	}

	if err := h.restrictionService.Lift(c.Request.Context(), userID, restrictionID, auditContext(c)); err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendNoContentResponse(c)
}

// Check handles GET /users/:userId/restrictions/check
func (h *RestrictionHandler) Check(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	processingType := c.Query("processingType")
	if processingType == "" {
		utils.SendValidationError(c, "processingType is required")
		return
	}
	dataCategory := c.Query("category")

	check, err := h.restrictionService.Applies(c.Request.Context(), userID, processingType, dataCategory)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, check)
}

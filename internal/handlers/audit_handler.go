package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/florenceegi/gdpr-api/internal/service"
	"github.com/florenceegi/gdpr-api/internal/utils"
)

// AuditHandler handles audit trail HTTP requests
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler creates a new audit handler instance
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// History handles GET /users/:userId/audit
func (h *AuditHandler) History(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	pagination := utils.PaginationFromQuery(c)
	entries, total, err := h.auditService.History(c.Request.Context(), userID, pagination.Limit, pagination.Offset)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, gin.H{
		"entries":    entries,
		"pagination": utils.CalculatePaginationMetadata(total, pagination.Limit, pagination.Offset),
	})
}

package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/florenceegi/gdpr-api/internal/models"
	"github.com/florenceegi/gdpr-api/internal/service"
	"github.com/florenceegi/gdpr-api/internal/utils"
	pkgutils "github.com/florenceegi/gdpr-api/pkg/utils"
)

// ExportHandler handles data export HTTP requests
type ExportHandler struct {
	exportService *service.ExportService
}

// NewExportHandler creates a new export handler instance
func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// Request handles POST /users/:userId/exports. A deduplicated request
// answers 200 with the existing job; a new one answers 202.
func (h *ExportHandler) Request(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var request models.ExportRequestAPIRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	job, existing, err := h.exportService.Request(c.Request.Context(), userID, request.Format, request.Categories, auditContext(c))
	if err != nil {
		sendServiceError(c, err)
		return
	}

	response := &models.ExportRequestAPIResponse{
		ExportID:    job.ExportID,
		Token:       job.Token,
		Status:      job.Status,
		Format:      job.Format,
		Categories:  job.CategoryList(),
		Existing:    existing,
		ExpiresTime: job.ExpiresTime,
	}

	if existing {
		utils.SendOKResponse(c, response)
		return
	}
	utils.SendAcceptedResponse(c, response)
}

// Status handles GET /exports/:token/status
func (h *ExportHandler) Status(c *gin.Context) {
	token := c.Param("token")
	if err := pkgutils.ValidateExportToken(token); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	job, err := h.exportService.Status(c.Request.Context(), token)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, job.ToStatusResponse())
}

// Download handles GET /exports/:token/download
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Param("token")
	if err := pkgutils.ValidateExportToken(token); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	job, reader, filename, err := h.exportService.Download(c.Request.Context(), token, auditContext(c))
	if err != nil {
		sendServiceError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", contentTypeForFormat(job.Format))
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, reader); err != nil {
		// headers are already written; nothing useful to send
		_ = c.Error(err)
	}
}

func contentTypeForFormat(format string) string {
	switch format {
	case "json":
		return "application/json"
	case "csv":
		return "application/zip"
	case "pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// History handles GET /users/:userId/exports
func (h *ExportHandler) History(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	pagination := utils.PaginationFromQuery(c)
	exports, total, err := h.exportService.History(c.Request.Context(), userID, pagination.Limit, pagination.Offset)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	responses := make([]*models.ExportStatusAPIResponse, 0, len(exports))
	for i := range exports {
		responses = append(responses, exports[i].ToStatusResponse())
	}

	utils.SendOKResponse(c, gin.H{
		"exports":    responses,
		"pagination": utils.CalculatePaginationMetadata(total, pagination.Limit, pagination.Offset),
	})
}

// Categories handles GET /export-categories
func (h *ExportHandler) Categories(c *gin.Context) {
	utils.SendOKResponse(c, gin.H{"categories": h.exportService.Categories()})
}

// Formats handles GET /export-formats
func (h *ExportHandler) Formats(c *gin.Context) {
	utils.SendOKResponse(c, gin.H{"formats": h.exportService.Formats()})
}

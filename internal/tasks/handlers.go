package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/florenceegi/gdpr-api/internal/service"
)

// Handler processes queued tasks against the service layer
type Handler struct {
	exportService      *service.ExportService
	restrictionService *service.RestrictionService
	logger             *logrus.Logger
}

// NewHandler creates a new task handler
func NewHandler(exportService *service.ExportService, restrictionService *service.RestrictionService, logger *logrus.Logger) *Handler {
	return &Handler{
		exportService:      exportService,
		restrictionService: restrictionService,
		logger:             logger,
	}
}

// HandleExportProcess produces the export file for a queued job
func (h *Handler) HandleExportProcess(ctx context.Context, task *asynq.Task) error {
	var payload ExportProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal export task payload: %v: %w", err, asynq.SkipRetry)
	}

	h.logger.WithField("export_id", payload.ExportID).Info("Processing export task")

	if err := h.exportService.Process(ctx, payload.ExportID); err != nil {
		// the job row is already marked failed; retrying would reprocess
		// a non-pending job and no-op, so drop the task
		return fmt.Errorf("export processing failed: %v: %w", err, asynq.SkipRetry)
	}

	return nil
}

// HandleExportPurge deletes expired export files
func (h *Handler) HandleExportPurge(ctx context.Context, task *asynq.Task) error {
	purged, err := h.exportService.ExpireAndPurge(ctx)
	if err != nil {
		return fmt.Errorf("export purge failed: %w", err)
	}

	h.logger.WithField("purged", purged).Debug("Export purge sweep finished")
	return nil
}

// HandleRestrictionExpire expires processing restrictions past their deadline
func (h *Handler) HandleRestrictionExpire(ctx context.Context, task *asynq.Task) error {
	expired, err := h.restrictionService.ExpireRestrictions(ctx)
	if err != nil {
		return fmt.Errorf("restriction expiry sweep failed: %w", err)
	}

	h.logger.WithField("expired", expired).Debug("Restriction expiry sweep finished")
	return nil
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/florenceegi/gdpr-api/internal/config"
	"github.com/florenceegi/gdpr-api/internal/export"
	"github.com/florenceegi/gdpr-api/internal/metrics"
	"github.com/florenceegi/gdpr-api/internal/models"
	"github.com/florenceegi/gdpr-api/internal/storage"
	"github.com/florenceegi/gdpr-api/pkg/utils"
)

// ExportEnqueuer hands a created export to the async worker
type ExportEnqueuer interface {
	EnqueueExportProcess(ctx context.Context, exportID string) error
}

// collectEnd marks the share of progress spent gathering data; the
// remainder covers serialization and storage
const collectEnd = 80

func retentionMillis(days int) int64 {
	return int64(days) * 24 * int64(time.Hour/time.Millisecond)
}

// ExportService handles the personal data export pipeline: request
// intake with in-flight deduplication, async production of the export
// file, token-gated download and retention purge.
type ExportService struct {
	exportDAO      DataExportStore
	recordDAO      ConsentRecordStore
	restrictionDAO RestrictionStore
	auditDAO       AuditStore
	userDAO        UserStore
	store          storage.Store
	enqueuer       ExportEnqueuer
	audit          *AuditService
	cfg            *config.ExportConfig
	logger         *logrus.Logger
}

// NewExportService creates a new export service instance
func NewExportService(
	exportDAO DataExportStore,
	recordDAO ConsentRecordStore,
	restrictionDAO RestrictionStore,
	auditDAO AuditStore,
	userDAO UserStore,
	store storage.Store,
	enqueuer ExportEnqueuer,
	audit *AuditService,
	cfg *config.ExportConfig,
	logger *logrus.Logger,
) *ExportService {
	return &ExportService{
		exportDAO:      exportDAO,
		recordDAO:      recordDAO,
		restrictionDAO: restrictionDAO,
		auditDAO:       auditDAO,
		userDAO:        userDAO,
		store:          store,
		enqueuer:       enqueuer,
		audit:          audit,
		cfg:            cfg,
		logger:         logger,
	}
}

// Request creates a new export job, or returns the user's in-flight job
// when one exists. The second return value reports deduplication.
func (s *ExportService) Request(ctx context.Context, userID, format string, categories []string, auditCtx *AuditContext) (*models.DataExport, bool, error) {
	if !s.cfg.IsFormatSupported(format) {
		return nil, false, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if len(categories) == 0 {
		categories = s.cfg.CategorySlugs()
	}
	for _, c := range categories {
		if !s.cfg.IsCategoryKnown(c) {
			return nil, false, fmt.Errorf("%w: %s", ErrInvalidCategory, c)
		}
	}

	existing, err := s.exportDAO.FindInFlight(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id":   userID,
			"export_id": existing.ExportID,
		}).Info("Returning in-flight export instead of creating a new one")
		return existing, true, nil
	}

	rawCategories, err := json.Marshal(categories)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal export categories: %w", err)
	}

	now := utils.GetCurrentTimeMillis()
	expires := now + retentionMillis(s.cfg.RetentionDays)
	job := &models.DataExport{
		ExportID:    utils.GenerateExportID(),
		UserID:      userID,
		Token:       utils.GenerateExportToken(),
		Format:      format,
		Categories:  models.JSON(rawCategories),
		Status:      models.ExportStatusPending,
		Progress:    0,
		CreatedTime: now,
		UpdatedTime: now,
		ExpiresTime: &expires,
	}

	if err := s.exportDAO.Create(ctx, job); err != nil {
		return nil, false, err
	}

	if err := s.enqueuer.EnqueueExportProcess(ctx, job.ExportID); err != nil {
		// the job row stays pending; the retention sweep will surface it
		s.logger.WithError(err).WithField("export_id", job.ExportID).Error("Failed to enqueue export processing")
		return nil, false, fmt.Errorf("failed to enqueue export: %w", err)
	}

	s.audit.Record(ctx, userID, models.AuditActionExportRequested, models.AuditEntityExport, &job.ExportID, auditCtx, map[string]interface{}{
		"format":     format,
		"categories": categories,
	})
	metrics.ExportsRequested.WithLabelValues(format).Inc()

	s.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"export_id": job.ExportID,
		"format":    format,
	}).Info("Export requested")

	return job, false, nil
}

// Status retrieves an export by its token for progress polling
func (s *ExportService) Status(ctx context.Context, token string) (*models.DataExport, error) {
	job, err := s.exportDAO.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrExportNotFound
	}
	return job, nil
}

// Process produces the export file for a pending job. Collection is
// all-or-nothing: any failing category fails the whole job.
func (s *ExportService) Process(ctx context.Context, exportID string) error {
	job, err := s.exportDAO.GetByID(ctx, exportID)
	if err != nil {
		return err
	}
	if job.Status != models.ExportStatusPending {
		s.logger.WithFields(logrus.Fields{
			"export_id": exportID,
			"status":    job.Status,
		}).Warn("Skipping export job not in pending state")
		return nil
	}

	started := time.Now()
	if err := s.exportDAO.UpdateStatus(ctx, exportID, models.ExportStatusProcessing, utils.GetCurrentTimeMillis()); err != nil {
		return err
	}

	payload, err := s.collect(ctx, job)
	if err != nil {
		return s.fail(ctx, job, err)
	}

	data, ext, err := s.serialize(payload, job.Format)
	if err != nil {
		return s.fail(ctx, job, err)
	}

	if s.cfg.MaxSizeBytes > 0 && int64(len(data)) > s.cfg.MaxSizeBytes {
		return s.fail(ctx, job, fmt.Errorf("export exceeds maximum size of %d bytes", s.cfg.MaxSizeBytes))
	}

	filePath := fmt.Sprintf("%s/%s.%s", job.UserID, job.ExportID, ext)
	size, err := s.store.Put(filePath, bytes.NewReader(data))
	if err != nil {
		return s.fail(ctx, job, err)
	}

	// retention is measured from the request, not from completion
	now := utils.GetCurrentTimeMillis()
	expires := job.CreatedTime + retentionMillis(s.cfg.RetentionDays)
	if job.ExpiresTime != nil {
		expires = *job.ExpiresTime
	}
	if err := s.exportDAO.MarkCompleted(ctx, exportID, filePath, size, now, expires); err != nil {
		return err
	}

	s.audit.Record(ctx, job.UserID, models.AuditActionExportCompleted, models.AuditEntityExport, &job.ExportID, nil, map[string]interface{}{
		"format":    job.Format,
		"file_size": size,
	})
	metrics.ExportsProcessed.WithLabelValues(job.Format, "completed").Inc()
	metrics.ExportDuration.WithLabelValues(job.Format).Observe(time.Since(started).Seconds())

	s.logger.WithFields(logrus.Fields{
		"export_id": exportID,
		"user_id":   job.UserID,
		"file_size": size,
	}).Info("Export completed")

	return nil
}

func (s *ExportService) fail(ctx context.Context, job *models.DataExport, cause error) error {
	s.logger.WithError(cause).WithField("export_id", job.ExportID).Error("Export processing failed")

	if err := s.exportDAO.MarkFailed(ctx, job.ExportID, cause.Error(), utils.GetCurrentTimeMillis()); err != nil {
		s.logger.WithError(err).WithField("export_id", job.ExportID).Error("Failed to record export failure")
	}

	s.audit.Record(ctx, job.UserID, models.AuditActionExportFailed, models.AuditEntityExport, &job.ExportID, nil, map[string]interface{}{
		"error": cause.Error(),
	})
	metrics.ExportsProcessed.WithLabelValues(job.Format, "failed").Inc()

	return cause
}

// collect gathers the requested categories, advancing progress as each
// category completes
func (s *ExportService) collect(ctx context.Context, job *models.DataExport) (export.Payload, error) {
	var categories []string
	if err := json.Unmarshal(job.Categories, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode export categories: %w", err)
	}
	if len(categories) == 0 {
		categories = s.cfg.CategorySlugs()
	}

	payload := export.Payload{
		export.InfoKey: map[string]interface{}{
			"userId":      job.UserID,
			"exportId":    job.ExportID,
			"format":      job.Format,
			"categories":  categories,
			"generatedAt": utils.FormatMillis(utils.GetCurrentTimeMillis()),
		},
	}

	for i, category := range categories {
		data, err := s.collectCategory(ctx, job.UserID, category)
		if err != nil {
			return nil, fmt.Errorf("failed to collect category %s: %w", category, err)
		}
		payload[category] = data

		progress := (i + 1) * collectEnd / len(categories)
		if err := s.exportDAO.UpdateProgress(ctx, job.ExportID, progress, utils.GetCurrentTimeMillis()); err != nil {
			s.logger.WithError(err).WithField("export_id", job.ExportID).Warn("Failed to update export progress")
		}
	}

	return payload, nil
}

func (s *ExportService) collectCategory(ctx context.Context, userID, category string) (interface{}, error) {
	switch category {
	case "profile":
		return s.collectProfile(ctx, userID)
	case "consents":
		return s.collectConsents(ctx, userID)
	case "restrictions":
		return s.collectRestrictions(ctx, userID)
	case "exports":
		return s.collectExports(ctx, userID)
	case "audit":
		return s.collectAudit(ctx, userID)
	default:
		// configured but not collected by this service
		return map[string]interface{}{"note": "no data held for this category"}, nil
	}
}

func (s *ExportService) collectProfile(ctx context.Context, userID string) (interface{}, error) {
	user, err := s.userDAO.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return map[string]interface{}{}, nil
	}
	return user, nil
}

func (s *ExportService) collectConsents(ctx context.Context, userID string) (interface{}, error) {
	records, err := s.recordDAO.ListByUser(ctx, userID, 1000, 0)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *ExportService) collectRestrictions(ctx context.Context, userID string) (interface{}, error) {
	restrictions, err := s.restrictionDAO.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	return restrictions, nil
}

func (s *ExportService) collectExports(ctx context.Context, userID string) (interface{}, error) {
	exports, err := s.exportDAO.ListByUser(ctx, userID, 100, 0)
	if err != nil {
		return nil, err
	}
	return exports, nil
}

func (s *ExportService) collectAudit(ctx context.Context, userID string) (interface{}, error) {
	entries, err := s.auditDAO.ListByUser(ctx, userID, 1000, 0)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *ExportService) serialize(payload export.Payload, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case "json":
		if err := export.WriteJSON(&buf, payload); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "json", nil
	case "csv":
		if err := export.WriteCSVZip(&buf, payload); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "zip", nil
	case "pdf":
		if err := export.WritePDF(&buf, payload, "Personal Data Export"); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "pdf", nil
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Download opens a completed export file by token, bumping the download
// counter. Callers own closing the returned reader.
func (s *ExportService) Download(ctx context.Context, token string, auditCtx *AuditContext) (*models.DataExport, io.ReadCloser, string, error) {
	job, err := s.exportDAO.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, "", err
	}
	if job == nil {
		return nil, nil, "", ErrExportNotFound
	}

	if job.IsInFlight() {
		return nil, nil, "", ErrExportNotReady
	}
	if job.Status == models.ExportStatusExpired || (job.ExpiresTime != nil && utils.IsExpired(*job.ExpiresTime)) {
		return nil, nil, "", ErrExportExpired
	}
	if !job.IsDownloadable() || job.FilePath == nil {
		return nil, nil, "", ErrExportNotReady
	}

	exists, err := s.store.Exists(*job.FilePath)
	if err != nil {
		return nil, nil, "", err
	}
	if !exists {
		return nil, nil, "", ErrFileMissing
	}

	reader, err := s.store.Open(*job.FilePath)
	if err != nil {
		return nil, nil, "", err
	}

	if err := s.exportDAO.IncrementDownload(ctx, job.ExportID, utils.GetCurrentTimeMillis()); err != nil {
		s.logger.WithError(err).WithField("export_id", job.ExportID).Warn("Failed to record export download")
	}

	s.audit.Record(ctx, job.UserID, models.AuditActionExportDownloaded, models.AuditEntityExport, &job.ExportID, auditCtx, nil)

	return job, reader, s.downloadFilename(job), nil
}

func (s *ExportService) downloadFilename(job *models.DataExport) string {
	ext := job.Format
	if job.Format == "csv" {
		ext = "zip"
	}
	date := utils.MillisToTime(job.CreatedTime).UTC().Format("2006-01-02")
	return fmt.Sprintf("florence_egi_data_export_%s_%s.%s", job.UserID, date, ext)
}

// ExpireAndPurge deletes files of completed exports past their
// retention window and flips them to expired. Failures on one job do
// not block the rest.
func (s *ExportService) ExpireAndPurge(ctx context.Context) (int, error) {
	expired, err := s.exportDAO.ListExpired(ctx, utils.GetCurrentTimeMillis())
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, job := range expired {
		if job.FilePath != nil {
			if err := s.store.Delete(*job.FilePath); err != nil {
				s.logger.WithError(err).WithField("export_id", job.ExportID).Error("Failed to delete expired export file")
				continue
			}
		}

		if err := s.exportDAO.MarkExpired(ctx, job.ExportID, utils.GetCurrentTimeMillis()); err != nil {
			s.logger.WithError(err).WithField("export_id", job.ExportID).Error("Failed to mark export expired")
			continue
		}

		s.audit.Record(ctx, job.UserID, models.AuditActionExportExpired, models.AuditEntityExport, &job.ExportID, nil, nil)
		purged++
	}

	if purged > 0 {
		s.logger.WithField("count", purged).Info("Purged expired exports")
	}

	return purged, nil
}

// History retrieves a user's exports with the total count
func (s *ExportService) History(ctx context.Context, userID string, limit, offset int) ([]models.DataExport, int, error) {
	exports, err := s.exportDAO.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.exportDAO.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return exports, total, nil
}

// Categories returns the configured exportable data categories
func (s *ExportService) Categories() []models.ExportCategoryInfo {
	out := make([]models.ExportCategoryInfo, 0, len(s.cfg.Categories))
	for _, c := range s.cfg.Categories {
		out = append(out, models.ExportCategoryInfo{
			Slug:        c.Slug,
			Name:        c.Name,
			Description: c.Description,
		})
	}
	return out
}

// Formats returns the configured export formats
func (s *ExportService) Formats() []string {
	out := make([]string, len(s.cfg.Formats))
	copy(out, s.cfg.Formats)
	return out
}

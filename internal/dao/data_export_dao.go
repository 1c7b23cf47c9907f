package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/florenceegi/gdpr-api/internal/database"
	"github.com/florenceegi/gdpr-api/internal/models"
)

// DataExportDAO handles database operations for data exports
type DataExportDAO struct {
	db *database.DB
}

// NewDataExportDAO creates a new DataExportDAO instance
func NewDataExportDAO(db *database.DB) *DataExportDAO {
	return &DataExportDAO{db: db}
}

const dataExportColumns = `EXPORT_ID, USER_ID, TOKEN, FORMAT, CATEGORIES, STATUS, PROGRESS,
	       FILE_PATH, FILE_SIZE, ERROR, DOWNLOAD_COUNT, LAST_DOWNLOAD_TIME,
	       CREATED_TIME, UPDATED_TIME, COMPLETED_TIME, EXPIRES_TIME`

// Create inserts a new export request
func (dao *DataExportDAO) Create(ctx context.Context, export *models.DataExport) error {
	query := `
		INSERT INTO GDPR_DATA_EXPORT (
			EXPORT_ID, USER_ID, TOKEN, FORMAT, CATEGORIES, STATUS, PROGRESS,
			FILE_PATH, FILE_SIZE, ERROR, DOWNLOAD_COUNT, LAST_DOWNLOAD_TIME,
			CREATED_TIME, UPDATED_TIME, COMPLETED_TIME, EXPIRES_TIME
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := dao.db.ExecContext(
		ctx,
		query,
		export.ExportID,
		export.UserID,
		export.Token,
		export.Format,
		export.Categories,
		export.Status,
		export.Progress,
		export.FilePath,
		export.FileSize,
		export.Error,
		export.DownloadCount,
		export.LastDownloadTime,
		export.CreatedTime,
		export.UpdatedTime,
		export.CompletedTime,
		export.ExpiresTime,
	)

	if err != nil {
		return fmt.Errorf("failed to create data export: %w", err)
	}

	return nil
}

// GetByToken retrieves an export by its download token. Returns nil
// when no export carries the token.
func (dao *DataExportDAO) GetByToken(ctx context.Context, token string) (*models.DataExport, error) {
	query := `
		SELECT ` + dataExportColumns + `
		FROM GDPR_DATA_EXPORT
		WHERE TOKEN = ?
	`

	var export models.DataExport
	err := dao.db.GetContext(ctx, &export, query, token)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get data export by token: %w", err)
	}

	return &export, nil
}

// GetByID retrieves an export by ID
func (dao *DataExportDAO) GetByID(ctx context.Context, exportID string) (*models.DataExport, error) {
	query := `
		SELECT ` + dataExportColumns + `
		FROM GDPR_DATA_EXPORT
		WHERE EXPORT_ID = ?
	`

	var export models.DataExport
	err := dao.db.GetContext(ctx, &export, query, exportID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("data export not found: %s", exportID)
		}
		return nil, fmt.Errorf("failed to get data export: %w", err)
	}

	return &export, nil
}

// FindInFlight retrieves the newest pending or processing export for a
// user, if one exists. Used to deduplicate concurrent requests.
func (dao *DataExportDAO) FindInFlight(ctx context.Context, userID string) (*models.DataExport, error) {
	query := `
		SELECT ` + dataExportColumns + `
		FROM GDPR_DATA_EXPORT
		WHERE USER_ID = ? AND STATUS IN (?, ?)
		ORDER BY CREATED_TIME DESC
		LIMIT 1
	`

	var export models.DataExport
	err := dao.db.GetContext(ctx, &export, query, userID, models.ExportStatusPending, models.ExportStatusProcessing)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find in-flight export: %w", err)
	}

	return &export, nil
}

// ListByUser retrieves a user's exports, newest first
func (dao *DataExportDAO) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.DataExport, error) {
	query := `
		SELECT ` + dataExportColumns + `
		FROM GDPR_DATA_EXPORT
		WHERE USER_ID = ?
		ORDER BY CREATED_TIME DESC
		LIMIT ? OFFSET ?
	`

	var exports []models.DataExport
	err := dao.db.SelectContext(ctx, &exports, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list data exports: %w", err)
	}

	return exports, nil
}

// CountByUser counts exports for a user
func (dao *DataExportDAO) CountByUser(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM GDPR_DATA_EXPORT WHERE USER_ID = ?`

	var count int
	err := dao.db.GetContext(ctx, &count, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count data exports: %w", err)
	}

	return count, nil
}

// UpdateStatus sets the status and update timestamp of an export
func (dao *DataExportDAO) UpdateStatus(ctx context.Context, exportID, status string, updatedTime int64) error {
	query := `
		UPDATE GDPR_DATA_EXPORT
		SET STATUS = ?, UPDATED_TIME = ?
		WHERE EXPORT_ID = ?
	`

	result, err := dao.db.ExecContext(ctx, query, status, updatedTime, exportID)
	if err != nil {
		return fmt.Errorf("failed to update export status: %w", err)
	}

	return checkExportAffected(result, exportID)
}

// UpdateProgress sets the progress percentage of a running export
func (dao *DataExportDAO) UpdateProgress(ctx context.Context, exportID string, progress int, updatedTime int64) error {
	query := `
		UPDATE GDPR_DATA_EXPORT
		SET PROGRESS = ?, UPDATED_TIME = ?
		WHERE EXPORT_ID = ?
	`

	result, err := dao.db.ExecContext(ctx, query, progress, updatedTime, exportID)
	if err != nil {
		return fmt.Errorf("failed to update export progress: %w", err)
	}

	return checkExportAffected(result, exportID)
}

// MarkCompleted records the produced file and flips the export to completed
func (dao *DataExportDAO) MarkCompleted(ctx context.Context, exportID, filePath string, fileSize int64, completedTime, expiresTime int64) error {
	query := `
		UPDATE GDPR_DATA_EXPORT
		SET STATUS = ?, PROGRESS = 100, FILE_PATH = ?, FILE_SIZE = ?,
		    COMPLETED_TIME = ?, EXPIRES_TIME = ?, UPDATED_TIME = ?
		WHERE EXPORT_ID = ?
	`

	result, err := dao.db.ExecContext(
		ctx,
		query,
		models.ExportStatusCompleted,
		filePath,
		fileSize,
		completedTime,
		expiresTime,
		completedTime,
		exportID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark export completed: %w", err)
	}

	return checkExportAffected(result, exportID)
}

// MarkFailed records the failure reason and flips the export to failed
func (dao *DataExportDAO) MarkFailed(ctx context.Context, exportID, reason string, updatedTime int64) error {
	query := `
		UPDATE GDPR_DATA_EXPORT
		SET STATUS = ?, ERROR = ?, UPDATED_TIME = ?
		WHERE EXPORT_ID = ?
	`

	result, err := dao.db.ExecContext(ctx, query, models.ExportStatusFailed, reason, updatedTime, exportID)
	if err != nil {
		return fmt.Errorf("failed to mark export failed: %w", err)
	}

	return checkExportAffected(result, exportID)
}

// MarkExpired clears the file path and flips the export to expired
func (dao *DataExportDAO) MarkExpired(ctx context.Context, exportID string, updatedTime int64) error {
	query := `
		UPDATE GDPR_DATA_EXPORT
		SET STATUS = ?, FILE_PATH = NULL, UPDATED_TIME = ?
		WHERE EXPORT_ID = ?
	`

	result, err := dao.db.ExecContext(ctx, query, models.ExportStatusExpired, updatedTime, exportID)
	if err != nil {
		return fmt.Errorf("failed to mark export expired: %w", err)
	}

	return checkExportAffected(result, exportID)
}

// IncrementDownload bumps the download counter and records the download time
func (dao *DataExportDAO) IncrementDownload(ctx context.Context, exportID string, downloadTime int64) error {
	query := `
		UPDATE GDPR_DATA_EXPORT
		SET DOWNLOAD_COUNT = DOWNLOAD_COUNT + 1, LAST_DOWNLOAD_TIME = ?, UPDATED_TIME = ?
		WHERE EXPORT_ID = ?
	`

	result, err := dao.db.ExecContext(ctx, query, downloadTime, downloadTime, exportID)
	if err != nil {
		return fmt.Errorf("failed to increment download count: %w", err)
	}

	return checkExportAffected(result, exportID)
}

// ListExpired retrieves exports whose retention window has passed by
// the given time. Stale in-flight jobs are included so an export that
// never finished cannot block new requests through deduplication.
func (dao *DataExportDAO) ListExpired(ctx context.Context, now int64) ([]models.DataExport, error) {
	query := `
		SELECT ` + dataExportColumns + `
		FROM GDPR_DATA_EXPORT
		WHERE STATUS IN (?, ?, ?) AND EXPIRES_TIME IS NOT NULL AND EXPIRES_TIME <= ?
	`

	var exports []models.DataExport
	err := dao.db.SelectContext(ctx, &exports, query,
		models.ExportStatusCompleted, models.ExportStatusPending, models.ExportStatusProcessing, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired exports: %w", err)
	}

	return exports, nil
}

func checkExportAffected(result sql.Result, exportID string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("data export not found: %s", exportID)
	}
	return nil
}

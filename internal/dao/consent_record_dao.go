package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/florenceegi/gdpr-api/internal/database"
	"github.com/florenceegi/gdpr-api/internal/models"
)

// ConsentRecordDAO handles database operations for the consent ledger
type ConsentRecordDAO struct {
	db *database.DB
}

// NewConsentRecordDAO creates a new ConsentRecordDAO instance
func NewConsentRecordDAO(db *database.DB) *ConsentRecordDAO {
	return &ConsentRecordDAO{db: db}
}

const consentRecordColumns = `RECORD_ID, USER_ID, CONSENT_TYPE, GRANTED, VERSION_ID,
	       POLICY_VERSION, METADATA, CREATED_TIME, UPDATED_TIME, WITHDRAWN_TIME`

// Create inserts a new ledger row
func (dao *ConsentRecordDAO) Create(ctx context.Context, record *models.ConsentRecord) error {
	query := `
		INSERT INTO GDPR_USER_CONSENT (
			RECORD_ID, USER_ID, CONSENT_TYPE, GRANTED, VERSION_ID,
			POLICY_VERSION, METADATA, CREATED_TIME, UPDATED_TIME, WITHDRAWN_TIME
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := dao.db.ExecContext(
		ctx,
		query,
		record.RecordID,
		record.UserID,
		record.ConsentType,
		record.Granted,
		record.VersionID,
		record.PolicyVersion,
		record.Metadata,
		record.CreatedTime,
		record.UpdatedTime,
		record.WithdrawnTime,
	)

	if err != nil {
		return fmt.Errorf("failed to create consent record: %w", err)
	}

	return nil
}

// CreateWithTx inserts a new ledger row using a transaction
func (dao *ConsentRecordDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, record *models.ConsentRecord) error {
	query := `
		INSERT INTO GDPR_USER_CONSENT (
			RECORD_ID, USER_ID, CONSENT_TYPE, GRANTED, VERSION_ID,
			POLICY_VERSION, METADATA, CREATED_TIME, UPDATED_TIME, WITHDRAWN_TIME
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		record.RecordID,
		record.UserID,
		record.ConsentType,
		record.Granted,
		record.VersionID,
		record.PolicyVersion,
		record.Metadata,
		record.CreatedTime,
		record.UpdatedTime,
		record.WithdrawnTime,
	)

	if err != nil {
		return fmt.Errorf("failed to create consent record with transaction: %w", err)
	}

	return nil
}

// LatestByType retrieves the most recent ledger row for one user and
// consent type. Returns nil when the user never decided on the type.
func (dao *ConsentRecordDAO) LatestByType(ctx context.Context, userID, consentType string) (*models.ConsentRecord, error) {
	query := `
		SELECT ` + consentRecordColumns + `
		FROM GDPR_USER_CONSENT
		WHERE USER_ID = ? AND CONSENT_TYPE = ?
		ORDER BY CREATED_TIME DESC, RECORD_ID DESC
		LIMIT 1
	`

	var record models.ConsentRecord
	err := dao.db.GetContext(ctx, &record, query, userID, consentType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest consent record: %w", err)
	}

	return &record, nil
}

// LatestPerType retrieves the most recent ledger row for every consent
// type the user has decided on. Rows come back newest first; the first
// row seen per type wins.
func (dao *ConsentRecordDAO) LatestPerType(ctx context.Context, userID string) (map[string]*models.ConsentRecord, error) {
	query := `
		SELECT ` + consentRecordColumns + `
		FROM GDPR_USER_CONSENT
		WHERE USER_ID = ?
		ORDER BY CREATED_TIME DESC, RECORD_ID DESC
	`

	var records []models.ConsentRecord
	err := dao.db.SelectContext(ctx, &records, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list consent records: %w", err)
	}

	latest := make(map[string]*models.ConsentRecord, len(records))
	for i := range records {
		r := &records[i]
		if _, seen := latest[r.ConsentType]; !seen {
			latest[r.ConsentType] = r
		}
	}

	return latest, nil
}

// ListByUser retrieves the full ledger history for a user, newest first
func (dao *ConsentRecordDAO) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.ConsentRecord, error) {
	query := `
		SELECT ` + consentRecordColumns + `
		FROM GDPR_USER_CONSENT
		WHERE USER_ID = ?
		ORDER BY CREATED_TIME DESC, RECORD_ID DESC
		LIMIT ? OFFSET ?
	`

	var records []models.ConsentRecord
	err := dao.db.SelectContext(ctx, &records, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list consent records: %w", err)
	}

	return records, nil
}

// CountByUser counts ledger rows for a user
func (dao *ConsentRecordDAO) CountByUser(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM GDPR_USER_CONSENT WHERE USER_ID = ?`

	var count int
	err := dao.db.GetContext(ctx, &count, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count consent records: %w", err)
	}

	return count, nil
}

// UpdateMetadataWithTx refreshes the metadata and update timestamp of an
// existing ledger row. Used when a grant finds the decision already in
// place and only the request context changed.
func (dao *ConsentRecordDAO) UpdateMetadataWithTx(ctx context.Context, tx *database.Transaction, recordID string, metadata models.JSON, updatedTime int64) error {
	query := `
		UPDATE GDPR_USER_CONSENT
		SET METADATA = ?, UPDATED_TIME = ?
		WHERE RECORD_ID = ?
	`

	result, err := tx.ExecContext(ctx, query, metadata, updatedTime, recordID)
	if err != nil {
		return fmt.Errorf("failed to update consent record metadata: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("consent record not found: %s", recordID)
	}

	return nil
}

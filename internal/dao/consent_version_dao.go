package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/florenceegi/gdpr-api/internal/database"
	"github.com/florenceegi/gdpr-api/internal/models"
)

// ConsentVersionDAO handles database operations for policy versions
type ConsentVersionDAO struct {
	db *database.DB
}

// NewConsentVersionDAO creates a new ConsentVersionDAO instance
func NewConsentVersionDAO(db *database.DB) *ConsentVersionDAO {
	return &ConsentVersionDAO{db: db}
}

// Create inserts a new policy version
func (dao *ConsentVersionDAO) Create(ctx context.Context, version *models.ConsentVersion) error {
	query := `
		INSERT INTO GDPR_CONSENT_VERSION (
			VERSION_ID, VERSION, SUMMARY, CHANGES, CREATED_TIME
		) VALUES (?, ?, ?, ?, ?)
	`

	_, err := dao.db.ExecContext(
		ctx,
		query,
		version.VersionID,
		version.Version,
		version.Summary,
		version.ChangesJSON,
		version.CreatedTime,
	)

	if err != nil {
		return fmt.Errorf("failed to create consent version: %w", err)
	}

	return nil
}

// Latest retrieves the most recent policy version. Returns nil when the
// table is empty.
func (dao *ConsentVersionDAO) Latest(ctx context.Context) (*models.ConsentVersion, error) {
	query := `
		SELECT VERSION_ID, VERSION, SUMMARY, CHANGES, CREATED_TIME
		FROM GDPR_CONSENT_VERSION
		ORDER BY CREATED_TIME DESC, VERSION_ID DESC
		LIMIT 1
	`

	var version models.ConsentVersion
	err := dao.db.GetContext(ctx, &version, query)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest consent version: %w", err)
	}

	return &version, nil
}

// GetByID retrieves a policy version by ID
func (dao *ConsentVersionDAO) GetByID(ctx context.Context, versionID string) (*models.ConsentVersion, error) {
	query := `
		SELECT VERSION_ID, VERSION, SUMMARY, CHANGES, CREATED_TIME
		FROM GDPR_CONSENT_VERSION
		WHERE VERSION_ID = ?
	`

	var version models.ConsentVersion
	err := dao.db.GetContext(ctx, &version, query, versionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("consent version not found: %s", versionID)
		}
		return nil, fmt.Errorf("failed to get consent version: %w", err)
	}

	return &version, nil
}

// List retrieves policy versions, newest first
func (dao *ConsentVersionDAO) List(ctx context.Context, limit, offset int) ([]models.ConsentVersion, error) {
	query := `
		SELECT VERSION_ID, VERSION, SUMMARY, CHANGES, CREATED_TIME
		FROM GDPR_CONSENT_VERSION
		ORDER BY CREATED_TIME DESC, VERSION_ID DESC
		LIMIT ? OFFSET ?
	`

	var versions []models.ConsentVersion
	err := dao.db.SelectContext(ctx, &versions, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list consent versions: %w", err)
	}

	return versions, nil
}

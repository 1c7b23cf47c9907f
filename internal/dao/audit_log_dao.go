package dao

import (
	"context"
	"fmt"

	"github.com/florenceegi/gdpr-api/internal/database"
	"github.com/florenceegi/gdpr-api/internal/models"
)

// AuditLogDAO handles database operations for the audit trail
type AuditLogDAO struct {
	db *database.DB
}

// NewAuditLogDAO creates a new AuditLogDAO instance
func NewAuditLogDAO(db *database.DB) *AuditLogDAO {
	return &AuditLogDAO{db: db}
}

const auditLogColumns = `AUDIT_ID, USER_ID, ACTION, ENTITY_TYPE, ENTITY_ID,
	       IP_ADDRESS, USER_AGENT, DETAILS, CREATED_TIME`

// Create inserts a new audit entry
func (dao *AuditLogDAO) Create(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO GDPR_AUDIT_LOG (
			AUDIT_ID, USER_ID, ACTION, ENTITY_TYPE, ENTITY_ID,
			IP_ADDRESS, USER_AGENT, DETAILS, CREATED_TIME
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := dao.db.ExecContext(
		ctx,
		query,
		entry.AuditID,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.IPAddress,
		entry.UserAgent,
		entry.Details,
		entry.CreatedTime,
	)

	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

// CreateWithTx inserts a new audit entry using a transaction
func (dao *AuditLogDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, entry *models.AuditLog) error {
	query := `
		INSERT INTO GDPR_AUDIT_LOG (
			AUDIT_ID, USER_ID, ACTION, ENTITY_TYPE, ENTITY_ID,
			IP_ADDRESS, USER_AGENT, DETAILS, CREATED_TIME
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		entry.AuditID,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.IPAddress,
		entry.UserAgent,
		entry.Details,
		entry.CreatedTime,
	)

	if err != nil {
		return fmt.Errorf("failed to create audit entry with transaction: %w", err)
	}

	return nil
}

// ListByUser retrieves a user's audit trail, newest first
func (dao *AuditLogDAO) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.AuditLog, error) {
	query := `
		SELECT ` + auditLogColumns + `
		FROM GDPR_AUDIT_LOG
		WHERE USER_ID = ?
		ORDER BY CREATED_TIME DESC, AUDIT_ID DESC
		LIMIT ? OFFSET ?
	`

	var entries []models.AuditLog
	err := dao.db.SelectContext(ctx, &entries, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return entries, nil
}

// CountByUser counts audit entries for a user
func (dao *AuditLogDAO) CountByUser(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM GDPR_AUDIT_LOG WHERE USER_ID = ?`

	var count int
	err := dao.db.GetContext(ctx, &count, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	return count, nil
}

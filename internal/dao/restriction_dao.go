package dao

import (
	"context"
	"fmt"

	"github.com/florenceegi/gdpr-api/internal/database"
	"github.com/florenceegi/gdpr-api/internal/models"
)

// RestrictionDAO handles database operations for processing restrictions
type RestrictionDAO struct {
	db *database.DB
}

// NewRestrictionDAO creates a new RestrictionDAO instance
func NewRestrictionDAO(db *database.DB) *RestrictionDAO {
	return &RestrictionDAO{db: db}
}

const restrictionColumns = `RESTRICTION_ID, USER_ID, RESTRICTION_TYPE, REASON, CATEGORIES,
	       STATUS, CREATED_TIME, UPDATED_TIME, EXPIRES_TIME, LIFTED_TIME`

// CreateWithTx inserts a new restriction using a transaction
func (dao *RestrictionDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, restriction *models.ProcessingRestriction) error {
	query := `
		INSERT INTO GDPR_PROCESSING_RESTRICTION (
			RESTRICTION_ID, USER_ID, RESTRICTION_TYPE, REASON, CATEGORIES,
			STATUS, CREATED_TIME, UPDATED_TIME, EXPIRES_TIME, LIFTED_TIME
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		restriction.RestrictionID,
		restriction.UserID,
		restriction.Type,
		restriction.Reason,
		restriction.Categories,
		restriction.Status,
		restriction.CreatedTime,
		restriction.UpdatedTime,
		restriction.ExpiresTime,
		restriction.LiftedTime,
	)

	if err != nil {
		return fmt.Errorf("failed to create processing restriction: %w", err)
	}

	return nil
}

// GetByID retrieves a restriction belonging to a user
func (dao *RestrictionDAO) GetByID(ctx context.Context, restrictionID, userID string) (*models.ProcessingRestriction, error) {
	query := `
		SELECT ` + restrictionColumns + `
		FROM GDPR_PROCESSING_RESTRICTION
		WHERE RESTRICTION_ID = ? AND USER_ID = ?
	`

	var restriction models.ProcessingRestriction
	err := dao.db.GetContext(ctx, &restriction, query, restrictionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get processing restriction: %w", err)
	}

	return &restriction, nil
}

// ListActive retrieves a user's active restrictions, newest first
func (dao *RestrictionDAO) ListActive(ctx context.Context, userID string) ([]models.ProcessingRestriction, error) {
	query := `
		SELECT ` + restrictionColumns + `
		FROM GDPR_PROCESSING_RESTRICTION
		WHERE USER_ID = ? AND STATUS = ?
		ORDER BY CREATED_TIME DESC
	`

	var restrictions []models.ProcessingRestriction
	err := dao.db.SelectContext(ctx, &restrictions, query, userID, models.RestrictionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active restrictions: %w", err)
	}

	return restrictions, nil
}

// CountActive counts a user's active restrictions
func (dao *RestrictionDAO) CountActive(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM GDPR_PROCESSING_RESTRICTION
		WHERE USER_ID = ? AND STATUS = ?
	`

	var count int
	err := dao.db.GetContext(ctx, &count, query, userID, models.RestrictionStatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to count active restrictions: %w", err)
	}

	return count, nil
}

// CountActiveWithTx counts a user's active restrictions inside a transaction
func (dao *RestrictionDAO) CountActiveWithTx(ctx context.Context, tx *database.Transaction, userID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM GDPR_PROCESSING_RESTRICTION
		WHERE USER_ID = ? AND STATUS = ?
	`

	var count int
	err := tx.GetContext(ctx, &count, query, userID, models.RestrictionStatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to count active restrictions: %w", err)
	}

	return count, nil
}

// Lift flips an active restriction to lifted. Returns false when the
// restriction does not exist or is not active.
func (dao *RestrictionDAO) Lift(ctx context.Context, restrictionID, userID string, liftedTime int64) (bool, error) {
	query := `
		UPDATE GDPR_PROCESSING_RESTRICTION
		SET STATUS = ?, LIFTED_TIME = ?, UPDATED_TIME = ?
		WHERE RESTRICTION_ID = ? AND USER_ID = ? AND STATUS = ?
	`

	result, err := dao.db.ExecContext(
		ctx,
		query,
		models.RestrictionStatusLifted,
		liftedTime,
		liftedTime,
		restrictionID,
		userID,
		models.RestrictionStatusActive,
	)
	if err != nil {
		return false, fmt.Errorf("failed to lift processing restriction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// MarkExpired flips a restriction to expired
func (dao *RestrictionDAO) MarkExpired(ctx context.Context, restrictionID string, updatedTime int64) error {
	query := `
		UPDATE GDPR_PROCESSING_RESTRICTION
		SET STATUS = ?, UPDATED_TIME = ?
		WHERE RESTRICTION_ID = ? AND STATUS = ?
	`

	_, err := dao.db.ExecContext(
		ctx,
		query,
		models.RestrictionStatusExpired,
		updatedTime,
		restrictionID,
		models.RestrictionStatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to mark restriction expired: %w", err)
	}

	return nil
}

// ListExpired retrieves active restrictions whose expiry time has
// passed by the given time
func (dao *RestrictionDAO) ListExpired(ctx context.Context, now int64) ([]models.ProcessingRestriction, error) {
	query := `
		SELECT ` + restrictionColumns + `
		FROM GDPR_PROCESSING_RESTRICTION
		WHERE STATUS = ? AND EXPIRES_TIME IS NOT NULL AND EXPIRES_TIME <= ?
	`

	var restrictions []models.ProcessingRestriction
	err := dao.db.SelectContext(ctx, &restrictions, query, models.RestrictionStatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired restrictions: %w", err)
	}

	return restrictions, nil
}

// CountAllActive counts active restrictions across all users
func (dao *RestrictionDAO) CountAllActive(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM GDPR_PROCESSING_RESTRICTION WHERE STATUS = ?`

	var count int
	err := dao.db.GetContext(ctx, &count, query, models.RestrictionStatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to count active restrictions: %w", err)
	}

	return count, nil
}

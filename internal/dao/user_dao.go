package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/florenceegi/gdpr-api/internal/database"
	"github.com/florenceegi/gdpr-api/internal/models"
)

// UserDAO handles database operations for the user table
type UserDAO struct {
	db *database.DB
}

// NewUserDAO creates a new UserDAO instance
func NewUserDAO(db *database.DB) *UserDAO {
	return &UserDAO{db: db}
}

// GetByID retrieves a user by ID. Returns nil when the user does not
// exist.
func (dao *UserDAO) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT USER_ID, NAME, EMAIL, WALLET_ADDRESS, CONSENT_SUMMARY,
		       CONSENT_UPDATED_TIME, CREATED_TIME, UPDATED_TIME
		FROM GDPR_USER
		WHERE USER_ID = ?
	`

	var user models.User
	err := dao.db.GetContext(ctx, &user, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// UpdateConsentSummaryWithTx refreshes the denormalized consent summary
// on the user row inside a transaction
func (dao *UserDAO) UpdateConsentSummaryWithTx(ctx context.Context, tx *database.Transaction, userID string, summary models.JSON, updatedTime int64) error {
	query := `
		UPDATE GDPR_USER
		SET CONSENT_SUMMARY = ?, CONSENT_UPDATED_TIME = ?, UPDATED_TIME = ?
		WHERE USER_ID = ?
	`

	_, err := tx.ExecContext(ctx, query, summary, updatedTime, updatedTime, userID)
	if err != nil {
		return fmt.Errorf("failed to update consent summary: %w", err)
	}

	return nil
}

package service

import (
	"context"

	"github.com/florenceegi/gdpr-api/internal/database"
	"github.com/florenceegi/gdpr-api/internal/models"
)

// TxRunner runs a function inside a database transaction. Satisfied by
// *database.DB.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(*database.Transaction) error) error
}

// ConsentRecordStore is the ledger access the consent service needs
type ConsentRecordStore interface {
	CreateWithTx(ctx context.Context, tx *database.Transaction, record *models.ConsentRecord) error
	LatestByType(ctx context.Context, userID, consentType string) (*models.ConsentRecord, error)
	LatestPerType(ctx context.Context, userID string) (map[string]*models.ConsentRecord, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.ConsentRecord, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	UpdateMetadataWithTx(ctx context.Context, tx *database.Transaction, recordID string, metadata models.JSON, updatedTime int64) error
}

// ConsentVersionStore is the policy version access the consent service needs
type ConsentVersionStore interface {
	Create(ctx context.Context, version *models.ConsentVersion) error
	Latest(ctx context.Context) (*models.ConsentVersion, error)
	GetByID(ctx context.Context, versionID string) (*models.ConsentVersion, error)
	List(ctx context.Context, limit, offset int) ([]models.ConsentVersion, error)
}

// DataExportStore is the export table access the export service needs
type DataExportStore interface {
	Create(ctx context.Context, export *models.DataExport) error
	GetByToken(ctx context.Context, token string) (*models.DataExport, error)
	GetByID(ctx context.Context, exportID string) (*models.DataExport, error)
	FindInFlight(ctx context.Context, userID string) (*models.DataExport, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.DataExport, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	UpdateStatus(ctx context.Context, exportID, status string, updatedTime int64) error
	UpdateProgress(ctx context.Context, exportID string, progress int, updatedTime int64) error
	MarkCompleted(ctx context.Context, exportID, filePath string, fileSize int64, completedTime, expiresTime int64) error
	MarkFailed(ctx context.Context, exportID, reason string, updatedTime int64) error
	MarkExpired(ctx context.Context, exportID string, updatedTime int64) error
	IncrementDownload(ctx context.Context, exportID string, downloadTime int64) error
	ListExpired(ctx context.Context, now int64) ([]models.DataExport, error)
}

// RestrictionStore is the restriction table access the restriction service needs
type RestrictionStore interface {
	CreateWithTx(ctx context.Context, tx *database.Transaction, restriction *models.ProcessingRestriction) error
	ListActive(ctx context.Context, userID string) ([]models.ProcessingRestriction, error)
	CountActiveWithTx(ctx context.Context, tx *database.Transaction, userID string) (int, error)
	Lift(ctx context.Context, restrictionID, userID string, liftedTime int64) (bool, error)
	MarkExpired(ctx context.Context, restrictionID string, updatedTime int64) error
	ListExpired(ctx context.Context, now int64) ([]models.ProcessingRestriction, error)
	CountAllActive(ctx context.Context) (int, error)
}

// AuditStore is the audit trail access the services need
type AuditStore interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	CreateWithTx(ctx context.Context, tx *database.Transaction, entry *models.AuditLog) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.AuditLog, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// UserStore is the user table access the consent and export services need
type UserStore interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	UpdateConsentSummaryWithTx(ctx context.Context, tx *database.Transaction, userID string, summary models.JSON, updatedTime int64) error
}

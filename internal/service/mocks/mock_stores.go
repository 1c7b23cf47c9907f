package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/florenceegi/gdpr-api/internal/database"
	"github.com/florenceegi/gdpr-api/internal/models"
)

// MockTxRunner runs the transaction function with a nil transaction so
// store mocks can assert on the calls made inside it
type MockTxRunner struct {
	mock.Mock
}

func (m *MockTxRunner) WithTransaction(ctx context.Context, fn func(*database.Transaction) error) error {
	args := m.Called(ctx)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}

// MockConsentRecordStore is a mock implementation of ConsentRecordStore
type MockConsentRecordStore struct {
	mock.Mock
}

func (m *MockConsentRecordStore) CreateWithTx(ctx context.Context, tx *database.Transaction, record *models.ConsentRecord) error {
	args := m.Called(ctx, tx, record)
	return args.Error(0)
}

func (m *MockConsentRecordStore) LatestByType(ctx context.Context, userID, consentType string) (*models.ConsentRecord, error) {
	args := m.Called(ctx, userID, consentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConsentRecord), args.Error(1)
}

func (m *MockConsentRecordStore) LatestPerType(ctx context.Context, userID string) (map[string]*models.ConsentRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.ConsentRecord), args.Error(1)
}

func (m *MockConsentRecordStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.ConsentRecord, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ConsentRecord), args.Error(1)
}

func (m *MockConsentRecordStore) CountByUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockConsentRecordStore) UpdateMetadataWithTx(ctx context.Context, tx *database.Transaction, recordID string, metadata models.JSON, updatedTime int64) error {
	args := m.Called(ctx, tx, recordID, metadata, updatedTime)
	return args.Error(0)
}

// MockConsentVersionStore is a mock implementation of ConsentVersionStore
type MockConsentVersionStore struct {
	mock.Mock
}

func (m *MockConsentVersionStore) Create(ctx context.Context, version *models.ConsentVersion) error {
	args := m.Called(ctx, version)
	return args.Error(0)
}

func (m *MockConsentVersionStore) Latest(ctx context.Context) (*models.ConsentVersion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConsentVersion), args.Error(1)
}

func (m *MockConsentVersionStore) GetByID(ctx context.Context, versionID string) (*models.ConsentVersion, error) {
	args := m.Called(ctx, versionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConsentVersion), args.Error(1)
}

func (m *MockConsentVersionStore) List(ctx context.Context, limit, offset int) ([]models.ConsentVersion, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ConsentVersion), args.Error(1)
}

// MockDataExportStore is a mock implementation of DataExportStore
type MockDataExportStore struct {
	mock.Mock
}

func (m *MockDataExportStore) Create(ctx context.Context, export *models.DataExport) error {
	args := m.Called(ctx, export)
	return args.Error(0)
}

func (m *MockDataExportStore) GetByToken(ctx context.Context, token string) (*models.DataExport, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DataExport), args.Error(1)
}

func (m *MockDataExportStore) GetByID(ctx context.Context, exportID string) (*models.DataExport, error) {
	args := m.Called(ctx, exportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DataExport), args.Error(1)
}

func (m *MockDataExportStore) FindInFlight(ctx context.Context, userID string) (*models.DataExport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DataExport), args.Error(1)
}

func (m *MockDataExportStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.DataExport, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DataExport), args.Error(1)
}

func (m *MockDataExportStore) CountByUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockDataExportStore) UpdateStatus(ctx context.Context, exportID, status string, updatedTime int64) error {
	args := m.Called(ctx, exportID, status, updatedTime)
	return args.Error(0)
}

func (m *MockDataExportStore) UpdateProgress(ctx context.Context, exportID string, progress int, updatedTime int64) error {
	args := m.Called(ctx, exportID, progress, updatedTime)
	return args.Error(0)
}

func (m *MockDataExportStore) MarkCompleted(ctx context.Context, exportID, filePath string, fileSize int64, completedTime, expiresTime int64) error {
	args := m.Called(ctx, exportID, filePath, fileSize, completedTime, expiresTime)
	return args.Error(0)
}

func (m *MockDataExportStore) MarkFailed(ctx context.Context, exportID, reason string, updatedTime int64) error {
	args := m.Called(ctx, exportID, reason, updatedTime)
	return args.Error(0)
}

func (m *MockDataExportStore) MarkExpired(ctx context.Context, exportID string, updatedTime int64) error {
	args := m.Called(ctx, exportID, updatedTime)
	return args.Error(0)
}

func (m *MockDataExportStore) IncrementDownload(ctx context.Context, exportID string, downloadTime int64) error {
	args := m.Called(ctx, exportID, downloadTime)
	return args.Error(0)
}

func (m *MockDataExportStore) ListExpired(ctx context.Context, now int64) ([]models.DataExport, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DataExport), args.Error(1)
}

// MockRestrictionStore is a mock implementation of RestrictionStore
type MockRestrictionStore struct {
	mock.Mock
}

func (m *MockRestrictionStore) CreateWithTx(ctx context.Context, tx *database.Transaction, restriction *models.ProcessingRestriction) error {
	args := m.Called(ctx, tx, restriction)
	return args.Error(0)
}

func (m *MockRestrictionStore) ListActive(ctx context.Context, userID string) ([]models.ProcessingRestriction, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProcessingRestriction), args.Error(1)
}

func (m *MockRestrictionStore) CountActiveWithTx(ctx context.Context, tx *database.Transaction, userID string) (int, error) {
	args := m.Called(ctx, tx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRestrictionStore) Lift(ctx context.Context, restrictionID, userID string, liftedTime int64) (bool, error) {
	args := m.Called(ctx, restrictionID, userID, liftedTime)
	return args.Bool(0), args.Error(1)
}

func (m *MockRestrictionStore) MarkExpired(ctx context.Context, restrictionID string, updatedTime int64) error {
	args := m.Called(ctx, restrictionID, updatedTime)
	return args.Error(0)
}

func (m *MockRestrictionStore) ListExpired(ctx context.Context, now int64) ([]models.ProcessingRestriction, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProcessingRestriction), args.Error(1)
}

func (m *MockRestrictionStore) CountAllActive(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockAuditStore is a mock implementation of AuditStore
type MockAuditStore struct {
	mock.Mock
}

func (m *MockAuditStore) Create(ctx context.Context, entry *models.AuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditStore) CreateWithTx(ctx context.Context, tx *database.Transaction, entry *models.AuditLog) error {
	args := m.Called(ctx, tx, entry)
	return args.Error(0)
}

func (m *MockAuditStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.AuditLog, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditLog), args.Error(1)
}

func (m *MockAuditStore) CountByUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// MockUserStore is a mock implementation of UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) UpdateConsentSummaryWithTx(ctx context.Context, tx *database.Transaction, userID string, summary models.JSON, updatedTime int64) error {
	args := m.Called(ctx, tx, userID, summary, updatedTime)
	return args.Error(0)
}

package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/florenceegi/gdpr-api/internal/config"
	"github.com/florenceegi/gdpr-api/internal/models"
	"github.com/florenceegi/gdpr-api/internal/service/mocks"
	"github.com/florenceegi/gdpr-api/internal/storage"
)

type exportFixture struct {
	exports      *mocks.MockDataExportStore
	records      *mocks.MockConsentRecordStore
	restrictions *mocks.MockRestrictionStore
	audit        *mocks.MockAuditStore
	users        *mocks.MockUserStore
	enqueuer     *mocks.MockExportEnqueuer
	store        *storage.FileStore
	service      *ExportService
}

func exportConfig() *config.ExportConfig {
	return &config.ExportConfig{
		RetentionDays: 30,
		MaxSizeBytes:  52428800,
		Formats:       []string{"json", "csv", "pdf"},
		Categories: []config.ExportCategoryConfig{
			{Slug: "profile", Name: "Profile"},
			{Slug: "consents", Name: "Consents"},
			{Slug: "restrictions", Name: "Restrictions"},
			{Slug: "exports", Name: "Exports"},
			{Slug: "audit", Name: "Audit trail"},
		},
	}
}

func newExportFixture() *exportFixture {
	f := &exportFixture{
		exports:      new(mocks.MockDataExportStore),
		records:      new(mocks.MockConsentRecordStore),
		restrictions: new(mocks.MockRestrictionStore),
		audit:        new(mocks.MockAuditStore),
		users:        new(mocks.MockUserStore),
		enqueuer:     new(mocks.MockExportEnqueuer),
		store:        storage.NewFileStore(afero.NewMemMapFs(), "exports"),
	}
	logger := quietLogger()
	f.service = NewExportService(
		f.exports, f.records, f.restrictions, f.audit, f.users,
		f.store, f.enqueuer, NewAuditService(f.audit, logger),
		exportConfig(), logger,
	)
	return f
}

func TestExportRequest_UnsupportedFormat(t *testing.T) {
	f := newExportFixture()

	_, _, err := f.service.Request(context.Background(), "user-1", "xml", nil, nil)

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExportRequest_InvalidCategory(t *testing.T) {
	f := newExportFixture()

	_, _, err := f.service.Request(context.Background(), "user-1", "json", []string{"dreams"}, nil)

	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestExportRequest_DeduplicatesInFlight(t *testing.T) {
	f := newExportFixture()

	inFlight := &models.DataExport{
		ExportID:   "EXPORT-1",
		UserID:     "user-1",
		Status:     models.ExportStatusProcessing,
		Categories: models.JSON(`["profile"]`),
	}
	f.exports.On("FindInFlight", mock.Anything, "user-1").Return(inFlight, nil)

	job, existing, err := f.service.Request(context.Background(), "user-1", "json", []string{"consents"}, nil)

	require.NoError(t, err)
	assert.True(t, existing)
	assert.Equal(t, "EXPORT-1", job.ExportID)
	// the existing job's stored scope wins over the new request's
	assert.Equal(t, []string{"profile"}, job.CategoryList())
	f.exports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.enqueuer.AssertNotCalled(t, "EnqueueExportProcess", mock.Anything, mock.Anything)
}

func TestExportRequest_CreatesAndEnqueues(t *testing.T) {
	f := newExportFixture()

	f.exports.On("FindInFlight", mock.Anything, "user-1").Return(nil, nil)
	f.exports.On("Create", mock.Anything, mock.MatchedBy(func(e *models.DataExport) bool {
		return e.Status == models.ExportStatusPending && e.Token != "" && e.Format == "json"
	})).Return(nil)
	f.enqueuer.On("EnqueueExportProcess", mock.Anything, mock.AnythingOfType("string")).Return(nil)
	f.audit.On("Create", mock.Anything, mock.MatchedBy(func(e *models.AuditLog) bool {
		return e.Action == models.AuditActionExportRequested
	})).Return(nil)

	job, existing, err := f.service.Request(context.Background(), "user-1", "json", []string{"profile"}, nil)

	require.NoError(t, err)
	assert.False(t, existing)
	assert.NotEmpty(t, job.Token)
	f.enqueuer.AssertExpectations(t)
}

func TestExportRequest_SetsRetentionWindow(t *testing.T) {
	f := newExportFixture()

	f.exports.On("FindInFlight", mock.Anything, "user-1").Return(nil, nil)
	f.exports.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.enqueuer.On("EnqueueExportProcess", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	job, _, err := f.service.Request(context.Background(), "user-1", "json", nil, nil)

	require.NoError(t, err)
	require.NotNil(t, job.ExpiresTime)
	retention := int64(30) * 24 * 60 * 60 * 1000
	assert.Equal(t, job.CreatedTime+retention, *job.ExpiresTime)
}

func TestExportProcess_ProducesJSONFile(t *testing.T) {
	f := newExportFixture()

	expires := int64(1700000000000)
	job := &models.DataExport{
		ExportID:    "EXPORT-1",
		UserID:      "user-1",
		Format:      "json",
		Categories:  models.JSON(`["profile","consents"]`),
		Status:      models.ExportStatusPending,
		ExpiresTime: &expires,
	}

	f.exports.On("GetByID", mock.Anything, "EXPORT-1").Return(job, nil)
	f.exports.On("UpdateStatus", mock.Anything, "EXPORT-1", models.ExportStatusProcessing, mock.Anything).Return(nil)
	f.exports.On("UpdateProgress", mock.Anything, "EXPORT-1", mock.AnythingOfType("int"), mock.Anything).Return(nil)
	f.users.On("GetByID", mock.Anything, "user-1").Return(&models.User{UserID: "user-1"}, nil)
	f.records.On("ListByUser", mock.Anything, "user-1", 1000, 0).Return([]models.ConsentRecord{
		{RecordID: "CONSENT-1", ConsentType: "marketing", Granted: true},
	}, nil)
	f.exports.On("MarkCompleted", mock.Anything, "EXPORT-1", "user-1/EXPORT-1.json", mock.AnythingOfType("int64"), mock.Anything, expires).Return(nil)
	f.audit.On("Create", mock.Anything, mock.MatchedBy(func(e *models.AuditLog) bool {
		return e.Action == models.AuditActionExportCompleted
	})).Return(nil)

	err := f.service.Process(context.Background(), "EXPORT-1")
	require.NoError(t, err)

	reader, err := f.store.Open("user-1/EXPORT-1.json")
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, `"export_info"`)
	assert.Contains(t, body, `"profile"`)
	assert.Contains(t, body, `"consents"`)
	assert.Contains(t, body, `"marketing"`)
}

func TestExportProcess_FailingCategoryFailsJob(t *testing.T) {
	f := newExportFixture()

	job := &models.DataExport{
		ExportID:   "EXPORT-2",
		UserID:     "user-1",
		Format:     "json",
		Categories: models.JSON(`["profile","consents"]`),
		Status:     models.ExportStatusPending,
	}

	f.exports.On("GetByID", mock.Anything, "EXPORT-2").Return(job, nil)
	f.exports.On("UpdateStatus", mock.Anything, "EXPORT-2", models.ExportStatusProcessing, mock.Anything).Return(nil)
	f.exports.On("UpdateProgress", mock.Anything, "EXPORT-2", mock.AnythingOfType("int"), mock.Anything).Return(nil)
	f.users.On("GetByID", mock.Anything, "user-1").Return(&models.User{UserID: "user-1"}, nil)
	f.records.On("ListByUser", mock.Anything, "user-1", 1000, 0).Return(nil, assert.AnError)
	f.exports.On("MarkFailed", mock.Anything, "EXPORT-2", mock.AnythingOfType("string"), mock.Anything).Return(nil)
	f.audit.On("Create", mock.Anything, mock.MatchedBy(func(e *models.AuditLog) bool {
		return e.Action == models.AuditActionExportFailed
	})).Return(nil)

	err := f.service.Process(context.Background(), "EXPORT-2")

	require.Error(t, err)
	f.exports.AssertCalled(t, "MarkFailed", mock.Anything, "EXPORT-2", mock.AnythingOfType("string"), mock.Anything)
	f.exports.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExportProcess_SkipsNonPendingJob(t *testing.T) {
	f := newExportFixture()

	f.exports.On("GetByID", mock.Anything, "EXPORT-3").Return(&models.DataExport{
		ExportID: "EXPORT-3",
		Status:   models.ExportStatusCompleted,
	}, nil)

	err := f.service.Process(context.Background(), "EXPORT-3")

	require.NoError(t, err)
	f.exports.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExportDownload_NotFound(t *testing.T) {
	f := newExportFixture()

	f.exports.On("GetByToken", mock.Anything, "tok-missing").Return(nil, nil)

	_, _, _, err := f.service.Download(context.Background(), "tok-missing", nil)

	assert.ErrorIs(t, err, ErrExportNotFound)
}

func TestExportDownload_NotReady(t *testing.T) {
	f := newExportFixture()

	f.exports.On("GetByToken", mock.Anything, "tok-1").Return(&models.DataExport{
		ExportID: "EXPORT-1",
		Status:   models.ExportStatusProcessing,
	}, nil)

	_, _, _, err := f.service.Download(context.Background(), "tok-1", nil)

	assert.ErrorIs(t, err, ErrExportNotReady)
}

func TestExportDownload_Expired(t *testing.T) {
	f := newExportFixture()

	f.exports.On("GetByToken", mock.Anything, "tok-2").Return(&models.DataExport{
		ExportID: "EXPORT-2",
		Status:   models.ExportStatusExpired,
	}, nil)

	_, _, _, err := f.service.Download(context.Background(), "tok-2", nil)

	assert.ErrorIs(t, err, ErrExportExpired)
}

func TestExportDownload_FileMissing(t *testing.T) {
	f := newExportFixture()

	path := "user-1/EXPORT-3.json"
	f.exports.On("GetByToken", mock.Anything, "tok-3").Return(&models.DataExport{
		ExportID: "EXPORT-3",
		Status:   models.ExportStatusCompleted,
		FilePath: &path,
	}, nil)

	_, _, _, err := f.service.Download(context.Background(), "tok-3", nil)

	assert.ErrorIs(t, err, ErrFileMissing)
}

func TestExportDownload_Success(t *testing.T) {
	f := newExportFixture()

	path := "user-1/EXPORT-4.json"
	_, err := f.store.Put(path, strings.NewReader(`{"ok":true}`))
	require.NoError(t, err)

	f.exports.On("GetByToken", mock.Anything, "tok-4").Return(&models.DataExport{
		ExportID:    "EXPORT-4",
		UserID:      "user-1",
		Token:       "tok-4",
		Format:      "json",
		Status:      models.ExportStatusCompleted,
		FilePath:    &path,
		CreatedTime: 1700000000000,
	}, nil)
	f.exports.On("IncrementDownload", mock.Anything, "EXPORT-4", mock.Anything).Return(nil)
	f.audit.On("Create", mock.Anything, mock.MatchedBy(func(e *models.AuditLog) bool {
		return e.Action == models.AuditActionExportDownloaded
	})).Return(nil)

	job, reader, filename, err := f.service.Download(context.Background(), "tok-4", nil)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "EXPORT-4", job.ExportID)
	assert.True(t, strings.HasPrefix(filename, "florence_egi_data_export_user-1_"))
	assert.True(t, strings.HasSuffix(filename, ".json"))

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))
	f.exports.AssertCalled(t, "IncrementDownload", mock.Anything, "EXPORT-4", mock.Anything)
}

func TestExportDownload_CSVFilenameUsesZip(t *testing.T) {
	f := newExportFixture()

	path := "user-1/EXPORT-5.zip"
	_, err := f.store.Put(path, strings.NewReader("zipbytes"))
	require.NoError(t, err)

	f.exports.On("GetByToken", mock.Anything, "tok-5").Return(&models.DataExport{
		ExportID:    "EXPORT-5",
		UserID:      "user-1",
		Format:      "csv",
		Status:      models.ExportStatusCompleted,
		FilePath:    &path,
		CreatedTime: 1700000000000,
	}, nil)
	f.exports.On("IncrementDownload", mock.Anything, "EXPORT-5", mock.Anything).Return(nil)
	f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, reader, filename, err := f.service.Download(context.Background(), "tok-5", nil)
	require.NoError(t, err)
	reader.Close()

	assert.True(t, strings.HasSuffix(filename, ".zip"))
}

func TestExpireAndPurge(t *testing.T) {
	f := newExportFixture()

	path := "user-1/EXPORT-6.json"
	_, err := f.store.Put(path, strings.NewReader("{}"))
	require.NoError(t, err)

	f.exports.On("ListExpired", mock.Anything, mock.Anything).Return([]models.DataExport{
		{ExportID: "EXPORT-6", UserID: "user-1", FilePath: &path},
		{ExportID: "EXPORT-7", UserID: "user-2"},
	}, nil)
	f.exports.On("MarkExpired", mock.Anything, "EXPORT-6", mock.Anything).Return(nil)
	f.exports.On("MarkExpired", mock.Anything, "EXPORT-7", mock.Anything).Return(nil)
	f.audit.On("Create", mock.Anything, mock.MatchedBy(func(e *models.AuditLog) bool {
		return e.Action == models.AuditActionExportExpired
	})).Return(nil)

	purged, err := f.service.ExpireAndPurge(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, purged)

	exists, err := f.store.Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)
}

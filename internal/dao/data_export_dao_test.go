package dao

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florenceegi/gdpr-api/internal/models"
)

var dataExportRows = []string{
	"EXPORT_ID", "USER_ID", "TOKEN", "FORMAT", "CATEGORIES", "STATUS", "PROGRESS",
	"FILE_PATH", "FILE_SIZE", "ERROR", "DOWNLOAD_COUNT", "LAST_DOWNLOAD_TIME",
	"CREATED_TIME", "UPDATED_TIME", "COMPLETED_TIME", "EXPIRES_TIME",
}

func TestDataExportDAO_GetByToken(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewDataExportDAO(db)

	rows := sqlmock.NewRows(dataExportRows).
		AddRow("EXPORT-1", "user-1", "tok-abc", "json", []byte(`["profile"]`), models.ExportStatusCompleted, 100,
			"user-1/export.json", int64(128), nil, 0, nil, 1000, 2000, int64(2000), int64(9000))

	mock.ExpectQuery("SELECT (.+) FROM GDPR_DATA_EXPORT").
		WithArgs("tok-abc").
		WillReturnRows(rows)

	export, err := dao.GetByToken(context.Background(), "tok-abc")
	require.NoError(t, err)
	require.NotNil(t, export)
	assert.Equal(t, "EXPORT-1", export.ExportID)
	assert.Equal(t, models.ExportStatusCompleted, export.Status)
	assert.True(t, export.IsDownloadable())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDataExportDAO_GetByToken_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewDataExportDAO(db)

	mock.ExpectQuery("SELECT (.+) FROM GDPR_DATA_EXPORT").
		WithArgs("tok-missing").
		WillReturnRows(sqlmock.NewRows(dataExportRows))

	export, err := dao.GetByToken(context.Background(), "tok-missing")
	require.NoError(t, err)
	assert.Nil(t, export)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDataExportDAO_FindInFlight(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewDataExportDAO(db)

	rows := sqlmock.NewRows(dataExportRows).
		AddRow("EXPORT-2", "user-1", "tok-def", "csv", []byte(`[]`), models.ExportStatusProcessing, 40,
			nil, nil, nil, 0, nil, 1000, 1500, nil, nil)

	mock.ExpectQuery("SELECT (.+) FROM GDPR_DATA_EXPORT").
		WithArgs("user-1", models.ExportStatusPending, models.ExportStatusProcessing).
		WillReturnRows(rows)

	export, err := dao.FindInFlight(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, export)
	assert.True(t, export.IsInFlight())
	assert.Equal(t, 40, export.Progress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDataExportDAO_MarkCompleted(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewDataExportDAO(db)

	mock.ExpectExec("UPDATE GDPR_DATA_EXPORT").
		WithArgs(models.ExportStatusCompleted, "user-1/export.json", int64(2048), int64(5000), int64(9000), int64(5000), "EXPORT-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := dao.MarkCompleted(context.Background(), "EXPORT-1", "user-1/export.json", 2048, 5000, 9000)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDataExportDAO_MarkCompleted_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewDataExportDAO(db)

	mock.ExpectExec("UPDATE GDPR_DATA_EXPORT").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := dao.MarkCompleted(context.Background(), "EXPORT-missing", "x.json", 1, 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDataExportDAO_IncrementDownload(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewDataExportDAO(db)

	mock.ExpectExec("UPDATE GDPR_DATA_EXPORT").
		WithArgs(int64(7000), int64(7000), "EXPORT-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := dao.IncrementDownload(context.Background(), "EXPORT-1", 7000)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDataExportDAO_ListExpired(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewDataExportDAO(db)

	rows := sqlmock.NewRows(dataExportRows).
		AddRow("EXPORT-3", "user-2", "tok-old", "pdf", []byte(`[]`), models.ExportStatusCompleted, 100,
			"user-2/export.pdf", int64(512), nil, 2, int64(4000), 1000, 2000, int64(2000), int64(3000)).
		AddRow("EXPORT-4", "user-3", "tok-stuck", "json", []byte(`[]`), models.ExportStatusPending, 0,
			nil, nil, nil, 0, nil, 1000, 1000, nil, int64(3000))

	mock.ExpectQuery("SELECT (.+) FROM GDPR_DATA_EXPORT").
		WithArgs(models.ExportStatusCompleted, models.ExportStatusPending, models.ExportStatusProcessing, int64(5000)).
		WillReturnRows(rows)

	exports, err := dao.ListExpired(context.Background(), 5000)
	require.NoError(t, err)
	require.Len(t, exports, 2)
	assert.Equal(t, "EXPORT-3", exports[0].ExportID)
	assert.Equal(t, "EXPORT-4", exports[1].ExportID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package dao

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florenceegi/gdpr-api/internal/models"
)

var consentRecordRows = []string{
	"RECORD_ID", "USER_ID", "CONSENT_TYPE", "GRANTED", "VERSION_ID",
	"POLICY_VERSION", "METADATA", "CREATED_TIME", "UPDATED_TIME", "WITHDRAWN_TIME",
}

func TestConsentRecordDAO_Create(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewConsentRecordDAO(db)

	record := &models.ConsentRecord{
		RecordID:      "CONSENT-1",
		UserID:        "user-1",
		ConsentType:   "marketing",
		Granted:       true,
		PolicyVersion: "1.0",
		CreatedTime:   1000,
		UpdatedTime:   1000,
	}

	mock.ExpectExec("INSERT INTO GDPR_USER_CONSENT").
		WithArgs(
			record.RecordID, record.UserID, record.ConsentType, record.Granted,
			nil, record.PolicyVersion, nil, record.CreatedTime, record.UpdatedTime, nil,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := dao.Create(context.Background(), record)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentRecordDAO_LatestByType(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewConsentRecordDAO(db)

	rows := sqlmock.NewRows(consentRecordRows).
		AddRow("CONSENT-2", "user-1", "marketing", true, nil, "1.0", nil, 2000, 2000, nil)

	mock.ExpectQuery("SELECT (.+) FROM GDPR_USER_CONSENT").
		WithArgs("user-1", "marketing").
		WillReturnRows(rows)

	record, err := dao.LatestByType(context.Background(), "user-1", "marketing")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "CONSENT-2", record.RecordID)
	assert.True(t, record.Granted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentRecordDAO_LatestByType_NoDecision(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewConsentRecordDAO(db)

	mock.ExpectQuery("SELECT (.+) FROM GDPR_USER_CONSENT").
		WithArgs("user-1", "analytics").
		WillReturnRows(sqlmock.NewRows(consentRecordRows))

	record, err := dao.LatestByType(context.Background(), "user-1", "analytics")
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentRecordDAO_LatestPerType_NewestRowWins(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewConsentRecordDAO(db)

	rows := sqlmock.NewRows(consentRecordRows).
		AddRow("CONSENT-3", "user-1", "marketing", false, nil, "1.0", nil, 3000, 3000, nil).
		AddRow("CONSENT-2", "user-1", "analytics", true, nil, "1.0", nil, 2000, 2000, nil).
		AddRow("CONSENT-1", "user-1", "marketing", true, nil, "1.0", nil, 1000, 1000, nil)

	mock.ExpectQuery("SELECT (.+) FROM GDPR_USER_CONSENT").
		WithArgs("user-1").
		WillReturnRows(rows)

	latest, err := dao.LatestPerType(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.False(t, latest["marketing"].Granted)
	assert.Equal(t, "CONSENT-3", latest["marketing"].RecordID)
	assert.True(t, latest["analytics"].Granted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentRecordDAO_ListByUser(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewConsentRecordDAO(db)

	rows := sqlmock.NewRows(consentRecordRows).
		AddRow("CONSENT-2", "user-1", "marketing", false, nil, "1.0", nil, 2000, 2000, nil).
		AddRow("CONSENT-1", "user-1", "marketing", true, nil, "1.0", nil, 1000, 1000, nil)

	mock.ExpectQuery("SELECT (.+) FROM GDPR_USER_CONSENT").
		WithArgs("user-1", 20, 0).
		WillReturnRows(rows)

	records, err := dao.ListByUser(context.Background(), "user-1", 20, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "CONSENT-2", records[0].RecordID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/florenceegi/gdpr-api/internal/models"
	"github.com/florenceegi/gdpr-api/internal/registry"
	"github.com/florenceegi/gdpr-api/internal/service/mocks"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type consentFixture struct {
	records  *mocks.MockConsentRecordStore
	versions *mocks.MockConsentVersionStore
	audit    *mocks.MockAuditStore
	users    *mocks.MockUserStore
	tx       *mocks.MockTxRunner
	cache    *mocks.MockCacheStore
	service  *ConsentService
}

func newConsentFixture() *consentFixture {
	f := &consentFixture{
		records:  new(mocks.MockConsentRecordStore),
		versions: new(mocks.MockConsentVersionStore),
		audit:    new(mocks.MockAuditStore),
		users:    new(mocks.MockUserStore),
		tx:       new(mocks.MockTxRunner),
		cache:    new(mocks.MockCacheStore),
	}
	f.service = NewConsentService(
		f.records, f.versions, f.audit, f.users,
		f.tx, f.cache, registry.New(nil), 5*time.Minute, quietLogger(),
	)
	return f
}

func currentVersion() *models.ConsentVersion {
	return &models.ConsentVersion{
		VersionID:   "CVER-1",
		Version:     "2.0",
		CreatedTime: 1000,
	}
}

func TestUpdateConsents_RejectsUnknownType(t *testing.T) {
	f := newConsentFixture()

	_, err := f.service.UpdateConsents(context.Background(), "user-1", map[string]bool{"telepathy": true}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownConsentType)
}

func TestUpdateConsents_CoercesRequiredType(t *testing.T) {
	f := newConsentFixture()

	granted := true
	f.records.On("LatestPerType", mock.Anything, "user-1").Return(map[string]*models.ConsentRecord{
		"functional": {RecordID: "CONSENT-0", ConsentType: "functional", Granted: granted, CreatedTime: 500},
	}, nil)
	f.versions.On("Latest", mock.Anything).Return(currentVersion(), nil)

	// refusing a required consent is coerced back to granted, which
	// matches the stored decision, so nothing is written
	changeSet, err := f.service.UpdateConsents(context.Background(), "user-1", map[string]bool{"functional": false}, nil)

	require.NoError(t, err)
	assert.False(t, changeSet.HasChanges())
	assert.True(t, changeSet.Current["functional"])
	f.records.AssertNotCalled(t, "CreateWithTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateConsents_WritesOnlyChangedDecisions(t *testing.T) {
	f := newConsentFixture()

	f.records.On("LatestPerType", mock.Anything, "user-1").Return(map[string]*models.ConsentRecord{
		"marketing": {RecordID: "CONSENT-1", ConsentType: "marketing", Granted: true, CreatedTime: 500},
		"analytics": {RecordID: "CONSENT-2", ConsentType: "analytics", Granted: false, CreatedTime: 500},
	}, nil)
	f.versions.On("Latest", mock.Anything).Return(currentVersion(), nil)
	f.tx.On("WithTransaction", mock.Anything).Return(nil)
	f.records.On("CreateWithTx", mock.Anything, mock.Anything, mock.MatchedBy(func(r *models.ConsentRecord) bool {
		return r.ConsentType == "marketing" && !r.Granted && r.WithdrawnTime != nil
	})).Return(nil)
	f.users.On("UpdateConsentSummaryWithTx", mock.Anything, mock.Anything, "user-1", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("CreateWithTx", mock.Anything, mock.Anything, mock.MatchedBy(func(e *models.AuditLog) bool {
		return e.Action == models.AuditActionConsentsUpdated
	})).Return(nil)
	f.cache.On("Delete", mock.Anything, mock.Anything).Return(nil)

	changeSet, err := f.service.UpdateConsents(context.Background(), "user-1", map[string]bool{
		"marketing": false,
		"analytics": false,
	}, nil)

	require.NoError(t, err)
	require.Len(t, changeSet.Changes, 1)
	change := changeSet.Changes["marketing"]
	require.NotNil(t, change.From)
	assert.True(t, *change.From)
	assert.False(t, change.To)

	f.records.AssertNumberOfCalls(t, "CreateWithTx", 1)
}

func TestUpdateConsents_RecordsPolicyVersion(t *testing.T) {
	f := newConsentFixture()

	f.records.On("LatestPerType", mock.Anything, "user-1").Return(map[string]*models.ConsentRecord{}, nil)
	f.versions.On("Latest", mock.Anything).Return(currentVersion(), nil)
	f.tx.On("WithTransaction", mock.Anything).Return(nil)
	f.records.On("CreateWithTx", mock.Anything, mock.Anything, mock.MatchedBy(func(r *models.ConsentRecord) bool {
		return r.PolicyVersion == "2.0" && r.VersionID != nil && *r.VersionID == "CVER-1"
	})).Return(nil)
	f.users.On("UpdateConsentSummaryWithTx", mock.Anything, mock.Anything, "user-1", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("CreateWithTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.cache.On("Delete", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.UpdateConsents(context.Background(), "user-1", map[string]bool{"marketing": true}, nil)

	require.NoError(t, err)
	f.records.AssertExpectations(t)
}

func TestWithdraw_NonWithdrawableReturnsFalse(t *testing.T) {
	f := newConsentFixture()

	withdrawn, err := f.service.Withdraw(context.Background(), "user-1", "functional", nil)

	require.NoError(t, err)
	assert.False(t, withdrawn)
	f.records.AssertNotCalled(t, "CreateWithTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestWithdraw_WritesLedgerRow(t *testing.T) {
	f := newConsentFixture()

	f.versions.On("Latest", mock.Anything).Return(currentVersion(), nil)
	f.tx.On("WithTransaction", mock.Anything).Return(nil)
	f.records.On("CreateWithTx", mock.Anything, mock.Anything, mock.MatchedBy(func(r *models.ConsentRecord) bool {
		return r.ConsentType == "marketing" && !r.Granted && r.WithdrawnTime != nil
	})).Return(nil)
	f.records.On("LatestPerType", mock.Anything, "user-1").Return(map[string]*models.ConsentRecord{}, nil)
	f.users.On("UpdateConsentSummaryWithTx", mock.Anything, mock.Anything, "user-1", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("CreateWithTx", mock.Anything, mock.Anything, mock.MatchedBy(func(e *models.AuditLog) bool {
		return e.Action == models.AuditActionConsentWithdrawn
	})).Return(nil)
	f.cache.On("Delete", mock.Anything, []string{"user_consent_user-1_marketing"}).Return(nil)

	withdrawn, err := f.service.Withdraw(context.Background(), "user-1", "marketing", nil)

	require.NoError(t, err)
	assert.True(t, withdrawn)
	f.cache.AssertExpectations(t)
}

func TestGrant_AlreadyGrantedRefreshesMetadataOnly(t *testing.T) {
	f := newConsentFixture()

	f.versions.On("Latest", mock.Anything).Return(currentVersion(), nil)
	f.records.On("LatestByType", mock.Anything, "user-1", "marketing").Return(&models.ConsentRecord{
		RecordID:      "CONSENT-1",
		ConsentType:   "marketing",
		Granted:       true,
		PolicyVersion: "2.0",
	}, nil)
	f.tx.On("WithTransaction", mock.Anything).Return(nil)
	f.records.On("UpdateMetadataWithTx", mock.Anything, mock.Anything, "CONSENT-1", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("CreateWithTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.cache.On("Delete", mock.Anything, mock.Anything).Return(nil)

	granted, err := f.service.Grant(context.Background(), "user-1", "marketing", nil)

	require.NoError(t, err)
	assert.True(t, granted)
	f.records.AssertNotCalled(t, "CreateWithTx", mock.Anything, mock.Anything, mock.Anything)
	f.records.AssertCalled(t, "UpdateMetadataWithTx", mock.Anything, mock.Anything, "CONSENT-1", mock.Anything, mock.Anything)
}

func TestRenew_AlwaysWritesFreshRow(t *testing.T) {
	f := newConsentFixture()

	f.versions.On("Latest", mock.Anything).Return(currentVersion(), nil)
	f.records.On("LatestByType", mock.Anything, "user-1", "marketing").Return(&models.ConsentRecord{
		RecordID:      "CONSENT-1",
		ConsentType:   "marketing",
		Granted:       true,
		PolicyVersion: "1.0",
	}, nil)
	f.tx.On("WithTransaction", mock.Anything).Return(nil)
	f.records.On("CreateWithTx", mock.Anything, mock.Anything, mock.MatchedBy(func(r *models.ConsentRecord) bool {
		return r.PolicyVersion == "2.0" && r.Granted
	})).Return(nil)
	f.records.On("LatestPerType", mock.Anything, "user-1").Return(map[string]*models.ConsentRecord{}, nil)
	f.users.On("UpdateConsentSummaryWithTx", mock.Anything, mock.Anything, "user-1", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("CreateWithTx", mock.Anything, mock.Anything, mock.MatchedBy(func(e *models.AuditLog) bool {
		return e.Action == models.AuditActionConsentRenewed
	})).Return(nil)
	f.cache.On("Delete", mock.Anything, mock.Anything).Return(nil)

	renewed, err := f.service.Renew(context.Background(), "user-1", "marketing", nil)

	require.NoError(t, err)
	assert.True(t, renewed)
	f.records.AssertExpectations(t)
}

func TestHasConsent_CacheHit(t *testing.T) {
	f := newConsentFixture()

	f.cache.On("GetBool", mock.Anything, "user_consent_user-1_marketing").Return(true, true, nil)

	granted, err := f.service.HasConsent(context.Background(), "user-1", "marketing")

	require.NoError(t, err)
	assert.True(t, granted)
	f.records.AssertNotCalled(t, "LatestByType", mock.Anything, mock.Anything, mock.Anything)
}

func TestHasConsent_MissFallsBackToDefault(t *testing.T) {
	f := newConsentFixture()

	f.cache.On("GetBool", mock.Anything, "user_consent_user-1_analytics").Return(false, false, nil)
	f.records.On("LatestByType", mock.Anything, "user-1", "analytics").Return(nil, nil)
	f.cache.On("SetBool", mock.Anything, "user_consent_user-1_analytics", false, 5*time.Minute).Return(nil)

	granted, err := f.service.HasConsent(context.Background(), "user-1", "analytics")

	require.NoError(t, err)
	assert.False(t, granted)
	f.cache.AssertExpectations(t)
}

func TestHasConsent_DatabaseErrorReportsNotGranted(t *testing.T) {
	f := newConsentFixture()

	f.cache.On("GetBool", mock.Anything, "user_consent_user-1_marketing").Return(false, false, nil)
	f.records.On("LatestByType", mock.Anything, "user-1", "marketing").Return(nil, assert.AnError)

	granted, err := f.service.HasConsent(context.Background(), "user-1", "marketing")

	require.NoError(t, err)
	assert.False(t, granted)
	f.cache.AssertNotCalled(t, "SetBool", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHasConsent_UnknownType(t *testing.T) {
	f := newConsentFixture()

	_, err := f.service.HasConsent(context.Background(), "user-1", "telepathy")

	assert.ErrorIs(t, err, ErrUnknownConsentType)
}

func TestGetStatus_MergesRecordsAndDefaults(t *testing.T) {
	f := newConsentFixture()

	f.records.On("LatestPerType", mock.Anything, "user-1").Return(map[string]*models.ConsentRecord{
		"marketing": {ConsentType: "marketing", Granted: true, CreatedTime: 500},
	}, nil)
	f.versions.On("Latest", mock.Anything).Return(currentVersion(), nil)

	view, err := f.service.GetStatus(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "2.0", view.PolicyVersion)
	assert.Len(t, view.Consents, 5)

	marketing := view.Consents["marketing"]
	assert.True(t, marketing.Granted)
	assert.Equal(t, models.ConsentStatusActive, marketing.Status)
	assert.Equal(t, models.ConsentSourceRecord, marketing.Source)
	require.NotNil(t, marketing.DecidedTime)

	analytics := view.Consents["analytics"]
	assert.False(t, analytics.Granted)
	assert.Equal(t, models.ConsentStatusNotGiven, analytics.Status)
	assert.Equal(t, models.ConsentSourceDefault, analytics.Source)
	assert.Nil(t, analytics.DecidedTime)

	functional := view.Consents["functional"]
	assert.True(t, functional.Granted)
	assert.True(t, functional.Required)

	// functional (default true) and marketing (granted record)
	assert.Equal(t, 2, view.Summary.Active)
	assert.Equal(t, 5, view.Summary.Total)
	assert.Equal(t, 40, view.Summary.ComplianceScore)
}

func TestCurrentVersion_BootstrapsWhenEmpty(t *testing.T) {
	f := newConsentFixture()

	f.versions.On("Latest", mock.Anything).Return(nil, nil)
	f.versions.On("Create", mock.Anything, mock.MatchedBy(func(v *models.ConsentVersion) bool {
		return v.Version == "1.0" && v.VersionID != ""
	})).Return(nil)

	version, err := f.service.CurrentVersion(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "1.0", version.Version)
	f.versions.AssertExpectations(t)
}

func TestCreateDefaults_SkipsDecidedTypes(t *testing.T) {
	f := newConsentFixture()

	f.records.On("LatestPerType", mock.Anything, "user-1").Return(map[string]*models.ConsentRecord{
		"marketing": {ConsentType: "marketing", Granted: true},
	}, nil)
	f.versions.On("Latest", mock.Anything).Return(currentVersion(), nil)
	f.tx.On("WithTransaction", mock.Anything).Return(nil)
	f.records.On("CreateWithTx", mock.Anything, mock.Anything, mock.MatchedBy(func(r *models.ConsentRecord) bool {
		return r.ConsentType != "marketing"
	})).Return(nil)
	f.users.On("UpdateConsentSummaryWithTx", mock.Anything, mock.Anything, "user-1", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("CreateWithTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.cache.On("Delete", mock.Anything, mock.Anything).Return(nil)

	created, err := f.service.CreateDefaults(context.Background(), "user-1", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 4, created)
	f.records.AssertNumberOfCalls(t, "CreateWithTx", 4)
}

func TestCreateDefaults_InitialOverridesAndRequiredCoercion(t *testing.T) {
	f := newConsentFixture()

	f.records.On("LatestPerType", mock.Anything, "user-1").Return(map[string]*models.ConsentRecord{}, nil)
	f.versions.On("Latest", mock.Anything).Return(currentVersion(), nil)
	f.tx.On("WithTransaction", mock.Anything).Return(nil)

	written := map[string]bool{}
	f.records.On("CreateWithTx", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		r := args.Get(2).(*models.ConsentRecord)
		written[r.ConsentType] = r.Granted
	}).Return(nil)
	f.users.On("UpdateConsentSummaryWithTx", mock.Anything, mock.Anything, "user-1", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("CreateWithTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.cache.On("Delete", mock.Anything, mock.Anything).Return(nil)

	created, err := f.service.CreateDefaults(context.Background(), "user-1", map[string]bool{
		"analytics":  true,
		"functional": false,
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 5, created)
	assert.True(t, written["analytics"], "initial override should grant analytics")
	assert.True(t, written["functional"], "required type stays granted despite override")
	assert.False(t, written["marketing"], "catalog default applies when no override")
}

func TestDetailedHistory_LinksPreviousDecisions(t *testing.T) {
	f := newConsentFixture()

	f.records.On("ListByUser", mock.Anything, "user-1", 20, 0).Return([]models.ConsentRecord{
		{RecordID: "CONSENT-3", ConsentType: "marketing", Granted: false, CreatedTime: 3000},
		{RecordID: "CONSENT-2", ConsentType: "analytics", Granted: true, CreatedTime: 2000},
		{RecordID: "CONSENT-1", ConsentType: "marketing", Granted: true, CreatedTime: 1000},
	}, nil)
	f.records.On("CountByUser", mock.Anything, "user-1").Return(3, nil)

	entries, total, err := f.service.DetailedHistory(context.Background(), "user-1", 20, 0)

	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, entries, 3)

	require.NotNil(t, entries[0].Previous)
	assert.True(t, *entries[0].Previous)
	assert.Nil(t, entries[1].Previous)
	assert.Nil(t, entries[2].Previous)
}

func TestDetailedHistory_PreviousIsPageLocal(t *testing.T) {
	f := newConsentFixture()

	// older marketing rows exist beyond this page, yet the page's last
	// marketing row still reports no previous decision
	f.records.On("ListByUser", mock.Anything, "user-1", 2, 0).Return([]models.ConsentRecord{
		{RecordID: "CONSENT-4", ConsentType: "marketing", Granted: false, CreatedTime: 4000},
		{RecordID: "CONSENT-3", ConsentType: "analytics", Granted: true, CreatedTime: 3000},
	}, nil)
	f.records.On("CountByUser", mock.Anything, "user-1").Return(4, nil)

	entries, total, err := f.service.DetailedHistory(context.Background(), "user-1", 2, 0)

	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, entries, 2)
	assert.Nil(t, entries[0].Previous)
	assert.Nil(t, entries[1].Previous)
}

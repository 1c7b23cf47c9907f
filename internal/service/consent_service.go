package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/florenceegi/gdpr-api/internal/cache"
	"github.com/florenceegi/gdpr-api/internal/database"
	"github.com/florenceegi/gdpr-api/internal/metrics"
	"github.com/florenceegi/gdpr-api/internal/models"
	"github.com/florenceegi/gdpr-api/internal/registry"
	"github.com/florenceegi/gdpr-api/pkg/utils"
)

// ConsentService handles business logic for consent operations. The
// ledger is append-only: every decision change adds a row, and the
// latest row per (user, type) wins. Types without a row resolve to the
// catalog default.
type ConsentService struct {
	recordDAO  ConsentRecordStore
	versionDAO ConsentVersionStore
	auditDAO   AuditStore
	userDAO    UserStore
	db         TxRunner
	cache      cache.Store
	registry   *registry.Registry
	cacheTTL   time.Duration
	logger     *logrus.Logger
}

// NewConsentService creates a new consent service instance
func NewConsentService(
	recordDAO ConsentRecordStore,
	versionDAO ConsentVersionStore,
	auditDAO AuditStore,
	userDAO UserStore,
	db TxRunner,
	cacheStore cache.Store,
	reg *registry.Registry,
	cacheTTL time.Duration,
	logger *logrus.Logger,
) *ConsentService {
	return &ConsentService{
		recordDAO:  recordDAO,
		versionDAO: versionDAO,
		auditDAO:   auditDAO,
		userDAO:    userDAO,
		db:         db,
		cache:      cacheStore,
		registry:   reg,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// GetStatus resolves the aggregated consent state for a user: one entry
// per catalog type, from the latest ledger row or the type default.
func (s *ConsentService) GetStatus(ctx context.Context, userID string) (*models.ConsentStatusView, error) {
	latest, err := s.recordDAO.LatestPerType(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve consent status: %w", err)
	}

	version, err := s.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}

	view := &models.ConsentStatusView{
		UserID:        userID,
		PolicyVersion: version.Version,
		Consents:      make(map[string]models.ConsentTypeState, len(s.registry.Slugs())),
		UpdatedTime:   utils.GetCurrentTimeMillis(),
	}

	for _, info := range s.registry.Types() {
		state := models.ConsentTypeState{
			Granted:     info.DefaultValue,
			Status:      models.ConsentStatusNotGiven,
			Required:    info.Required,
			CanWithdraw: info.CanWithdraw,
			LegalBasis:  info.LegalBasis,
			Source:      models.ConsentSourceDefault,
		}
		if record, ok := latest[info.Slug]; ok {
			decided := record.CreatedTime
			state.Granted = record.Granted
			state.Source = models.ConsentSourceRecord
			state.Version = record.PolicyVersion
			state.DecidedTime = &decided
			state.WithdrawnTime = record.WithdrawnTime
			if record.Granted {
				state.Status = models.ConsentStatusActive
			} else {
				state.Status = models.ConsentStatusWithdrawn
			}
		}
		view.Consents[info.Slug] = state

		view.Summary.Total++
		if state.Granted {
			view.Summary.Active++
		}
	}
	if view.Summary.Total > 0 {
		view.Summary.ComplianceScore = view.Summary.Active * 100 / view.Summary.Total
	}

	return view, nil
}

// HasConsent resolves one decision, consulting the cache first.
// A database failure is logged and reported as not granted so callers
// gating processing on consent fail closed.
func (s *ConsentService) HasConsent(ctx context.Context, userID, consentType string) (bool, error) {
	info, ok := s.registry.Get(consentType)
	if !ok {
		return false, ErrUnknownConsentType
	}

	key := cache.ConsentKey(userID, consentType)
	if cached, hit, err := s.cache.GetBool(ctx, key); err == nil && hit {
		metrics.ConsentCacheHits.WithLabelValues("hit").Inc()
		metrics.ConsentChecks.WithLabelValues(consentType, metrics.CheckResult(cached)).Inc()
		return cached, nil
	} else if err != nil {
		s.logger.WithError(err).Warn("Consent cache lookup failed, falling through to database")
	}
	metrics.ConsentCacheHits.WithLabelValues("miss").Inc()

	granted := info.DefaultValue
	record, err := s.recordDAO.LatestByType(ctx, userID, consentType)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":      userID,
			"consent_type": consentType,
		}).Error("Failed to resolve consent decision, reporting not granted")
		metrics.ConsentChecks.WithLabelValues(consentType, metrics.CheckResult(false)).Inc()
		return false, nil
	}
	if record != nil {
		granted = record.Granted
	}

	if err := s.cache.SetBool(ctx, key, granted, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to cache consent decision")
	}

	metrics.ConsentChecks.WithLabelValues(consentType, metrics.CheckResult(granted)).Inc()
	return granted, nil
}

// UpdateConsents applies a bulk decision update. Unknown types are
// rejected; required types are coerced back to granted with a warning.
// Only decisions that actually change produce ledger rows. The rows,
// the denormalized user summary and the audit entry commit together.
func (s *ConsentService) UpdateConsents(ctx context.Context, userID string, decisions map[string]bool, meta *models.ConsentMeta) (*models.ChangeSet, error) {
	if len(decisions) == 0 {
		return nil, fmt.Errorf("no consent decisions provided")
	}

	applied := make(map[string]bool, len(decisions))
	for slug, granted := range decisions {
		info, ok := s.registry.Get(slug)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownConsentType, slug)
		}
		if info.Required && !granted {
			s.logger.WithFields(logrus.Fields{
				"user_id":      userID,
				"consent_type": slug,
			}).Warn("Attempt to refuse a required consent, keeping it granted")
			granted = true
		}
		applied[slug] = granted
	}

	latest, err := s.recordDAO.LatestPerType(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load current consents: %w", err)
	}

	version, err := s.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}

	now := utils.GetCurrentTimeMillis()
	metadata, err := models.EncodeConsentMeta(meta)
	if err != nil {
		return nil, err
	}

	changeSet := &models.ChangeSet{
		Previous: make(map[string]bool, len(applied)),
		Current:  make(map[string]bool, len(applied)),
		Changes:  make(map[string]models.ConsentChange),
	}

	var newRecords []*models.ConsentRecord
	for slug, granted := range applied {
		var previous *bool
		prevValue := s.defaultFor(slug)
		if record, ok := latest[slug]; ok {
			prevValue = record.Granted
			previous = &record.Granted
		}

		changeSet.Previous[slug] = prevValue
		changeSet.Current[slug] = granted

		if prevValue == granted && previous != nil {
			continue
		}

		record := &models.ConsentRecord{
			RecordID:      utils.GenerateConsentRecordID(),
			UserID:        userID,
			ConsentType:   slug,
			Granted:       granted,
			VersionID:     &version.VersionID,
			PolicyVersion: version.Version,
			Metadata:      metadata,
			CreatedTime:   now,
			UpdatedTime:   now,
		}
		if !granted {
			record.WithdrawnTime = &now
		}
		newRecords = append(newRecords, record)

		changeSet.Changes[slug] = models.ConsentChange{
			From:      previous,
			To:        granted,
			Timestamp: now,
		}
	}

	if len(newRecords) == 0 {
		return changeSet, nil
	}

	auditEntry, err := s.buildUpdateAudit(userID, changeSet, meta)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		for _, record := range newRecords {
			if err := s.recordDAO.CreateWithTx(ctx, tx, record); err != nil {
				return err
			}
		}
		if err := s.refreshUserSummary(ctx, tx, userID, latest, newRecords, now); err != nil {
			return err
		}
		return s.auditDAO.CreateWithTx(ctx, tx, auditEntry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply consent update: %w", err)
	}

	s.invalidateCache(ctx, userID, changeSet.Changes)
	s.countDecisions(newRecords)

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"changed": len(changeSet.Changes),
	}).Info("Consent decisions updated")

	return changeSet, nil
}

// Grant records a positive decision for one type. When the latest row
// already grants the type, only its metadata and update time are
// refreshed; no duplicate row is written.
func (s *ConsentService) Grant(ctx context.Context, userID, consentType string, meta *models.ConsentMeta) (bool, error) {
	return s.grant(ctx, userID, consentType, meta, models.AuditActionConsentGranted)
}

// Renew re-records a positive decision against the current policy
// version, for consents collected under an older version.
func (s *ConsentService) Renew(ctx context.Context, userID, consentType string, meta *models.ConsentMeta) (bool, error) {
	return s.grant(ctx, userID, consentType, meta, models.AuditActionConsentRenewed)
}

func (s *ConsentService) grant(ctx context.Context, userID, consentType string, meta *models.ConsentMeta, auditAction string) (bool, error) {
	if _, ok := s.registry.Get(consentType); !ok {
		return false, ErrUnknownConsentType
	}

	now := utils.GetCurrentTimeMillis()
	metadata, err := models.EncodeConsentMeta(meta)
	if err != nil {
		return false, err
	}

	latest, err := s.recordDAO.LatestByType(ctx, userID, consentType)
	if err != nil {
		return false, err
	}

	version, err := s.CurrentVersion(ctx)
	if err != nil {
		return false, err
	}

	// renewals always write a fresh row; plain grants refresh in place
	// when the decision is already granted under the current version
	refreshOnly := latest != nil && latest.Granted &&
		auditAction == models.AuditActionConsentGranted &&
		latest.PolicyVersion == version.Version

	auditEntry, err := s.auditEntryFor(userID, auditAction, models.AuditEntityConsent, nil, meta, map[string]interface{}{
		"consent_type": consentType,
	})
	if err != nil {
		return false, err
	}

	err = s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if refreshOnly {
			if err := s.recordDAO.UpdateMetadataWithTx(ctx, tx, latest.RecordID, metadata, now); err != nil {
				return err
			}
		} else {
			record := &models.ConsentRecord{
				RecordID:      utils.GenerateConsentRecordID(),
				UserID:        userID,
				ConsentType:   consentType,
				Granted:       true,
				VersionID:     &version.VersionID,
				PolicyVersion: version.Version,
				Metadata:      metadata,
				CreatedTime:   now,
				UpdatedTime:   now,
			}
			if err := s.recordDAO.CreateWithTx(ctx, tx, record); err != nil {
				return err
			}
			if err := s.refreshUserSummaryForType(ctx, tx, userID, consentType, true, now); err != nil {
				return err
			}
		}
		return s.auditDAO.CreateWithTx(ctx, tx, auditEntry)
	})
	if err != nil {
		return false, fmt.Errorf("failed to grant consent: %w", err)
	}

	s.invalidateCacheKeys(ctx, userID, consentType)
	metrics.ConsentGrants.WithLabelValues(consentType).Inc()

	s.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"consent_type": consentType,
		"refresh_only": refreshOnly,
	}).Info("Consent granted")

	return true, nil
}

// Withdraw records a negative decision for one type. Types that cannot
// be withdrawn return false without writing anything.
func (s *ConsentService) Withdraw(ctx context.Context, userID, consentType string, meta *models.ConsentMeta) (bool, error) {
	info, ok := s.registry.Get(consentType)
	if !ok {
		return false, ErrUnknownConsentType
	}

	if !info.CanWithdraw {
		s.logger.WithFields(logrus.Fields{
			"user_id":      userID,
			"consent_type": consentType,
		}).Warn("Attempt to withdraw a non-withdrawable consent")
		return false, nil
	}

	now := utils.GetCurrentTimeMillis()
	metadata, err := models.EncodeConsentMeta(meta)
	if err != nil {
		return false, err
	}

	version, err := s.CurrentVersion(ctx)
	if err != nil {
		return false, err
	}

	record := &models.ConsentRecord{
		RecordID:      utils.GenerateConsentRecordID(),
		UserID:        userID,
		ConsentType:   consentType,
		Granted:       false,
		VersionID:     &version.VersionID,
		PolicyVersion: version.Version,
		Metadata:      metadata,
		CreatedTime:   now,
		UpdatedTime:   now,
		WithdrawnTime: &now,
	}

	auditEntry, err := s.auditEntryFor(userID, models.AuditActionConsentWithdrawn, models.AuditEntityConsent, &record.RecordID, meta, map[string]interface{}{
		"consent_type": consentType,
	})
	if err != nil {
		return false, err
	}

	err = s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.recordDAO.CreateWithTx(ctx, tx, record); err != nil {
			return err
		}
		if err := s.refreshUserSummaryForType(ctx, tx, userID, consentType, false, now); err != nil {
			return err
		}
		return s.auditDAO.CreateWithTx(ctx, tx, auditEntry)
	})
	if err != nil {
		return false, fmt.Errorf("failed to withdraw consent: %w", err)
	}

	s.invalidateCacheKeys(ctx, userID, consentType)
	metrics.ConsentWithdrawals.WithLabelValues(consentType).Inc()

	s.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"consent_type": consentType,
	}).Info("Consent withdrawn")

	return true, nil
}

// CreateDefaults writes decisions for every type the user has not yet
// decided on, using initial values where provided and catalog defaults
// otherwise. Required types are always granted. Used at registration.
func (s *ConsentService) CreateDefaults(ctx context.Context, userID string, initial map[string]bool, meta *models.ConsentMeta) (int, error) {
	latest, err := s.recordDAO.LatestPerType(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load current consents: %w", err)
	}

	version, err := s.CurrentVersion(ctx)
	if err != nil {
		return 0, err
	}

	now := utils.GetCurrentTimeMillis()
	metadata, err := models.EncodeConsentMeta(meta)
	if err != nil {
		return 0, err
	}

	var records []*models.ConsentRecord
	for _, info := range s.registry.Types() {
		if _, decided := latest[info.Slug]; decided {
			continue
		}
		granted := info.DefaultValue
		if v, ok := initial[info.Slug]; ok {
			granted = v
		}
		if info.Required {
			granted = true
		}
		records = append(records, &models.ConsentRecord{
			RecordID:      utils.GenerateConsentRecordID(),
			UserID:        userID,
			ConsentType:   info.Slug,
			Granted:       granted,
			VersionID:     &version.VersionID,
			PolicyVersion: version.Version,
			Metadata:      metadata,
			CreatedTime:   now,
			UpdatedTime:   now,
		})
	}

	if len(records) == 0 {
		return 0, nil
	}

	auditEntry, err := s.auditEntryFor(userID, models.AuditActionDefaultsCreated, models.AuditEntityConsent, nil, meta, map[string]interface{}{
		"count": len(records),
	})
	if err != nil {
		return 0, err
	}

	err = s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		for _, record := range records {
			if err := s.recordDAO.CreateWithTx(ctx, tx, record); err != nil {
				return err
			}
		}
		if err := s.refreshUserSummary(ctx, tx, userID, latest, records, now); err != nil {
			return err
		}
		return s.auditDAO.CreateWithTx(ctx, tx, auditEntry)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create default consents: %w", err)
	}

	for _, record := range records {
		s.invalidateCacheKeys(ctx, userID, record.ConsentType)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"count":   len(records),
	}).Info("Default consents created")

	return len(records), nil
}

// History retrieves the raw ledger history for a user with the total
// row count
func (s *ConsentService) History(ctx context.Context, userID string, limit, offset int) ([]models.ConsentRecord, int, error) {
	records, err := s.recordDAO.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.recordDAO.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// ConsentHistoryEntry is one ledger row enriched with its decoded
// request context and the decision it replaced
type ConsentHistoryEntry struct {
	Record   models.ConsentRecord `json:"record"`
	Meta     *models.ConsentMeta  `json:"meta,omitempty"`
	Previous *bool                `json:"previous,omitempty"`
}

// DetailedHistory retrieves the ledger history enriched with decoded
// metadata and per-row previous decisions. Previous is resolved within
// the fetched page only: the oldest row of each type on a page reports
// no previous decision even when an older one exists beyond the page
// boundary.
func (s *ConsentService) DetailedHistory(ctx context.Context, userID string, limit, offset int) ([]ConsentHistoryEntry, int, error) {
	records, total, err := s.History(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	entries := make([]ConsentHistoryEntry, 0, len(records))
	// rows are newest first, so the next row with the same type going
	// down the list is the decision this one replaced
	for i, record := range records {
		entry := ConsentHistoryEntry{Record: record}

		meta, err := models.DecodeConsentMeta(record.Metadata)
		if err != nil {
			s.logger.WithError(err).WithField("record_id", record.RecordID).Warn("Failed to decode consent metadata")
		} else {
			entry.Meta = meta
		}

		for j := i + 1; j < len(records); j++ {
			if records[j].ConsentType == record.ConsentType {
				prev := records[j].Granted
				entry.Previous = &prev
				break
			}
		}

		entries = append(entries, entry)
	}

	return entries, total, nil
}

// CurrentVersion returns the latest policy version, bootstrapping an
// initial "1.0" version when none exists yet.
func (s *ConsentService) CurrentVersion(ctx context.Context) (*models.ConsentVersion, error) {
	version, err := s.versionDAO.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current policy version: %w", err)
	}
	if version != nil {
		return version, nil
	}

	bootstrap := &models.ConsentVersion{
		VersionID:   utils.GenerateVersionID(),
		Version:     "1.0",
		Summary:     "Initial consent policy version",
		CreatedTime: utils.GetCurrentTimeMillis(),
	}
	if err := s.versionDAO.Create(ctx, bootstrap); err != nil {
		return nil, fmt.Errorf("failed to bootstrap policy version: %w", err)
	}

	s.logger.WithField("version", bootstrap.Version).Info("Bootstrapped initial consent policy version")
	return bootstrap, nil
}

// CreateVersion publishes a new policy version
func (s *ConsentService) CreateVersion(ctx context.Context, request *models.ConsentVersionAPIRequest) (*models.ConsentVersion, error) {
	if request.Version == "" {
		return nil, fmt.Errorf("version is required")
	}

	version, err := request.ToConsentVersion()
	if err != nil {
		return nil, err
	}
	version.VersionID = utils.GenerateVersionID()
	version.CreatedTime = utils.GetCurrentTimeMillis()

	if err := s.versionDAO.Create(ctx, version); err != nil {
		return nil, fmt.Errorf("failed to create policy version: %w", err)
	}

	s.logger.WithField("version", version.Version).Info("Consent policy version published")
	return version, nil
}

// ListVersions retrieves policy versions, newest first
func (s *ConsentService) ListVersions(ctx context.Context, limit, offset int) ([]models.ConsentVersion, error) {
	return s.versionDAO.List(ctx, limit, offset)
}

// Types returns the consent type catalog
func (s *ConsentService) Types() []models.ConsentTypeInfo {
	return s.registry.Types()
}

func (s *ConsentService) defaultFor(slug string) bool {
	info, _ := s.registry.Get(slug)
	return info.DefaultValue
}

// refreshUserSummary recomputes the denormalized summary from the known
// latest rows overlaid with the rows written in this transaction
func (s *ConsentService) refreshUserSummary(ctx context.Context, tx *database.Transaction, userID string, latest map[string]*models.ConsentRecord, newRecords []*models.ConsentRecord, now int64) error {
	summary := make(map[string]bool, len(s.registry.Slugs()))
	for _, info := range s.registry.Types() {
		summary[info.Slug] = info.DefaultValue
	}
	for slug, record := range latest {
		summary[slug] = record.Granted
	}
	for _, record := range newRecords {
		summary[record.ConsentType] = record.Granted
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal consent summary: %w", err)
	}

	return s.userDAO.UpdateConsentSummaryWithTx(ctx, tx, userID, models.JSON(raw), now)
}

// refreshUserSummaryForType updates a single entry of the denormalized
// summary after a single-type operation
func (s *ConsentService) refreshUserSummaryForType(ctx context.Context, tx *database.Transaction, userID, consentType string, granted bool, now int64) error {
	latest, err := s.recordDAO.LatestPerType(ctx, userID)
	if err != nil {
		return err
	}

	record := &models.ConsentRecord{ConsentType: consentType, Granted: granted}
	return s.refreshUserSummary(ctx, tx, userID, latest, []*models.ConsentRecord{record}, now)
}

func (s *ConsentService) buildUpdateAudit(userID string, changeSet *models.ChangeSet, meta *models.ConsentMeta) (*models.AuditLog, error) {
	details := map[string]interface{}{
		"changes": changeSet.Changes,
	}
	return s.auditEntryFor(userID, models.AuditActionConsentsUpdated, models.AuditEntityConsent, nil, meta, details)
}

func (s *ConsentService) auditEntryFor(userID, action, entityType string, entityID *string, meta *models.ConsentMeta, details map[string]interface{}) (*models.AuditLog, error) {
	entry := &models.AuditLog{
		AuditID:     utils.GenerateAuditID(),
		UserID:      userID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		CreatedTime: utils.GetCurrentTimeMillis(),
	}

	if meta != nil {
		if meta.IPAddress != "" {
			ip := meta.IPAddress
			entry.IPAddress = &ip
		}
		if meta.UserAgent != "" {
			ua := meta.UserAgent
			entry.UserAgent = &ua
		}
	}

	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal audit details: %w", err)
		}
		entry.Details = models.JSON(raw)
	}

	return entry, nil
}

func (s *ConsentService) invalidateCache(ctx context.Context, userID string, changes map[string]models.ConsentChange) {
	keys := make([]string, 0, len(changes))
	for slug := range changes {
		keys = append(keys, cache.ConsentKey(userID, slug))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate consent cache")
	}
}

func (s *ConsentService) invalidateCacheKeys(ctx context.Context, userID, consentType string) {
	if err := s.cache.Delete(ctx, cache.ConsentKey(userID, consentType)); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate consent cache")
	}
}

func (s *ConsentService) countDecisions(records []*models.ConsentRecord) {
	for _, record := range records {
		if record.Granted {
			metrics.ConsentGrants.WithLabelValues(record.ConsentType).Inc()
		} else {
			metrics.ConsentWithdrawals.WithLabelValues(record.ConsentType).Inc()
		}
	}
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/florenceegi/gdpr-api/internal/config"
	"github.com/florenceegi/gdpr-api/internal/database"
	"github.com/florenceegi/gdpr-api/internal/metrics"
	"github.com/florenceegi/gdpr-api/internal/models"
	"github.com/florenceegi/gdpr-api/pkg/utils"
)

// RestrictionService handles article 18 processing restrictions. The
// active-restriction limit is enforced inside the creation transaction,
// and restriction checks fail closed: a lookup error blocks processing.
type RestrictionService struct {
	restrictionDAO RestrictionStore
	auditDAO       AuditStore
	db             TxRunner
	audit          *AuditService
	cfg            *config.RestrictionConfig
	logger         *logrus.Logger
}

// NewRestrictionService creates a new restriction service instance
func NewRestrictionService(
	restrictionDAO RestrictionStore,
	auditDAO AuditStore,
	db TxRunner,
	audit *AuditService,
	cfg *config.RestrictionConfig,
	logger *logrus.Logger,
) *RestrictionService {
	return &RestrictionService{
		restrictionDAO: restrictionDAO,
		auditDAO:       auditDAO,
		db:             db,
		audit:          audit,
		cfg:            cfg,
		logger:         logger,
	}
}

// Create places a new processing restriction. Creation fails when the
// user already carries the maximum number of active restrictions.
func (s *RestrictionService) Create(ctx context.Context, userID string, request *models.RestrictionCreateAPIRequest, auditCtx *AuditContext) (*models.ProcessingRestriction, error) {
	if !models.IsKnownRestrictionType(request.Type) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRestrictionType, request.Type)
	}

	now := utils.GetCurrentTimeMillis()
	restriction := &models.ProcessingRestriction{
		RestrictionID: utils.GenerateRestrictionID(),
		UserID:        userID,
		Type:          request.Type,
		Status:        models.RestrictionStatusActive,
		CreatedTime:   now,
		UpdatedTime:   now,
	}

	if request.Reason != "" {
		reason := request.Reason
		restriction.Reason = &reason
	}

	if len(request.Categories) > 0 {
		raw, err := json.Marshal(request.Categories)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal restriction categories: %w", err)
		}
		restriction.Categories = models.JSON(raw)
	}

	if s.cfg.AutoExpiryEnabled() {
		expires := now + int64(s.cfg.AutoExpiryDays)*24*int64(time.Hour/time.Millisecond)
		restriction.ExpiresTime = &expires
	}

	auditEntry, err := s.audit.BuildEntry(userID, models.AuditActionRestrictionCreated, models.AuditEntityRestriction, &restriction.RestrictionID, auditCtx, map[string]interface{}{
		"type":       request.Type,
		"categories": request.Categories,
	})
	if err != nil {
		return nil, err
	}

	err = s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		count, err := s.restrictionDAO.CountActiveWithTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if count >= s.cfg.MaxActive {
			return ErrRestrictionLimit
		}

		if err := s.restrictionDAO.CreateWithTx(ctx, tx, restriction); err != nil {
			return err
		}
		return s.auditDAO.CreateWithTx(ctx, tx, auditEntry)
	})
	if err != nil {
		return nil, err
	}

	metrics.RestrictionsActive.Inc()

	s.logger.WithFields(logrus.Fields{
		"user_id":        userID,
		"restriction_id": restriction.RestrictionID,
		"type":           restriction.Type,
	}).Info("Processing restriction created")

	return restriction, nil
}

// Lift removes an active restriction
func (s *RestrictionService) Lift(ctx context.Context, userID, restrictionID string, auditCtx *AuditContext) error {
	lifted, err := s.restrictionDAO.Lift(ctx, restrictionID, userID, utils.GetCurrentTimeMillis())
	if err != nil {
		return err
	}
	if !lifted {
		return ErrRestrictionNotFound
	}

	metrics.RestrictionsActive.Dec()
	s.audit.Record(ctx, userID, models.AuditActionRestrictionLifted, models.AuditEntityRestriction, &restrictionID, auditCtx, nil)

	s.logger.WithFields(logrus.Fields{
		"user_id":        userID,
		"restriction_id": restrictionID,
	}).Info("Processing restriction lifted")

	return nil
}

// ListActive retrieves a user's active restrictions
func (s *RestrictionService) ListActive(ctx context.Context, userID string) ([]models.ProcessingRestriction, error) {
	return s.restrictionDAO.ListActive(ctx, userID)
}

// Applies checks whether a processing activity on a data category is
// blocked for a user. Lookup errors block processing rather than
// silently allowing it.
func (s *RestrictionService) Applies(ctx context.Context, userID, processingType, dataCategory string) (*models.RestrictionCheckAPIResponse, error) {
	restrictions, err := s.restrictionDAO.ListActive(ctx, userID)
	if err != nil {
		metrics.RestrictionChecks.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to check processing restrictions: %w", err)
	}

	for i := range restrictions {
		r := &restrictions[i]
		if r.ExpiresTime != nil && utils.IsExpired(*r.ExpiresTime) {
			continue
		}
		if r.AppliesTo(processingType, dataCategory) {
			metrics.RestrictionChecks.WithLabelValues("denied").Inc()
			return &models.RestrictionCheckAPIResponse{
				Allowed:      false,
				RestrictedBy: r.RestrictionID,
			}, nil
		}
	}

	metrics.RestrictionChecks.WithLabelValues("allowed").Inc()
	return &models.RestrictionCheckAPIResponse{Allowed: true}, nil
}

// ExpireRestrictions flips active restrictions past their expiry time
// to expired, auditing each one. A failure on one row does not block
// the rest.
func (s *RestrictionService) ExpireRestrictions(ctx context.Context) (int, error) {
	expired, err := s.restrictionDAO.ListExpired(ctx, utils.GetCurrentTimeMillis())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, r := range expired {
		if err := s.restrictionDAO.MarkExpired(ctx, r.RestrictionID, utils.GetCurrentTimeMillis()); err != nil {
			s.logger.WithError(err).WithField("restriction_id", r.RestrictionID).Error("Failed to expire restriction")
			continue
		}

		metrics.RestrictionsActive.Dec()
		s.audit.Record(ctx, r.UserID, models.AuditActionRestrictionExpired, models.AuditEntityRestriction, &r.RestrictionID, nil, nil)
		count++
	}

	if count > 0 {
		s.logger.WithField("count", count).Info("Expired processing restrictions")
	}

	return count, nil
}

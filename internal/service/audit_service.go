package service

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/florenceegi/gdpr-api/internal/models"
	"github.com/florenceegi/gdpr-api/pkg/utils"
)

// AuditService records privacy-relevant actions. Writes are best-effort
// when performed outside a transaction: a failed audit write is logged
// but never fails the operation it describes.
type AuditService struct {
	auditDAO AuditStore
	logger   *logrus.Logger
}

// NewAuditService creates a new audit service instance
func NewAuditService(auditDAO AuditStore, logger *logrus.Logger) *AuditService {
	return &AuditService{
		auditDAO: auditDAO,
		logger:   logger,
	}
}

// AuditContext carries the request context recorded with an entry. The
// IP must already be masked by the caller.
type AuditContext struct {
	IPAddress string
	UserAgent string
}

// Record writes an audit entry outside a transaction. Failures are
// logged and swallowed.
func (s *AuditService) Record(ctx context.Context, userID, action, entityType string, entityID *string, auditCtx *AuditContext, details map[string]interface{}) {
	entry, err := s.buildEntry(userID, action, entityType, entityID, auditCtx, details)
	if err != nil {
		s.logger.WithError(err).WithField("action", action).Error("Failed to build audit entry")
		return
	}

	if err := s.auditDAO.Create(ctx, entry); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"action":  action,
		}).Error("Failed to write audit entry")
	}
}

// BuildEntry builds an audit entry for callers that write it inside
// their own transaction
func (s *AuditService) BuildEntry(userID, action, entityType string, entityID *string, auditCtx *AuditContext, details map[string]interface{}) (*models.AuditLog, error) {
	return s.buildEntry(userID, action, entityType, entityID, auditCtx, details)
}

func (s *AuditService) buildEntry(userID, action, entityType string, entityID *string, auditCtx *AuditContext, details map[string]interface{}) (*models.AuditLog, error) {
	entry := &models.AuditLog{
		AuditID:     utils.GenerateAuditID(),
		UserID:      userID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		CreatedTime: utils.GetCurrentTimeMillis(),
	}

	if auditCtx != nil {
		if auditCtx.IPAddress != "" {
			ip := auditCtx.IPAddress
			entry.IPAddress = &ip
		}
		if auditCtx.UserAgent != "" {
			ua := auditCtx.UserAgent
			entry.UserAgent = &ua
		}
	}

	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return nil, err
		}
		entry.Details = models.JSON(raw)
	}

	return entry, nil
}

// History retrieves a user's audit trail with the total entry count
func (s *AuditService) History(ctx context.Context, userID string, limit, offset int) ([]models.AuditLog, int, error) {
	entries, err := s.auditDAO.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.auditDAO.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

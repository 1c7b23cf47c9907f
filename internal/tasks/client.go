package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/florenceegi/gdpr-api/internal/config"
)

// Client enqueues tasks for the worker. It satisfies
// service.ExportEnqueuer.
type Client struct {
	client *asynq.Client
	logger *logrus.Logger
}

// RedisClientOpt builds the asynq redis options from configuration
func RedisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewClient creates a new task client
func NewClient(cfg *config.RedisConfig, logger *logrus.Logger) *Client {
	return &Client{
		client: asynq.NewClient(RedisClientOpt(cfg)),
		logger: logger,
	}
}

// Close closes the underlying asynq client
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueExportProcess queues production of an export file
func (c *Client) EnqueueExportProcess(ctx context.Context, exportID string) error {
	payload, err := json.Marshal(ExportProcessPayload{ExportID: exportID})
	if err != nil {
		return fmt.Errorf("failed to marshal export task payload: %w", err)
	}

	task := asynq.NewTask(TaskTypeExportProcess, payload,
		asynq.Queue(QueueCritical),
		asynq.Timeout(TimeoutLong),
		asynq.MaxRetry(3),
	)

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue export task: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"task_id":   info.ID,
		"export_id": exportID,
		"queue":     info.Queue,
	}).Info("Export task enqueued")

	return nil
}

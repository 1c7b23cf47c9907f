package tasks

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/florenceegi/gdpr-api/internal/config"
)

// Scheduler enqueues the periodic maintenance sweeps
type Scheduler struct {
	scheduler *asynq.Scheduler
	cfg       *config.TasksConfig
	logger    *logrus.Logger
}

// NewScheduler creates a new task scheduler
func NewScheduler(redisCfg *config.RedisConfig, tasksCfg *config.TasksConfig, logger *logrus.Logger) *Scheduler {
	scheduler := asynq.NewScheduler(RedisClientOpt(redisCfg), &asynq.SchedulerOpts{})

	return &Scheduler{
		scheduler: scheduler,
		cfg:       tasksCfg,
		logger:    logger,
	}
}

// Start registers the periodic tasks and runs the scheduler. Blocks
// until Stop is called.
func (s *Scheduler) Start() error {
	if err := s.registerTasks(); err != nil {
		return fmt.Errorf("failed to register periodic tasks: %w", err)
	}

	s.logger.Info("Starting task scheduler")
	return s.scheduler.Run()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
	s.logger.Info("Task scheduler stopped")
}

func (s *Scheduler) registerTasks() error {
	entries := []struct {
		spec     string
		taskType string
	}{
		{s.cfg.PurgeSchedule, TaskTypeExportPurge},
		{s.cfg.RestrictionSchedule, TaskTypeRestrictionExpire},
	}

	for _, entry := range entries {
		task := asynq.NewTask(entry.taskType, nil,
			asynq.Queue(QueueLow),
			asynq.Timeout(TimeoutMedium),
		)
		entryID, err := s.scheduler.Register(entry.spec, task)
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", entry.taskType, err)
		}

		s.logger.WithFields(logrus.Fields{
			"task":     entry.taskType,
			"schedule": entry.spec,
			"entry_id": entryID,
		}).Info("Registered periodic task")
	}

	return nil
}

package tasks

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/florenceegi/gdpr-api/internal/config"
)

// Server runs the task worker
type Server struct {
	server  *asynq.Server
	handler *Handler
	logger  *logrus.Logger
}

// NewServer creates a new task processing server
func NewServer(redisCfg *config.RedisConfig, tasksCfg *config.TasksConfig, handler *Handler, logger *logrus.Logger) *Server {
	concurrency := tasksCfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}

	server := asynq.NewServer(
		RedisClientOpt(redisCfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
			StrictPriority: true,
		},
	)

	return &Server{
		server:  server,
		handler: handler,
		logger:  logger,
	}
}

// Start starts the task processing server
func (s *Server) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeExportProcess, s.handler.HandleExportProcess)
	mux.HandleFunc(TaskTypeExportPurge, s.handler.HandleExportPurge)
	mux.HandleFunc(TaskTypeRestrictionExpire, s.handler.HandleRestrictionExpire)

	s.logger.Info("Starting task processing server")

	if err := s.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start task server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the task processing server
func (s *Server) Shutdown() {
	s.logger.Info("Shutting down task processing server")
	s.server.Shutdown()
}

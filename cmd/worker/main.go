package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/florenceegi/gdpr-api/internal/config"
	"github.com/florenceegi/gdpr-api/internal/dao"
	"github.com/florenceegi/gdpr-api/internal/database"
	"github.com/florenceegi/gdpr-api/internal/service"
	"github.com/florenceegi/gdpr-api/internal/storage"
	"github.com/florenceegi/gdpr-api/internal/tasks"
)

// Version information (set by build script)
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	logger.WithFields(logrus.Fields{
		"version":    version,
		"build_date": buildDate,
	}).Info("Starting GDPR task worker...")

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	db, err := database.Initialize(&cfg.Database.Gdpr, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.HealthCheck(ctx); err != nil {
		logger.WithError(err).Fatal("Database health check failed")
	}

	exportDAO := dao.NewDataExportDAO(db)
	recordDAO := dao.NewConsentRecordDAO(db)
	restrictionDAO := dao.NewRestrictionDAO(db)
	auditDAO := dao.NewAuditLogDAO(db)
	userDAO := dao.NewUserDAO(db)

	taskClient := tasks.NewClient(&cfg.Redis, logger)
	defer taskClient.Close()

	fileStore := storage.NewFileStore(afero.NewOsFs(), cfg.Export.StorageDir)

	auditService := service.NewAuditService(auditDAO, logger)
	exportService := service.NewExportService(
		exportDAO, recordDAO, restrictionDAO, auditDAO, userDAO,
		fileStore, taskClient, auditService, &cfg.Export, logger,
	)
	restrictionService := service.NewRestrictionService(
		restrictionDAO, auditDAO, db, auditService, &cfg.Restriction, logger,
	)

	handler := tasks.NewHandler(exportService, restrictionService, logger)
	server := tasks.NewServer(&cfg.Redis, &cfg.Tasks, handler, logger)
	scheduler := tasks.NewScheduler(&cfg.Redis, &cfg.Tasks, logger)

	if err := server.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start task server")
	}

	go func() {
		if err := scheduler.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start task scheduler")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down task worker...")
	scheduler.Stop()
	server.Shutdown()
	logger.Info("Task worker exited gracefully")
}

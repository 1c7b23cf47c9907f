package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/florenceegi/gdpr-api/internal/cache"
	"github.com/florenceegi/gdpr-api/internal/config"
	"github.com/florenceegi/gdpr-api/internal/dao"
	"github.com/florenceegi/gdpr-api/internal/database"
	"github.com/florenceegi/gdpr-api/internal/registry"
	"github.com/florenceegi/gdpr-api/internal/router"
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
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	logger.WithFields(logrus.Fields{
		"version":    version,
		"build_date": buildDate,
	}).Info("Starting GDPR API server...")

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

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cacheStore := cache.NewRedisStore(redisClient, logger)
	if err := cacheStore.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Redis health check failed")
	}

	recordDAO := dao.NewConsentRecordDAO(db)
	versionDAO := dao.NewConsentVersionDAO(db)
	exportDAO := dao.NewDataExportDAO(db)
	restrictionDAO := dao.NewRestrictionDAO(db)
	auditDAO := dao.NewAuditLogDAO(db)
	userDAO := dao.NewUserDAO(db)

	taskClient := tasks.NewClient(&cfg.Redis, logger)
	defer taskClient.Close()

	fileStore := storage.NewFileStore(afero.NewOsFs(), cfg.Export.StorageDir)
	consentRegistry := registry.New(&cfg.Consent)

	auditService := service.NewAuditService(auditDAO, logger)
	consentService := service.NewConsentService(
		recordDAO, versionDAO, auditDAO, userDAO,
		db, cacheStore, consentRegistry, cfg.Cache.TTL, logger,
	)
	exportService := service.NewExportService(
		exportDAO, recordDAO, restrictionDAO, auditDAO, userDAO,
		fileStore, taskClient, auditService, &cfg.Export, logger,
	)
	restrictionService := service.NewRestrictionService(
		restrictionDAO, auditDAO, db, auditService, &cfg.Restriction, logger,
	)

	logger.Info("Services initialized successfully")

	ginRouter := router.SetupRouter(consentService, exportService, restrictionService, auditService, db, logger)

	server := &http.Server{
		Addr:           cfg.Server.GetServerAddress(),
		Handler:        ginRouter,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("Starting HTTP server...")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited gracefully")
}

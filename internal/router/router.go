package router

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/florenceegi/gdpr-api/internal/database"
	"github.com/florenceegi/gdpr-api/internal/handlers"
	"github.com/florenceegi/gdpr-api/internal/middleware"
	"github.com/florenceegi/gdpr-api/internal/service"
)

// SetupRouter configures all API routes
func SetupRouter(
	consentService *service.ConsentService,
	exportService *service.ExportService,
	restrictionService *service.RestrictionService,
	auditService *service.AuditService,
	db *database.DB,
	logger *logrus.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			c.JSON(503, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "healthy"})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	consentHandler := handlers.NewConsentHandler(consentService)
	exportHandler := handlers.NewExportHandler(exportService)
	restrictionHandler := handlers.NewRestrictionHandler(restrictionService)
	auditHandler := handlers.NewAuditHandler(auditService)

	v1 := router.Group("/api/v1")
	{
		// Consent catalog and policy versions
		v1.GET("/consent-types", consentHandler.ListTypes)
		v1.GET("/consent-versions", consentHandler.ListVersions)
		v1.GET("/consent-versions/current", consentHandler.CurrentVersion)
		v1.POST("/consent-versions", consentHandler.CreateVersion)

		// Export catalog
		v1.GET("/export-categories", exportHandler.Categories)
		v1.GET("/export-formats", exportHandler.Formats)

		// Token-gated export access
		exports := v1.Group("/exports")
		{
			exports.GET("/:token/status", exportHandler.Status)
			exports.GET("/:token/download", exportHandler.Download)
		}

		// Per-user operations
		users := v1.Group("/users/:userId")
		{
			users.GET("/consents", consentHandler.GetStatus)
			users.PUT("/consents", consentHandler.UpdateConsents)
			users.POST("/consents/grant", consentHandler.Grant)
			users.POST("/consents/renew", consentHandler.Renew)
			users.POST("/consents/withdraw", consentHandler.Withdraw)
			users.POST("/consents/defaults", consentHandler.CreateDefaults)
			users.GET("/consents/check", consentHandler.Check)
			users.GET("/consents/history", consentHandler.History)
			users.GET("/consents/history/detailed", consentHandler.DetailedHistory)

			users.POST("/exports", exportHandler.Request)
			users.GET("/exports", exportHandler.History)

			users.POST("/restrictions", restrictionHandler.Create)
			users.GET("/restrictions", restrictionHandler.List)
			users.GET("/restrictions/check", restrictionHandler.Check)
			users.DELETE("/restrictions/:restrictionId", restrictionHandler.Lift)

			users.GET("/audit", auditHandler.History)
		}
	}

	return router
}

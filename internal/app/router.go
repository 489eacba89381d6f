package app

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/care-reminder-api/internal/handler"
	"github.com/noah-isme/care-reminder-api/internal/middleware"
	"github.com/noah-isme/care-reminder-api/pkg/config"
	"github.com/noah-isme/care-reminder-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/care-reminder-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/care-reminder-api/pkg/middleware/requestid"
)

// NewRouter mounts the observability endpoints and the authenticated care API.
func NewRouter(cfg *config.Config, c *Container, logr *zap.Logger) *gin.Engine {
	if logr == nil {
		logr = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(c.Metrics, "/metrics", "/health"))

	dependencies := map[string]handler.Pinger{
		"postgres": c.DB,
		"redis":    handler.PingFunc(c.Cache.Ping),
	}
	metricsHandler := handler.NewMetricsHandler(c.Metrics, dependencies)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/status", metricsHandler.Status)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	api.Use(middleware.JWT(c.Tokens))

	events := handler.NewCareEventHandler(c.Events, c.Completion)
	api.GET("/care-events", events.List)
	api.POST("/care-events", events.Create)
	api.GET("/care-events/:id", events.Get)
	api.POST("/care-events/:id/activate", events.Activate)
	api.POST("/care-events/:id/cancel", events.Cancel)
	api.POST("/care-events/:id/complete", events.Complete)

	runs := handler.NewCareRunHandler(c.Generation, c.Adjuster)
	api.POST("/care-runs/generate", runs.Generate)
	api.POST("/care-runs/adjust", runs.Adjust)

	feeding := handler.NewFeedingHandler(c.Feeding)
	api.GET("/feeding-schedules", feeding.List)
	api.POST("/feeding-schedules/:id/feedings", feeding.RecordFeeding)

	api.GET("/progress", handler.NewProgressHandler(c.Events).Get)
	api.GET("/reports/care-history", handler.NewCareReportHandler(c.Reports).Export)

	return r
}

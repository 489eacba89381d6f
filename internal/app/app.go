// Package app wires repositories and services shared by the API and the worker.
package app

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/care-reminder-api/internal/models"
	"github.com/noah-isme/care-reminder-api/internal/repository"
	"github.com/noah-isme/care-reminder-api/internal/service"
	"github.com/noah-isme/care-reminder-api/pkg/cache"
	"github.com/noah-isme/care-reminder-api/pkg/config"
	"github.com/noah-isme/care-reminder-api/pkg/database"
	"github.com/noah-isme/care-reminder-api/pkg/export"
)

// Container holds the constructed engine.
type Container struct {
	DB    *sqlx.DB
	Redis *redis.Client
	Cache *repository.CacheRepository

	Metrics    *service.MetricsService
	Tokens     *service.TokenService
	Generation *service.GenerationService
	Adjuster   *service.PriorityAdjuster
	Events     *service.CareEventService
	Completion *service.CompletionService
	Feeding    *service.FeedingService
	Reports    *service.CareReportService
	Alerts     *service.AlertFeedService
	Scheduler  *service.CareScheduler
}

// New connects to Postgres and, when enabled, Redis, then builds every service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return Build(db, redisClient, cfg, logger), nil
}

// Build assembles the services over already opened connections. redisClient may be nil.
func Build(db *sqlx.DB, redisClient *redis.Client, cfg *config.Config, logger *zap.Logger) *Container {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New()
	metrics := service.NewMetricsService()

	events := repository.NewCareEventRepository(db)
	households := repository.NewHouseholdRepository(db)
	prescriptions := repository.NewPrescriptionRepository(db)
	feedings := repository.NewFeedingScheduleRepository(db)
	ageSchedule := repository.NewAgeScheduleRepository(db)
	healthAlerts := repository.NewHealthAlertRepository(db)
	progress := repository.NewProgressRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logger.Named("cache"))

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Care.AlertCacheTTL, logger.Named("cache"), redisClient != nil)
	alerts := service.NewAlertFeedService(healthAlerts, cacheSvc, cfg.Care.AlertCacheTTL)

	generators := []service.CareEventGenerator{
		service.NewMedicationGenerator(prescriptions, cfg.Care.MedicationLookahead),
		service.NewFeedingGenerator(feedings, events, validate),
		service.NewVaccinationGenerator(ageSchedule),
		service.NewHealthAlertGenerator(alerts),
	}
	generation := service.NewGenerationService(households, events, generators, logger.Named("generation"),
		service.WithGenerationMetrics(metrics))

	adjuster := service.NewPriorityAdjuster(events, service.PriorityAdjusterConfig{
		Window:   cfg.Care.BehaviorWindow,
		Cooldown: cfg.Care.AdjustCooldown,
	}, metrics, logger.Named("adjuster"))

	careEvents := service.NewCareEventService(events, progress, validate, service.SweepConfig{
		Grace:     cfg.Care.MissedGrace,
		GraceLong: cfg.Care.MissedGraceLong,
		BatchSize: cfg.Worker.BatchSize,
	}, metrics, logger.Named("events"))
	careEvents.UseAlertFeed(alerts)

	return &Container{
		DB:         db,
		Redis:      redisClient,
		Cache:      cacheRepo,
		Metrics:    metrics,
		Tokens:     service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Audience: cfg.JWT.Audience}),
		Generation: generation,
		Adjuster:   adjuster,
		Events:     careEvents,
		Completion: service.NewCompletionService(events, models.DefaultRewards, validate, metrics, logger.Named("completion")),
		Feeding:    service.NewFeedingService(feedings, logger.Named("feeding")),
		Reports:    service.NewCareReportService(events, cfg.Care.ExportMaxRange, logger.Named("reports"), export.NewCSVExporter(), export.NewPDFExporter()),
		Alerts:     alerts,
		Scheduler:  service.NewCareScheduler(households, generation, adjuster, careEvents, cfg.Worker, metrics, logger.Named("scheduler")),
	}
}

// Close releases the database and cache connections.
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if err := c.Cache.Close(); err != nil {
		_ = c.DB.Close()
		return err
	}
	return c.DB.Close()
}

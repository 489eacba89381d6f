package service

import (
	"context"
	"time"

	"github.com/noah-isme/care-reminder-api/internal/models"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
)

type healthAlertSource interface {
	ListActive(ctx context.Context, region string, now time.Time) ([]models.HealthAlert, error)
}

type alertCache interface {
	readThroughCache
	Invalidate(ctx context.Context, pattern string) error
}

const alertCacheKeyPrefix = "care:alerts:"

// AlertFeedService serves the regional alert feed through a short-lived cache.
type AlertFeedService struct {
	source healthAlertSource
	cache  alertCache
	ttl    time.Duration
}

// NewAlertFeedService constructs the feed; cache may be nil.
func NewAlertFeedService(source healthAlertSource, cache alertCache, ttl time.Duration) *AlertFeedService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AlertFeedService{source: source, cache: cache, ttl: ttl}
}

// ActiveAlerts returns alerts live at now for region. Cached entries are re-filtered by expiry.
func (s *AlertFeedService) ActiveAlerts(ctx context.Context, region string, now time.Time) ([]models.HealthAlert, error) {
	if region == "" {
		region = models.RegionNationwide
	}
	alerts, err := cachedLoad[[]models.HealthAlert](ctx, s.cache, alertCacheKeyPrefix+region, s.ttl, func(ctx context.Context) ([]models.HealthAlert, error) {
		return s.source.ListActive(ctx, region, now)
	})
	if err != nil {
		return nil, appErrors.Dependency(err, "alert feed unavailable")
	}

	live := make([]models.HealthAlert, 0, len(alerts))
	for _, alert := range alerts {
		if alert.ActiveAt(now) {
			live = append(live, alert)
		}
	}
	return live, nil
}

// Invalidate drops every cached regional feed.
func (s *AlertFeedService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, alertCacheKeyPrefix+"*")
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/care-reminder-api/internal/models"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
)

type stubAlertSource struct {
	alerts []models.HealthAlert
	err    error
	calls  int
}

func (s *stubAlertSource) ListActive(ctx context.Context, region string, now time.Time) ([]models.HealthAlert, error) {
	s.calls++
	return s.alerts, s.err
}

// memoryCacheRepo round-trips values through JSON like the Redis repository.
type memoryCacheRepo struct {
	items   map[string][]byte
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	m.items = make(map[string][]byte)
	return nil
}

func TestAlertFeedServiceCachesAndRefilters(t *testing.T) {
	expiring := genNow.Add(30 * time.Minute)
	source := &stubAlertSource{alerts: []models.HealthAlert{
		{ID: "a1", Title: "Heat", Region: "west", IsActive: true, PublishedAt: genNow.Add(-time.Hour)},
		{ID: "a2", Title: "Smoke", Region: "west", IsActive: true, PublishedAt: genNow.Add(-time.Hour), ExpiresAt: &expiring},
	}}
	metrics := NewMetricsService()
	cache := NewCacheService(newMemoryCacheRepo(), metrics, time.Minute, nil, true)
	feed := NewAlertFeedService(source, cache, time.Minute)

	alerts, err := feed.ActiveAlerts(context.Background(), "west", genNow)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)

	later, err := feed.ActiveAlerts(context.Background(), "west", genNow.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, later, 1, "cached copy drops expired alerts")
	assert.Equal(t, "a1", later[0].ID)
	assert.Equal(t, 1, source.calls)
	assert.InDelta(t, 0.5, metrics.Snapshot().CacheHitRatio, 0.001)

	require.NoError(t, feed.Invalidate(context.Background()))
	_, err = feed.ActiveAlerts(context.Background(), "west", genNow)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestAlertFeedServiceSourceFailure(t *testing.T) {
	feed := NewAlertFeedService(&stubAlertSource{err: errors.New("timeout")}, nil, 0)
	_, err := feed.ActiveAlerts(context.Background(), "", genNow)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDependency.Code))
}

type brokenCacheRepo struct{}

func (brokenCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("redis: connection refused")
}

func (brokenCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("redis: connection refused")
}

func (brokenCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error { return nil }

func TestAlertFeedServiceFallsBackWhenCacheFails(t *testing.T) {
	source := &stubAlertSource{alerts: []models.HealthAlert{{ID: "a1", Region: "west", IsActive: true, PublishedAt: genNow.Add(-time.Hour)}}}
	cache := NewCacheService(brokenCacheRepo{}, nil, time.Minute, nil, true)
	feed := NewAlertFeedService(source, cache, time.Minute)

	for i := 0; i < 2; i++ {
		alerts, err := feed.ActiveAlerts(context.Background(), "west", genNow)
		require.NoError(t, err)
		assert.Len(t, alerts, 1)
	}
	assert.Equal(t, 2, source.calls)
}

package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/care-reminder-api/pkg/config"
)

func testContainer(t *testing.T) (*Container, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1", JWT: config.JWTConfig{Secret: "s3cret"}}
	return Build(sqlx.NewDb(mockDB, "sqlmock"), nil, cfg, nil), mock
}

func TestBuildWiresEveryService(t *testing.T) {
	c, _ := testContainer(t)

	assert.NotNil(t, c.Metrics)
	assert.NotNil(t, c.Tokens)
	assert.NotNil(t, c.Generation)
	assert.NotNil(t, c.Adjuster)
	assert.NotNil(t, c.Events)
	assert.NotNil(t, c.Completion)
	assert.NotNil(t, c.Feeding)
	assert.NotNil(t, c.Reports)
	assert.NotNil(t, c.Alerts)
	assert.NotNil(t, c.Scheduler)
	assert.Nil(t, c.Redis)
}

func TestRouterHealthEndpointsAndAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, mock := testContainer(t)
	mock.ExpectPing()
	r := NewRouter(&config.Config{Env: config.EnvProduction}, c, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/care-events", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/index.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "docs are hidden in production")
}

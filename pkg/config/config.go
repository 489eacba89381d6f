package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Care      CareConfig
	Worker    WorkerConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	QueryTimeout time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig only carries verification material; tokens are issued elsewhere.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TelemetryConfig enables OTLP trace export when an endpoint is set.
type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

// CareConfig tunes event generation, adjustment and sweeping.
type CareConfig struct {
	MedicationLookahead time.Duration
	BehaviorWindow      time.Duration
	AdjustCooldown      time.Duration
	MissedGrace         time.Duration
	MissedGraceLong     time.Duration
	AlertCacheTTL       time.Duration
	ExportMaxRange      time.Duration
}

// WorkerConfig governs the batch driver and its job queue.
type WorkerConfig struct {
	// Embedded runs the scheduler inside the API process.
	Embedded           bool
	Concurrency        int
	Retries            int
	RetryDelay         time.Duration
	BatchSize          int
	GenerationInterval time.Duration
	AdjustmentInterval time.Duration
	SweepInterval      time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		QueryTimeout: parseDuration(v.GetString("DB_QUERY_TIMEOUT"), 5*time.Second),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Telemetry = TelemetryConfig{
		Enabled:     v.GetBool("OTEL_ENABLED"),
		Endpoint:    v.GetString("OTEL_ENDPOINT"),
		ServiceName: v.GetString("OTEL_SERVICE_NAME"),
	}

	lookahead := parseDuration(v.GetString("CARE_MEDICATION_LOOKAHEAD"), 24*time.Hour)
	if lookahead < 24*time.Hour || lookahead > 48*time.Hour {
		lookahead = 24 * time.Hour
	}
	cfg.Care = CareConfig{
		MedicationLookahead: lookahead,
		BehaviorWindow:      parseDuration(v.GetString("CARE_BEHAVIOR_WINDOW"), 30*24*time.Hour),
		AdjustCooldown:      parseDuration(v.GetString("CARE_ADJUST_COOLDOWN"), 0),
		MissedGrace:         parseDuration(v.GetString("CARE_MISSED_GRACE"), 2*time.Hour),
		MissedGraceLong:     parseDuration(v.GetString("CARE_MISSED_GRACE_LONG"), 7*24*time.Hour),
		AlertCacheTTL:       parseDuration(v.GetString("CARE_ALERT_CACHE_TTL"), 5*time.Minute),
		ExportMaxRange:      parseDuration(v.GetString("CARE_EXPORT_MAX_RANGE"), 366*24*time.Hour),
	}

	cfg.Worker = WorkerConfig{
		Embedded:           v.GetBool("WORKER_EMBEDDED"),
		Concurrency:        v.GetInt("WORKER_CONCURRENCY"),
		Retries:            v.GetInt("WORKER_RETRIES"),
		RetryDelay:         parseDuration(v.GetString("WORKER_RETRY_DELAY"), 5*time.Second),
		BatchSize:          v.GetInt("WORKER_BATCH_SIZE"),
		GenerationInterval: parseDuration(v.GetString("WORKER_GENERATION_INTERVAL"), 15*time.Minute),
		AdjustmentInterval: parseDuration(v.GetString("WORKER_ADJUSTMENT_INTERVAL"), 6*time.Hour),
		SweepInterval:      parseDuration(v.GetString("WORKER_SWEEP_INTERVAL"), 10*time.Minute),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "care_reminders")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_QUERY_TIMEOUT", "5s")

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "care-reminder-api")

	v.SetDefault("CARE_MEDICATION_LOOKAHEAD", "24h")
	v.SetDefault("CARE_BEHAVIOR_WINDOW", "720h")
	v.SetDefault("CARE_ADJUST_COOLDOWN", "0s")
	v.SetDefault("CARE_MISSED_GRACE", "2h")
	v.SetDefault("CARE_MISSED_GRACE_LONG", "168h")
	v.SetDefault("CARE_ALERT_CACHE_TTL", "5m")
	v.SetDefault("CARE_EXPORT_MAX_RANGE", "8784h")

	v.SetDefault("WORKER_EMBEDDED", false)
	v.SetDefault("WORKER_CONCURRENCY", 4)
	v.SetDefault("WORKER_RETRIES", 3)
	v.SetDefault("WORKER_RETRY_DELAY", "5s")
	v.SetDefault("WORKER_BATCH_SIZE", 200)
	v.SetDefault("WORKER_GENERATION_INTERVAL", "15m")
	v.SetDefault("WORKER_ADJUSTMENT_INTERVAL", "6h")
	v.SetDefault("WORKER_SWEEP_INTERVAL", "10m")
}

// isMissingFile covers viper returning a raw fs error for an explicit config path.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

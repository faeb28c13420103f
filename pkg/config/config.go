package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Ingest isolation levels accepted by INGEST_ISOLATION.
const (
	IsolationSerializable  = "serializable"
	IsolationReadCommitted = "read_committed"
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
	Analytics AnalyticsConfig
	Ingest    IngestConfig
	Risk      RiskConfig
	Workers   WorkersConfig
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
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AnalyticsConfig governs the opt-in report cache.
type AnalyticsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// IngestConfig bounds CSV uploads and the diagnostics returned per batch.
type IngestConfig struct {
	MaxUploadBytes  int64
	DiagnosticLimit int
	Isolation       string
}

// RiskConfig overrides the at-risk thresholds and weights.
type RiskConfig struct {
	LowAttendanceThreshold float64
	LowAttendanceWeight    float64
	HighStressThreshold    float64
	HighStressWeight       float64
	LowSleepThreshold      float64
	LowSleepWeight         float64
	LowSocialThreshold     float64
	LowSocialWeight        float64
	FailingGradeThreshold  float64
	FailingGradeWeight     float64
}

// WorkersConfig sizes the background cache invalidation queue.
type WorkersConfig struct {
	InvalidationWorkers int
	InvalidationRetries int
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

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
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Analytics = AnalyticsConfig{
		CacheEnabled: v.GetBool("ENABLE_ANALYTICS_CACHE"),
		CacheTTL:     parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 10*time.Minute),
	}

	maxUpload := v.GetInt64("INGEST_MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	diagnosticLimit := v.GetInt("INGEST_DIAGNOSTIC_LIMIT")
	if diagnosticLimit <= 0 {
		diagnosticLimit = 10
	}
	cfg.Ingest = IngestConfig{
		MaxUploadBytes:  maxUpload,
		DiagnosticLimit: diagnosticLimit,
		Isolation:       normaliseIsolation(v.GetString("INGEST_ISOLATION")),
	}

	cfg.Risk = RiskConfig{
		LowAttendanceThreshold: v.GetFloat64("RISK_LOW_ATTENDANCE_THRESHOLD"),
		LowAttendanceWeight:    v.GetFloat64("RISK_LOW_ATTENDANCE_WEIGHT"),
		HighStressThreshold:    v.GetFloat64("RISK_HIGH_STRESS_THRESHOLD"),
		HighStressWeight:       v.GetFloat64("RISK_HIGH_STRESS_WEIGHT"),
		LowSleepThreshold:      v.GetFloat64("RISK_LOW_SLEEP_THRESHOLD"),
		LowSleepWeight:         v.GetFloat64("RISK_LOW_SLEEP_WEIGHT"),
		LowSocialThreshold:     v.GetFloat64("RISK_LOW_SOCIAL_THRESHOLD"),
		LowSocialWeight:        v.GetFloat64("RISK_LOW_SOCIAL_WEIGHT"),
		FailingGradeThreshold:  v.GetFloat64("RISK_FAILING_GRADE_THRESHOLD"),
		FailingGradeWeight:     v.GetFloat64("RISK_FAILING_GRADE_WEIGHT"),
	}

	cfg.Workers = WorkersConfig{
		InvalidationWorkers: v.GetInt("INVALIDATION_WORKERS"),
		InvalidationRetries: v.GetInt("INVALIDATION_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "uni_wellbeing")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_ANALYTICS_CACHE", false)
	v.SetDefault("ANALYTICS_CACHE_TTL", "10m")

	v.SetDefault("INGEST_MAX_UPLOAD_BYTES", 5*1024*1024)
	v.SetDefault("INGEST_DIAGNOSTIC_LIMIT", 10)
	v.SetDefault("INGEST_ISOLATION", IsolationSerializable)

	v.SetDefault("RISK_LOW_ATTENDANCE_THRESHOLD", 70.0)
	v.SetDefault("RISK_LOW_ATTENDANCE_WEIGHT", 2.5)
	v.SetDefault("RISK_HIGH_STRESS_THRESHOLD", 4.0)
	v.SetDefault("RISK_HIGH_STRESS_WEIGHT", 3.0)
	v.SetDefault("RISK_LOW_SLEEP_THRESHOLD", 6.0)
	v.SetDefault("RISK_LOW_SLEEP_WEIGHT", 2.0)
	v.SetDefault("RISK_LOW_SOCIAL_THRESHOLD", 2.0)
	v.SetDefault("RISK_LOW_SOCIAL_WEIGHT", 2.0)
	v.SetDefault("RISK_FAILING_GRADE_THRESHOLD", 40.0)
	v.SetDefault("RISK_FAILING_GRADE_WEIGHT", 3.5)

	v.SetDefault("INVALIDATION_WORKERS", 1)
	v.SetDefault("INVALIDATION_RETRIES", 3)
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

func normaliseIsolation(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case IsolationReadCommitted, "read-committed":
		return IsolationReadCommitted
	default:
		return IsolationSerializable
	}
}

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
	Timetable TimetableConfig
	Insights  InsightsConfig
	Archive   ArchiveConfig
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
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TimetableConfig tunes the allocation engine. SlotMinutes is the
// discretization granularity of the weekly grid, independent of subject
// durations.
type TimetableConfig struct {
	SlotMinutes int
	MaxSubjects int
}

// InsightsConfig governs utilization thresholds and cache behaviour for
// the insights endpoints.
type InsightsConfig struct {
	LowUtilization  float64
	HighUtilization float64
	CacheEnabled    bool
	CacheTTL        time.Duration
}

// ArchiveConfig governs background snapshot archiving of accepted
// schedules.
type ArchiveConfig struct {
	Enabled   bool
	Dir       string
	Secret    string
	TokenTTL  time.Duration
	Workers   int
	Retention time.Duration
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
		if !errors.As(err, &notFound) {
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
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Timetable = TimetableConfig{
		SlotMinutes: v.GetInt("TIMETABLE_SLOT_MINUTES"),
		MaxSubjects: v.GetInt("TIMETABLE_MAX_SUBJECTS"),
	}

	cfg.Insights = InsightsConfig{
		LowUtilization:  v.GetFloat64("INSIGHTS_LOW_UTILIZATION"),
		HighUtilization: v.GetFloat64("INSIGHTS_HIGH_UTILIZATION"),
		CacheEnabled:    v.GetBool("INSIGHTS_CACHE_ENABLED"),
		CacheTTL:        parseDuration(v.GetString("INSIGHTS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Archive = ArchiveConfig{
		Enabled:   v.GetBool("ARCHIVE_ENABLED"),
		Dir:       v.GetString("ARCHIVE_DIR"),
		Secret:    v.GetString("ARCHIVE_SECRET"),
		TokenTTL:  parseDuration(v.GetString("ARCHIVE_TOKEN_TTL"), time.Hour),
		Workers:   v.GetInt("ARCHIVE_WORKERS"),
		Retention: parseDuration(v.GetString("ARCHIVE_RETENTION"), 720*time.Hour),
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
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "timetable-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMETABLE_SLOT_MINUTES", 50)
	v.SetDefault("TIMETABLE_MAX_SUBJECTS", 128)

	v.SetDefault("INSIGHTS_LOW_UTILIZATION", 50)
	v.SetDefault("INSIGHTS_HIGH_UTILIZATION", 90)
	v.SetDefault("INSIGHTS_CACHE_ENABLED", false)
	v.SetDefault("INSIGHTS_CACHE_TTL", "10m")

	v.SetDefault("ARCHIVE_ENABLED", true)
	v.SetDefault("ARCHIVE_DIR", "./archives")
	v.SetDefault("ARCHIVE_SECRET", "dev_archive_secret")
	v.SetDefault("ARCHIVE_TOKEN_TTL", "1h")
	v.SetDefault("ARCHIVE_WORKERS", 2)
	v.SetDefault("ARCHIVE_RETENTION", "720h")
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

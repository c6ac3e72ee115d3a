package config

import (
	"errors"
	"io/fs"
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

	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	CORS     CORSConfig
	Log      LogConfig
	Uploads  UploadsConfig
	Jobs     JobsConfig
	Metrics  MetricsConfig
	Security SecurityConfig
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

// SessionConfig controls server-side sessions and the cookie that carries them.
type SessionConfig struct {
	Secret       string
	Lifetime     time.Duration
	CookieName   string
	CookieDomain string
	CookieSecure bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
	// File enables a rotating file sink next to stdout when set.
	File         string
	MaxAge       time.Duration
	RotationTime time.Duration
}

// UploadsConfig holds limits for resume and image uploads.
type UploadsConfig struct {
	Dir              string
	ResumeMaxBytes   int64
	ResumeExtensions []string
	ImageMaxBytes    int64
	ImageExtensions  []string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	CleanupWorkers   int
	CleanupRetries   int
}

// JobsConfig tunes the public job listing cache.
type JobsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// SecurityConfig groups password hashing parameters.
type SecurityConfig struct {
	BcryptCost int
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
		SSLMode:      v.GetString("DB_SSLMODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Secret:       v.GetString("SESSION_SECRET"),
		Lifetime:     parseDuration(v.GetString("SESSION_LIFETIME"), 24*time.Hour),
		CookieName:   v.GetString("SESSION_COOKIE_NAME"),
		CookieDomain: v.GetString("SESSION_COOKIE_DOMAIN"),
		CookieSecure: v.GetBool("SESSION_COOKIE_SECURE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:        v.GetString("LOG_LEVEL"),
		Format:       v.GetString("LOG_FORMAT"),
		File:         v.GetString("LOG_FILE"),
		MaxAge:       parseDuration(v.GetString("LOG_MAX_AGE"), 7*24*time.Hour),
		RotationTime: parseDuration(v.GetString("LOG_ROTATION_TIME"), 24*time.Hour),
	}

	resumeMax := v.GetInt64("UPLOAD_RESUME_MAX_SIZE")
	if resumeMax <= 0 {
		resumeMax = 5 * 1024 * 1024
	}
	imageMax := v.GetInt64("UPLOAD_IMAGE_MAX_SIZE")
	if imageMax <= 0 {
		imageMax = 2 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		Dir:              v.GetString("UPLOAD_DIR"),
		ResumeMaxBytes:   resumeMax,
		ResumeExtensions: splitAndTrim(v.GetString("UPLOAD_RESUME_EXTENSIONS")),
		ImageMaxBytes:    imageMax,
		ImageExtensions:  splitAndTrim(v.GetString("UPLOAD_IMAGE_EXTENSIONS")),
		SignedURLSecret:  v.GetString("UPLOAD_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("UPLOAD_SIGNED_URL_TTL"), 15*time.Minute),
		CleanupWorkers:   v.GetInt("UPLOAD_CLEANUP_WORKERS"),
		CleanupRetries:   v.GetInt("UPLOAD_CLEANUP_RETRIES"),
	}

	cfg.Jobs = JobsConfig{
		CacheEnabled: v.GetBool("ENABLE_JOBS_CACHE"),
		CacheTTL:     parseDuration(v.GetString("JOBS_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	cfg.Security = SecurityConfig{BcryptCost: v.GetInt("BCRYPT_COST")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "job_portal")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_LIFETIME", "24h")
	v.SetDefault("SESSION_COOKIE_NAME", "jp_session")
	v.SetDefault("SESSION_COOKIE_DOMAIN", "")
	v.SetDefault("SESSION_COOKIE_SECURE", false)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_AGE", "168h")
	v.SetDefault("LOG_ROTATION_TIME", "24h")

	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("UPLOAD_RESUME_MAX_SIZE", 5*1024*1024)
	v.SetDefault("UPLOAD_RESUME_EXTENSIONS", "pdf,doc,docx")
	v.SetDefault("UPLOAD_IMAGE_MAX_SIZE", 2*1024*1024)
	v.SetDefault("UPLOAD_IMAGE_EXTENSIONS", "jpg,jpeg,png,gif")
	v.SetDefault("UPLOAD_SIGNED_URL_SECRET", "dev_uploads_secret")
	v.SetDefault("UPLOAD_SIGNED_URL_TTL", "15m")
	v.SetDefault("UPLOAD_CLEANUP_WORKERS", 1)
	v.SetDefault("UPLOAD_CLEANUP_RETRIES", 3)

	v.SetDefault("ENABLE_JOBS_CACHE", false)
	v.SetDefault("JOBS_CACHE_TTL", "2m")
	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("BCRYPT_COST", 10)
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

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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

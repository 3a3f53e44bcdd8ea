package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/cinemacal/cinemacal-back/internal/domain"
)

// Config centralizes runtime settings for the API and worker.
type Config struct {
	Port string

	AuthToken   string
	CORSOrigins []string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
	RedisDLQ      string
	RedisGroup    string
	RedisConsumer string

	RateLimitRPS   float64
	RateLimitBurst int

	ScrapeDaysAhead         int
	ScrapeTimeoutSeconds    int
	ScrapeMaxRetries        int
	ScrapeRetryDelaySeconds float64

	JobTTLHours     int
	ExportTimezone  string
	WorkerEnabled   bool
	QueueBufferSize int
	QueueMaxRetries int
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthToken:   getEnv("API_AUTH_TOKEN", ""),
		CORSOrigins: getEnvList("CORS_ORIGINS"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisStream:   getEnv("REDIS_STREAM", "cinemacal_jobs"),
		RedisDLQ:      getEnv("REDIS_DLQ_STREAM", "cinemacal_jobs_dlq"),
		RedisGroup:    getEnv("REDIS_GROUP", "cinemacal_workers"),
		RedisConsumer: getEnv("REDIS_CONSUMER", "api-1"),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		ScrapeDaysAhead:         getEnvInt("SCRAPE_DAYS_AHEAD", 60),
		ScrapeTimeoutSeconds:    getEnvInt("SCRAPE_TIMEOUT_SECONDS", 30),
		ScrapeMaxRetries:        getEnvInt("SCRAPE_MAX_RETRIES", 3),
		ScrapeRetryDelaySeconds: getEnvFloat("SCRAPE_RETRY_DELAY_SECONDS", 1),

		JobTTLHours:     getEnvInt("JOB_TTL_HOURS", 24),
		ExportTimezone:  getEnv("EXPORT_TIMEZONE", "America/New_York"),
		WorkerEnabled:   getEnvBool("WORKER_ENABLED", true),
		QueueBufferSize: getEnvInt("QUEUE_BUFFER_SIZE", 64),
		QueueMaxRetries: getEnvInt("QUEUE_MAX_RETRIES", 3),
	}
}

// ScrapeDefaults turns the operator SCRAPE_* settings into the run defaults
// handed to requests that omit those fields. StartDate stays zero so it
// resolves to "today" at request time.
func (c Config) ScrapeDefaults() domain.ScrapeConfig {
	return domain.ScrapeConfig{
		DaysAhead:          c.ScrapeDaysAhead,
		EnableScreenBoston: true,
		EnableCoolidge:     true,
		EnableHFA:          true,
		EnableBrattle:      true,
		TimeoutSeconds:     c.ScrapeTimeoutSeconds,
		MaxRetries:         c.ScrapeMaxRetries,
		RetryDelaySeconds:  c.ScrapeRetryDelaySeconds,
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

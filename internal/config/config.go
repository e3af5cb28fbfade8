package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	AdminJWTSecret     string
	CORSAllowedOrigins []string

	// Per-IP rate limiting; zero disables the middleware.
	RateLimit      float64
	RateLimitBurst int

	// Lead query defaults
	DefaultPageSize int
	MaxPageSize     int
	ExportPageSize  int

	// Redis (draft backups, outreach throttle)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	DraftTTL      time.Duration

	// Outreach queue + worker
	UseMemoryQueue           bool
	WorkerCount              int
	OutreachQueueURL         string
	OutreachRatePerMinute    int
	OutreachDrySampleSize    int
	OutreachRetryMaxAttempts int
	OutreachRetryBaseDelay   time.Duration

	// WhatsApp Cloud API
	WhatsAppBaseURL       string
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		RateLimit:      getEnvAsFloat("RATE_LIMIT", 0),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),

		DefaultPageSize: getEnvAsInt("LEADS_DEFAULT_PAGE_SIZE", 25),
		MaxPageSize:     getEnvAsInt("LEADS_MAX_PAGE_SIZE", 100),
		ExportPageSize:  getEnvAsInt("LEADS_EXPORT_PAGE_SIZE", 10000),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		DraftTTL:      getEnvAsDuration("FORM_DRAFT_TTL", 24*time.Hour),

		UseMemoryQueue:           getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:              getEnvAsInt("WORKER_COUNT", 2),
		OutreachQueueURL:         getEnv("OUTREACH_QUEUE_URL", ""),
		OutreachRatePerMinute:    getEnvAsInt("OUTREACH_RATE_PER_MINUTE", 20),
		OutreachDrySampleSize:    getEnvAsInt("OUTREACH_DRY_RUN_SAMPLE", 3),
		OutreachRetryMaxAttempts: getEnvAsInt("OUTREACH_RETRY_MAX_ATTEMPTS", 5),
		OutreachRetryBaseDelay:   getEnvAsDuration("OUTREACH_RETRY_BASE_DELAY", 5*time.Minute),

		WhatsAppBaseURL:       getEnv("WHATSAPP_BASE_URL", ""),
		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

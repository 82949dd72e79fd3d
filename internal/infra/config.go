package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	GeoIPDBPath string

	OpenAIAPIKey     string
	OpenAITextModel  string
	OpenAIImageModel string
	OpenAIBaseURL    string
	OpenAIOrg        string
	OpenAITimeout    time.Duration
	OpenAIMaxTokens  int
	OpenAITemp       float64

	PexelsAPIKey  string
	PexelsBaseURL string

	ImageGlobalCap  int
	ImageCostCents  int
	DefaultLanguage string

	DeliveryTimeout time.Duration
	JobPollInterval time.Duration
	JobStaleAfter   time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAITextModel:  getEnv("OPENAI_TEXT_MODEL", "gpt-4o"),
		OpenAIImageModel: getEnv("OPENAI_IMAGE_MODEL", "gpt-image-1"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:        os.Getenv("OPENAI_ORG"),
		OpenAITimeout:    time.Second * time.Duration(getEnvInt("OPENAI_TIMEOUT_SECONDS", 120)),
		OpenAIMaxTokens:  getEnvInt("OPENAI_MAX_TOKENS_TEXT", 1800),
		OpenAITemp:       getEnvFloat("OPENAI_TEMPERATURE", 1.0),

		PexelsAPIKey:  os.Getenv("PEXELS_API_KEY"),
		PexelsBaseURL: getEnv("PEXELS_BASE_URL", "https://api.pexels.com/v1"),

		ImageGlobalCap:  getEnvInt("IMAGE_GLOBAL_CAP", 4),
		ImageCostCents:  getEnvInt("IMAGE_COST_CENTS", 4),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "de"),

		DeliveryTimeout: time.Second * time.Duration(getEnvInt("DELIVERY_TIMEOUT_SECONDS", 30)),
		JobPollInterval: time.Second * time.Duration(getEnvInt("JOB_POLL_INTERVAL_SECONDS", 2)),
		JobStaleAfter:   time.Minute * time.Duration(getEnvInt("JOB_STALE_AFTER_MINUTES", 30)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

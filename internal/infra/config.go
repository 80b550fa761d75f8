package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	StoragePath        string
	StorageBaseURL     string
	GeoIPDBPath        string
	CORSAllowedOrigins []string

	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiImageModel string
	GeminiEditModel  string
	VeoModel         string

	VideoPollInterval        time.Duration
	VideoPollTimeout         time.Duration
	KeyGateVerifyAfterSelect bool
	MaxUploadBytes           int64
	ViewIdleTimeout          time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               port,
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:     getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/media", port)),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "imagen-4.0-generate-001"),
		GeminiEditModel:  getEnv("GEMINI_EDIT_MODEL", "gemini-2.5-flash-image-preview"),
		VeoModel:         getEnv("VEO_MODEL", "veo-2.0-generate-001"),

		VideoPollInterval:        time.Second * time.Duration(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 10)),
		VideoPollTimeout:         time.Second * time.Duration(getEnvInt("VIDEO_POLL_TIMEOUT_SECONDS", 600)),
		KeyGateVerifyAfterSelect: getEnvBool("KEYGATE_VERIFY_AFTER_SELECT", false),
		MaxUploadBytes:           int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		ViewIdleTimeout:          time.Minute * time.Duration(getEnvInt("VIEW_IDLE_TIMEOUT_MINUTES", 60)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("PORT must be numeric, got %q", cfg.Port)
	}
	if _, err := url.Parse(cfg.GeminiBaseURL); err != nil {
		return nil, fmt.Errorf("GEMINI_BASE_URL is invalid: %w", err)
	}
	if cfg.VideoPollInterval <= 0 {
		cfg.VideoPollInterval = 10 * time.Second
	}
	if cfg.VideoPollTimeout <= 0 {
		cfg.VideoPollTimeout = 10 * time.Minute
	}

	return cfg, nil
}

// HasDatabase reports whether a Postgres connection is configured.
func (c *Config) HasDatabase() bool {
	return c != nil && c.DatabaseURL != ""
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

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

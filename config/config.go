package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	Env               string
	DatabaseURL       string
	AutoMigrate       bool
	JWTSecret         string
	GeminiAPIKey      string
	NATSURL           string
	NATSSubjectPrefix string
	NATSReconnectWait time.Duration
	AllowedOrigins    []string
	MaxBodySize       int64
	DefaultCurrency   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")
	origins := os.Getenv("ALLOWED_ORIGINS")
	var allowedOrigins []string
	if origins != "" {
		allowedOrigins = splitOrigins(origins)
	} else {
		if env == "production" {
			log.Println("[WARNING] ALLOWED_ORIGINS not set in production! Defaulting to '*' which is insecure.")
			log.Println("[WARNING] Set ALLOWED_ORIGINS to your frontend URL(s), e.g., 'https://splitter.example.com'")
		}
		allowedOrigins = []string{"*"}
	}

	maxBodySize := int64(1 * 1024 * 1024)
	if sizeStr := os.Getenv("MAX_BODY_SIZE"); sizeStr != "" {
		if size, err := strconv.ParseInt(sizeStr, 10, 64); err == nil && size > 0 {
			maxBodySize = size
		} else {
			log.Printf("[WARNING] Ignoring invalid MAX_BODY_SIZE %q", sizeStr)
		}
	}

	reconnectWait := 2 * time.Second
	if v := os.Getenv("NATS_RECONNECT_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			reconnectWait = d
		} else {
			log.Printf("[WARNING] Ignoring invalid NATS_RECONNECT_WAIT %q", v)
		}
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               env,
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		AutoMigrate:       getBool("AUTO_MIGRATE", env != "production"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "splitter.events"),
		NATSReconnectWait: reconnectWait,
		AllowedOrigins:    allowedOrigins,
		MaxBodySize:       maxBodySize,
		DefaultCurrency:   strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.GeminiAPIKey == "" {
		log.Println("[WARNING] GEMINI_API_KEY not set; balance explanations are disabled")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("[WARNING] Ignoring invalid %s %q", key, value)
		return defaultValue
	}
	return b
}

func splitOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

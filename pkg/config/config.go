// ==============================================================================
// CONFIG PACKAGE - pkg/config/config.go
// ==============================================================================
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Engine   EngineConfig
	Progress ProgressConfig
	Media    MediaConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// EngineConfig locates the external document/biometric analysis engine.
type EngineConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
}

// ProgressConfig paces the processing-step animation shown while the engine
// call is outstanding.
type ProgressConfig struct {
	TickInterval time.Duration
	SettleDelay  time.Duration
}

type MediaConfig struct {
	MaxDocumentBytes int64
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	// ResultTTL bounds how long cached engine verdicts stay valid.
	ResultTTL time.Duration
	Enabled   bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Engine: EngineConfig{
			// 127.0.0.1 rather than localhost avoids IPv6/IPv4 resolution surprises
			// with a locally-run analysis engine.
			BaseURL:        getEnv("ENGINE_BASE_URL", "http://127.0.0.1:8000"),
			RequestTimeout: getDurationEnv("ENGINE_REQUEST_TIMEOUT", 30*time.Second),
			MaxRetries:     getIntEnv("ENGINE_MAX_RETRIES", 0),
			RetryBackoff:   getDurationEnv("ENGINE_RETRY_BACKOFF", 2*time.Second),
		},
		Progress: ProgressConfig{
			TickInterval: getDurationEnv("PROGRESS_TICK_INTERVAL", 1500*time.Millisecond),
			SettleDelay:  getDurationEnv("PROGRESS_SETTLE_DELAY", 1*time.Second),
		},
		Media: MediaConfig{
			MaxDocumentBytes: int64(getIntEnv("MEDIA_MAX_DOCUMENT_BYTES", 5<<20)),
		},
		Redis: RedisConfig{
			URL:       normalizeRedisURL(getEnv("REDIS_URL", "localhost:6379")),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getIntEnv("REDIS_DB", 0),
			ResultTTL: getDurationEnv("REDIS_RESULT_TTL", 15*time.Minute),
			Enabled:   getBoolEnv("REDIS_ENABLED", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func normalizeRedisURL(url string) string {
	// Strip redis:// or redis+tls:// scheme if present
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultValue
}

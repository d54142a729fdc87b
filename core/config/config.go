package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel        OTelConfig
	Redis       RedisConfig
	Security    SecurityConfig
	Dispatch    DispatchConfig
	GitHub      GitHubConfig
	Env         string
	Port        string
	AdminAPIKey string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type RedisConfig struct {
	URL string
}

type SecurityConfig struct {
	SignatureHeader string
	// Seeds the secret ring at boot when the ring is empty or expired.
	InitialSecret string
	AuditStream   string
}

type DispatchConfig struct {
	Enabled           bool
	Interval          time.Duration
	AggregateInterval time.Duration
	ReservoirSize     int
	ReservoirWindow   time.Duration
}

type GitHubConfig struct {
	Token string
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeWorker ServiceType = "worker"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the HTTP server
//   - .env.worker for the standalone dispatcher
//
// Falls back to .env if the service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("RELAY_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:         getEnv("RELAY_ENV", "development"),
		Port:        getEnv("PORT", defaultPort(serviceType)),
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "caretaker-relay-"+string(serviceType)),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Security: SecurityConfig{
			SignatureHeader: getEnv("SIGNATURE_HEADER", "X-Hub-Signature-256"),
			InitialSecret:   getEnv("WEBHOOK_SECRET", ""),
			AuditStream:     getEnv("AUDIT_STREAM", "security:audit"),
		},
		Dispatch: DispatchConfig{
			Enabled:           getEnvBool("DISPATCH_ENABLED", true),
			Interval:          getEnvDuration("DISPATCH_INTERVAL", time.Second),
			AggregateInterval: getEnvDuration("AGGREGATE_INTERVAL", 5*time.Second),
			ReservoirSize:     getEnvInt("DISPATCH_RESERVOIR", 100),
			ReservoirWindow:   getEnvDuration("DISPATCH_RESERVOIR_WINDOW", time.Minute),
		},
		GitHub: GitHubConfig{
			Token: getEnv("GITHUB_TOKEN", ""),
		},
	}

	// The worker process exists only to run the loops.
	if serviceType == ServiceTypeWorker {
		cfg.Dispatch.Enabled = true
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func defaultPort(serviceType ServiceType) string {
	if serviceType == ServiceTypeWorker {
		return "9091"
	}
	return "8080"
}

func (c Config) validate() error {
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.Security.SignatureHeader == "" {
		return fmt.Errorf("SIGNATURE_HEADER must not be empty")
	}
	if c.Dispatch.Interval <= 0 || c.Dispatch.AggregateInterval <= 0 {
		return fmt.Errorf("DISPATCH_INTERVAL and AGGREGATE_INTERVAL must be positive")
	}
	if c.Dispatch.ReservoirSize <= 0 || c.Dispatch.ReservoirWindow <= 0 {
		return fmt.Errorf("DISPATCH_RESERVOIR and DISPATCH_RESERVOIR_WINDOW must be positive")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c GitHubConfig) Enabled() bool {
	return c.Token != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

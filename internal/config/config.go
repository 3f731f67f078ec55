package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Queue        QueueConfig
	Tickets      TicketsConfig
	CORS         CORSConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// RedisConfig holds Redis connection values. An empty Addr disables the event feed.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	EventsChannel string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// QueueConfig holds the job simulator policy constants.
type QueueConfig struct {
	PickupDelayMinMS  int
	PickupDelayMaxMS  int
	ProcessDelayMinMS int
	ProcessDelayMaxMS int
	SuccessRate       float64
}

// TicketsConfig controls the ticket store.
type TicketsConfig struct {
	SeedDemoData    bool
	DefaultPageSize int
	MaxPageSize     int
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowOrigins string
}

// NotificationConfig controls the simulated notification jobs.
type NotificationConfig struct {
	Enabled   bool
	EmailFrom string
}

// Load reads configuration from environment variables, applying defaults where possible.
// Env files are loaded first when present; variables already set win.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	successRate, err := strconv.ParseFloat(getEnv("QUEUE_SUCCESS_RATE", "0.9"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_SUCCESS_RATE: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-tracker"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3001"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Redis: RedisConfig{
			Addr:          os.Getenv("REDIS_ADDR"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            redisDB,
			EventsChannel: getEnv("REDIS_EVENTS_CHANNEL", "ticket-tracker:events"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Queue: QueueConfig{
			PickupDelayMinMS:  getEnvAsInt("QUEUE_PICKUP_DELAY_MIN_MS", 1000),
			PickupDelayMaxMS:  getEnvAsInt("QUEUE_PICKUP_DELAY_MAX_MS", 6000),
			ProcessDelayMinMS: getEnvAsInt("QUEUE_PROCESS_DELAY_MIN_MS", 1000),
			ProcessDelayMaxMS: getEnvAsInt("QUEUE_PROCESS_DELAY_MAX_MS", 4000),
			SuccessRate:       successRate,
		},
		Tickets: TicketsConfig{
			SeedDemoData:    getEnvAsBool("TICKETS_SEED_DEMO_DATA", true),
			DefaultPageSize: getEnvAsInt("TICKETS_DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:     getEnvAsInt("TICKETS_MAX_PAGE_SIZE", 100),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Notification: NotificationConfig{
			Enabled:   getEnvAsBool("NOTIFY_ENQUEUE_JOBS", true),
			EmailFrom: getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
		},
	}

	if err := cfg.Queue.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// PickupDelay returns the pending -> processing delay bounds.
func (q QueueConfig) PickupDelay() (time.Duration, time.Duration) {
	return millis(q.PickupDelayMinMS), millis(q.PickupDelayMaxMS)
}

// ProcessDelay returns the processing -> terminal delay bounds.
func (q QueueConfig) ProcessDelay() (time.Duration, time.Duration) {
	return millis(q.ProcessDelayMinMS), millis(q.ProcessDelayMaxMS)
}

func (q QueueConfig) validate() error {
	// A zero-width range at zero would be replaced by the store defaults.
	if q.PickupDelayMinMS < 0 || q.PickupDelayMaxMS <= 0 || q.PickupDelayMaxMS < q.PickupDelayMinMS {
		return fmt.Errorf("invalid queue pickup delay range %d-%d ms", q.PickupDelayMinMS, q.PickupDelayMaxMS)
	}
	if q.ProcessDelayMinMS < 0 || q.ProcessDelayMaxMS <= 0 || q.ProcessDelayMaxMS < q.ProcessDelayMinMS {
		return fmt.Errorf("invalid queue process delay range %d-%d ms", q.ProcessDelayMinMS, q.ProcessDelayMaxMS)
	}
	if math.IsNaN(q.SuccessRate) || q.SuccessRate < 0 || q.SuccessRate > 1 {
		return fmt.Errorf("invalid QUEUE_SUCCESS_RATE %v: must be within [0,1]", q.SuccessRate)
	}
	return nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

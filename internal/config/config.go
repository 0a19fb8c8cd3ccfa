package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Scheduler    SchedulerConfig
	Notification NotificationConfig
	Metrics      MetricsConfig
	Calendar     CalendarConfig
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

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines service authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	APIKeyHash            string
}

// SchedulerConfig drives the periodic compliance sweep.
type SchedulerConfig struct {
	Enabled             bool
	IntervalMinutes     int
	CronExpr            string
	Workers             int
	SweepTimeoutSeconds int
	StoreTimeoutSeconds int
	WriteRetries        int
	CompanyAllowList    []string
	CompanyDenyList     []string
}

// NotificationConfig controls how compliance events reach the outside world.
type NotificationConfig struct {
	QueueKey               string
	EventChannel           string
	MaxEnqueueAttempts     int
	DispatchTimeoutSeconds int
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// CalendarConfig supplies the business time zone and the working window
// applied to companies with no persisted hours.
type CalendarConfig struct {
	Timezone           string
	DefaultOpenMinute  int
	DefaultCloseMinute int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	tz := getEnv("SLA_CALENDAR_TIMEZONE", "UTC")
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid SLA_CALENDAR_TIMEZONE: %w", err)
	}
	openMinute, err := parseClock(getEnv("SLA_CALENDAR_DEFAULT_OPEN", "09:00"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_CALENDAR_DEFAULT_OPEN: %w", err)
	}
	closeMinute, err := parseClock(getEnv("SLA_CALENDAR_DEFAULT_CLOSE", "17:00"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_CALENDAR_DEFAULT_CLOSE: %w", err)
	}
	if closeMinute <= openMinute {
		return nil, fmt.Errorf("SLA_CALENDAR_DEFAULT_CLOSE must be after SLA_CALENDAR_DEFAULT_OPEN")
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "sla-compliance-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			APIKeyHash:            os.Getenv("AUTH_API_KEY_HASH"),
		},
		Scheduler: SchedulerConfig{
			Enabled:             getEnvAsBool("SLA_SWEEP_ENABLED", true),
			IntervalMinutes:     getEnvAsInt("SLA_SWEEP_INTERVAL_MINUTES", 60),
			CronExpr:            getEnv("SLA_SWEEP_CRON", ""),
			Workers:             getEnvAsInt("SLA_SWEEP_WORKERS", 4),
			SweepTimeoutSeconds: getEnvAsInt("SLA_SWEEP_TIMEOUT_SECONDS", 600),
			StoreTimeoutSeconds: getEnvAsInt("SLA_STORE_TIMEOUT_SECONDS", 5),
			WriteRetries:        getEnvAsInt("SLA_BREACH_WRITE_RETRIES", 3),
			CompanyAllowList:    getEnvAsSlice("SLA_COMPANY_ALLOW"),
			CompanyDenyList:     getEnvAsSlice("SLA_COMPANY_DENY"),
		},
		Notification: NotificationConfig{
			QueueKey:               getEnv("NOTIFY_QUEUE_KEY", "sla:notifications"),
			EventChannel:           getEnv("NOTIFY_EVENT_CHANNEL", "sla:events"),
			MaxEnqueueAttempts:     getEnvAsInt("NOTIFY_MAX_ENQUEUE_ATTEMPTS", 3),
			DispatchTimeoutSeconds: getEnvAsInt("NOTIFY_DISPATCH_TIMEOUT_SECONDS", 5),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Addr:    getEnv("METRICS_ADDR", ":9464"),
		},
		Calendar: CalendarConfig{
			Timezone:           tz,
			DefaultOpenMinute:  openMinute,
			DefaultCloseMinute: closeMinute,
		},
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

// Interval returns the sweep period.
func (s SchedulerConfig) Interval() time.Duration {
	if s.IntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// SweepTimeout bounds one full sweep.
func (s SchedulerConfig) SweepTimeout() time.Duration {
	if s.SweepTimeoutSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(s.SweepTimeoutSeconds) * time.Second
}

// StoreTimeout bounds a single store read or write during a sweep.
func (s SchedulerConfig) StoreTimeout() time.Duration {
	if s.StoreTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.StoreTimeoutSeconds) * time.Second
}

// DispatchTimeout bounds a single notification delivery attempt.
func (n NotificationConfig) DispatchTimeout() time.Duration {
	if n.DispatchTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(n.DispatchTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the service token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	if a.AccessTokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// parseClock converts an "HH:MM" value to minutes from midnight.
func parseClock(val string) (int, error) {
	parts := strings.Split(val, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("clock value %q is not HH:MM", val)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("clock value %q has an invalid hour", val)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock value %q has an invalid minute", val)
	}
	return hour*60 + minute, nil
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

func getEnvAsSlice(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

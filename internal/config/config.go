package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultWarningFraction is the share of an SLA window after which a warning fires.
const DefaultWarningFraction = 0.8

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	SLA          SLAConfig
	Kafka        KafkaConfig
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
	MigrationsDir  string
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

// AuthConfig defines admin token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// NotificationConfig holds SMTP delivery settings. An empty SMTPHost selects the log-only sender.
type NotificationConfig struct {
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	EmailFrom          string
	SenderName         string
	InsecureSkipVerify bool
	TicketURLTemplate  string
}

// SLAConfig tunes the deadline monitor.
type SLAConfig struct {
	WarningFraction    float64
	RunIntervalSeconds int
	RunTimeoutSeconds  int
	Workers            int
	EscalationRoles    []string
	LockTTLSeconds     int
}

// KafkaConfig configures SLA event streaming. No brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	warningFraction, err := strconv.ParseFloat(getEnv("SLA_WARNING_FRACTION", strconv.FormatFloat(DefaultWarningFraction, 'f', -1, 64)), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_WARNING_FRACTION: %w", err)
	}
	if warningFraction <= 0 || warningFraction >= 1 {
		return nil, fmt.Errorf("invalid SLA_WARNING_FRACTION: %v must be between 0 and 1 exclusive", warningFraction)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", false)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-sla-monitor"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			SMTPHost:           os.Getenv("NOTIFY_SMTP_HOST"),
			SMTPPort:           getEnvAsInt("NOTIFY_SMTP_PORT", 587),
			SMTPUser:           os.Getenv("NOTIFY_SMTP_USER"),
			SMTPPassword:       os.Getenv("NOTIFY_SMTP_PASSWORD"),
			EmailFrom:          getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			SenderName:         getEnv("NOTIFY_SENDER_NAME", "Support SLA Monitor"),
			InsecureSkipVerify: getEnvAsBool("NOTIFY_SMTP_INSECURE_SKIP_VERIFY", false),
			TicketURLTemplate:  os.Getenv("NOTIFY_TICKET_URL_TEMPLATE"),
		},
		SLA: SLAConfig{
			WarningFraction:    warningFraction,
			RunIntervalSeconds: getEnvAsInt("SLA_RUN_INTERVAL_SECONDS", 300),
			RunTimeoutSeconds:  getEnvAsInt("SLA_RUN_TIMEOUT_SECONDS", 120),
			Workers:            getEnvAsInt("SLA_WORKERS", 4),
			EscalationRoles:    getEnvAsList("SLA_ESCALATION_ROLES", []string{"TEAM_LEAD", "ADMIN"}),
			LockTTLSeconds:     getEnvAsInt("SLA_LOCK_TTL_SECONDS", 600),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "ticket.sla.events"),
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

// RunInterval returns the scheduler period.
func (s SLAConfig) RunInterval() time.Duration {
	if s.RunIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.RunIntervalSeconds) * time.Second
}

// RunTimeout bounds a single scheduled run. Zero means no limit.
func (s SLAConfig) RunTimeout() time.Duration {
	if s.RunTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(s.RunTimeoutSeconds) * time.Second
}

// LockTTL returns how long a run lock is held before it expires on its own.
func (s SLAConfig) LockTTL() time.Duration {
	if s.LockTTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(s.LockTTLSeconds) * time.Second
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

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

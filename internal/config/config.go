package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers understood by the service.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	SQLite       SQLiteConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Slack        SlackConfig
	Cards        CardsConfig
	Roster       RosterConfig
	MemberCache  MemberCacheConfig
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

// StoreConfig selects the ticket/roster storage backend.
type StoreConfig struct {
	Driver string
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

// SQLiteConfig holds the local database file location.
type SQLiteConfig struct {
	Path string
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret       string
	TokenIssuer     string
	TokenTTLMinutes int
	AdminKeyHash    string
	BcryptCost      int
}

// SlackConfig configures the chat adapter. An empty BotToken selects the log-only dispatcher.
type SlackConfig struct {
	BotToken     string
	SMEChannelID string
	TeamID       string
}

// CardsConfig points at the intake field templates.
type CardsConfig struct {
	TemplatesPath string
}

// RosterConfig controls roster display.
type RosterConfig struct {
	HistoryLimit int
}

// MemberCacheConfig controls profile caching.
type MemberCacheConfig struct {
	TTLSeconds int
	KeyPrefix  string
}

// NotificationConfig controls outbound chat behavior.
type NotificationConfig struct {
	RepostOnMissingCard bool
	// BackfillLimit caps how many open tickets are checked for a missing SME
	// card at startup. Zero turns the check off.
	BackfillLimit int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv is Load without validation, for callers that override values first.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-bot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3978"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 15),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
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
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "helpdesk.db"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 10),
			MaxBackups: getEnvAsInt("LOG_FILE_MAX_BACKUPS", 5),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("AUTH_JWT_SECRET", "dev-secret"),
			TokenIssuer:     getEnv("AUTH_TOKEN_ISSUER", "helpdesk-channel"),
			TokenTTLMinutes: getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 60),
			AdminKeyHash:    os.Getenv("AUTH_ADMIN_KEY_HASH"),
			BcryptCost:      getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Slack: SlackConfig{
			BotToken:     os.Getenv("SLACK_BOT_TOKEN"),
			SMEChannelID: os.Getenv("SLACK_SME_CHANNEL_ID"),
			TeamID:       getEnv("SLACK_TEAM_ID", "default"),
		},
		Cards: CardsConfig{
			TemplatesPath: getEnv("CARD_TEMPLATES_PATH", "cards.yaml"),
		},
		Roster: RosterConfig{
			HistoryLimit: getEnvAsInt("ROSTER_HISTORY_LIMIT", 9),
		},
		MemberCache: MemberCacheConfig{
			TTLSeconds: getEnvAsInt("MEMBER_CACHE_TTL_SECONDS", 3600),
			KeyPrefix:  getEnv("MEMBER_CACHE_KEY_PREFIX", "helpdesk:member:"),
		},
		Notification: NotificationConfig{
			RepostOnMissingCard: getEnvAsBool("NOTIFY_REPOST_ON_MISSING_CARD", true),
			BackfillLimit:       getEnvAsInt("NOTIFY_BACKFILL_LIMIT", 100),
		},
	}
	return cfg, nil
}

// Validate checks combinations that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORE_DRIVER=%s", StoreDriverPostgres)
		}
	case StoreDriverSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=%s", StoreDriverSQLite)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Slack.BotToken != "" && c.Slack.SMEChannelID == "" {
		return fmt.Errorf("SLACK_SME_CHANNEL_ID is required when SLACK_BOT_TOKEN is set")
	}
	return nil
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

// TTL returns the profile cache lifetime.
func (m MemberCacheConfig) TTL() time.Duration {
	if m.TTLSeconds <= 0 {
		return 0
	}
	return time.Duration(m.TTLSeconds) * time.Second
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

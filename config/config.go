package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds all configuration for the session service
type Config struct {
	Telegram TelegramConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	S3       S3Config
	Relay    RelayConfig
	Events   EventsConfig
	Logging  LoggingConfig
	Service  ServiceConfig
}

// TelegramConfig holds Telegram MTProto configuration
type TelegramConfig struct {
	// Default application credentials used when a request omits them
	APIID   int
	APIHash string

	RateLimit      float64
	RateBurst      int
	ConnectTimeout time.Duration
	MaxConcurrent  int
	ChallengeTTL   time.Duration
	GapRecovery    bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers  []string
	ClientID string
	Exchange string
}

// RedisConfig holds challenge store configuration. An empty Addr selects
// the in-memory store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// S3Config holds media mirror configuration. An empty Endpoint disables it.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// RelayConfig holds websocket relay configuration
type RelayConfig struct {
	UpstreamURL    string
	ConnectTimeout time.Duration
	PollTimeout    time.Duration
	WriteTimeout   time.Duration
}

// EventsConfig holds event flushing configuration
type EventsConfig struct {
	FlushInterval time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Name string
	Port string
}

// Result is fx.Out struct for providing config dependencies
type Result struct {
	fx.Out

	Config         *Config
	TelegramConfig *TelegramConfig
	DatabaseConfig *DatabaseConfig
	KafkaConfig    *KafkaConfig
	RedisConfig    *RedisConfig
	S3Config       *S3Config
	RelayConfig    *RelayConfig
	EventsConfig   *EventsConfig
	LoggingConfig  *LoggingConfig
	ServiceConfig  *ServiceConfig
}

// Out returns fx-compatible config result
func Out() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Config:         cfg,
		TelegramConfig: &cfg.Telegram,
		DatabaseConfig: &cfg.Database,
		KafkaConfig:    &cfg.Kafka,
		RedisConfig:    &cfg.Redis,
		S3Config:       &cfg.S3,
		RelayConfig:    &cfg.Relay,
		EventsConfig:   &cfg.Events,
		LoggingConfig:  &cfg.Logging,
		ServiceConfig:  &cfg.Service,
	}, nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	apiID, err := strconv.Atoi(getEnv("TELEGRAM_API_ID", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_API_ID: %w", err)
	}

	rateLimit, err := strconv.ParseFloat(getEnv("TELEGRAM_RATE_LIMIT", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_RATE_LIMIT: %w", err)
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			APIID:          apiID,
			APIHash:        getEnv("TELEGRAM_API_HASH", ""),
			RateLimit:      rateLimit,
			RateBurst:      getEnvInt("TELEGRAM_RATE_BURST", 10),
			ConnectTimeout: getEnvDuration("TELEGRAM_CONNECT_TIMEOUT", 30*time.Second),
			MaxConcurrent:  getEnvInt("TELEGRAM_MAX_CONCURRENT", 10),
			ChallengeTTL:   getEnvDuration("TELEGRAM_CHALLENGE_TTL", 5*time.Minute),
			GapRecovery:    getEnvBool("TELEGRAM_GAP_RECOVERY", true),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     getEnv("DATABASE_PORT", "5432"),
			User:     getEnv("DATABASE_USER", "session_user"),
			Password: getEnv("DATABASE_PASSWORD", "session_pass"),
			DBName:   getEnv("DATABASE_NAME", "session_db"),
			SSLMode:  getEnv("DATABASE_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9093"), ","),
			ClientID: getEnv("KAFKA_CLIENT_ID", "session-service"),
			Exchange: getEnv("KAFKA_EXCHANGE", "telegram"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		S3: S3Config{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", "telegram-media"),
			UseSSL:    getEnvBool("S3_USE_SSL", false),
			PublicURL: getEnv("S3_PUBLIC_URL", ""),
		},
		Relay: RelayConfig{
			UpstreamURL:    getEnv("RELAY_UPSTREAM_URL", "ws://bots:1111/ws/{chat_peer}/{user_peer}"),
			ConnectTimeout: getEnvDuration("RELAY_CONNECT_TIMEOUT", 10*time.Second),
			PollTimeout:    getEnvDuration("RELAY_POLL_TIMEOUT", time.Second),
			WriteTimeout:   getEnvDuration("RELAY_WRITE_TIMEOUT", 10*time.Second),
		},
		Events: EventsConfig{
			FlushInterval: getEnvDuration("EVENTS_FLUSH_INTERVAL", 2*time.Second),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Service: ServiceConfig{
			Name: getEnv("SERVICE_NAME", "session-service"),
			Port: getEnv("SERVICE_PORT", "8085"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DATABASE_HOST is required")
	}

	if c.Database.User == "" {
		return fmt.Errorf("DATABASE_USER is required")
	}

	if c.Database.DBName == "" {
		return fmt.Errorf("DATABASE_NAME is required")
	}

	if len(c.Kafka.Brokers) == 0 || c.Kafka.Brokers[0] == "" {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}

	if c.Kafka.Exchange == "" {
		return fmt.Errorf("KAFKA_EXCHANGE is required")
	}

	if c.Relay.UpstreamURL == "" {
		return fmt.Errorf("RELAY_UPSTREAM_URL is required")
	}

	timeouts := map[string]time.Duration{
		"TELEGRAM_CONNECT_TIMEOUT": c.Telegram.ConnectTimeout,
		"TELEGRAM_CHALLENGE_TTL":   c.Telegram.ChallengeTTL,
		"RELAY_CONNECT_TIMEOUT":    c.Relay.ConnectTimeout,
		"RELAY_POLL_TIMEOUT":       c.Relay.PollTimeout,
		"RELAY_WRITE_TIMEOUT":      c.Relay.WriteTimeout,
		"EVENTS_FLUSH_INTERVAL":    c.Events.FlushInterval,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	return nil
}

// GetDSN returns database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetMigrateURL returns the postgres URL used by golang-migrate
func (c *DatabaseConfig) GetMigrateURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Enabled reports whether the media mirror is configured
func (c *S3Config) Enabled() bool {
	return c.Endpoint != ""
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets integer environment variable with default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvBool gets boolean environment variable with default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvDuration gets duration environment variable with default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

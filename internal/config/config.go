package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Cooldown backends
const (
	CooldownMemory = "memory"
	CooldownRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `env:", prefix=SERVER_"`
	Database DatabaseConfig `env:", prefix=DB_"`
	Kafka    KafkaConfig    `env:", prefix=KAFKA_"`
	Redis    RedisConfig    `env:", prefix=REDIS_"`
	Market   MarketConfig   `env:", prefix=MARKET_"`
	Monitor  MonitorConfig  `env:", prefix=MONITOR_"`
	Twilio   TwilioConfig   `env:", prefix=TWILIO_"`
	Push     PushConfig     `env:", prefix=PUSH_"`
	Logging  LoggingConfig  `env:", prefix=LOG_"`
	Tracing  TracingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `env:"PORT, default=8080"`
	Host string `env:"HOST, default=0.0.0.0"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `env:"HOST, default=localhost"`
	Port           string `env:"PORT, default=5432"`
	User           string `env:"USER"`
	Password       string `env:"PASSWORD"`
	DBName         string `env:"NAME, default=tokenalerts"`
	SSLMode        string `env:"SSLMODE, default=disable"`
	MigrationsPath string `env:"MIGRATIONS_PATH, default=db/migrations"`
}

// KafkaConfig holds Kafka configuration. Kafka is optional: no brokers disables it.
type KafkaConfig struct {
	Brokers      []string `env:"BROKERS"`
	EventsTopic  string   `env:"EVENTS_TOPIC, default=token-alert-events"`
	CommandTopic string   `env:"COMMAND_TOPIC, default=token-alert-commands"`
	GroupID      string   `env:"GROUP_ID, default=token-alert-monitor"`
}

// Enabled reports whether any broker is configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// RedisConfig holds Redis configuration. An empty address disables Redis.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB, default=0"`
}

// MarketConfig configures the upstream market data API
type MarketConfig struct {
	BaseURL string        `env:"BASE_URL, default=https://api.dexscreener.com"`
	Timeout time.Duration `env:"TIMEOUT, default=10s"`

	// SharedLimiter spaces calls across every instance through Redis
	SharedLimiter bool `env:"SHARED_LIMITER, default=false"`
}

// MonitorConfig tunes the processing loop
type MonitorConfig struct {
	Interval        time.Duration `env:"INTERVAL, default=5s"`
	GroupDelay      time.Duration `env:"GROUP_DELAY, default=1s"`
	Workers         int           `env:"WORKERS, default=1"`
	Cooldown        time.Duration `env:"COOLDOWN, default=15m"`
	CooldownSweep   time.Duration `env:"COOLDOWN_SWEEP, default=1h"`
	CooldownMaxAge  time.Duration `env:"COOLDOWN_MAX_AGE"`
	CooldownBackend string        `env:"COOLDOWN_BACKEND, default=memory"`
	ChannelTimeout  time.Duration `env:"CHANNEL_TIMEOUT, default=15s"`
	ShutdownGrace   time.Duration `env:"SHUTDOWN_GRACE, default=30s"`

	// HistoryRetention prunes notification history older than this once a day; 0 keeps it forever
	HistoryRetention time.Duration `env:"HISTORY_RETENTION, default=720h"`
}

// SweepMaxAge returns the age past which cooldown entries are evicted, 4x the window unless set
func (m MonitorConfig) SweepMaxAge() time.Duration {
	if m.CooldownMaxAge > 0 {
		return m.CooldownMaxAge
	}
	return 4 * m.Cooldown
}

// TwilioConfig holds SMS and voice provider credentials
type TwilioConfig struct {
	AccountSID  string        `env:"ACCOUNT_SID"`
	AuthToken   string        `env:"AUTH_TOKEN"`
	FromNumber  string        `env:"FROM_NUMBER"`
	Voice       string        `env:"VOICE, default=alice"`
	MaxAttempts int           `env:"MAX_ATTEMPTS, default=2"`
	RetryDelay  time.Duration `env:"RETRY_DELAY, default=500ms"`
}

// PushConfig holds push gateway settings
type PushConfig struct {
	URL         string        `env:"URL"`
	APIKey      string        `env:"API_KEY"`
	AppID       string        `env:"APP_ID"`
	Title       string        `env:"TITLE, default=Token alert"`
	Timeout     time.Duration `env:"TIMEOUT, default=10s"`
	MaxAttempts int           `env:"MAX_ATTEMPTS, default=2"`
	RetryDelay  time.Duration `env:"RETRY_DELAY, default=500ms"`
}

// LoggingConfig holds logger settings. An empty File logs to stderr only.
type LoggingConfig struct {
	Level      string `env:"LEVEL, default=info"`
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB, default=100"`
	MaxBackups int    `env:"MAX_BACKUPS, default=5"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS, default=28"`
}

// TracingConfig holds OpenTelemetry settings. An empty endpoint disables export.
type TracingConfig struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool   `env:"OTEL_EXPORTER_OTLP_INSECURE, default=true"`
	ServiceName string `env:"OTEL_SERVICE_NAME, default=token-alert-monitor"`
}

// Load reads an optional .env file and then configuration from environment variables
func Load(ctx context.Context) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Database.User == "" || c.Database.Password == "" {
		return errors.New("database credentials are required: set DB_USER and DB_PASSWORD")
	}
	switch c.Monitor.CooldownBackend {
	case CooldownMemory:
	case CooldownRedis:
		if c.Redis.Addr == "" {
			return errors.New("MONITOR_COOLDOWN_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown cooldown backend %q", c.Monitor.CooldownBackend)
	}
	if c.Market.SharedLimiter && c.Redis.Addr == "" {
		return errors.New("MARKET_SHARED_LIMITER requires REDIS_ADDR")
	}
	if c.Monitor.Interval <= 0 {
		return errors.New("MONITOR_INTERVAL must be positive")
	}
	if c.Monitor.Workers < 1 {
		return errors.New("MONITOR_WORKERS must be at least 1")
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

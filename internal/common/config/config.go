package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Debug       bool   `env:"DEBUG" envDefault:"false"`
	LogLevel    string `env:"LOG_LEVEL"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"luvrix-giveaway-engine"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	Postgres struct {
		Host            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
		Port            int           `env:"POSTGRES_PORT" envDefault:"5432"`
		User            string        `env:"POSTGRES_USER" envDefault:"luvrix"`
		Password        string        `env:"POSTGRES_PASSWORD" envDefault:""`
		Database        string        `env:"POSTGRES_DB" envDefault:"luvrix"`
		SSLMode         string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
		MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"25"`
		MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
		ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"5m"`
		AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"false"`
		ConnectAttempts int           `env:"POSTGRES_CONNECT_ATTEMPTS" envDefault:"5"`
	}

	Redis struct {
		Enabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Telegram struct {
		BotToken      string        `env:"BOT_TOKEN"`
		AdminIDs      []string      `env:"ADMIN_IDS" envSeparator:","`
		InitDataTTL   time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
		NotifyWinners bool          `env:"TELEGRAM_NOTIFY_WINNERS" envDefault:"false"`
	}

	Engine struct {
		OperationTimeout time.Duration `env:"ENGINE_OPERATION_TIMEOUT" envDefault:"5s"`
		InviteCodeLength int           `env:"INVITE_CODE_LENGTH" envDefault:"8"`
	}

	Cache struct {
		TTL       time.Duration `env:"CACHE_TTL" envDefault:"1m"`
		L1MaxCost int64         `env:"CACHE_L1_MAX_COST" envDefault:"10485760"`
	}

	Events struct {
		Stream        string        `env:"EVENTS_STREAM" envDefault:"giveaway:events"`
		ConsumerGroup string        `env:"EVENTS_CONSUMER_GROUP" envDefault:"giveaway_engine_consumers"`
		ConsumerName  string        `env:"EVENTS_CONSUMER_NAME" envDefault:"giveaway_engine_1"`
		ClaimMinIdle  time.Duration `env:"EVENTS_CLAIM_MIN_IDLE" envDefault:"30s"`
		MaxDeliveries int64         `env:"EVENTS_MAX_DELIVERIES" envDefault:"5"`
	}

	RateLimit struct {
		RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
		Burst int     `env:"RATE_LIMIT_BURST" envDefault:"30"`
	}

	Metrics struct {
		User     string `env:"METRICS_USER"`
		Password string `env:"METRICS_PASS"`
	}
}

// GetDSN builds the lib/pq connection string
func (c *Config) GetDSN() string {
	p := c.Postgres
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// AdminIDSet parses ADMIN_IDS, skipping malformed entries.
func (c *Config) AdminIDSet() map[int64]struct{} {
	ids := make(map[int64]struct{}, len(c.Telegram.AdminIDs))
	for _, raw := range c.Telegram.AdminIDs {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids
}

// Validate checks what env tags cannot express
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.Engine.OperationTimeout <= 0 {
		return fmt.Errorf("ENGINE_OPERATION_TIMEOUT must be positive")
	}
	if c.Engine.InviteCodeLength < 6 || c.Engine.InviteCodeLength > 32 {
		return fmt.Errorf("INVITE_CODE_LENGTH must be between 6 and 32")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// Parse reads the environment without touching .env files.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Load() *Config {
	// .env is optional, production sets variables directly
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		panic(err)
	}

	return cfg
}

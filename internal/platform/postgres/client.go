package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"luvrix-giveaway-engine/internal/common/config"
	"luvrix-giveaway-engine/internal/common/logger"

	_ "github.com/lib/pq"
)

// Client owns the connection pool shared by the giveaway and support repositories.
type Client struct {
	db   *sql.DB
	name string
}

// NewClient opens the pool and waits for the server, retrying with a doubling
// delay so the engine can start alongside its database.
func NewClient(cfg *config.Config) (*Client, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	attempts := cfg.Postgres.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	if err := waitForDB(db, attempts, 500*time.Millisecond); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().
		Str("host", cfg.Postgres.Host).
		Int("port", cfg.Postgres.Port).
		Str("database", cfg.Postgres.Database).
		Int("max_open_conns", cfg.Postgres.MaxOpenConns).
		Msg("PostgreSQL client initialized")

	return &Client{db: db, name: cfg.Postgres.Database}, nil
}

func waitForDB(db *sql.DB, attempts int, delay time.Duration) error {
	var err error
	for i := 1; i <= attempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if i < attempts {
			logger.Warn().Err(err).Int("attempt", i).Dur("retry_in", delay).Msg("PostgreSQL not ready")
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("failed to ping database after %d attempts: %w", attempts, err)
}

// NewFromDB wraps an already opened pool.
func NewFromDB(db *sql.DB) *Client {
	return &Client{db: db, name: "luvrix"}
}

func (c *Client) GetDB() *sql.DB {
	return c.db
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Collector exports pool statistics (open, in use, wait time) to prometheus.
func (c *Client) Collector() prometheus.Collector {
	return collectors.NewDBStatsCollector(c.db, c.name)
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const connectPingTimeout = 5 * time.Second

// Connection wraps a PostgreSQL connection pool configured from Config.
type Connection struct {
	db  *sql.DB
	cfg *Config
}

// NewConnection opens a connection pool against the configured database and
// verifies connectivity with a bounded ping. When AutoMigrate is set the
// embedded schema migrations are applied before the connection is returned.
func NewConnection(ctx context.Context, cfg *Config, logger *slog.Logger) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, connectPingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		slog.String("url", cfg.MaskDatabaseURL()),
		slog.Int("max_open_conns", cfg.MaxOpenConns),
	)

	if cfg.AutoMigrate {
		if err := RunMigrations(db); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("failed to apply schema migrations: %w", err)
		}

		logger.Info("schema migrations applied")
	}

	return &Connection{db: db, cfg: cfg}, nil
}

// DB exposes the underlying pool for store construction.
func (c *Connection) DB() *sql.DB {
	return c.db
}

// Close closes the connection pool. Safe to call multiple times.
func (c *Connection) Close() error {
	if c.db == nil {
		return nil
	}

	return c.db.Close()
}

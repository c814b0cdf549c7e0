// Package domain defines the core interfaces and types for the karma engine.
package domain

import (
	"context"
)

// Ledger defines the interface for award persistence. It is the
// authority on whether a user has already received a reward for a
// given day: TryCreate is the only write path and it is atomic, so
// two concurrent checks for the same user and day cannot both win.
type Ledger interface {
	// Find returns the award recorded for the user on the given day,
	// or ErrNotFound from the implementing package when none exists.
	Find(ctx context.Context, date string, userID string) (*Award, error)

	// TryCreate records an award if and only if none exists yet for
	// the same day and user. It reports whether this call created the
	// row. created == false with a nil error means another writer got
	// there first.
	TryCreate(ctx context.Context, award *Award) (created bool, err error)

	// ListByDate returns all awards recorded on a day, optionally
	// filtered by box type. Results are ordered by user ID.
	ListByDate(ctx context.Context, date string, boxType string) ([]*Award, error)

	// DeleteOlderThan removes awards dated strictly before cutoff
	// (a YYYY-MM-DD string) and returns the number removed.
	DeleteOlderThan(ctx context.Context, cutoff string) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// LedgerConfig holds configuration for ledger initialization.
type LedgerConfig struct {
	// Driver is the storage driver: "sqlite", "postgres" or "redis"
	Driver string `json:"driver"`

	// SQLite specific
	SQLitePath string `json:"sqlite_path"`

	// PostgreSQL specific
	PostgresHost     string `json:"postgres_host"`
	PostgresPort     int    `json:"postgres_port"`
	PostgresUser     string `json:"postgres_user"`
	PostgresPassword string `json:"postgres_password"`
	PostgresDB       string `json:"postgres_db"`
	PostgresSSLMode  string `json:"postgres_ssl_mode"`

	// Redis specific
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	// Connection pool settings
	MaxOpenConns    int `json:"max_open_conns"`
	MaxIdleConns    int `json:"max_idle_conns"`
	ConnMaxLifetime int `json:"conn_max_lifetime"` // seconds

	// Retention settings used by the sweeper.
	RetentionDays int `json:"retention_days"`
	SweepInterval int `json:"sweep_interval"` // seconds
	SweepTimeout  int `json:"sweep_timeout"`  // seconds
}

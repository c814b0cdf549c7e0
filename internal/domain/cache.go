package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU + Redis.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetAward retrieves a cached award for a user and day.
	// Returns nil, nil when no award is cached.
	GetAward(ctx context.Context, date string, userID string) (*Award, error)

	// SetAward caches an award so repeat checks skip the ledger.
	SetAward(ctx context.Context, award *Award, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns new value.
	// Used to observe repeat checks within a time window.
	IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `json:"type"`

	// Local LRU cache settings
	LocalMaxSize int `json:"local_max_size"`
	LocalTTL     int `json:"local_ttl"` // seconds

	// Redis settings
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	// Two-phase settings
	EnableTwoPhase bool `json:"enable_two_phase"` // If true, check local first, then Redis

	// AwardTTL bounds how long delivered awards stay cached. Awards
	// are per-day so anything past two days is dead weight.
	AwardTTL int `json:"award_ttl"` // seconds
}

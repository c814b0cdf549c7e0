package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaushiksai711/Karma-AI/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache using Redis.
// Used as the shared cache for multi-node deployments and as L2 in
// two-phase caching.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.makeKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value in Redis with TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.makeKey(key), value, ttl).Err()
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.makeKey(key)).Err()
}

// GetAward retrieves a cached award for a user and day.
func (c *RedisCache) GetAward(ctx context.Context, date string, userID string) (*domain.Award, error) {
	if date == "" || userID == "" {
		return nil, fmt.Errorf("date and userID are required")
	}

	data, err := c.Get(ctx, awardKey(date, userID))
	if err != nil || data == nil {
		return nil, err
	}

	var award domain.Award
	if err := json.Unmarshal(data, &award); err != nil {
		return nil, err
	}
	return &award, nil
}

// SetAward caches a delivered award.
func (c *RedisCache) SetAward(ctx context.Context, award *domain.Award, ttl time.Duration) error {
	if award == nil || award.Date == "" || award.UserID == "" {
		return fmt.Errorf("award with date and userID is required")
	}

	bytes, err := json.Marshal(award)
	if err != nil {
		return err
	}
	return c.Set(ctx, awardKey(award.Date, award.UserID), bytes, ttl)
}

// IncrementCounter atomically increments a counter using Redis INCR with EXPIRE.
func (c *RedisCache) IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := c.makeKey("counter:" + key)

	// Use Lua script for atomic increment with TTL
	script := redis.NewScript(`
		local current = redis.call('INCR', KEYS[1])
		if current == 1 then
			redis.call('PEXPIRE', KEYS[1], ARGV[1])
		end
		return current
	`)

	result, err := script.Run(ctx, c.client, []string{fullKey}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, err
	}

	return result, nil
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// makeKey namespaces cache entries away from the Redis ledger's
// "karma:award:" keys. A cache write must never shadow a ledger row.
func (c *RedisCache) makeKey(key string) string {
	return "karma:cache:" + key
}

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kaushiksai711/Karma-AI/internal/domain"
)

const awardKeyPrefix = "karma:award:"

// RedisLedger implements domain.Ledger on Redis. SET NX provides the
// same atomic insert-if-absent that the SQL drivers get from their
// primary key, so the one-reward-per-day guarantee also holds when
// the ledger is shared by multiple engine instances.
type RedisLedger struct {
	client *redis.Client
}

// NewRedisLedger connects to Redis and verifies the connection.
func NewRedisLedger(cfg domain.LedgerConfig) (*RedisLedger, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisLedger{client: client}, nil
}

func awardKey(date, userID string) string {
	return awardKeyPrefix + date + ":" + userID
}

// Find returns the award recorded for a user on a day.
func (l *RedisLedger) Find(ctx context.Context, date string, userID string) (*domain.Award, error) {
	if date == "" || userID == "" {
		return nil, fmt.Errorf("%w: date and userID are required", ErrInvalidInput)
	}

	data, err := l.client.Get(ctx, awardKey(date, userID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var a domain.Award
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// TryCreate records the award with SET NX: exactly one of any number
// of concurrent callers wins.
func (l *RedisLedger) TryCreate(ctx context.Context, award *domain.Award) (bool, error) {
	if award == nil || award.Date == "" || award.UserID == "" {
		return false, fmt.Errorf("%w: date and userID are required", ErrInvalidInput)
	}

	a := *award
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(&a)
	if err != nil {
		return false, err
	}

	return l.client.SetNX(ctx, awardKey(a.Date, a.UserID), data, 0).Result()
}

// ListByDate scans the day's keys, optionally filtered by box type,
// ordered by user ID.
func (l *RedisLedger) ListByDate(ctx context.Context, date string, boxType string) ([]*domain.Award, error) {
	if date == "" {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	var awards []*domain.Award
	iter := l.client.Scan(ctx, 0, awardKeyPrefix+date+":*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := l.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}

		var a domain.Award
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, err
		}
		if boxType != "" && a.BoxType != boxType {
			continue
		}
		awards = append(awards, &a)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	sort.Slice(awards, func(i, j int) bool { return awards[i].UserID < awards[j].UserID })
	return awards, nil
}

// DeleteOlderThan scans all award keys and deletes those dated before
// cutoff.
func (l *RedisLedger) DeleteOlderThan(ctx context.Context, cutoff string) (int64, error) {
	if cutoff == "" {
		return 0, fmt.Errorf("%w: cutoff is required", ErrInvalidInput)
	}

	var deleted int64
	iter := l.client.Scan(ctx, 0, awardKeyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		date, _, ok := strings.Cut(strings.TrimPrefix(key, awardKeyPrefix), ":")
		if !ok || date >= cutoff {
			continue
		}

		n, err := l.client.Del(ctx, key).Result()
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}

	return deleted, nil
}

// Ping checks Redis connectivity.
func (l *RedisLedger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}

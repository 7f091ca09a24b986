package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client the counter needs.
type RedisClient interface {
	IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// RedisCounter shares httprate sliding-window counts between replicas.
type RedisCounter struct {
	client       RedisClient
	prefix       string
	windowLength time.Duration
	timeout      time.Duration
}

func NewRedisCounter(client RedisClient, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = "listing-scraper:ratelimit"
	}
	return &RedisCounter{
		client:       client,
		prefix:       prefix,
		windowLength: time.Minute,
		timeout:      500 * time.Millisecond,
	}
}

func (c *RedisCounter) Config(requestLimit int, windowLength time.Duration) {
	c.windowLength = windowLength
}

func (c *RedisCounter) Increment(key string, currentWindow time.Time) error {
	return c.IncrementBy(key, currentWindow, 1)
}

func (c *RedisCounter) IncrementBy(key string, currentWindow time.Time, amount int) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	k := c.windowKey(key, currentWindow)
	if err := c.client.IncrBy(ctx, k, int64(amount)).Err(); err != nil {
		return fmt.Errorf("failed to increment %s: %w", k, err)
	}
	// Counts are read for the current and the previous window.
	if err := c.client.Expire(ctx, k, 3*c.windowLength).Err(); err != nil {
		return fmt.Errorf("failed to set expiry on %s: %w", k, err)
	}
	return nil
}

func (c *RedisCounter) Get(key string, currentWindow, previousWindow time.Time) (int, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	values, err := c.client.MGet(ctx, c.windowKey(key, currentWindow), c.windowKey(key, previousWindow)).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read counters: %w", err)
	}
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected counter reply length %d", len(values))
	}

	curr, err := toCount(values[0])
	if err != nil {
		return 0, 0, err
	}
	prev, err := toCount(values[1])
	if err != nil {
		return 0, 0, err
	}
	return curr, prev, nil
}

func (c *RedisCounter) windowKey(key string, window time.Time) string {
	return fmt.Sprintf("%s:%s:%d", c.prefix, key, window.Unix())
}

func toCount(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("invalid counter value %q: %w", t, err)
		}
		return n, nil
	case int64:
		return int(t), nil
	default:
		return 0, fmt.Errorf("unexpected counter type %T", v)
	}
}

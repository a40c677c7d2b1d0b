package seatstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// decrScript performs the conditional decrement server-side so the
// read-modify-write is a single atomic step for every client.
// Returns -1 when the key is missing, 1 when decremented, 0 when it would
// go negative.
var decrScript = redis.NewScript(`
local left = redis.call('GET', KEYS[1])
if not left then
  return -1
end
if tonumber(left) - tonumber(ARGV[1]) >= 0 then
  redis.call('DECRBY', KEYS[1], ARGV[1])
  return 1
end
return 0
`)

// RedisCounter is the Counter implementation backed by a shared Redis instance.
type RedisCounter struct {
	rdb       *redis.Client
	prefix    string
	opTimeout time.Duration
	log       *slog.Logger
}

// RedisOption customizes a RedisCounter.
type RedisOption func(*RedisCounter)

// WithKeyPrefix overrides the default "seats:" key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(c *RedisCounter) { c.prefix = prefix }
}

// WithOpTimeout bounds every store call; calls exceeding it count as
// unavailability, not as a full course.
func WithOpTimeout(d time.Duration) RedisOption {
	return func(c *RedisCounter) { c.opTimeout = d }
}

// NewRedisCounter constructs a RedisCounter.
func NewRedisCounter(rdb *redis.Client, log *slog.Logger, opts ...RedisOption) *RedisCounter {
	c := &RedisCounter{
		rdb:       rdb,
		prefix:    "seats:",
		opTimeout: 500 * time.Millisecond,
		log:       log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCounter) key(courseID string) string {
	return c.prefix + courseID
}

func (c *RedisCounter) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

// unavailable maps any transport-level failure to ErrUnavailable so callers
// never mistake a down store for an exhausted counter.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

// Seed implements Counter.
func (c *RedisCounter) Seed(ctx context.Context, courseID string, remaining int64) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	set, err := c.rdb.SetNX(ctx, c.key(courseID), remaining, 0).Result()
	if err != nil {
		return unavailable("seed counter", err)
	}
	if !set {
		return ErrAlreadySeeded
	}
	return nil
}

// Exists implements Counter.
func (c *RedisCounter) Exists(ctx context.Context, courseID string) (bool, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	n, err := c.rdb.Exists(ctx, c.key(courseID)).Result()
	if err != nil {
		return false, unavailable("check counter", err)
	}
	return n > 0, nil
}

// TryDecrement implements Counter.
func (c *RedisCounter) TryDecrement(ctx context.Context, courseID string, by int64) (bool, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	res, err := decrScript.Run(ctx, c.rdb, []string{c.key(courseID)}, by).Int()
	if err != nil {
		return false, unavailable("decrement counter", err)
	}
	switch res {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("decrement counter %s: %w", courseID, ErrMissing)
	}
}

// Increment implements Counter.
func (c *RedisCounter) Increment(ctx context.Context, courseID string, by int64) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	n, err := c.rdb.Exists(ctx, c.key(courseID)).Result()
	if err != nil {
		return unavailable("increment counter", err)
	}
	if n == 0 {
		c.log.Warn("increment on missing seat counter, skipping until reconciliation",
			"course_id", courseID)
		return nil
	}
	if err := c.rdb.IncrBy(ctx, c.key(courseID), by).Err(); err != nil {
		return unavailable("increment counter", err)
	}
	return nil
}

// Reseed implements Counter.
func (c *RedisCounter) Reseed(ctx context.Context, courseID string, remaining int64) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.rdb.Set(ctx, c.key(courseID), remaining, 0).Err(); err != nil {
		return unavailable("reseed counter", err)
	}
	return nil
}

// Reachable implements Counter.
func (c *RedisCounter) Reachable(ctx context.Context) bool {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	return c.rdb.Ping(ctx).Err() == nil
}

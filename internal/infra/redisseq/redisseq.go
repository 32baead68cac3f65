// Package redisseq hands out report sequence numbers from Redis counters.
package redisseq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "spill:report_seq"
	// reserveLockTTL must outlast the store timeout of the insert run under it.
	reserveLockTTL = 30 * time.Second
)

var ErrLockNotObtained = errors.New("could not obtain redis lock")

// raiseScript sets the key to ARGV[1] only when that is higher.
var raiseScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
if cur < tonumber(ARGV[1]) then
  redis.call('SET', KEYS[1], ARGV[1])
end
return 0
`)

// giveBackScript decrements the key only while it still holds ARGV[1].
var giveBackScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
if cur == tonumber(ARGV[1]) then
  redis.call('DECR', KEYS[1])
  return 1
end
return 0
`)

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 20,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

type SequenceCounter struct {
	rdb    *redis.Client
	locker *redislock.Client
	prefix string
}

func NewSequenceCounter(rdb *redis.Client, prefix string) *SequenceCounter {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &SequenceCounter{rdb: rdb, locker: redislock.New(rdb), prefix: prefix}
}

func (c *SequenceCounter) key(scope string) string {
	return c.prefix + ":" + scope
}

func (c *SequenceCounter) lockKey(name string) string {
	return c.prefix + ":lock:" + name
}

// Next increments with INCR; a missing key starts at 1.
func (c *SequenceCounter) Next(ctx context.Context, scope string) (int64, error) {
	n, err := c.rdb.Incr(ctx, c.key(scope)).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", c.key(scope), err)
	}
	return n, nil
}

func (c *SequenceCounter) Raise(ctx context.Context, scope string, floor int64) error {
	if err := raiseScript.Run(ctx, c.rdb, []string{c.key(scope)}, floor).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("raise %s: %w", c.key(scope), err)
	}
	return nil
}

// Guard runs fn while holding a distributed lock named name, so only one
// instance performs it at a time. It waits up to ttl for the lock.
func (c *SequenceCounter) Guard(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error {
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), int(ttl/(100*time.Millisecond))),
	}
	lock, err := c.locker.Obtain(ctx, c.lockKey(name), ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("%w: %s", ErrLockNotObtained, name)
	}
	if err != nil {
		return fmt.Errorf("obtain lock %s: %w", name, err)
	}
	defer func() { _ = lock.Release(context.WithoutCancel(ctx)) }()

	return fn(ctx)
}

// Reserve increments the scope under a per-scope lock and runs fn with the new
// value. When fn fails the value is given back, so the next caller reuses it.
// The value stays consumed if Redis cannot be reached to give it back or if
// the lock expired and someone else moved the counter meanwhile.
func (c *SequenceCounter) Reserve(ctx context.Context, scope string, fn func(context.Context, int64) error) error {
	return c.Guard(ctx, "scope:"+scope, reserveLockTTL, func(ctx context.Context) error {
		seq, err := c.Next(ctx, scope)
		if err != nil {
			return err
		}
		if err := fn(ctx, seq); err != nil {
			if gerr := c.giveBack(context.WithoutCancel(ctx), scope, seq); gerr != nil {
				return errors.Join(err, gerr)
			}
			return err
		}
		return nil
	})
}

func (c *SequenceCounter) giveBack(ctx context.Context, scope string, seq int64) error {
	n, err := giveBackScript.Run(ctx, c.rdb, []string{c.key(scope)}, seq).Int()
	if err != nil {
		return fmt.Errorf("give back %d on %s: %w", seq, c.key(scope), err)
	}
	if n == 0 {
		return fmt.Errorf("give back %d on %s: counter moved, number skipped", seq, c.key(scope))
	}
	return nil
}

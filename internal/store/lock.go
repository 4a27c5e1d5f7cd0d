package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when a lock cannot be acquired within
// the configured retry budget.
var ErrLockNotAcquired = errors.New("store: lock not acquired")

// ErrLockNotHeld is returned when trying to release or extend a lock
// this instance does not currently hold.
var ErrLockNotHeld = errors.New("store: lock not held")

const (
	defaultRetryDelay = 100 * time.Millisecond
	defaultMaxRetries = 10
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

// Lock is a distributed mutex with a TTL and a per-owner token, so a
// crashed holder cannot deadlock the system and a caller can never
// release or extend someone else's lock.
type Lock struct {
	client     *redis.Client
	key        string
	token      string
	ttl        time.Duration
	retryDelay time.Duration
	maxRetries int
}

// NewLock creates a lock for the given key. ttl must be greater than
// zero; retryDelay/maxRetries are fixed at 100ms/10.
func NewLock(client *redis.Client, key string, ttl time.Duration) *Lock {
	return &Lock{
		client:     client,
		key:        key,
		token:      uuid.New().String(),
		ttl:        ttl,
		retryDelay: defaultRetryDelay,
		maxRetries: defaultMaxRetries,
	}
}

// Acquire blocks (with bounded retries and backoff) until the lock is
// held or the retry budget is exhausted, whichever comes first.
func (l *Lock) Acquire(ctx context.Context) error {
	for i := 0; i < l.maxRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ok, err := l.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if i < l.maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.retryDelay):
			}
		}
	}

	return ErrLockNotAcquired
}

// TryAcquire attempts to acquire the lock once, without retrying.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("store: acquire lock %s: %w", l.key, err)
	}
	return ok, nil
}

// Release releases the lock if this instance still holds it.
func (l *Lock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("store: release lock %s: %w", l.key, err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend renews the lock's TTL if this instance still holds it.
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("store: extend lock %s: %w", l.key, err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// DomainLockKey returns the coordination-store key for a domain's
// write lock.
func DomainLockKey(domain string) string {
	return "lock:domain:" + domain
}

// SweepStaleDomainLocks deletes every lock:domain:* key. Called once at
// orchestrator startup: any holder from a prior run is assumed dead.
// Returns the number of locks cleared.
func (s *Store) SweepStaleDomainLocks(ctx context.Context) (int, error) {
	var cursor uint64
	cleared := 0

	for {
		keys, next, err := s.client.Scan(ctx, cursor, "lock:domain:*", 500).Result()
		if err != nil {
			return cleared, fmt.Errorf("store: scan stale locks: %w", err)
		}

		if len(keys) > 0 {
			if delErr := s.client.Del(ctx, keys...).Err(); delErr != nil {
				return cleared, fmt.Errorf("store: delete stale locks: %w", delErr)
			}
			cleared += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return cleared, nil
}

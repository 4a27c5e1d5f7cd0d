package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue keys (spec §6.4).
const (
	DomainReadyQueueKey = "domains:queue"
	FetchHandoffKey     = "fetch:queue"
)

// PushTail appends a value to the tail of the named list (LPUSH with a
// fixed head means this must RPUSH so pops come from the opposite end;
// this wrapper always RPUSH/LPOP so "tail-push, head-pop" reads
// naturally at call sites).
func (s *Store) PushTail(ctx context.Context, queue, value string) error {
	if err := s.client.RPush(ctx, queue, value).Err(); err != nil {
		return fmt.Errorf("store: push %s: %w", queue, err)
	}
	return nil
}

// PopHead atomically pops the head of the named list. Returns
// ("", false, nil) when the list is empty.
func (s *Store) PopHead(ctx context.Context, queue string) (string, bool, error) {
	val, err := s.client.LPop(ctx, queue).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: pop %s: %w", queue, err)
	}
	return val, true, nil
}

// BPopHead blocks up to timeout for an item to appear at the head of
// the named list. Returns ("", false, nil) on timeout.
func (s *Store) BPopHead(ctx context.Context, queue string, timeout time.Duration) (string, bool, error) {
	result, err := s.client.BLPop(ctx, timeout, queue).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: blocking pop %s: %w", queue, err)
	}
	// BLPop returns [key, value].
	if len(result) < 2 {
		return "", false, nil
	}
	return result[1], true, nil
}

// Len returns the current length of the named list.
func (s *Store) Len(ctx context.Context, queue string) (int64, error) {
	n, err := s.client.LLen(ctx, queue).Result()
	if err != nil {
		return 0, fmt.Errorf("store: len %s: %w", queue, err)
	}
	return n, nil
}

// Range returns a copy of the list's contents from start to stop
// (inclusive, 0-indexed; -1 means "to the end").
func (s *Store) Range(ctx context.Context, queue string, start, stop int64) ([]string, error) {
	vals, err := s.client.LRange(ctx, queue, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("store: range %s: %w", queue, err)
	}
	return vals, nil
}

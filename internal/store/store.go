// Package store implements the Coordination Store contract over Redis:
// hash records, atomic list queues, a distributed per-domain write
// lock, and persistence for the seen-set bloom filter.
package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// SchemaVersion is the data layout version this build expects.
const SchemaVersion = "1"

// Config holds the coordination store connection settings.
type Config struct {
	Host     string
	Port     int
	DB       int
	Password string
}

// Store wraps a Redis client with the primitives the crawl coordination
// engine needs: domain hashes, the domain-ready and handoff queues, the
// seen-set bloom filter, and per-domain write locks.
type Store struct {
	client *redis.Client
}

// New connects to Redis and returns a Store.
func New(cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		DB:       cfg.DB,
		Password: cfg.Password,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	return &Store{client: client}, nil
}

// Close releases the underlying Redis connection pool.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// Client exposes the raw redis client for callers (e.g. the bloom
// filter persistence helper) that need primitives this wrapper does
// not surface directly.
func (s *Store) Client() *redis.Client {
	return s.client
}

// VerifySchema checks the stored schema version against SchemaVersion.
// If absent, it is set. A mismatch is reported but not treated as fatal
// by the caller (the orchestrator logs it at WARN per spec §7).
func (s *Store) VerifySchema(ctx context.Context) (matched bool, stored string, err error) {
	val, getErr := s.client.Get(ctx, "schema_version").Result()
	switch {
	case getErr == redis.Nil:
		if setErr := s.client.Set(ctx, "schema_version", SchemaVersion, 0).Err(); setErr != nil {
			return false, "", fmt.Errorf("store: set schema version: %w", setErr)
		}
		return true, SchemaVersion, nil
	case getErr != nil:
		return false, "", fmt.Errorf("store: get schema version: %w", getErr)
	default:
		return val == SchemaVersion, val, nil
	}
}

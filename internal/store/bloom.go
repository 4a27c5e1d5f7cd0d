package store

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/arlobridge/crawlcore/internal/constants"
)

// BloomKey is the coordination-store key holding the serialized seen-set.
const BloomKey = "seen:bloom"

// SeenSet wraps an in-process bloom filter. Persist (or
// PersistPeriodically) writes it to the coordination store under a
// distributed lock, and Load rehydrates it from there. See DESIGN.md for why this, rather than a native
// Redis-backed bloom module, was chosen.
type SeenSet struct {
	store    *Store
	mu       sync.Mutex
	filter   *bloom.BloomFilter
	capacity uint
	fpr      float64
}

// NewSeenSet constructs an empty seen-set sized for capacity items at
// the given false-positive rate.
func NewSeenSet(s *Store, capacity uint, fpr float64) *SeenSet {
	if capacity == 0 {
		capacity = constants.DefaultSeenSetCapacity
	}
	if fpr <= 0 {
		fpr = constants.DefaultSeenSetFPR
	}

	return &SeenSet{
		store:    s,
		filter:   bloom.NewWithEstimates(capacity, fpr),
		capacity: capacity,
		fpr:      fpr,
	}
}

// Load rehydrates the filter from the coordination store if present.
// If absent, the caller's freshly-constructed empty filter is kept and
// treated as "all URLs new", per spec §4.1 failure semantics.
func (ss *SeenSet) Load(ctx context.Context) (found bool, err error) {
	data, getErr := ss.store.client.Get(ctx, BloomKey).Bytes()
	if getErr != nil {
		return false, nil //nolint:nilerr // redis.Nil and other read errors both mean "recreate"
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	filter := &bloom.BloomFilter{}
	if _, readErr := filter.ReadFrom(bytes.NewReader(data)); readErr != nil {
		return false, fmt.Errorf("store: decode seen set: %w", readErr)
	}
	ss.filter = filter

	return true, nil
}

// Persist serializes the filter and writes it to the coordination
// store under the bloom lock, so concurrent persisters don't tear a
// partial write.
func (ss *SeenSet) Persist(ctx context.Context) error {
	lock := NewLock(ss.store.client, "lock:bloom", constants.BloomLockTTL)
	if err := lock.Acquire(ctx); err != nil {
		return fmt.Errorf("store: acquire bloom lock: %w", err)
	}
	defer func() { _ = lock.Release(ctx) }()

	ss.mu.Lock()
	var buf bytes.Buffer
	_, writeErr := ss.filter.WriteTo(&buf)
	ss.mu.Unlock()

	if writeErr != nil {
		return fmt.Errorf("store: encode seen set: %w", writeErr)
	}

	if err := ss.store.client.Set(ctx, BloomKey, buf.Bytes(), 0).Err(); err != nil {
		return fmt.Errorf("store: persist seen set: %w", err)
	}
	return nil
}

// TestAndAdd adds url to the filter and reports whether it was new
// (absent before this call).
func (ss *SeenSet) TestAndAdd(url string) (wasNew bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	b := []byte(url)
	if ss.filter.Test(b) {
		return false
	}
	ss.filter.Add(b)
	return true
}

// BulkTest reports, for each URL, whether it is *possibly* already
// seen (a cheap pre-check; false positives mean "treat as seen", false
// negatives never occur). Used by FM to skip taking a domain write
// lock for batches that are obviously entirely already-seen.
func (ss *SeenSet) BulkTest(urls []string) []bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	result := make([]bool, len(urls))
	for i, u := range urls {
		result[i] = ss.filter.Test([]byte(u))
	}
	return result
}

// PersistPeriodically runs Persist on an interval until ctx is done.
// Errors are sent to onErr rather than aborting the loop.
func (ss *SeenSet) PersistPeriodically(ctx context.Context, interval time.Duration, onErr func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ss.Persist(ctx); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}

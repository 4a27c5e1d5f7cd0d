package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/arlobridge/crawlcore/internal/constants"
	"github.com/arlobridge/crawlcore/internal/domain"
	"github.com/arlobridge/crawlcore/internal/logger"
	"github.com/arlobridge/crawlcore/internal/runstate"
	"github.com/arlobridge/crawlcore/internal/store"
)

// statusOK is the only status that always carries a usable body.
const statusOK = 200

// FrontierSource is the subset of the Frontier Manager contract a
// worker needs: get_next_url.
type FrontierSource interface {
	GetNextURL(ctx context.Context) (rawURL, domain string, depth int, ok bool)
}

// Fetcher is the external Fetcher contract (spec §6.1), restricted to
// the page-fetch operation workers use.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Result, error)
}

// HandoffQueue is the subset of the coordination store's list
// primitive a worker needs to push payloads and observe backpressure.
type HandoffQueue interface {
	PushTail(ctx context.Context, queue, value string) error
	Len(ctx context.Context, queue string) (int64, error)
}

// VisitedStore records the outcome of a fetch attempt.
type VisitedStore interface {
	PutVisited(ctx context.Context, rec domain.VisitedRecord) error
}

// WorkerPoolConfig configures a WorkerPool.
type WorkerPoolConfig struct {
	WorkerCount     int
	HandoffQueueKey string
	SoftThreshold   int64
	HardThreshold   int64
}

// WorkerPool is the Fetcher Worker (FW) pool: a cooperative set of
// goroutines draining the domain-ready queue via the Frontier Manager,
// fetching each URL, and pushing the result to the handoff queue for
// Parser Consumers.
type WorkerPool struct {
	frontier FrontierSource
	fetcher  Fetcher
	queue    HandoffQueue
	visited  VisitedStore
	log      logger.Interface
	run      *runstate.State
	cfg      WorkerPoolConfig
}

// NewWorkerPool constructs a WorkerPool.
func NewWorkerPool(
	frontier FrontierSource,
	fetcher Fetcher,
	queue HandoffQueue,
	visited VisitedStore,
	log logger.Interface,
	run *runstate.State,
	cfg WorkerPoolConfig,
) *WorkerPool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = constants.DefaultWorkerCount
	}
	if cfg.HandoffQueueKey == "" {
		cfg.HandoffQueueKey = store.FetchHandoffKey
	}
	if cfg.SoftThreshold <= 0 {
		cfg.SoftThreshold = constants.DefaultHandoffSoftThreshold
	}
	if cfg.HardThreshold <= 0 {
		cfg.HardThreshold = constants.DefaultHandoffHardThreshold
	}

	return &WorkerPool{
		frontier: frontier,
		fetcher:  fetcher,
		queue:    queue,
		visited:  visited,
		log:      log,
		run:      run,
		cfg:      cfg,
	}
}

// Start launches WorkerCount goroutines and blocks until ctx is
// cancelled or the shared run state signals a global stop.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.log.Info("starting fetcher worker pool", "worker_count", wp.cfg.WorkerCount)

	var wg sync.WaitGroup
	for i := range wp.cfg.WorkerCount {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			wp.loop(ctx, workerID)
		}(i)
	}
	wg.Wait()

	wp.log.Info("fetcher worker pool stopped")
}

// loop is a single worker's cooperative task loop (spec §4.4).
func (wp *WorkerPool) loop(ctx context.Context, workerID int) {
	for {
		if ctx.Err() != nil || wp.run.ShouldStop() {
			return
		}

		rawURL, d, depth, ok := wp.frontier.GetNextURL(ctx)
		if !ok {
			if sleepOrDone(ctx, randomDuration(constants.EmptyQueueBackoffMin, constants.EmptyQueueBackoffMax)) {
				return
			}
			continue
		}

		if wp.awaitBackpressureClearance(ctx) {
			return
		}
		if wp.handoffBlocked(ctx) {
			// Hard backpressure already slept; this URL is not fetched.
			// Record it so the drop is observable rather than silent.
			wp.recordSkipped(ctx, rawURL, d, "backpressure_dropped")
			continue
		}

		wp.fetchAndHandoff(ctx, workerID, rawURL, d, depth)
	}
}

// awaitBackpressureClearance blocks (re-checking periodically) while
// the handoff queue is above the soft threshold. Returns true if ctx
// was cancelled while waiting.
func (wp *WorkerPool) awaitBackpressureClearance(ctx context.Context) bool {
	for {
		n, err := wp.queue.Len(ctx, wp.cfg.HandoffQueueKey)
		if err != nil {
			wp.log.Warn("fetcher: handoff queue length check failed", "error", err.Error())
			return false
		}
		if n <= wp.cfg.SoftThreshold {
			return false
		}
		if n > wp.cfg.HardThreshold {
			return false // hard case is handled by the caller
		}
		if sleepOrDone(ctx, randomDuration(constants.SoftBackpressureBackoffMin, constants.SoftBackpressureBackoffMax)) {
			return true
		}
	}
}

// handoffBlocked reports whether the handoff queue is still above the
// hard threshold, sleeping the hard backoff first if so.
func (wp *WorkerPool) handoffBlocked(ctx context.Context) bool {
	n, err := wp.queue.Len(ctx, wp.cfg.HandoffQueueKey)
	if err != nil {
		return false
	}
	if n <= wp.cfg.HardThreshold {
		return false
	}
	sleepOrDone(ctx, randomDuration(constants.HardBackpressureBackoffMin, constants.HardBackpressureBackoffMax))
	return true
}

func (wp *WorkerPool) fetchAndHandoff(ctx context.Context, workerID int, rawURL, d string, depth int) {
	result, err := wp.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		wp.log.Info("fetcher: fetch failed", "worker_id", workerID, "url", rawURL, "error", err.Error())
		wp.recordError(ctx, rawURL, d, err.Error())
		return
	}

	if len(result.RawBody) == 0 && result.StatusCode != statusOK {
		wp.recordError(ctx, rawURL, d, fmt.Sprintf("http status %d", result.StatusCode))
		return
	}

	payload := domain.HandoffPayload{
		InitialURL:  result.InitialURL,
		FinalURL:    result.FinalURL,
		Status:      result.StatusCode,
		Domain:      d,
		Depth:       depth,
		FetchedAt:   time.Now().Unix(),
		ContentType: result.ContentType,
		RawBody:     result.RawBody,
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		wp.log.Error("fetcher: encode handoff payload failed", "url", rawURL, "error", err.Error())
		return
	}

	if err := wp.queue.PushTail(ctx, wp.cfg.HandoffQueueKey, string(encoded)); err != nil {
		wp.log.Error("fetcher: push handoff payload failed", "url", rawURL, "error", err.Error())
		return
	}

	wp.run.RecordPage()
}

func (wp *WorkerPool) recordError(ctx context.Context, rawURL, d, errMsg string) {
	sum := sha256.Sum256([]byte(rawURL))
	hash := hex.EncodeToString(sum[:])

	if err := wp.visited.PutVisited(ctx, domain.VisitedRecord{
		URL:       rawURL,
		URLSHA256: hash,
		Domain:    d,
		FetchedAt: time.Now(),
		Error:     errMsg,
	}); err != nil {
		wp.log.Error("fetcher: record visited error failed", "url", rawURL, "error", err.Error())
	}

	wp.run.RecordError()
}

func (wp *WorkerPool) recordSkipped(ctx context.Context, rawURL, d, reason string) {
	wp.recordError(ctx, rawURL, d, reason)
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return true
	case <-time.After(d):
		return false
	}
}

func randomDuration(minD, maxD time.Duration) time.Duration {
	if maxD <= minD {
		return minD
	}
	return minD + time.Duration(rand.Int64N(int64(maxD-minD)))
}

package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/arlobridge/crawlcore/internal/constants"
	"github.com/arlobridge/crawlcore/internal/domain"
	"github.com/arlobridge/crawlcore/internal/logger"
	"github.com/arlobridge/crawlcore/internal/runstate"
	"github.com/arlobridge/crawlcore/internal/store"
)

// HandoffQueue is the subset of the coordination store's list
// primitive a consumer needs to drain the fetch handoff queue.
type HandoffQueue interface {
	BPopHead(ctx context.Context, queue string, timeout time.Duration) (string, bool, error)
}

// ContentSaver implements the storage contract's save_text operation.
type ContentSaver interface {
	SaveText(url, text string) (path string, ok bool, err error)
}

// VisitedStore records the outcome of a parse.
type VisitedStore interface {
	PutVisited(ctx context.Context, rec domain.VisitedRecord) error
}

// FrontierSink is the subset of the Frontier Manager contract a
// consumer needs to re-add discovered links.
type FrontierSink interface {
	AddURLs(ctx context.Context, urls []string, depth int) (int, error)
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	TaskCount       int
	HandoffQueueKey string
	PopTimeout      time.Duration
}

// Consumer is the Parser Consumer (PC): a cooperative task pool that
// drains the fetch handoff queue, parses each payload, persists
// extracted text, writes the visited record, and feeds discovered
// links back to the Frontier Manager (spec §4.5).
type Consumer struct {
	queue    HandoffQueue
	content  ContentSaver
	visited  VisitedStore
	frontier FrontierSink
	log      logger.Interface
	run      *runstate.State
	cfg      ConsumerConfig
}

// NewConsumer constructs a Consumer.
func NewConsumer(
	queue HandoffQueue,
	content ContentSaver,
	visited VisitedStore,
	frontier FrontierSink,
	log logger.Interface,
	run *runstate.State,
	cfg ConsumerConfig,
) *Consumer {
	if cfg.TaskCount <= 0 {
		cfg.TaskCount = constants.DefaultParserWorkerCount
	}
	if cfg.HandoffQueueKey == "" {
		cfg.HandoffQueueKey = store.FetchHandoffKey
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = constants.HandoffPopTimeout
	}

	return &Consumer{
		queue:    queue,
		content:  content,
		visited:  visited,
		frontier: frontier,
		log:      log,
		run:      run,
		cfg:      cfg,
	}
}

// Run launches cfg.TaskCount goroutines and blocks until ctx is
// cancelled or the shared run state signals a global stop.
func (c *Consumer) Run(ctx context.Context) {
	c.log.Info("starting parser consumer", "task_count", c.cfg.TaskCount)

	var wg sync.WaitGroup
	for i := range c.cfg.TaskCount {
		wg.Add(1)
		go func(taskID int) {
			defer wg.Done()
			c.loop(ctx, taskID)
		}(i)
	}
	wg.Wait()

	c.log.Info("parser consumer stopped")
}

func (c *Consumer) loop(ctx context.Context, taskID int) {
	for {
		if ctx.Err() != nil || c.run.ShouldStop() {
			return
		}

		raw, ok, err := c.queue.BPopHead(ctx, c.cfg.HandoffQueueKey, c.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("parser: handoff pop failed", "task_id", taskID, "error", err.Error())
			continue
		}
		if !ok {
			continue // timed out waiting; re-check stop conditions
		}

		var payload domain.HandoffPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			c.log.Error("parser: malformed handoff payload", "task_id", taskID, "error", err.Error())
			continue
		}

		c.process(ctx, payload)
	}
}

// process implements the five-step loop body of spec §4.5 for one payload.
func (c *Consumer) process(ctx context.Context, payload domain.HandoffPayload) {
	parsed := Parse(payload.RawBody, payload.FinalURL, payload.ContentType)

	rec := domain.VisitedRecord{
		URL:        payload.InitialURL,
		URLSHA256:  sha256Hex(payload.InitialURL),
		Domain:     payload.Domain,
		StatusCode: payload.Status,
		FetchedAt:  time.Unix(payload.FetchedAt, 0),
	}
	if payload.FinalURL != payload.InitialURL {
		rec.RedirectedTo = payload.FinalURL
	}

	if path, ok, err := c.content.SaveText(payload.InitialURL, parsed.Text); err != nil {
		c.log.Warn("parser: save text failed", "url", payload.InitialURL, "error", err.Error())
	} else if ok {
		rec.ContentPath = path
		rec.ContentHash = sha256Hex(parsed.Text)
	}

	if err := c.visited.PutVisited(ctx, rec); err != nil {
		c.log.Error("parser: write visited record failed", "url", payload.InitialURL, "error", err.Error())
	}

	if len(parsed.DiscoveredLinks) == 0 {
		return
	}
	if _, err := c.frontier.AddURLs(ctx, parsed.DiscoveredLinks, payload.Depth+1); err != nil {
		c.log.Warn("parser: add discovered links failed", "url", payload.InitialURL, "error", err.Error())
	}
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

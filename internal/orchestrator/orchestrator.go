// Package orchestrator implements the Orchestrator (OR): startup
// sequence, monitoring loop, and graceful shutdown (spec §4.6).
// Grounded on the teacher's internal/bootstrap package (phase
// structure in app.go, signal handling in lifecycle.go), generalized
// from the teacher's Elasticsearch/Postgres/feed-poller phases to the
// crawl engine's own: config → logger → CS connect → zombie-lock sweep
// → PE init → FM init → spawn parser processes → spawn fetcher workers
// → monitoring loop → signal-driven graceful shutdown.
package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/arlobridge/crawlcore/internal/config"
	"github.com/arlobridge/crawlcore/internal/constants"
	"github.com/arlobridge/crawlcore/internal/fetcher"
	"github.com/arlobridge/crawlcore/internal/frontier"
	"github.com/arlobridge/crawlcore/internal/httpd"
	"github.com/arlobridge/crawlcore/internal/logger"
	"github.com/arlobridge/crawlcore/internal/metrics"
	"github.com/arlobridge/crawlcore/internal/politeness"
	"github.com/arlobridge/crawlcore/internal/runstate"
	"github.com/arlobridge/crawlcore/internal/store"
)

// signalChannelBufferSize matches the teacher's lifecycle.go sizing.
const signalChannelBufferSize = 1

// Orchestrator wires the Frontier Manager, Politeness Enforcer, Fetcher
// Worker pool, parser-process supervisor, metrics, and admin HTTP
// server into one runnable process.
type Orchestrator struct {
	cfg *config.Config
	log logger.Interface

	store    *store.Store
	pe       *politeness.Enforcer
	frontier *frontier.Manager
	run      *runstate.State
	metrics  *metrics.Metrics
	admin    *httpd.Server
	workers  *fetcher.WorkerPool
	parsers  *ParserSupervisor

	// syncedPages and syncedErrors are the last runstate counter values
	// folded into the Prometheus counters, so tick can Add the delta
	// (prometheus.Counter has no Set).
	syncedPages  int64
	syncedErrors int64
}

// New runs the Orchestrator's startup sequence (spec §4.6 steps 1-6):
// connect to the coordination store, sweep stale domain locks,
// initialize the Politeness Enforcer and Frontier Manager.
func New(ctx context.Context, cfg *config.Config, log logger.Interface) (*Orchestrator, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("orchestrator: create data dir: %w", err)
	}

	s, err := store.New(store.Config{Host: cfg.CSHost, Port: cfg.CSPort, DB: cfg.CSDB, Password: cfg.CSPassword})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: connect to coordination store: %w", err)
	}

	matched, stored, err := s.VerifySchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: verify schema: %w", err)
	}
	if !matched {
		log.Warn("coordination store schema version mismatch", "stored", stored, "expected", store.SchemaVersion)
	}

	cleared, err := s.SweepStaleDomainLocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: sweep stale domain locks: %w", err)
	}
	log.Info("swept stale domain locks", "count", cleared)

	httpFetcher := fetcher.NewHTTPFetcher(fetcher.ClientConfig{
		UserAgent:          cfg.UserAgent(),
		RequestTimeout:     cfg.RequestTimeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})

	pe, err := politeness.New(s, httpFetcher, log, politeness.Config{
		UserAgent:      cfg.UserAgent(),
		SeededURLsOnly: cfg.SeededURLsOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: init politeness enforcer: %w", err)
	}

	excluded, err := readLines(cfg.ExcludeFile)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read exclude file: %w", err)
	}
	if err := pe.Initialize(ctx, excluded); err != nil {
		return nil, fmt.Errorf("orchestrator: apply exclusions: %w", err)
	}

	seeds, err := readLines(cfg.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read seed file: %w", err)
	}

	fm := frontier.New(s, pe, log, frontier.Config{
		DataDir:         cfg.DataDir,
		SeedURLs:        seeds,
		SeenSetCapacity: cfg.SeenSetCapacity,
		SeenSetFPR:      cfg.SeenSetFPR,
	})
	if err := fm.Initialize(ctx, cfg.Resume); err != nil {
		return nil, fmt.Errorf("orchestrator: init frontier manager: %w", err)
	}

	run := runstate.New(cfg.MaxPages, cfg.MaxDuration)
	m := metrics.New()
	m.ActiveWorkers.Set(float64(cfg.MaxWorkers))
	m.ParserProcesses.Set(float64(cfg.ParserProcesses))

	workers := fetcher.NewWorkerPool(fm, httpFetcher, s, s, log, run, fetcher.WorkerPoolConfig{
		WorkerCount:   cfg.MaxWorkers,
		SoftThreshold: cfg.HandoffSoftThreshold,
		HardThreshold: cfg.HandoffHardThreshold,
	})

	parsers, err := NewParserSupervisor(log, cfg.ParserProcesses)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: init parser supervisor: %w", err)
	}

	admin := httpd.New(cfg.HTTPAddr, m, run, log)

	return &Orchestrator{
		cfg:      cfg,
		log:      log,
		store:    s,
		pe:       pe,
		frontier: fm,
		run:      run,
		metrics:  m,
		admin:    admin,
		workers:  workers,
		parsers:  parsers,
	}, nil
}

// Run spawns parser processes and fetcher workers (spec §4.6 steps
// 7-8), then blocks in the monitoring loop (step 9) until a stop
// signal, a configured stop condition, or an unrecoverable server
// error occurs, then shuts down in order.
func (o *Orchestrator) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.parsers.Start(runCtx)

	workersDone := make(chan struct{})
	go func() {
		o.workers.Start(runCtx)
		close(workersDone)
	}()

	errChan := o.admin.Start()

	sigChan := make(chan os.Signal, signalChannelBufferSize)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	o.monitorUntilStop(runCtx, sigChan, errChan)

	return o.shutdown(cancel, workersDone)
}

// monitorUntilStop is the monitoring loop of spec §4.6: publish
// gauges, detect global stop conditions, health-check parser
// processes, once per constants.DefaultMonitorInterval, until a
// signal, a server error, or ShouldStop() fires.
func (o *Orchestrator) monitorUntilStop(ctx context.Context, sigChan <-chan os.Signal, errChan <-chan error) {
	ticker := time.NewTicker(constants.DefaultMonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			o.log.Info("shutdown signal received", "signal", sig.String())
			return
		case err := <-errChan:
			o.log.Error("admin server error", "error", err.Error())
			return
		case <-ticker.C:
			o.tick(ctx)
			if o.run.ShouldStop() {
				o.log.Info("global stop condition reached",
					"pages_crawled", o.run.PagesCrawled(), "elapsed", o.run.Elapsed().String())
				return
			}
		}
	}
}

func (o *Orchestrator) tick(ctx context.Context) {
	o.syncCounters()

	if rssBytes, openFDs, err := metrics.ReadProcessStats(); err != nil {
		o.log.Warn("read process stats failed", "error", err.Error())
	} else {
		o.metrics.ProcessRSSBytes.Set(rssBytes)
		o.metrics.OpenFDs.Set(openFDs)
	}

	if n, err := o.store.Len(ctx, store.FetchHandoffKey); err == nil {
		o.metrics.HandoffDepth.Set(float64(n))
	}
	o.parsers.HealthCheck(ctx)

	o.checkFrontierExhausted(ctx)
}

// checkFrontierExhausted implements the frontier-exhaustion stop of
// spec §4.6/§8.2. A truly empty ready queue stops immediately; a ready
// queue that still has entries but has not yielded a URL in
// constants.FrontierIdleStopWindow is cycling only exhausted domains
// (§4.1's unconditional re-enqueue means IsEmpty alone never catches
// this case) and is treated the same way.
func (o *Orchestrator) checkFrontierExhausted(ctx context.Context) {
	if empty, err := o.frontier.IsEmpty(ctx); err == nil && empty {
		o.log.Info("frontier ready queue empty, stopping")
		o.run.RequestStop()
		return
	}

	if idle := o.frontier.IdleFor(); idle >= constants.FrontierIdleStopWindow {
		o.log.Info("frontier idle past stop window, stopping", "idle", idle.String())
		o.run.RequestStop()
	}
}

// syncCounters folds runstate's authoritative page and error counts
// into the Prometheus counters. runstate.State is updated directly by
// fetcher workers (worker.go's RecordPage/RecordError); the Prometheus
// side only ever sees deltas applied here, since prometheus.Counter
// has no Set.
func (o *Orchestrator) syncCounters() {
	pages := o.run.PagesCrawled()
	if delta := pages - o.syncedPages; delta > 0 {
		o.metrics.PagesCrawled.Add(float64(delta))
		o.syncedPages = pages
	}

	errs := o.run.FetchErrors()
	if delta := errs - o.syncedErrors; delta > 0 {
		o.metrics.FetchErrors.Add(float64(delta))
		o.syncedErrors = errs
	}
}

// shutdown implements spec §4.6's ordered stop: stop accepting new
// work, let in-flight iterations finish, drain workers, signal parser
// processes to flush and exit, close the coordination store.
func (o *Orchestrator) shutdown(cancel context.CancelFunc, workersDone <-chan struct{}) error {
	o.run.RequestStop()
	cancel()

	select {
	case <-workersDone:
	case <-time.After(constants.DefaultShutdownGrace):
		o.log.Warn("fetcher worker pool did not stop within grace period")
	}

	o.parsers.Stop()

	if err := o.admin.Shutdown(context.Background()); err != nil {
		o.log.Error("admin server shutdown failed", "error", err.Error())
	}

	if err := o.store.Close(); err != nil {
		o.log.Error("coordination store close failed", "error", err.Error())
	}

	o.log.Info("orchestrator stopped", "pages_crawled", o.run.PagesCrawled(), "elapsed", o.run.Elapsed().String())
	return nil
}

// readLines reads a newline-separated file into a slice, trimming
// whitespace and skipping blank lines and '#' comments. An empty path
// yields an empty, non-error result.
func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read lines from %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return lines, nil
}

// Package runstate holds the small piece of shared, lock-free state
// that every Fetcher Worker and Parser Consumer task polls to decide
// whether to keep looping: page count, elapsed time, and an explicit
// shutdown flag. It is deliberately not part of internal/orchestrator
// so that internal/fetcher and internal/parser can depend on it
// without importing the orchestrator itself.
package runstate

import (
	"sync/atomic"
	"time"
)

// State tracks the global stopping conditions shared across all
// fetcher and parser tasks in this process.
type State struct {
	started      time.Time
	maxPages     int64
	maxDuration  time.Duration
	pagesCrawled atomic.Int64
	fetchErrors  atomic.Int64
	stopping     atomic.Bool
}

// New constructs a State. maxPages <= 0 means unbounded; maxDuration
// <= 0 means unbounded.
func New(maxPages int64, maxDuration time.Duration) *State {
	return &State{
		started:     time.Now(),
		maxPages:    maxPages,
		maxDuration: maxDuration,
	}
}

// RecordPage increments the crawled-page counter. Called once per
// successfully handed-off fetch.
func (s *State) RecordPage() {
	s.pagesCrawled.Add(1)
}

// PagesCrawled returns the current page count, for monitoring.
func (s *State) PagesCrawled() int64 {
	return s.pagesCrawled.Load()
}

// RecordError increments the fetch-error counter. Called once per
// fetch attempt that ends in an error or skip visited record.
func (s *State) RecordError() {
	s.fetchErrors.Add(1)
}

// FetchErrors returns the current fetch-error count, for monitoring.
func (s *State) FetchErrors() int64 {
	return s.fetchErrors.Load()
}

// RequestStop sets the explicit shutdown flag. Idempotent.
func (s *State) RequestStop() {
	s.stopping.Store(true)
}

// Stopping reports whether shutdown has been requested explicitly.
func (s *State) Stopping() bool {
	return s.stopping.Load()
}

// ShouldStop reports whether any global stopping condition holds:
// an explicit stop request, max_pages reached, or max_duration elapsed.
func (s *State) ShouldStop() bool {
	if s.stopping.Load() {
		return true
	}
	if s.maxPages > 0 && s.pagesCrawled.Load() >= s.maxPages {
		return true
	}
	if s.maxDuration > 0 && time.Since(s.started) >= s.maxDuration {
		return true
	}
	return false
}

// Elapsed returns the time since the state was created.
func (s *State) Elapsed() time.Duration {
	return time.Since(s.started)
}

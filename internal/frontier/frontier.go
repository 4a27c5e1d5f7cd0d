package frontier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arlobridge/crawlcore/internal/constants"
	"github.com/arlobridge/crawlcore/internal/domain"
	"github.com/arlobridge/crawlcore/internal/logger"
	"github.com/arlobridge/crawlcore/internal/store"
)

// PolitenessEnforcer is the subset of the Politeness Enforcer contract
// the Frontier Manager depends on.
type PolitenessEnforcer interface {
	IsURLAllowed(ctx context.Context, rawURL string, isSeeded func(domain string) bool) (bool, error)
	CanFetchDomainNow(ctx context.Context, d string) (bool, error)
	RecordFetchAttempt(ctx context.Context, d string) error
}

// Config configures a Manager.
type Config struct {
	DataDir         string
	SeedURLs        []string
	SeenSetCapacity uint
	SeenSetFPR      float64
}

// Manager is the Frontier Manager (FM): adds URLs to the frontier
// files, hands out the next eligible URL, maintains the domain-ready
// queue, and owns the per-domain write locks.
type Manager struct {
	store   *store.Store
	seen    *store.SeenSet
	pe      PolitenessEnforcer
	log     logger.Interface
	dataDir string
	seeds   []string

	readLocksMu sync.Mutex
	readLocks   map[string]*sync.Mutex

	// lastYield is the unix-nano timestamp GetNextURL last handed out a
	// URL. A domain with no usable frontier entries left is re-enqueued
	// unconditionally (spec §4.1), so the ready queue itself never
	// drains to empty on exhaustion; IdleFor is how callers detect that
	// the frontier is cycling exhausted domains rather than making
	// progress (spec §4.6/§8.2).
	lastYield atomic.Int64
}

// New constructs a Manager. It does not touch disk or the
// coordination store; call Initialize before use.
func New(s *store.Store, pe PolitenessEnforcer, log logger.Interface, cfg Config) *Manager {
	m := &Manager{
		store:     s,
		seen:      store.NewSeenSet(s, cfg.SeenSetCapacity, cfg.SeenSetFPR),
		pe:        pe,
		log:       log,
		dataDir:   cfg.DataDir,
		seeds:     cfg.SeedURLs,
		readLocks: make(map[string]*sync.Mutex),
	}
	m.lastYield.Store(time.Now().UnixNano())
	return m
}

// Initialize implements initialize(resume). If the bloom filter is
// absent from the coordination store, the freshly constructed empty
// filter built by New is kept (spec §4.1 failure semantics: absence
// means "treat everything as new"). If resume is requested and the
// domain-ready queue is non-empty, existing state is left intact;
// otherwise all coordination-store keys and frontier files are wiped
// and the seed URLs are loaded at depth 0.
func (m *Manager) Initialize(ctx context.Context, resume bool) error {
	if _, err := m.seen.Load(ctx); err != nil {
		return fmt.Errorf("frontier: load seen set: %w", err)
	}

	if resume {
		empty, err := m.IsEmpty(ctx)
		if err == nil && !empty {
			return nil
		}
	}

	if err := m.Reset(ctx); err != nil {
		return err
	}

	if len(m.seeds) == 0 {
		return nil
	}

	if _, err := m.addURLs(ctx, m.seeds, 0, true); err != nil {
		return fmt.Errorf("frontier: load seeds: %w", err)
	}

	return nil
}

// Reset implements the explicit "new crawl" reset (spec §3.3,
// supplemented by SPEC_FULL.md §10): wipes domain records, the
// domain-ready and handoff queues, the bloom filter, and every
// frontier file on disk. It does not reload seeds; callers that want
// a fresh crawl call Initialize afterward.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.store.ResetAll(ctx); err != nil {
		return fmt.Errorf("frontier: reset coordination store: %w", err)
	}

	dir := filepath.Join(m.dataDir, "frontiers")
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("frontier: remove frontier files: %w", err)
	}

	return nil
}

// AddURLs implements add_urls(urls, depth) → count_added.
func (m *Manager) AddURLs(ctx context.Context, urls []string, depth int) (int, error) {
	return m.addURLs(ctx, urls, depth, false)
}

type candidate struct {
	url    string
	depth  int
	domain string
}

// addURLs is the shared implementation behind AddURLs and seed
// loading. seeded marks every surviving candidate's domain as
// is_seeded in the coordination store and makes is_url_allowed treat
// the domain as seeded for the duration of this call — seed URLs must
// be allowed even when seeded_urls_only is set, before any domain
// record exists to say so.
func (m *Manager) addURLs(ctx context.Context, urls []string, depth int, seeded bool) (int, error) {
	candidates := m.normalizeAndFilter(urls, depth)
	if len(candidates) == 0 {
		return 0, nil
	}

	candidates = m.filterSeen(candidates)
	if len(candidates) == 0 {
		return 0, nil
	}

	candidates, err := m.filterAllowed(ctx, candidates, seeded)
	if err != nil {
		return 0, err
	}

	byDomain := make(map[string][]candidate)
	for _, c := range candidates {
		byDomain[c.domain] = append(byDomain[c.domain], c)
	}

	total := 0
	for d, group := range byDomain {
		added, err := m.addDomainGroup(ctx, d, group, seeded)
		if err != nil {
			m.log.Error("frontier: add url batch failed for domain", "domain", d, "error", err.Error())
			continue
		}
		total += added
	}

	return total, nil
}

func (m *Manager) normalizeAndFilter(urls []string, depth int) []candidate {
	candidates := make([]candidate, 0, len(urls))

	for _, raw := range urls {
		normalized, err := NormalizeURL(raw)
		if err != nil {
			continue
		}

		if hasNonTextExtension(normalized) {
			continue
		}

		d, err := domainForURL(normalized)
		if err != nil || d == "" {
			continue
		}

		candidates = append(candidates, candidate{url: normalized, depth: depth, domain: d})
	}

	return candidates
}

func (m *Manager) filterSeen(candidates []candidate) []candidate {
	urls := make([]string, len(candidates))
	for i, c := range candidates {
		urls[i] = c.url
	}

	maybeSeen := m.seen.BulkTest(urls)

	kept := candidates[:0:0]
	for i, c := range candidates {
		if !maybeSeen[i] {
			kept = append(kept, c)
		}
	}

	return kept
}

func (m *Manager) filterAllowed(ctx context.Context, candidates []candidate, seeded bool) ([]candidate, error) {
	isSeeded := m.isSeeded
	if seeded {
		isSeeded = func(string) bool { return true }
	}

	kept := candidates[:0:0]
	for _, c := range candidates {
		allowed, err := m.pe.IsURLAllowed(ctx, c.url, isSeeded)
		if err != nil {
			m.log.Warn("frontier: is_url_allowed failed, dropping candidate", "url", c.url, "error", err.Error())
			continue
		}
		if allowed {
			kept = append(kept, c)
		}
	}

	return kept, nil
}

func (m *Manager) isSeeded(d string) bool {
	rec, found, err := m.store.GetDomain(context.Background(), d)
	if err != nil || !found {
		return false
	}
	return rec.IsSeeded
}

// addDomainGroup performs steps 1-5 of add_urls for a single domain:
// acquire the write lock, add-and-check against the seen set, append
// survivors to the frontier file, update the coordination store, and
// enqueue the domain if anything new landed.
func (m *Manager) addDomainGroup(ctx context.Context, d string, group []candidate, seeded bool) (int, error) {
	lock := store.NewLock(m.store.Client(), store.DomainLockKey(d), constants.DomainLockTTL)
	if err := lock.Acquire(ctx); err != nil {
		m.log.Warn("frontier: write lock contended, skipping domain for this batch", "domain", d)
		return 0, nil //nolint:nilerr // per spec §4.1: skip this domain, do not abort the whole batch
	}
	defer func() { _ = lock.Release(ctx) }()

	entries := make([]domain.FrontierEntry, 0, len(group))
	for _, c := range group {
		if m.seen.TestAndAdd(c.url) {
			entries = append(entries, domain.FrontierEntry{URL: c.url, Depth: c.depth})
		}
	}

	if len(entries) == 0 {
		if seeded {
			if err := m.store.SetDomainFields(ctx, d, map[string]any{"is_seeded": "1"}); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}

	filePath := filePathForDomain(m.dataDir, d)

	newSize, err := appendEntries(filePath, entries)
	if err != nil {
		return 0, fmt.Errorf("frontier: append entries for %s: %w", d, err)
	}

	fields := map[string]any{
		"file_path":     filePath,
		"frontier_size": newSize,
	}
	if seeded {
		fields["is_seeded"] = "1"
	}

	if err := m.store.SetDomainFields(ctx, d, fields); err != nil {
		return 0, fmt.Errorf("frontier: update domain record for %s: %w", d, err)
	}
	if err := m.store.SetDomainFieldIfAbsent(ctx, d, "frontier_offset", int64(0)); err != nil {
		return 0, fmt.Errorf("frontier: init frontier offset for %s: %w", d, err)
	}

	if err := m.store.PushTail(ctx, store.DomainReadyQueueKey, d); err != nil {
		return 0, fmt.Errorf("frontier: enqueue domain %s: %w", d, err)
	}

	return len(entries), nil
}

// GetNextURL implements get_next_url() → (url, domain, depth) | None.
func (m *Manager) GetNextURL(ctx context.Context) (rawURL, d string, depth int, ok bool) {
	d, found, err := m.store.PopHead(ctx, store.DomainReadyQueueKey)
	if err != nil {
		m.log.Error("frontier: pop domain-ready queue failed", "error", err.Error())
		return "", "", 0, false
	}
	if !found {
		return "", "", 0, false
	}

	fetchable, err := m.pe.CanFetchDomainNow(ctx, d)
	if err != nil {
		m.log.Warn("frontier: can_fetch_domain_now failed, re-enqueuing", "domain", d, "error", err.Error())
	}
	if err != nil || !fetchable {
		m.requeue(ctx, d)
		return "", "", 0, false
	}

	entry, found, err := m.readAllowedURL(ctx, d)
	if err != nil {
		m.log.Error("frontier: read frontier file failed, re-enqueuing", "domain", d, "error", err.Error())
		m.requeue(ctx, d)
		return "", "", 0, false
	}
	if !found {
		m.requeue(ctx, d)
		return "", "", 0, false
	}

	if err := m.pe.RecordFetchAttempt(ctx, d); err != nil {
		m.log.Warn("frontier: record_fetch_attempt failed", "domain", d, "error", err.Error())
	}
	m.requeue(ctx, d)

	m.lastYield.Store(time.Now().UnixNano())
	return entry.URL, d, entry.Depth, true
}

func (m *Manager) requeue(ctx context.Context, d string) {
	if err := m.store.PushTail(ctx, store.DomainReadyQueueKey, d); err != nil {
		m.log.Error("frontier: re-enqueue domain failed", "domain", d, "error", err.Error())
	}
}

// readAllowedURL implements §4.1.2 plus the is_url_allowed recheck:
// under the domain's process-local read lock, advance through the
// frontier file until a URL both extension-admissible (already
// enforced by readNextEntry) and currently allowed by PE is found, or
// the file is exhausted.
func (m *Manager) readAllowedURL(ctx context.Context, d string) (domain.FrontierEntry, bool, error) {
	lock := m.readLockFor(d)
	lock.Lock()
	defer lock.Unlock()

	rec, found, err := m.store.GetDomain(ctx, d)
	if err != nil {
		return domain.FrontierEntry{}, false, fmt.Errorf("frontier: read domain record for %s: %w", d, err)
	}
	if !found {
		return domain.FrontierEntry{}, false, nil
	}

	offset := rec.FrontierOffset
	size := rec.FrontierSize

	for {
		entry, nextOffset, ok, err := readNextEntry(rec.FilePath, offset, size)
		if err != nil {
			return domain.FrontierEntry{}, false, err
		}

		offset = nextOffset

		if !ok {
			if persistErr := m.store.SetDomainFields(ctx, d, map[string]any{"frontier_offset": offset}); persistErr != nil {
				return domain.FrontierEntry{}, false, persistErr
			}
			return domain.FrontierEntry{}, false, nil
		}

		allowed, allowErr := m.pe.IsURLAllowed(ctx, entry.URL, m.isSeeded)
		if allowErr != nil {
			m.log.Warn("frontier: is_url_allowed recheck failed, skipping url", "url", entry.URL, "error", allowErr.Error())
			continue
		}
		if !allowed {
			continue
		}

		if persistErr := m.store.SetDomainFields(ctx, d, map[string]any{"frontier_offset": offset}); persistErr != nil {
			return domain.FrontierEntry{}, false, persistErr
		}
		return entry, true, nil
	}
}

func (m *Manager) readLockFor(d string) *sync.Mutex {
	m.readLocksMu.Lock()
	defer m.readLocksMu.Unlock()

	lock, ok := m.readLocks[d]
	if !ok {
		lock = &sync.Mutex{}
		m.readLocks[d] = lock
	}
	return lock
}

// IsEmpty implements is_empty() → bool.
func (m *Manager) IsEmpty(ctx context.Context) (bool, error) {
	n, err := m.store.Len(ctx, store.DomainReadyQueueKey)
	if err != nil {
		return false, fmt.Errorf("frontier: check ready queue length: %w", err)
	}
	return n == 0, nil
}

// IdleFor returns how long it has been since GetNextURL last yielded a
// URL. A domain-ready queue that still has entries but never yields
// (every domain's frontier file is exhausted and only cycling through
// requeue) never reaches IsEmpty; a sustained IdleFor is the signal
// that the frontier is actually drained.
func (m *Manager) IdleFor() time.Duration {
	return time.Since(time.Unix(0, m.lastYield.Load()))
}

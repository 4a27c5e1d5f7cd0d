// Package politeness implements the Politeness Enforcer (PE): robots.txt
// fetch/parse/cache, crawl-delay accounting, manual exclusions, and
// next-fetch-time bookkeeping.
package politeness

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/temoto/robotstxt"

	"github.com/arlobridge/crawlcore/internal/constants"
	"github.com/arlobridge/crawlcore/internal/domain"
	"github.com/arlobridge/crawlcore/internal/logger"
	"github.com/arlobridge/crawlcore/internal/store"
)

// Fetcher is the subset of the external Fetcher contract PE needs: a
// plain HTTP GET used only to retrieve robots.txt bodies.
type Fetcher interface {
	FetchText(ctx context.Context, rawURL string) (body string, statusCode int, err error)
}

type robotsCacheEntry struct {
	rules *robotstxt.RobotsData
}

// Enforcer is the Politeness Enforcer.
type Enforcer struct {
	store            *store.Store
	fetcher          Fetcher
	log              logger.Interface
	userAgent        string
	seededURLsOnly   bool
	robotsCache      *lru.Cache[string, robotsCacheEntry]
	exclusionCache   *lru.Cache[string, bool]
	cacheTTL         time.Duration
}

// Config configures the Enforcer.
type Config struct {
	UserAgent         string
	SeededURLsOnly    bool
	RobotsCacheSize   int
	ExclusionCacheSize int
	RobotsCacheTTL    time.Duration
}

// New constructs an Enforcer.
func New(s *store.Store, fetcher Fetcher, log logger.Interface, cfg Config) (*Enforcer, error) {
	if cfg.RobotsCacheSize <= 0 {
		cfg.RobotsCacheSize = constants.DefaultRobotsCacheSize
	}
	if cfg.ExclusionCacheSize <= 0 {
		cfg.ExclusionCacheSize = constants.DefaultExclusionCacheSize
	}
	if cfg.RobotsCacheTTL <= 0 {
		cfg.RobotsCacheTTL = constants.DefaultRobotsCacheTTL
	}

	robotsCache, err := lru.New[string, robotsCacheEntry](cfg.RobotsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("politeness: new robots cache: %w", err)
	}

	exclusionCache, err := lru.New[string, bool](cfg.ExclusionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("politeness: new exclusion cache: %w", err)
	}

	return &Enforcer{
		store:          s,
		fetcher:        fetcher,
		log:            log,
		userAgent:      cfg.UserAgent,
		seededURLsOnly: cfg.SeededURLsOnly,
		robotsCache:    robotsCache,
		exclusionCache: exclusionCache,
		cacheTTL:       cfg.RobotsCacheTTL,
	}, nil
}

// Initialize parses an optional exclusion file, marking each listed
// domain is_excluded=true in the coordination store.
func (e *Enforcer) Initialize(ctx context.Context, excludedDomains []string) error {
	for _, d := range excludedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if err := e.store.SetDomainFields(ctx, d, map[string]any{"is_excluded": "1"}); err != nil {
			return fmt.Errorf("politeness: mark excluded %s: %w", d, err)
		}
		e.exclusionCache.Add(d, true)
	}
	return nil
}

// IsURLAllowed implements is_url_allowed(url) → bool.
func (e *Enforcer) IsURLAllowed(ctx context.Context, rawURL string, isSeeded func(domain string) bool) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true, nil // unparsable: treat as "no domain", allow per spec §4.2
	}

	d, err := domain.RegistrableDomain(rawURL)
	if err != nil || d == "" {
		return true, nil
	}

	excluded, err := e.isExcluded(ctx, d)
	if err != nil {
		e.log.Warn("politeness: exclusion lookup failed, defaulting to not-excluded", "domain", d, "error", err.Error())
		excluded = false
	}
	if excluded {
		return false, nil
	}

	if e.seededURLsOnly && isSeeded != nil && !isSeeded(d) {
		return false, nil
	}

	rules, err := e.robotsFor(ctx, d, parsed.Scheme)
	if err != nil {
		e.log.Warn("politeness: robots lookup failed, allowing", "domain", d, "error", err.Error())
		return true, nil
	}
	if rules == nil {
		return true, nil
	}

	return rules.TestAgent(parsed.Path, e.userAgent), nil
}

func (e *Enforcer) isExcluded(ctx context.Context, d string) (bool, error) {
	if v, ok := e.exclusionCache.Get(d); ok {
		return v, nil
	}

	rec, found, err := e.store.GetDomain(ctx, d)
	if err != nil {
		return false, err
	}

	excluded := found && rec.IsExcluded
	e.exclusionCache.Add(d, excluded)
	return excluded, nil
}

// CanFetchDomainNow implements can_fetch_domain_now(domain) → bool.
func (e *Enforcer) CanFetchDomainNow(ctx context.Context, d string) (bool, error) {
	rec, found, err := e.store.GetDomain(ctx, d)
	if err != nil {
		return false, fmt.Errorf("politeness: read next_fetch_time for %s: %w", d, err)
	}
	if !found || rec.NextFetchTime == 0 {
		return true, nil
	}
	return time.Now().Unix() >= rec.NextFetchTime, nil
}

// RecordFetchAttempt implements record_fetch_attempt(domain): computes
// the crawl delay and writes next_fetch_time = now + delay.
func (e *Enforcer) RecordFetchAttempt(ctx context.Context, d string) error {
	delay, err := e.GetCrawlDelay(ctx, d)
	if err != nil {
		return err
	}

	next := time.Now().Add(delay).Unix()
	if err := e.store.SetDomainFields(ctx, d, map[string]any{"next_fetch_time": next}); err != nil {
		return fmt.Errorf("politeness: record fetch attempt for %s: %w", d, err)
	}
	return nil
}

// GetCrawlDelay implements get_crawl_delay(domain) → seconds.
func (e *Enforcer) GetCrawlDelay(ctx context.Context, d string) (time.Duration, error) {
	rules, err := e.robotsFor(ctx, d, "https")
	if err != nil || rules == nil {
		return constants.MinCrawlDelay, nil //nolint:nilerr // robots failure => default delay, not an error
	}

	group := rules.FindGroup(e.userAgent)
	if group == nil || group.CrawlDelay <= 0 {
		return constants.MinCrawlDelay, nil
	}

	if group.CrawlDelay > constants.MinCrawlDelay {
		return group.CrawlDelay, nil
	}
	return constants.MinCrawlDelay, nil
}

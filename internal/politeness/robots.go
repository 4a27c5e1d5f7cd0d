package politeness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/arlobridge/crawlcore/internal/constants"
)

// robotsFor implements the three-tier robots.txt cache of spec §4.2.1:
// in-process LRU → coordination-store cache → live web fetch.
func (e *Enforcer) robotsFor(ctx context.Context, d, scheme string) (*robotstxt.RobotsData, error) {
	if entry, ok := e.robotsCache.Get(d); ok {
		return entry.rules, nil
	}

	rec, found, err := e.store.GetDomain(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("politeness: read robots cache for %s: %w", d, err)
	}

	if found && rec.RobotsExpires > time.Now().Unix() {
		rules := parseRobots(rec.RobotsTxt)
		e.robotsCache.Add(d, robotsCacheEntry{rules: rules})
		return rules, nil
	}

	return e.fetchAndCacheRobots(ctx, d, scheme)
}

// fetchAndCacheRobots tries https then http, truncates, sanitizes, and
// writes the result into both the coordination store (expiring after
// the configured TTL, 24h by default) and the in-process cache.
func (e *Enforcer) fetchAndCacheRobots(ctx context.Context, d, preferredScheme string) (*robotstxt.RobotsData, error) {
	schemes := []string{"https", "http"}
	if preferredScheme == "http" {
		schemes = []string{"http", "https"}
	}

	var body string
	var gotBody bool

	for _, scheme := range schemes {
		robotsURL := scheme + "://" + d + "/robots.txt"
		b, status, fetchErr := e.fetcher.FetchText(ctx, robotsURL)
		if fetchErr == nil && status == 200 && b != "" {
			body = b
			gotBody = true
			break
		}
	}

	if !gotBody {
		return e.cacheRobotsBody(ctx, d, "")
	}

	body = sanitizeRobotsBody(body)
	return e.cacheRobotsBody(ctx, d, body)
}

func (e *Enforcer) cacheRobotsBody(ctx context.Context, d, body string) (*robotstxt.RobotsData, error) {
	expires := time.Now().Add(e.cacheTTL).Unix()

	if err := e.store.SetDomainFields(ctx, d, map[string]any{
		"robots_txt":     body,
		"robots_expires": expires,
	}); err != nil {
		return nil, fmt.Errorf("politeness: cache robots for %s: %w", d, err)
	}

	rules := parseRobots(body)
	e.robotsCache.Add(d, robotsCacheEntry{rules: rules})
	return rules, nil
}

// parseRobots parses a robots.txt body. An empty body, or a body that
// fails to parse, is treated as "no rules" (nil) per spec §4.2.1/§7.
func parseRobots(body string) *robotstxt.RobotsData {
	if body == "" {
		return nil
	}
	rules, err := robotstxt.FromString(body)
	if err != nil {
		return nil
	}
	return rules
}

// sanitizeRobotsBody truncates to the spec's 200,000-char limit and
// replaces any body containing a NUL byte with the empty string.
func sanitizeRobotsBody(body string) string {
	if strings.ContainsRune(body, 0) {
		return ""
	}
	n := 0
	for i := range body {
		if n == constants.MaxRobotsBodyChars {
			return body[:i]
		}
		n++
	}
	return body
}

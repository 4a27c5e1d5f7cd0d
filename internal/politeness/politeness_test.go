package politeness_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/arlobridge/crawlcore/internal/logger"
	"github.com/arlobridge/crawlcore/internal/politeness"
	"github.com/arlobridge/crawlcore/internal/store"
)

// noRobotsFetcher reports every robots.txt fetch as not-found, so
// IsURLAllowed's decision comes down to exclusion and seeded-only
// checks alone.
type noRobotsFetcher struct{}

func (noRobotsFetcher) FetchText(context.Context, string) (string, int, error) {
	return "", 404, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	mr := miniredis.RunT(t)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	s, err := store.New(store.Config{Host: mr.Host(), Port: port})
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestEnforcer_ExclusionAppliesAcrossSubdomains(t *testing.T) {
	s := newTestStore(t)
	e, err := politeness.New(s, noRobotsFetcher{}, logger.NewNoOp(), politeness.Config{UserAgent: "test-agent"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Initialize(ctx, []string{"example.com"}))

	allowed, err := e.IsURLAllowed(ctx, "https://www.example.com/x", nil)
	require.NoError(t, err)
	require.False(t, allowed, "excluding the registrable domain must block its subdomains too")
}

func TestEnforcer_SeededURLsOnlyKeysOnRegistrableDomain(t *testing.T) {
	s := newTestStore(t)
	e, err := politeness.New(s, noRobotsFetcher{}, logger.NewNoOp(), politeness.Config{
		UserAgent:      "test-agent",
		SeededURLsOnly: true,
	})
	require.NoError(t, err)

	ctx := context.Background()
	isSeeded := func(d string) bool { return d == "example.com" }

	allowed, err := e.IsURLAllowed(ctx, "https://www.example.com/x", isSeeded)
	require.NoError(t, err)
	require.True(t, allowed, "a subdomain of a seeded registrable domain must be allowed")

	allowed, err = e.IsURLAllowed(ctx, "https://other.example/x", isSeeded)
	require.NoError(t, err)
	require.False(t, allowed, "a non-seeded domain must be blocked under seeded_urls_only")
}

func TestEnforcer_CrawlDelaySharesKeyWithIsURLAllowed(t *testing.T) {
	s := newTestStore(t)
	e, err := politeness.New(s, noRobotsFetcher{}, logger.NewNoOp(), politeness.Config{UserAgent: "test-agent"})
	require.NoError(t, err)

	ctx := context.Background()

	allowed, err := e.IsURLAllowed(ctx, "https://www.example.com/x", nil)
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, e.RecordFetchAttempt(ctx, "example.com"))

	fetchable, err := e.CanFetchDomainNow(ctx, "example.com")
	require.NoError(t, err)
	require.False(t, fetchable, "next_fetch_time recorded under the registrable domain must gate the same key IsURLAllowed used")
}

package frontier_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/arlobridge/crawlcore/internal/frontier"
	"github.com/arlobridge/crawlcore/internal/logger"
	"github.com/arlobridge/crawlcore/internal/store"
)

// allowAllEnforcer is a fake PolitenessEnforcer that allows every URL
// and treats every domain as immediately fetchable.
type allowAllEnforcer struct {
	disallowed map[string]bool
}

func (e *allowAllEnforcer) IsURLAllowed(_ context.Context, rawURL string, _ func(string) bool) (bool, error) {
	return !e.disallowed[rawURL], nil
}

func (e *allowAllEnforcer) CanFetchDomainNow(context.Context, string) (bool, error) { return true, nil }

func (e *allowAllEnforcer) RecordFetchAttempt(context.Context, string) error { return nil }

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

func TestManager_AddURLsThenGetNextURL(t *testing.T) {
	s := newTestStore(t)
	pe := &allowAllEnforcer{}
	m := frontier.New(s, pe, logger.NewNoOp(), frontier.Config{DataDir: t.TempDir()})

	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, false))

	added, err := m.AddURLs(ctx, []string{
		"https://example.com/a",
		"https://example.com/b.jpg", // non-text, dropped before reaching the frontier
		"https://other.example/c",
	}, 0)
	require.NoError(t, err)
	require.Equal(t, 2, added)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		u, d, depth, ok := m.GetNextURL(ctx)
		require.True(t, ok, "expected a URL on iteration %d", i)
		require.Equal(t, 0, depth)
		seen[u] = true
		_ = d
	}

	require.True(t, seen["https://example.com/a"])
	require.True(t, seen["https://other.example/c"])
}

func TestManager_AddURLs_DeduplicatesAcrossCalls(t *testing.T) {
	s := newTestStore(t)
	pe := &allowAllEnforcer{}
	m := frontier.New(s, pe, logger.NewNoOp(), frontier.Config{DataDir: t.TempDir()})

	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, false))

	first, err := m.AddURLs(ctx, []string{"https://example.com/dup"}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, first)

	second, err := m.AddURLs(ctx, []string{"https://example.com/dup"}, 0)
	require.NoError(t, err)
	require.Equal(t, 0, second, "re-adding the same URL must not append it twice")
}

func TestManager_IsURLAllowedDisallowsAtReadTime(t *testing.T) {
	s := newTestStore(t)
	pe := &allowAllEnforcer{disallowed: map[string]bool{"https://example.com/blocked": true}}
	m := frontier.New(s, pe, logger.NewNoOp(), frontier.Config{DataDir: t.TempDir()})

	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, false))

	// Allow the URL through add_urls by flipping the rule afterward, so
	// get_next_url's own recheck is what is actually under test.
	pe.disallowed = nil
	_, err := m.AddURLs(ctx, []string{"https://example.com/blocked", "https://example.com/ok"}, 0)
	require.NoError(t, err)
	pe.disallowed = map[string]bool{"https://example.com/blocked": true}

	u, _, _, ok := m.GetNextURL(ctx)
	require.True(t, ok)
	require.Equal(t, "https://example.com/ok", u, "blocked URL must be skipped, not returned")
}

func TestManager_IsEmpty(t *testing.T) {
	s := newTestStore(t)
	pe := &allowAllEnforcer{}
	m := frontier.New(s, pe, logger.NewNoOp(), frontier.Config{DataDir: t.TempDir()})

	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, false))

	empty, err := m.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	_, err = m.AddURLs(ctx, []string{"https://example.com/a"}, 0)
	require.NoError(t, err)

	empty, err = m.IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)
}

func TestManager_IdleForResetsOnYield(t *testing.T) {
	s := newTestStore(t)
	pe := &allowAllEnforcer{}
	m := frontier.New(s, pe, logger.NewNoOp(), frontier.Config{DataDir: t.TempDir()})

	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, false))

	freshIdle := m.IdleFor()
	require.Less(t, freshIdle, time.Second, "idle clock should start near zero")

	_, err := m.AddURLs(ctx, []string{"https://example.com/a"}, 0)
	require.NoError(t, err)

	_, _, _, ok := m.GetNextURL(ctx)
	require.True(t, ok)

	require.Less(t, m.IdleFor(), time.Second, "a successful yield must reset the idle clock")
}

func TestManager_SeedsLoadedOnInitialize(t *testing.T) {
	s := newTestStore(t)
	pe := &allowAllEnforcer{}
	m := frontier.New(s, pe, logger.NewNoOp(), frontier.Config{
		DataDir:  t.TempDir(),
		SeedURLs: []string{"https://seed.example/start"},
	})

	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, false))

	u, d, depth, ok := m.GetNextURL(ctx)
	require.True(t, ok)
	require.Equal(t, "https://seed.example/start", u)
	require.Equal(t, "seed.example", d)
	require.Equal(t, 0, depth)
}

package parser

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arlobridge/crawlcore/internal/domain"
	"github.com/arlobridge/crawlcore/internal/logger"
	"github.com/arlobridge/crawlcore/internal/runstate"
)

type fakeHandoffQueue struct {
	mu    sync.Mutex
	items []string
}

func (q *fakeHandoffQueue) BPopHead(ctx context.Context, _ string, timeout time.Duration) (string, bool, error) {
	q.mu.Lock()
	if len(q.items) > 0 {
		item := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()
		return item, true, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-time.After(timeout):
		return "", false, nil
	}
}

type fakeContentSaver struct {
	mu    sync.Mutex
	saved map[string]string
}

func (c *fakeContentSaver) SaveText(url, text string) (string, bool, error) {
	if text == "" {
		return "", false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saved == nil {
		c.saved = map[string]string{}
	}
	c.saved[url] = text
	return "/content/" + url, true, nil
}

type fakeVisitedStore struct {
	mu   sync.Mutex
	recs []domain.VisitedRecord
}

func (v *fakeVisitedStore) PutVisited(_ context.Context, rec domain.VisitedRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recs = append(v.recs, rec)
	return nil
}

type fakeFrontierSink struct {
	mu    sync.Mutex
	calls []struct {
		urls  []string
		depth int
	}
}

func (f *fakeFrontierSink) AddURLs(_ context.Context, urls []string, depth int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, struct {
		urls  []string
		depth int
	}{urls, depth})
	return len(urls), nil
}

func TestConsumer_ProcessesPayloadEndToEnd(t *testing.T) {
	payload := domain.HandoffPayload{
		InitialURL:  "https://example.com/start",
		FinalURL:    "https://example.com/start",
		Status:      200,
		Domain:      "example.com",
		Depth:       0,
		FetchedAt:   time.Now().Unix(),
		ContentType: "text/html",
		RawBody:     []byte(`<html><body><article><p>content here</p><a href="/next">n</a></article></body></html>`),
	}
	encoded, err := json.Marshal(payload)
	require.NoError(t, err)

	queue := &fakeHandoffQueue{items: []string{string(encoded)}}
	content := &fakeContentSaver{}
	visited := &fakeVisitedStore{}
	sink := &fakeFrontierSink{}
	run := runstate.New(0, 0)

	c := NewConsumer(queue, content, visited, sink, logger.NewNoOp(), run, ConsumerConfig{TaskCount: 1, PopTimeout: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	waitUntilParser(t, func() bool {
		visited.mu.Lock()
		defer visited.mu.Unlock()
		return len(visited.recs) >= 1
	})
	cancel()
	<-done

	visited.mu.Lock()
	require.Len(t, visited.recs, 1)
	require.Equal(t, "https://example.com/start", visited.recs[0].URL)
	require.NotEmpty(t, visited.recs[0].ContentPath)
	require.NotEmpty(t, visited.recs[0].ContentHash)
	visited.mu.Unlock()

	sink.mu.Lock()
	require.Len(t, sink.calls, 1)
	require.Equal(t, 1, sink.calls[0].depth)
	require.Equal(t, []string{"https://example.com/next"}, sink.calls[0].urls)
	sink.mu.Unlock()
}

func TestConsumer_RedirectedURLRecordsRedirectedTo(t *testing.T) {
	payload := domain.HandoffPayload{
		InitialURL:  "https://example.com/start",
		FinalURL:    "https://example.com/landed",
		Status:      200,
		Domain:      "example.com",
		ContentType: "text/html",
		RawBody:     []byte(`<html><body>text</body></html>`),
	}
	encoded, err := json.Marshal(payload)
	require.NoError(t, err)

	queue := &fakeHandoffQueue{items: []string{string(encoded)}}
	content := &fakeContentSaver{}
	visited := &fakeVisitedStore{}
	sink := &fakeFrontierSink{}
	run := runstate.New(0, 0)

	c := NewConsumer(queue, content, visited, sink, logger.NewNoOp(), run, ConsumerConfig{TaskCount: 1, PopTimeout: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	waitUntilParser(t, func() bool {
		visited.mu.Lock()
		defer visited.mu.Unlock()
		return len(visited.recs) >= 1
	})
	cancel()
	<-done

	visited.mu.Lock()
	defer visited.mu.Unlock()
	require.Equal(t, "https://example.com/landed", visited.recs[0].RedirectedTo)
}

func TestConsumer_StopsWhenRunStateSignalsGlobalStop(t *testing.T) {
	queue := &fakeHandoffQueue{}
	run := runstate.New(0, 0)
	run.RequestStop()

	c := NewConsumer(queue, &fakeContentSaver{}, &fakeVisitedStore{}, &fakeFrontierSink{}, logger.NewNoOp(), run, ConsumerConfig{TaskCount: 2, PopTimeout: 10 * time.Millisecond})

	done := make(chan struct{})
	go func() {
		c.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after RequestStop")
	}
}

func waitUntilParser(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// Package fetcher implements the Fetcher Worker (FW) pool and the
// concrete HTTP Fetcher it drives. Workers never parse HTML, extract
// links, or read robots.txt themselves — that is Politeness Enforcer
// and Parser Consumer territory (spec §4.4).
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arlobridge/crawlcore/internal/common/transport"
)

// maxResponseBodyBytes caps how much of any single response body is
// read into memory before being handed to the handoff queue.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// maxRedirectHops bounds how many redirects a single fetch will follow.
const maxRedirectHops = 10

// Result is the external Fetcher contract's return value (spec §6.1).
type Result struct {
	InitialURL  string
	FinalURL    string
	StatusCode  int
	RawBody     []byte
	ContentType string
}

// ClientConfig configures an HTTPFetcher.
type ClientConfig struct {
	UserAgent          string
	RequestTimeout     time.Duration
	InsecureSkipVerify bool
}

// HTTPFetcher is the concrete Fetcher: a plain net/http client tuned
// per internal/common/transport, following redirects itself and
// producing the payload shape Fetcher Workers and the Politeness
// Enforcer depend on.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher constructs an HTTPFetcher.
func NewHTTPFetcher(cfg ClientConfig) *HTTPFetcher {
	client := transport.NewHTTPClient(
		transport.ClientConfig{RequestTimeout: cfg.RequestTimeout, InsecureSkipVerify: cfg.InsecureSkipVerify},
		RedirectPolicy(maxRedirectHops),
	)

	return &HTTPFetcher{client: client, userAgent: cfg.UserAgent}
}

// Fetch implements fetch(url, is_robots_txt=false) → result. It
// follows redirects itself (via the client's CheckRedirect policy)
// and reads at most maxResponseBodyBytes of the response body.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return Result{}, fmt.Errorf("fetcher: build request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetcher: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return Result{}, fmt.Errorf("fetcher: read body for %s: %w", rawURL, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return Result{
		InitialURL:  rawURL,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		RawBody:     body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// FetchText implements the politeness.Fetcher contract used only for
// robots.txt bodies: a plain GET returning the response as text.
func (f *HTTPFetcher) FetchText(ctx context.Context, rawURL string) (string, int, error) {
	result, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return "", 0, err
	}
	return string(result.RawBody), result.StatusCode, nil
}

// Package scrape ingests outlet listings from a paginated HTML directory.
package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/klgeo/outlets-cli/internal/resilience"
)

const fetchUserAgent = "Mozilla/5.0 (compatible; OutletsBot/1.0)"

// Fetcher retrieves listing pages with rate limiting and retry on
// transient upstream failures.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	policy  resilience.Policy
}

// FetcherOption configures the Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = hc }
}

// WithRateLimit overrides the requests-per-second limit.
func WithRateLimit(rps float64) FetcherOption {
	return func(f *Fetcher) { f.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p resilience.Policy) FetcherOption {
	return func(f *Fetcher) { f.policy = p }
}

// NewFetcher creates a Fetcher with defaults: 15s request timeout,
// 2 req/s, transient-aware retry.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter: rate.NewLimiter(2, 1),
		policy:  resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves one page. Upstream 5xx and 429 responses are retried
// per policy; 4xx responses other than 429 fail immediately.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "scrape: rate limit")
	}

	return resilience.Do(ctx, f.policy, "scrape fetch", func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "scrape: create request")
		}
		req.Header.Set("User-Agent", fetchUserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "scrape: fetch")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode >= 400 {
			return nil, &resilience.StatusError{
				Err:        eris.Errorf("scrape: status %d for %s", resp.StatusCode, pageURL),
				StatusCode: resp.StatusCode,
			}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
		if err != nil {
			return nil, eris.Wrap(err, "scrape: read body")
		}
		return body, nil
	})
}

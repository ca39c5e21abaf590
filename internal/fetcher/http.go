package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/circulars-cli/internal/resilience"
)

// DefaultMaxBodyBytes caps how much of a response body is read.
const DefaultMaxBodyBytes = 64 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RatePerSec   float64 // per host
	MaxBodyBytes int64
	// Backoff is the initial retry delay.
	Backoff time.Duration
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = min(a.currentRate*1.2, a.maxRate)
	a.limiter.SetLimit(a.currentRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
	zap.L().Warn("fetcher: reducing rate after 429",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Fetcher using net/http with per-host adaptive rate
// limiting and retries on transient failures.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "circulars-cli/1.0"
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 2
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

// limiterFor returns the adaptive limiter for the URL's host, creating it
// on first use.
func (f *HTTPFetcher) limiterFor(rawURL string) *AdaptiveLimiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		burst := max(int(f.opts.RatePerSec), 1)
		lim = NewAdaptiveLimiter(rate.Limit(f.opts.RatePerSec), burst)
		f.limiters[host] = lim
	}
	return lim
}

func (f *HTTPFetcher) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	lim := f.limiterFor(req.URL.String())

	cfg := resilience.RetryConfig{
		MaxAttempts:    f.opts.MaxRetries,
		InitialBackoff: f.opts.Backoff,
		MaxBackoff:     30 * time.Second,
		JitterFraction: 0.5,
		OnRetry:        resilience.RetryLogger("fetcher", req.URL.String()),
	}
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*http.Response, error) {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			return nil, resilience.NewTransientError(err, 0)
		}

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusTooManyRequests {
				lim.OnRateLimit()
			}
			return nil, resilience.NewTransientError(
				eris.Errorf("http %d from %s", resp.StatusCode, req.URL.String()), resp.StatusCode)
		}

		lim.OnSuccess()
		return resp, nil
	})
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return resp, nil
}

// Fetch GETs the URL and reads the body up to MaxBodyBytes.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read body %s", rawURL)
	}

	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// DownloadToFile fetches the URL and writes it to path, creating parent
// directories. A partial file is removed on failure.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrap(err, "fetcher: create directory")
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}

	n, err := io.Copy(file, io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return n, eris.Wrap(err, "fetcher: write file")
	}

	return n, nil
}

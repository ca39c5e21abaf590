// Package jina provides a client for the Jina AI reader API.
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Return formats understood by the reader.
const (
	FormatMarkdown   = "markdown"
	FormatHTML       = "html"
	FormatScreenshot = "screenshot"
	FormatPageshot   = "pageshot"
)

// Client defines the Jina AI Reader operations.
type Client interface {
	// Read fetches a URL via Jina AI Reader in the requested format.
	Read(ctx context.Context, targetURL string, opts ...ReadOption) (*ReadResponse, error)
}

// ReadResponse is the parsed Jina API response.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

// ReadData holds the content from Jina. Which field is populated depends on
// the requested return format.
type ReadData struct {
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	Content       string    `json:"content"`
	HTML          string    `json:"html"`
	ScreenshotURL string    `json:"screenshotUrl"`
	PageshotURL   string    `json:"pageshotUrl"`
	Usage         ReadUsage `json:"usage"`
}

// ReadUsage tracks token consumption.
type ReadUsage struct {
	Tokens int `json:"tokens"`
}

// ReadOption configures a read request.
type ReadOption func(*readOpts)

type readOpts struct {
	format      string
	waitFor     string
	timeoutSecs int
}

// WithFormat sets the X-Return-Format header.
func WithFormat(format string) ReadOption {
	return func(o *readOpts) { o.format = format }
}

// WithWaitForSelector asks the reader to wait until selector is present.
func WithWaitForSelector(selector string) ReadOption {
	return func(o *readOpts) { o.waitFor = selector }
}

// WithTimeout sets the reader-side render timeout in seconds.
func WithTimeout(secs int) ReadOption {
	return func(o *readOpts) { o.timeoutSecs = secs }
}

// Option configures the Jina client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithBackoff sets the initial retry backoff (for testing).
func WithBackoff(d time.Duration) Option {
	return func(c *httpClient) {
		c.backoff = d
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	backoff time.Duration
	http    *http.Client
}

// NewClient creates a new Jina AI Reader client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://r.jina.ai",
		backoff: time.Second,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes an HTTP request with exponential backoff retries on
// transient failures (429, 500, 502, 503). Returns the response body and
// status code on success, or the last error after exhausting retries.
func (c *httpClient) retryDo(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := c.backoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retryReq := req.Clone(ctx)

		resp, err := c.http.Do(retryReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "jina: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("jina: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) Read(ctx context.Context, targetURL string, opts ...ReadOption) (*ReadResponse, error) {
	ro := &readOpts{format: FormatMarkdown}
	for _, opt := range opts {
		opt(ro)
	}

	reqURL := fmt.Sprintf("%s/%s", c.baseURL, targetURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create request")
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Return-Format", ro.format)
	if ro.waitFor != "" {
		req.Header.Set("X-Wait-For-Selector", ro.waitFor)
	}
	if ro.timeoutSecs > 0 {
		req.Header.Set("X-Timeout", fmt.Sprint(ro.timeoutSecs))
	}

	body, statusCode, err := c.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "jina: request failed")
	}

	if statusCode != http.StatusOK {
		return nil, eris.Errorf("jina: unexpected status %d: %s", statusCode, string(body))
	}

	var result ReadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal response")
	}

	return &result, nil
}

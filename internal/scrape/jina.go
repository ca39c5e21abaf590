package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/circulars-cli/internal/resilience"
	"github.com/sells-group/circulars-cli/pkg/jina"
)

// JinaAdapter renders pages through the Jina reader, guarded by a circuit
// breaker so a failing reader is skipped for the cooldown.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
	wait    string
}

// NewJinaAdapter creates a JinaAdapter. waitForSelector may be empty.
// Three consecutive failures open the breaker for 60s.
func NewJinaAdapter(client jina.Client, waitForSelector string) *JinaAdapter {
	return &JinaAdapter{
		client:  client,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("jina")),
		wait:    waitForSelector,
	}
}

func (j *JinaAdapter) Name() string { return "jina" }

// Supports returns true unless the circuit breaker is open.
func (j *JinaAdapter) Supports(_ string) bool {
	return j.breaker.Allow()
}

// Scrape fetches rendered HTML via Jina and rejects unusable responses.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	opts := []jina.ReadOption{jina.WithFormat(jina.FormatHTML)}
	if j.wait != "" {
		opts = append(opts, jina.WithWaitForSelector(j.wait))
	}

	resp, err := resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*jina.ReadResponse, error) {
		resp, err := j.client.Read(ctx, targetURL, opts...)
		if err != nil {
			return nil, err
		}
		if needsFallback(resp) {
			return nil, eris.New("jina: response needs fallback")
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		URL:        targetURL,
		Title:      resp.Data.Title,
		HTML:       resp.Data.HTML,
		StatusCode: resp.Code,
		Source:     j.Name(),
	}, nil
}

// needsFallback reports whether a Jina response is blocked, an error or
// too small to contain a listing.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}
	if resp.Code != 0 && resp.Code != 200 {
		return true
	}
	html := strings.TrimSpace(resp.Data.HTML)
	if len(html) < minPageBytes {
		return true
	}
	blocked, _ := DetectBlock(html)
	return blocked
}

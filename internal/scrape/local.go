package scrape

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/circulars-cli/internal/fetcher"
)

// minPageBytes is the smallest body accepted as a real listing page.
const minPageBytes = 100

// LocalScraper fetches HTML directly. Free, no API calls. Blocked or empty
// pages fall through to the rendering providers.
type LocalScraper struct {
	fetcher fetcher.Fetcher
}

// NewLocalScraper creates a LocalScraper on top of f.
func NewLocalScraper(f fetcher.Fetcher) *LocalScraper {
	return &LocalScraper{fetcher: f}
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches a URL and rejects blocked or near-empty responses.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := l.fetcher.Fetch(ctx, targetURL)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}

	body := string(resp.Body)
	if blocked, kind := DetectBlock(body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", kind)
	}
	if len(strings.TrimSpace(body)) < minPageBytes {
		return nil, eris.New("local_http: empty page")
	}

	return &Result{
		URL:        resp.URL,
		Title:      extractTitle(body),
		HTML:       body,
		StatusCode: resp.StatusCode,
		Source:     l.Name(),
	}, nil
}

var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// extractTitle pulls the <title> from HTML.
func extractTitle(body string) string {
	if m := titleRe.FindStringSubmatch(body); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

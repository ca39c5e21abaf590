package scrape

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/circulars-cli/pkg/firecrawl"
)

// FirecrawlAdapter wraps a Firecrawl client as the last-resort Scraper.
type FirecrawlAdapter struct {
	client  firecrawl.Client
	waitFor int // milliseconds
}

// NewFirecrawlAdapter creates a FirecrawlAdapter. waitForMs lets
// client-rendered tables settle before capture.
func NewFirecrawlAdapter(client firecrawl.Client, waitForMs int) *FirecrawlAdapter {
	return &FirecrawlAdapter{client: client, waitFor: waitForMs}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Supports returns true: Firecrawl can attempt any URL.
func (f *FirecrawlAdapter) Supports(_ string) bool { return true }

// Scrape fetches rendered HTML via Firecrawl's scrape API.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	onlyMain := false
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             targetURL,
		Formats:         []string{firecrawl.FormatHTML},
		OnlyMainContent: &onlyMain,
		WaitFor:         f.waitFor,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data.HTML) < minPageBytes {
		return nil, eris.New("firecrawl: empty page")
	}
	return &Result{
		URL:        targetURL,
		Title:      resp.Data.Metadata.Title,
		HTML:       resp.Data.HTML,
		StatusCode: resp.Data.Metadata.StatusCode,
		Source:     f.Name(),
	}, nil
}

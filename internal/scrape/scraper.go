package scrape

import (
	"context"
)

// Result holds a rendered listing page and the provider that produced it.
type Result struct {
	URL        string
	Title      string
	HTML       string
	StatusCode int
	Source     string // "local_http", "jina", "firecrawl"
}

// Scraper fetches a single URL and returns its HTML.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}

// Package scrape loads listing pages and screenshots through an ordered
// chain of providers, falling through on blocks and failures.
package scrape

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/model"
)

// Chain tries scrapers in priority order, returning the first success.
type Chain struct {
	scrapers []Scraper
}

// NewChain creates a Chain. Scrapers are tried in order.
func NewChain(scrapers ...Scraper) *Chain {
	return &Chain{scrapers: scrapers}
}

// Scrape tries each scraper in order for a single URL.
// Returns the first successful result, or an error if all fail.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	var lastErr error
	for _, s := range c.scrapers {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "scrape: cancelled")
		}
		if !s.Supports(targetURL) {
			zap.L().Debug("scrape: scraper unavailable, skipping",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
			)
			continue
		}
		result, err := s.Scrape(ctx, targetURL)
		if err == nil && result != nil {
			return result, nil
		}
		if err != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}

// Load scrapes the target's listing page.
func (c *Chain) Load(ctx context.Context, target model.Target) (*model.Content, error) {
	res, err := c.Scrape(ctx, target.URL)
	if err != nil {
		return nil, err
	}
	zap.L().Info("scrape: loaded listing page",
		zap.String("url", target.URL),
		zap.String("source", res.Source),
		zap.Int("bytes", len(res.HTML)),
	)
	return &model.Content{
		URL:    target.URL,
		Kind:   model.ContentHTML,
		Body:   res.HTML,
		Source: res.Source,
	}, nil
}

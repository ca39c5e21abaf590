// Package probe looks for a structured data source (a JSON announcement API
// or an RSS/Atom feed) behind a listing page.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/extract"
	"github.com/sells-group/circulars-cli/internal/fetcher"
	"github.com/sells-group/circulars-cli/internal/model"
)

// feedLinkTypes are the <link rel="alternate"> types worth fetching.
var feedLinkTypes = map[string]bool{
	"application/rss+xml":   true,
	"application/atom+xml":  true,
	"application/feed+json": true,
	"application/json":      true,
}

// Prober finds and decodes structured feeds.
type Prober struct {
	fetcher fetcher.Fetcher
	parser  *gofeed.Parser
}

// New creates a Prober that fetches candidates through f.
func New(f fetcher.Fetcher) *Prober {
	return &Prober{fetcher: f, parser: gofeed.NewParser()}
}

// Probe tries the target's configured feed URL, then any feeds advertised
// by the loaded page. The first candidate that decodes to announcements
// wins. Failures are logged and never returned.
func (p *Prober) Probe(ctx context.Context, target model.Target, content *model.Content) (*model.Feed, error) {
	for _, candidate := range Candidates(target, content) {
		if ctx.Err() != nil {
			break
		}
		feed, err := p.try(ctx, candidate)
		if err != nil {
			zap.L().Warn("probe: candidate rejected",
				zap.String("category", target.Category),
				zap.String("candidate", candidate),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("probe: structured feed found",
			zap.String("category", target.Category),
			zap.String("url", feed.URL),
			zap.String("kind", string(feed.Kind)),
			zap.Int("items", len(feed.Items)),
		)
		return feed, nil
	}
	return &model.Feed{Found: false}, nil
}

// Candidates lists feed URLs in probe order without duplicates.
func Candidates(target model.Target, content *model.Content) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	add(target.FeedURL)

	if content.HasBody() {
		base := content.URL
		if base == "" {
			base = target.URL
		}
		for _, link := range alternateLinks(content.Body, base) {
			add(link)
		}
	}
	return out
}

func alternateLinks(body, base string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}
	var links []string
	doc.Find(`link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))
		href, ok := s.Attr("href")
		if !ok || !feedLinkTypes[typ] {
			return
		}
		links = append(links, resolve(base, href))
	})
	return links
}

func (p *Prober) try(ctx context.Context, candidate string) (*model.Feed, error) {
	resp, err := p.fetcher.Fetch(ctx, candidate)
	if err != nil {
		return nil, eris.Wrap(err, "probe: fetch")
	}
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return nil, eris.New("probe: empty response")
	}

	feedURL := resp.URL
	if feedURL == "" {
		feedURL = candidate
	}

	if body[0] == '{' || body[0] == '[' {
		if items, ok := announcementAPI(body); ok {
			return &model.Feed{Found: true, URL: feedURL, Kind: model.FeedJSON, Items: items}, nil
		}
	}

	parsed, err := p.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "probe: not an announcement api or feed")
	}
	items := feedItems(parsed)
	if len(items) == 0 {
		return nil, eris.New("probe: feed has no items")
	}
	return &model.Feed{Found: true, URL: feedURL, Kind: model.FeedRSS, Items: items}, nil
}

func announcementAPI(body []byte) ([]map[string]any, bool) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false
	}
	items := extract.Items(doc)
	if !extract.LooksLikeAnnouncements(items) {
		return nil, false
	}
	return items, true
}

// feedItems flattens RSS, Atom and JSON Feed entries to the same shape the
// structured strategy reads from an announcement API.
func feedItems(f *gofeed.Feed) []map[string]any {
	items := make([]map[string]any, 0, len(f.Items))
	for _, it := range f.Items {
		if it == nil || strings.TrimSpace(it.Title) == "" {
			continue
		}
		item := map[string]any{"title": strings.TrimSpace(it.Title), "link": it.Link}
		switch {
		case it.PublishedParsed != nil:
			item["date"] = it.PublishedParsed.Format(time.RFC3339)
		case it.UpdatedParsed != nil:
			item["date"] = it.UpdatedParsed.Format(time.RFC3339)
		case it.Published != "":
			item["date"] = it.Published
		}
		items = append(items, item)
	}
	return items
}

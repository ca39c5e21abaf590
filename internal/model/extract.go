package model

import "strings"

// ContentKind describes what a loader produced for a target.
type ContentKind string

const (
	ContentNone ContentKind = "none"
	ContentHTML ContentKind = "html"
)

// Content is the loaded listing page.
type Content struct {
	URL    string      `json:"url"`
	Kind   ContentKind `json:"kind"`
	Body   string      `json:"-"`
	Source string      `json:"source,omitempty"`
}

// HasBody reports whether c carries usable markup.
func (c *Content) HasBody() bool {
	return c != nil && c.Kind == ContentHTML && strings.TrimSpace(c.Body) != ""
}

// FeedKind identifies a discovered structured feed format.
type FeedKind string

const (
	FeedJSON FeedKind = "json"
	FeedRSS  FeedKind = "rss"
)

// Feed is the result of probing a target for a structured data source.
// Items are flat key/value objects as served by the source.
type Feed struct {
	Found bool             `json:"found"`
	URL   string           `json:"url,omitempty"`
	Kind  FeedKind         `json:"kind,omitempty"`
	Items []map[string]any `json:"-"`
}

// Usable reports whether f is a found feed with items.
func (f *Feed) Usable() bool {
	return f != nil && f.Found && len(f.Items) > 0
}

// ExtractInput is everything a strategy may draw on for one attempt.
type ExtractInput struct {
	Target  Target
	Content *Content
	Feed    *Feed
}

// Hint carries attempt-level guidance to a strategy.
type Hint struct {
	Attempt int
	// Refined asks the strategy to use its corrective instruction variant.
	Refined bool
}

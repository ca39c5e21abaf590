package extract

import (
	"fmt"
	"net/url"
	"strings"
)

// Field aliases for feed items, matched case-insensitively.
var (
	TitleKeys   = []string{"title", "name", "subject", "heading", "circular_name"}
	DateKeys    = []string{"date", "issue_date", "issuedate", "publish_date", "circular_date", "published", "pubdate"}
	LinkKeys    = []string{"link", "url", "detail_url", "href"}
	WrapperKeys = []string{"data", "results", "items", "records", "list"}
)

// minFeedItems is how many announcement-shaped items a JSON document needs
// before it is trusted as a feed.
const minFeedItems = 3

// Field returns the first non-empty value among keys.
func Field(item map[string]any, keys []string) string {
	lower := make(map[string]any, len(item))
	for k, v := range item {
		lower[strings.ToLower(k)] = v
	}
	for _, key := range keys {
		v, ok := lower[key]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprint(v))
		if s != "" {
			return s
		}
	}
	return ""
}

// Items finds the list of objects in a decoded JSON document: the document
// itself when it is an array, or the first wrapper key holding an array.
func Items(doc any) []map[string]any {
	var list []any
	switch v := doc.(type) {
	case []any:
		list = v
	case map[string]any:
		for _, key := range WrapperKeys {
			if arr, ok := v[key].([]any); ok {
				list = arr
				break
			}
		}
	}

	items := make([]map[string]any, 0, len(list))
	for _, el := range list {
		if m, ok := el.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

// LooksLikeAnnouncements reports whether at least minFeedItems items carry
// both a title and a date field.
func LooksLikeAnnouncements(items []map[string]any) bool {
	n := 0
	for _, it := range items {
		if Field(it, TitleKeys) != "" && Field(it, DateKeys) != "" {
			n++
			if n >= minFeedItems {
				return true
			}
		}
	}
	return false
}

// resolveURL makes ref absolute against base. Unparseable input is
// returned unchanged.
func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil || base == "" {
		return ref
	}
	return b.ResolveReference(r).String()
}

func isPDF(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return strings.HasSuffix(strings.ToLower(link), ".pdf")
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

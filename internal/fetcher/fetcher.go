// Package fetcher downloads listing pages, feeds, screenshots and PDFs over
// HTTP, and reads the tabular target files the CLI accepts.
package fetcher

import (
	"context"
	"mime"
	"strings"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Fetch GETs the URL and returns the full body. Non-2xx responses are
	// returned as errors.
	Fetch(ctx context.Context, url string) (*Response, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Response is a fully read HTTP response.
type Response struct {
	URL         string // final URL after redirects
	StatusCode  int
	ContentType string
	Body        []byte
}

// MediaType returns the lower-cased media type without parameters.
func (r *Response) MediaType() string {
	if r == nil || r.ContentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(r.ContentType, ";", 2)[0]))
	}
	return mt
}

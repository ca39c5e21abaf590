package scrape

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/fetcher"
	"github.com/sells-group/circulars-cli/internal/resilience"
	"github.com/sells-group/circulars-cli/pkg/firecrawl"
	"github.com/sells-group/circulars-cli/pkg/jina"
)

// Screenshot is a rendered image of a listing page.
type Screenshot struct {
	Data      []byte
	MediaType string
	Source    string
}

// Screenshotter captures a page as an image.
type Screenshotter interface {
	Name() string
	Screenshot(ctx context.Context, url string) (*Screenshot, error)
}

// ScreenshotChain tries screenshotters in order.
type ScreenshotChain struct {
	shooters []Screenshotter
}

// NewScreenshotChain creates a ScreenshotChain.
func NewScreenshotChain(shooters ...Screenshotter) *ScreenshotChain {
	return &ScreenshotChain{shooters: shooters}
}

// Len returns the number of configured screenshotters.
func (c *ScreenshotChain) Len() int { return len(c.shooters) }

func (c *ScreenshotChain) Name() string { return "chain" }

// Screenshot returns the first successful capture.
func (c *ScreenshotChain) Screenshot(ctx context.Context, targetURL string) (*Screenshot, error) {
	var lastErr error
	for _, s := range c.shooters {
		shot, err := s.Screenshot(ctx, targetURL)
		if err == nil && shot != nil && len(shot.Data) > 0 {
			return shot, nil
		}
		if err == nil {
			err = eris.Errorf("scrape: %s returned an empty screenshot", s.Name())
		}
		zap.L().Debug("scrape: screenshotter failed, trying next",
			zap.String("screenshotter", s.Name()),
			zap.String("url", targetURL),
			zap.Error(err),
		)
		lastErr = err
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all screenshotters failed")
	}
	return nil, eris.New("scrape: no screenshotters configured")
}

// FirecrawlShooter captures full-page screenshots through Firecrawl.
type FirecrawlShooter struct {
	client  firecrawl.Client
	fetcher fetcher.Fetcher
	waitFor int
}

// NewFirecrawlShooter creates a FirecrawlShooter. The image is downloaded
// from the URL Firecrawl returns.
func NewFirecrawlShooter(client firecrawl.Client, f fetcher.Fetcher, waitForMs int) *FirecrawlShooter {
	return &FirecrawlShooter{client: client, fetcher: f, waitFor: waitForMs}
}

func (s *FirecrawlShooter) Name() string { return "firecrawl" }

func (s *FirecrawlShooter) Screenshot(ctx context.Context, targetURL string) (*Screenshot, error) {
	resp, err := s.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     targetURL,
		Formats: []string{firecrawl.FormatScreenshotFullPage},
		WaitFor: s.waitFor,
	})
	if err != nil {
		return nil, err
	}
	return downloadImage(ctx, s.fetcher, resp.Data.Screenshot, s.Name())
}

// JinaShooter captures screenshots through the Jina reader.
type JinaShooter struct {
	client   jina.Client
	fetcher  fetcher.Fetcher
	breaker  *resilience.CircuitBreaker
	fullPage bool
}

// NewJinaShooter creates a JinaShooter. fullPage selects the pageshot
// format over the viewport screenshot.
func NewJinaShooter(client jina.Client, f fetcher.Fetcher, fullPage bool) *JinaShooter {
	return &JinaShooter{
		client:   client,
		fetcher:  f,
		breaker:  resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("jina-screenshot")),
		fullPage: fullPage,
	}
}

func (s *JinaShooter) Name() string { return "jina" }

func (s *JinaShooter) Screenshot(ctx context.Context, targetURL string) (*Screenshot, error) {
	format := jina.FormatScreenshot
	if s.fullPage {
		format = jina.FormatPageshot
	}
	resp, err := resilience.ExecuteVal(ctx, s.breaker, func(ctx context.Context) (*jina.ReadResponse, error) {
		return s.client.Read(ctx, targetURL, jina.WithFormat(format))
	})
	if err != nil {
		return nil, err
	}
	imageURL := resp.Data.ScreenshotURL
	if s.fullPage {
		imageURL = resp.Data.PageshotURL
	}
	return downloadImage(ctx, s.fetcher, imageURL, s.Name())
}

func downloadImage(ctx context.Context, f fetcher.Fetcher, imageURL, source string) (*Screenshot, error) {
	if imageURL == "" {
		return nil, eris.Errorf("scrape: %s returned no screenshot url", source)
	}
	if strings.HasPrefix(imageURL, "data:") {
		return decodeDataURI(imageURL, source)
	}
	resp, err := f.Fetch(ctx, imageURL)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: download %s screenshot", source)
	}
	mediaType := resp.MediaType()
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = http.DetectContentType(resp.Body)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, eris.Errorf("scrape: %s screenshot is %q, not an image", source, mediaType)
	}
	return &Screenshot{Data: resp.Body, MediaType: mediaType, Source: source}, nil
}

// decodeDataURI decodes a base64 "data:image/png;base64,..." URI.
func decodeDataURI(uri, source string) (*Screenshot, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, eris.Errorf("scrape: %s returned a malformed data uri", source)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: decode %s screenshot", source)
	}
	mediaType := strings.TrimSuffix(meta, ";base64")
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = http.DetectContentType(data)
	}
	return &Screenshot{Data: data, MediaType: mediaType, Source: source}, nil
}

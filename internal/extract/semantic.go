// Package extract implements the extraction strategies: direct mapping of a
// structured feed, language-model reading of cleaned HTML, and
// language-model reading of a page screenshot.
package extract

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/model"
	"github.com/sells-group/circulars-cli/pkg/anthropic"
)

// LLMConfig configures the model-backed strategies.
type LLMConfig struct {
	Model        string
	MaxTokens    int64
	MaxHTMLChars int
	// CacheTTL is the prompt cache TTL for the system block ("5m" or "1h").
	CacheTTL string
}

func (c LLMConfig) withDefaults() LLMConfig {
	if c.Model == "" {
		c.Model = "claude-sonnet-4-5-20250929"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	if c.MaxHTMLChars <= 0 {
		c.MaxHTMLChars = DefaultMaxHTMLChars
	}
	if c.CacheTTL == "" {
		c.CacheTTL = "5m"
	}
	return c
}

// Semantic reads announcements out of the listing page markup.
type Semantic struct {
	client anthropic.Client
	cfg    LLMConfig
}

// NewSemantic creates the content-semantic strategy.
func NewSemantic(client anthropic.Client, cfg LLMConfig) *Semantic {
	return &Semantic{client: client, cfg: cfg.withDefaults()}
}

// Strategy implements pipeline.Extractor.
func (s *Semantic) Strategy() model.Strategy { return model.StrategySemantic }

// Extract cleans the loaded HTML and asks the model for the announcement
// list. A page with no body yields an empty batch.
func (s *Semantic) Extract(ctx context.Context, in model.ExtractInput, hint model.Hint) (*model.ExtractionBatch, error) {
	if !in.Content.HasBody() {
		return &model.ExtractionBatch{StrategyUsed: model.StrategySemantic}, nil
	}

	cleaned, err := CleanHTML(in.Content.Body, s.cfg.MaxHTMLChars)
	if err != nil {
		return nil, err
	}

	pageURL := in.Content.URL
	if pageURL == "" {
		pageURL = in.Target.URL
	}

	zap.L().Debug("extract: semantic request",
		zap.String("url", pageURL),
		zap.Int("html_chars", len(in.Content.Body)),
		zap.Int("cleaned_chars", len(cleaned)),
		zap.Bool("refined", hint.Refined),
	)

	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		System:      systemPrompt,
		CacheTTL:    s.cfg.CacheTTL,
		Temperature: zeroTemperature(),
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: pagePrompt(pageURL, in.Target.Category, cleaned, hint.Refined),
		}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: semantic")
	}
	resp.Usage.Log(s.cfg.Model, string(model.StrategySemantic))

	return parseReply(resp.Text, pageURL, model.StrategySemantic)
}

func zeroTemperature() *float64 {
	t := 0.0
	return &t
}

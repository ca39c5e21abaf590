package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/model"
)

// StructuredConfidence is assigned to every record mapped from a feed.
const StructuredConfidence = 0.95

// Structured maps items of a discovered feed straight to records. It never
// calls a model.
type Structured struct{}

// NewStructured creates the structured-feed strategy.
func NewStructured() *Structured { return &Structured{} }

// Strategy implements pipeline.Extractor.
func (s *Structured) Strategy() model.Strategy { return model.StrategyAPI }

// Extract maps feed items with a title and a parseable date. Items missing
// either are dropped but still counted in RawCount.
func (s *Structured) Extract(_ context.Context, in model.ExtractInput, _ model.Hint) (*model.ExtractionBatch, error) {
	batch := &model.ExtractionBatch{StrategyUsed: model.StrategyAPI}
	if !in.Feed.Usable() {
		return batch, nil
	}
	batch.RawCount = len(in.Feed.Items)

	base := in.Feed.URL
	if base == "" {
		base = in.Target.URL
	}

	var unparsed int
	for _, item := range in.Feed.Items {
		title := Field(item, TitleKeys)
		raw := Field(item, DateKeys)
		if title == "" || raw == "" {
			continue
		}
		date, ok := ParseDate(raw)
		if !ok {
			unparsed++
			continue
		}
		rec := model.Record{
			Title:          title,
			IssueDate:      date,
			Confidence:     StructuredConfidence,
			SourceStrategy: model.StrategyAPI,
		}
		if link := resolveURL(base, Field(item, LinkKeys)); link != "" {
			rec.DetailURL = link
			if isPDF(link) {
				rec.PDFURL = link
			}
		}
		batch.Records = append(batch.Records, rec)
	}

	zap.L().Info("extract: mapped feed items",
		zap.String("feed", in.Feed.URL),
		zap.String("kind", string(in.Feed.Kind)),
		zap.Int("items", batch.RawCount),
		zap.Int("records", len(batch.Records)),
		zap.Int("unparsed_dates", unparsed),
	)
	return batch, nil
}

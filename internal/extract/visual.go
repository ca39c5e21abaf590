package extract

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/model"
	"github.com/sells-group/circulars-cli/internal/scrape"
	"github.com/sells-group/circulars-cli/pkg/anthropic"
)

// MaxVisionConfidence caps the confidence of records read from a screenshot.
const MaxVisionConfidence = 0.7

// Visual reads announcements from a rendered screenshot of the listing page.
type Visual struct {
	client  anthropic.Client
	shooter scrape.Screenshotter
	cfg     LLMConfig
}

// NewVisual creates the visual strategy.
func NewVisual(client anthropic.Client, shooter scrape.Screenshotter, cfg LLMConfig) *Visual {
	return &Visual{client: client, shooter: shooter, cfg: cfg.withDefaults()}
}

// Strategy implements pipeline.Extractor.
func (v *Visual) Strategy() model.Strategy { return model.StrategyVision }

// Extract captures the target page and asks the model to read it.
func (v *Visual) Extract(ctx context.Context, in model.ExtractInput, hint model.Hint) (*model.ExtractionBatch, error) {
	shot, err := v.shooter.Screenshot(ctx, in.Target.URL)
	if err != nil {
		return nil, eris.Wrap(err, "extract: screenshot")
	}
	if shot == nil || len(shot.Data) == 0 {
		return nil, eris.Errorf("extract: empty screenshot for %s", in.Target.URL)
	}

	zap.L().Debug("extract: vision request",
		zap.String("url", in.Target.URL),
		zap.String("screenshot_source", shot.Source),
		zap.Int("image_bytes", len(shot.Data)),
		zap.Bool("refined", hint.Refined),
	)

	resp, err := v.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       v.cfg.Model,
		MaxTokens:   v.cfg.MaxTokens,
		System:      systemPrompt,
		CacheTTL:    v.cfg.CacheTTL,
		Temperature: zeroTemperature(),
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: visionPrompt(in.Target.URL, in.Target.Category, hint.Refined),
			Images:  []anthropic.Image{{MediaType: mediaTypeOf(shot), Data: shot.Data}},
		}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: vision")
	}
	resp.Usage.Log(v.cfg.Model, string(model.StrategyVision))

	batch, err := parseReply(resp.Text, in.Target.URL, model.StrategyVision)
	if err != nil {
		return nil, err
	}
	for i := range batch.Records {
		batch.Records[i].Confidence = min(batch.Records[i].Confidence, MaxVisionConfidence)
	}
	return batch, nil
}

func mediaTypeOf(shot *scrape.Screenshot) string {
	if shot.MediaType == "" {
		return "image/png"
	}
	return shot.MediaType
}

// Package anthropic wraps the Messages API calls made by the LLM
// extraction strategies.
package anthropic

import (
	"context"
	"encoding/base64"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client is the part of the Messages API the extractors use.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// MessageRequest is a single-shot prompt. System is sent as one block;
// a non-empty CacheTTL ("5m" or "1h") marks it as a cache breakpoint so
// repeated targets in a batch read the prompt from cache.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	Temperature *float64
	System      string
	CacheTTL    string
	Messages    []Message
}

// Message is one conversational turn. Images go ahead of the text.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
	Images  []Image
}

// Image is a raw image attached to a message.
type Image struct {
	MediaType string // "image/png", "image/jpeg", ...
	Data      []byte
}

// MessageResponse carries the concatenated text blocks of a reply.
type MessageResponse struct {
	ID         string
	Model      string
	StopReason string
	Text       string
	Usage      Usage
}

// Usage is the token accounting of one call.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheWriteTokens int64
	CacheReadTokens  int64
}

// pricePerMTok maps model IDs to {input, output} USD per million tokens.
var pricePerMTok = map[string][2]float64{
	"claude-haiku-4-5-20251001":  {1.00, 5.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-opus-4-1-20250805":   {15.00, 75.00},
}

// Cost estimates the USD cost of u on model. Unknown models cost 0.
// Cache writes bill at 1.25x input, cache reads at 0.1x.
func (u Usage) Cost(model string) float64 {
	p, ok := pricePerMTok[model]
	if !ok {
		return 0
	}
	in := float64(u.InputTokens) + 1.25*float64(u.CacheWriteTokens) + 0.1*float64(u.CacheReadTokens)
	return (in*p[0] + float64(u.OutputTokens)*p[1]) / 1e6
}

// Log records the usage of one extraction call.
func (u Usage) Log(model, strategy string) {
	zap.L().Info("anthropic: usage",
		zap.String("model", model),
		zap.String("strategy", strategy),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheWriteTokens),
		zap.Int64("cache_read_tokens", u.CacheReadTokens),
		zap.Float64("estimated_cost_usd", u.Cost(model)),
	)
}

type sdkClient struct {
	client sdk.Client
}

// NewClient returns a Client backed by anthropic-sdk-go. Extra options
// are applied after the API key.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	return &sdkClient{
		client: sdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
	}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  messageParams(req.Messages),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{systemParam(req.System, req.CacheTTL)}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrapf(err, "anthropic: create message (%s)", req.Model)
	}
	return newResponse(msg), nil
}

func systemParam(text, ttl string) sdk.TextBlockParam {
	block := sdk.TextBlockParam{Text: text}
	if ttl != "" {
		cc := sdk.NewCacheControlEphemeralParam()
		cc.TTL = sdk.CacheControlEphemeralTTL(ttl)
		block.CacheControl = cc
	}
	return block
}

func messageParams(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Images)+1)
		for _, img := range m.Images {
			blocks = append(blocks, sdk.NewImageBlockBase64(img.MediaType, base64.StdEncoding.EncodeToString(img.Data)))
		}
		blocks = append(blocks, sdk.NewTextBlock(m.Content))
		if m.Role == "assistant" {
			out = append(out, sdk.NewAssistantMessage(blocks...))
		} else {
			out = append(out, sdk.NewUserMessage(blocks...))
		}
	}
	return out
}

func newResponse(msg *sdk.Message) *MessageResponse {
	var text strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}
	return &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
		Text:       text.String(),
		Usage: Usage{
			InputTokens:      msg.Usage.InputTokens,
			OutputTokens:     msg.Usage.OutputTokens,
			CacheWriteTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadTokens:  msg.Usage.CacheReadInputTokens,
		},
	}
}

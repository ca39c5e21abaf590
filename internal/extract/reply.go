package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/circulars-cli/internal/model"
)

// defaultConfidence applies when the model omits a confidence.
const defaultConfidence = 1.0

var (
	replyListKeys  = append([]string{"announcements", "circulars"}, WrapperKeys...)
	replyDetailKey = []string{"detail_url", "link", "url", "href"}
	replyPDFKey    = []string{"pdf_url", "pdf"}
)

// cleanJSON strips markdown fences and any prose around the outermost JSON
// object or array in a model reply.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return strings.TrimSpace(text)
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(text, closer); end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// parseReply turns a model reply into records. Items without a title or a
// parseable date are dropped but counted in RawCount. Relative links are
// resolved against pageURL.
func parseReply(text, pageURL string, strategy model.Strategy) (*model.ExtractionBatch, error) {
	batch := &model.ExtractionBatch{StrategyUsed: strategy}

	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, eris.New("extract: empty model reply")
	}

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, eris.Wrapf(err, "extract: decode %s reply", strategy)
	}

	items := replyItems(doc)
	batch.RawCount = len(items)

	for _, item := range items {
		title := strings.Join(strings.Fields(Field(item, TitleKeys)), " ")
		date, ok := ParseDate(Field(item, DateKeys))
		if title == "" || !ok {
			continue
		}
		rec := model.Record{
			Title:          title,
			IssueDate:      date,
			Confidence:     confidenceOf(item),
			SourceStrategy: strategy,
			DetailURL:      resolveURL(pageURL, Field(item, replyDetailKey)),
			PDFURL:         resolveURL(pageURL, Field(item, replyPDFKey)),
		}
		if rec.PDFURL == "" && rec.DetailURL != "" && isPDF(rec.DetailURL) {
			rec.PDFURL = rec.DetailURL
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

func replyItems(doc any) []map[string]any {
	obj, ok := doc.(map[string]any)
	if !ok {
		return Items(doc)
	}
	for _, key := range replyListKeys {
		if arr, ok := obj[key].([]any); ok {
			return Items(arr)
		}
	}
	return nil
}

func confidenceOf(item map[string]any) float64 {
	v, ok := item["confidence"]
	if !ok || v == nil {
		return defaultConfidence
	}
	var c float64
	switch x := v.(type) {
	case float64:
		c = x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return defaultConfidence
		}
		c = f
	default:
		return defaultConfidence
	}
	return clamp01(c)
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

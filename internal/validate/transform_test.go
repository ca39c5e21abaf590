package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/circulars-cli/internal/model"
)

func TestRemap_FirstMatchWins(t *testing.T) {
	r := NewRemap(RemapConfig{
		Parent: "sebi",
		Rules: []RemapRule{
			{Category: "PMS", Keywords: []string{"portfolio"}},
			{Category: "AIF", Keywords: []string{"Portfolio Managers", "Alternative Investment"}},
		},
	})

	out, eff := r.Apply(model.Record{Title: "Circular for Portfolio Managers"}, Env{BaseCategory: "SEBI"})
	assert.Equal(t, "PMS", out.Category)
	assert.Equal(t, EffectRemapped, eff)

	out, eff = r.Apply(model.Record{Title: "Alternative Investment Funds: reporting"}, Env{BaseCategory: "SEBI"})
	assert.Equal(t, "AIF", out.Category)
	assert.Equal(t, EffectRemapped, eff)

	out, eff = r.Apply(model.Record{Title: "Master circular on depositories"}, Env{BaseCategory: "SEBI"})
	assert.Equal(t, "SEBI", out.Category)
	assert.Equal(t, EffectNone, eff)
}

func TestRemap_NoParentConfigured(t *testing.T) {
	r := NewRemap(RemapConfig{})
	out, eff := r.Apply(model.Record{Title: "Circular for Portfolio Managers", Category: "stale"}, Env{BaseCategory: "SEBI"})
	assert.Equal(t, "SEBI", out.Category)
	assert.Equal(t, EffectNone, eff)
}

func TestRescore(t *testing.T) {
	today := model.NewDate(2025, time.June, 18)
	s := NewRescore(DefaultRules().RegulatoryKeywords, DefaultRules().StaleAfterDays)

	tests := []struct {
		name string
		rec  model.Record
		want float64
	}{
		{
			name: "long regulatory title",
			rec: model.Record{
				Title:      "Amendment to the listing obligations and disclosure requirements regulations",
				Category:   "NSE",
				IssueDate:  today,
				Confidence: 0.8,
			},
			want: 0.924,
		},
		{
			name: "stale circular",
			rec: model.Record{
				Title:      "Master circular for stock brokers",
				Category:   "NSE",
				IssueDate:  model.NewDate(2010, time.January, 1),
				Confidence: 0.5,
			},
			want: 0.495,
		},
		{
			name: "category in title capped",
			rec: model.Record{
				Title:      "SEBI Circular on Disclosure Norms",
				Category:   "SEBI",
				IssueDate:  today,
				Confidence: 0.9,
			},
			want: 1.0,
		},
		{
			name: "negative clamps to zero",
			rec:  model.Record{Title: "Press note on KYC", IssueDate: today, Confidence: -0.3},
			want: 0,
		},
		{
			name: "over one clamps to one",
			rec:  model.Record{Title: "Press note on KYC", IssueDate: today, Confidence: 1.5},
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, eff := s.Apply(tt.rec, Env{Today: today})
			assert.Equal(t, EffectRescored, eff)
			assert.InDelta(t, tt.want, out.Confidence, 1e-9)
		})
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name       string
		today      model.Date
		weeksBack  int
		start, end string
	}{
		{"wednesday current week", model.NewDate(2025, time.June, 18), 0, "2025-06-16", "2025-06-18"},
		{"monday current week", model.NewDate(2025, time.June, 16), 0, "2025-06-16", "2025-06-16"},
		{"sunday current week", model.NewDate(2025, time.June, 22), 0, "2025-06-16", "2025-06-22"},
		{"one week back", model.NewDate(2025, time.June, 18), 1, "2025-06-09", "2025-06-15"},
		{"three weeks back", model.NewDate(2025, time.June, 18), 3, "2025-05-26", "2025-06-01"},
		{"across year end", model.NewDate(2025, time.January, 1), 1, "2024-12-23", "2024-12-29"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Window(tt.today, tt.weeksBack)
			assert.Equal(t, tt.start, w.Start.String())
			assert.Equal(t, tt.end, w.End.String())
		})
	}
}

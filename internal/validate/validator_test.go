package validate

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/circulars-cli/internal/model"
)

// wednesday is 2025-06-18, a Wednesday.
var wednesday = time.Date(2025, time.June, 18, 10, 30, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestValidator(t *testing.T, mutate func(*Rules)) *Validator {
	t.Helper()
	rules := DefaultRules()
	if mutate != nil {
		mutate(&rules)
	}
	v, err := New(rules, WithClock(fixedClock(wednesday)))
	require.NoError(t, err)
	return v
}

func rec(title string, d model.Date, conf float64) model.Record {
	return model.Record{Title: title, IssueDate: d, Confidence: conf, SourceStrategy: model.StrategySemantic}
}

func TestValidate_EndToEndScenario(t *testing.T) {
	v := newTestValidator(t, nil)
	today := model.DateOf(wednesday)

	batch := &model.ExtractionBatch{
		StrategyUsed: model.StrategySemantic,
		RawCount:     3,
		Records: []model.Record{
			rec("Mutual fund inauguration contest", today, 0.9),
			rec("SEBI Circular on Disclosure Norms", today, 0.9),
			rec("SEBI Circular on Disclosure Norms", today, 0.9),
		},
	}

	out := v.Validate(batch, "SEBI")

	require.Len(t, out.Records, 1)
	got := out.Records[0]
	assert.Equal(t, "SEBI Circular on Disclosure Norms", got.Title)
	assert.Equal(t, "SEBI", got.Category)
	assert.Greater(t, got.Confidence, 0.9)
	assert.LessOrEqual(t, got.Confidence, 1.0)
	assert.Equal(t, model.StrategySemantic, got.SourceStrategy)

	assert.Equal(t, 3, out.Stats.TotalInput)
	assert.Equal(t, 1, out.Stats.ExcludedByKeyword)
	assert.Equal(t, 1, out.Stats.RemovedDuplicate)
	assert.Equal(t, 1, out.Stats.ValidCount)
	assert.Equal(t, 0, out.Stats.RemappedCategory)
	assert.Equal(t, model.StrategySemantic, out.StrategyUsed)
}

func TestValidate_PartitionsMixedBatch(t *testing.T) {
	v := newTestValidator(t, nil)
	today := model.DateOf(wednesday)

	batch := &model.ExtractionBatch{Records: []model.Record{
		rec("", today, 0.9),
		rec("A1 B2", today, 0.9),
		rec("Quiz contest for investors week", today, 0.9),
		rec("Circular on margin rules", model.NewDate(1980, time.March, 3), 0.9),
		rec("Circular on margin rules", today.AddDays(4), 0.9),
		rec("Circular on margin rules", today, 0.9),
		rec("  CIRCULAR  on Margin   rules ", today, 0.9),
		rec("Circular on margin rules", today.AddDays(-1), 0.9),
		rec("Old circular on settlement", model.NewDate(2025, time.May, 1), 0.9),
	}}

	out := v.Validate(batch, "NSE")
	s := out.Stats

	assert.Equal(t, 9, s.TotalInput)
	assert.Equal(t, 2, s.RemovedEmptyTitle)
	assert.Equal(t, 1, s.ExcludedByKeyword)
	assert.Equal(t, 2, s.RemovedUnrealisticDate)
	assert.Equal(t, 1, s.RemovedDuplicate)
	assert.Equal(t, 1, s.OutOfWindow)
	assert.Equal(t, 2, s.ValidCount)
	assert.Equal(t, s.TotalInput, s.Accounted())
	assert.Len(t, out.Records, s.ValidCount)
}

func TestValidate_PartitionHoldsForRandomBatches(t *testing.T) {
	v := newTestValidator(t, func(r *Rules) { r.WeeksBack = 1 })
	today := model.DateOf(wednesday)
	rng := rand.New(rand.NewPCG(7, 11))

	titles := []string{
		"", "ab", "SEBI circular on KYC", "sebi CIRCULAR on kyc", "Mutual Fund roadshow",
		"Circular for Portfolio Managers", "Amendment to listing regulations", "Tender notice",
	}
	for i := 0; i < 200; i++ {
		n := rng.IntN(25)
		batch := &model.ExtractionBatch{}
		for j := 0; j < n; j++ {
			d := today.AddDays(rng.IntN(40) - 30)
			if rng.IntN(10) == 0 {
				d = model.NewDate(1900+rng.IntN(80), time.January, 1)
			}
			batch.Records = append(batch.Records, rec(titles[rng.IntN(len(titles))], d, rng.Float64()))
		}

		out := v.Validate(batch, "SEBI")
		require.Equal(t, out.Stats.TotalInput, out.Stats.Accounted(), "batch %d", i)
		require.Len(t, out.Records, out.Stats.ValidCount)
		for _, r := range out.Records {
			assert.True(t, out.Window.Contains(r.IssueDate))
			assert.GreaterOrEqual(t, r.Confidence, 0.0)
			assert.LessOrEqual(t, r.Confidence, 1.0)
		}
	}
}

func TestValidate_DedupIgnoresCaseAndWhitespace(t *testing.T) {
	v := newTestValidator(t, nil)
	today := model.DateOf(wednesday)

	out := v.Validate(&model.ExtractionBatch{Records: []model.Record{
		rec("Framework for Social Stock Exchange", today, 0.8),
		rec("framework   for social\tstock EXCHANGE", today, 0.6),
		rec("Framework for Social Stock Exchange", today.AddDays(-1), 0.8),
	}}, "SEBI")

	assert.Equal(t, 1, out.Stats.RemovedDuplicate)
	require.Len(t, out.Records, 2)
	assert.Equal(t, "Framework for Social Stock Exchange", out.Records[0].Title, "first seen wins")
	assert.True(t, out.Records[1].IssueDate.Equal(today.AddDays(-1)))
}

func TestValidate_KeywordExclusionIsCaseInsensitive(t *testing.T) {
	v := newTestValidator(t, nil)
	today := model.DateOf(wednesday)

	out := v.Validate(&model.ExtractionBatch{Records: []model.Record{
		rec("INVESTOR QUIZ results announced", today, 0.9),
		rec("Inauguration of new office", today, 0.9),
	}}, "SEBI")

	assert.Equal(t, 2, out.Stats.ExcludedByKeyword)
	assert.Empty(t, out.Records)
}

func TestValidate_MutualFundCircularKept(t *testing.T) {
	v := newTestValidator(t, nil)
	today := model.DateOf(wednesday)

	out := v.Validate(&model.ExtractionBatch{Records: []model.Record{
		rec("Circular on Mutual Funds: Revised Disclosure Norms", today, 0.9),
	}}, "SEBI")

	assert.Equal(t, 0, out.Stats.ExcludedByKeyword)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "SEBI", out.Records[0].Category)
}

func TestValidate_FutureBufferAbsorbsSkew(t *testing.T) {
	v := newTestValidator(t, nil)
	today := model.DateOf(wednesday)

	// Inside the buffer but outside the current window.
	out := v.Validate(&model.ExtractionBatch{Records: []model.Record{
		rec("Circular issued tomorrow", today.AddDays(3), 0.9),
		rec("Circular issued much later", today.AddDays(4), 0.9),
	}}, "SEBI")

	assert.Equal(t, 1, out.Stats.RemovedUnrealisticDate)
	assert.Equal(t, 1, out.Stats.OutOfWindow)
}

func TestValidate_CategoryRemap(t *testing.T) {
	v := newTestValidator(t, func(r *Rules) {
		r.Remap = RemapConfig{
			Parent: "SEBI",
			Rules:  []RemapRule{{Category: "AIF", Keywords: []string{"Portfolio Managers"}}},
		}
	})
	today := model.DateOf(wednesday)
	batch := &model.ExtractionBatch{Records: []model.Record{
		rec("Circular for Portfolio Managers", today, 0.9),
	}}

	out := v.Validate(batch, "SEBI")
	require.Len(t, out.Records, 1)
	assert.Equal(t, "AIF", out.Records[0].Category)
	assert.Equal(t, 1, out.Stats.RemappedCategory)

	out = v.Validate(batch, "RBI")
	require.Len(t, out.Records, 1)
	assert.Equal(t, "RBI", out.Records[0].Category)
	assert.Equal(t, 0, out.Stats.RemappedCategory)
}

func TestValidate_WindowBoundary(t *testing.T) {
	v := newTestValidator(t, func(r *Rules) { r.WeeksBack = 3 })

	out := v.Validate(&model.ExtractionBatch{Records: []model.Record{
		rec("Circular on first day of window", model.NewDate(2025, time.May, 26), 0.9),
		rec("Circular on the day before window", model.NewDate(2025, time.May, 25), 0.9),
		rec("Circular on last day of window", model.NewDate(2025, time.June, 1), 0.9),
		rec("Circular on the day after window", model.NewDate(2025, time.June, 2), 0.9),
	}}, "SEBI")

	assert.Equal(t, "2025-05-26", out.Window.Start.String())
	assert.Equal(t, "2025-06-01", out.Window.End.String())
	require.Len(t, out.Records, 2)
	assert.Equal(t, "Circular on first day of window", out.Records[0].Title)
	assert.Equal(t, "Circular on last day of window", out.Records[1].Title)
	assert.Equal(t, 2, out.Stats.OutOfWindow)
}

func TestValidate_RescoreAppliedExactlyOnce(t *testing.T) {
	v := newTestValidator(t, nil)
	today := model.DateOf(wednesday)

	out := v.Validate(&model.ExtractionBatch{Records: []model.Record{
		rec("Short title here", today, 0.9),
	}}, "RBI")
	require.Len(t, out.Records, 1)
	assert.InDelta(t, 0.72, out.Records[0].Confidence, 1e-9)

	again, _ := NewRescore(DefaultRules().RegulatoryKeywords, DefaultRules().StaleAfterDays).
		Apply(out.Records[0], Env{BaseCategory: "RBI", Today: today})
	assert.NotEqual(t, out.Records[0].Confidence, again.Confidence)
	assert.InDelta(t, 0.576, again.Confidence, 1e-9)
}

func TestValidate_NilBatch(t *testing.T) {
	v := newTestValidator(t, nil)

	out := v.Validate(nil, "SEBI")
	assert.Empty(t, out.Records)
	assert.Equal(t, model.ValidationStats{}, out.Stats)
	assert.Equal(t, "SEBI", out.Category)
}

type upperTitle struct{}

func (upperTitle) Name() string { return "upper" }

func (upperTitle) Apply(r model.Record, _ Env) (model.Record, Effect) {
	r.Title = strings.ToUpper(r.Title)
	return r, EffectNone
}

func TestValidate_ExtraTransforms(t *testing.T) {
	rules := DefaultRules()
	v, err := New(rules, WithClock(fixedClock(wednesday)), WithTransforms(upperTitle{}))
	require.NoError(t, err)

	out := v.Validate(&model.ExtractionBatch{Records: []model.Record{
		rec("Circular on margin rules", model.DateOf(wednesday), 0.9),
	}}, "NSE")
	require.Len(t, out.Records, 1)
	assert.Equal(t, "CIRCULAR ON MARGIN RULES", out.Records[0].Title)
	assert.Equal(t, "remap+rescore+upper", v.transforms.Name())
}

func TestNew_RejectsBadRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Rules)
		want   string
	}{
		{"negative weeks", func(r *Rules) { r.WeeksBack = -1 }, "weeks back"},
		{"zero min date", func(r *Rules) { r.MinDate = model.Date{} }, "min date"},
		{"future min date", func(r *Rules) { r.MinDate = model.NewDate(2030, time.January, 1) }, "after today"},
		{"negative buffer", func(r *Rules) { r.FutureBufferDays = -2 }, "future buffer"},
		{"blank excluded", func(r *Rules) { r.ExcludedKeywords = []string{"quiz", " "} }, "excluded keywords"},
		{"rule without category", func(r *Rules) {
			r.Remap.Rules = []RemapRule{{Keywords: []string{"x"}}}
		}, "no category"},
		{"rule without parent", func(r *Rules) { r.Remap.Parent = "" }, "parent category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := DefaultRules()
			tt.mutate(&rules)
			_, err := New(rules, WithClock(fixedClock(wednesday)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

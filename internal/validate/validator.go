// Package validate turns noisy extraction output into the canonical record
// set for a run. Validation is a pure function of the batch, the run's
// category, the current date and the static Rules.
package validate

import (
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/circulars-cli/internal/model"
)

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the clock used to compute "today".
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithTransforms appends extra transforms after remap and rescore.
func WithTransforms(ts ...Transform) Option {
	return func(v *Validator) { v.transforms = append(v.transforms, ts...) }
}

// Validator filters, deduplicates, remaps, rescores and windows records.
type Validator struct {
	rules      Rules
	now        func() time.Time
	excluded   []string
	transforms Chain
}

// New builds a Validator after checking rules.
func New(rules Rules, opts ...Option) (*Validator, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	v := &Validator{
		rules:    rules,
		now:      time.Now,
		excluded: foldAll(rules.ExcludedKeywords),
		transforms: Chain{
			NewRemap(rules.Remap),
			NewRescore(rules.RegulatoryKeywords, rules.StaleAfterDays),
		},
	}
	for _, o := range opts {
		o(v)
	}
	if today := model.DateOf(v.now()); v.rules.MinDate.After(today) {
		return nil, eris.Errorf("validate: min date %s is after today %s", v.rules.MinDate, today)
	}
	return v, nil
}

// Rules returns the validator's configuration.
func (v *Validator) Rules() Rules { return v.rules }

// Today returns the validator's current calendar date.
func (v *Validator) Today() model.Date { return model.DateOf(v.now()) }

type verdict int

const (
	keep verdict = iota
	rejectTitle
	rejectKeyword
	rejectDate
	rejectDuplicate
)

// Validate runs every record of batch through the stage pipeline. Each input
// record lands in exactly one bucket of the returned stats. A nil batch
// yields an empty result; reporting the missing batch is the caller's job.
func (v *Validator) Validate(batch *model.ExtractionBatch, category string) model.ValidatedBatch {
	today := v.Today()
	out := model.ValidatedBatch{
		Category: category,
		Window:   Window(today, v.rules.WeeksBack),
		Records:  []model.Record{},
	}
	if batch == nil {
		return out
	}
	out.StrategyUsed = batch.StrategyUsed
	out.Stats.TotalInput = len(batch.Records)

	maxDate := today.AddDays(v.rules.FutureBufferDays)
	seen := make(map[string]struct{}, len(batch.Records))
	env := Env{BaseCategory: category, Today: today}

	for _, rec := range batch.Records {
		switch v.check(rec, maxDate, seen) {
		case rejectTitle:
			out.Stats.RemovedEmptyTitle++
			continue
		case rejectKeyword:
			out.Stats.ExcludedByKeyword++
			continue
		case rejectDate:
			out.Stats.RemovedUnrealisticDate++
			continue
		case rejectDuplicate:
			out.Stats.RemovedDuplicate++
			continue
		}

		rec, eff := v.transforms.Apply(rec, env)
		if eff&EffectRemapped != 0 {
			out.Stats.RemappedCategory++
		}

		if !out.Window.Contains(rec.IssueDate) {
			out.Stats.OutOfWindow++
			continue
		}
		out.Records = append(out.Records, rec)
	}
	out.Stats.ValidCount = len(out.Records)
	return out
}

// check runs the filter stages in order and stops at the first rejection.
func (v *Validator) check(rec model.Record, maxDate model.Date, seen map[string]struct{}) verdict {
	title := strings.TrimSpace(rec.Title)
	if countLetters(title) < v.rules.MinTitleLetters || title == "" {
		return rejectTitle
	}
	if containsAny(fold(title), v.excluded) {
		return rejectKeyword
	}
	if rec.IssueDate.IsZero() || !rec.IssueDate.Between(v.rules.MinDate, maxDate) {
		return rejectDate
	}
	key := dedupKey(title, rec.IssueDate.String())
	if _, dup := seen[key]; dup {
		return rejectDuplicate
	}
	seen[key] = struct{}{}
	return keep
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

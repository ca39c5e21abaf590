package validate

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/circulars-cli/internal/model"
)

// Effect flags what a Transform changed on a record.
type Effect uint8

const (
	EffectNone     Effect = 0
	EffectRemapped Effect = 1 << iota
	EffectRescored
)

// Env is the per-run input to a Transform.
type Env struct {
	BaseCategory string
	Today        model.Date
}

// Transform is a pure record-level stage applied to every record that
// survives the filter stages.
type Transform interface {
	Name() string
	Apply(rec model.Record, env Env) (model.Record, Effect)
}

// Chain applies transforms in order and merges their effects.
type Chain []Transform

func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, t := range c {
		names[i] = t.Name()
	}
	return strings.Join(names, "+")
}

func (c Chain) Apply(rec model.Record, env Env) (model.Record, Effect) {
	var eff Effect
	for _, t := range c {
		var e Effect
		rec, e = t.Apply(rec, env)
		eff |= e
	}
	return rec, eff
}

// Remap assigns the base category, overriding it with a sub-vertical when
// the base is the parent and the title matches a rule keyword. Rules and
// keywords are consulted in order and the first match wins.
type Remap struct {
	parent string
	rules  []foldedRule
}

type foldedRule struct {
	category string
	keywords []string
}

// NewRemap builds a Remap from config.
func NewRemap(cfg RemapConfig) *Remap {
	r := &Remap{parent: fold(strings.TrimSpace(cfg.Parent))}
	for _, rule := range cfg.Rules {
		r.rules = append(r.rules, foldedRule{category: rule.Category, keywords: foldAll(rule.Keywords)})
	}
	return r
}

func (r *Remap) Name() string { return "remap" }

func (r *Remap) Apply(rec model.Record, env Env) (model.Record, Effect) {
	rec.Category = env.BaseCategory
	if r.parent == "" || fold(strings.TrimSpace(env.BaseCategory)) != r.parent {
		return rec, EffectNone
	}
	title := fold(rec.Title)
	for _, rule := range r.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(title, kw) {
				rec.Category = rule.category
				return rec, EffectRemapped
			}
		}
	}
	return rec, EffectNone
}

// Rescore multipliers.
const (
	shortTitleLen     = 20
	longTitleLen      = 50
	shortTitleFactor  = 0.8
	longTitleFactor   = 1.05
	regulatoryFactor  = 1.1
	categoryFactor    = 1.05
	staleRecordFactor = 0.9
)

// Rescore adjusts confidence from title and age signals. It is not
// idempotent, so the validator applies it exactly once per record.
type Rescore struct {
	regulatory     []string
	staleAfterDays int
}

// NewRescore builds a Rescore.
func NewRescore(regulatoryKeywords []string, staleAfterDays int) *Rescore {
	return &Rescore{regulatory: foldAll(regulatoryKeywords), staleAfterDays: staleAfterDays}
}

func (s *Rescore) Name() string { return "rescore" }

func (s *Rescore) Apply(rec model.Record, env Env) (model.Record, Effect) {
	c := rec.Confidence
	title := strings.TrimSpace(rec.Title)
	folded := fold(title)

	switch n := utf8.RuneCountInString(title); {
	case n < shortTitleLen:
		c = capOne(c * shortTitleFactor)
	case n > longTitleLen:
		c = capOne(c * longTitleFactor)
	}
	if containsAny(folded, s.regulatory) {
		c = capOne(c * regulatoryFactor)
	}
	if cat := strings.TrimSpace(rec.Category); cat != "" && strings.Contains(folded, fold(cat)) {
		c = capOne(c * categoryFactor)
	}
	if !env.Today.IsZero() && env.Today.DaysSince(rec.IssueDate) > s.staleAfterDays {
		c = capOne(c * staleRecordFactor)
	}

	rec.Confidence = round3(clamp01(c))
	return rec, EffectRescored
}

func capOne(c float64) float64 { return math.Min(c, 1) }

func clamp01(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	return math.Min(c, 1)
}

func round3(c float64) float64 {
	return math.Round(c*1000) / 1000
}

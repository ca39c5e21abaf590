package validate

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/circulars-cli/internal/config"
	"github.com/sells-group/circulars-cli/internal/model"
)

// RemapRule maps titles containing any of Keywords to the sub-vertical
// Category.
type RemapRule struct {
	Category string
	Keywords []string
}

// RemapConfig applies Rules only to runs whose base category is Parent.
type RemapConfig struct {
	Parent string
	Rules  []RemapRule
}

// Rules is the static configuration of a Validator.
type Rules struct {
	MinDate            model.Date
	FutureBufferDays   int
	StaleAfterDays     int
	MinTitleLetters    int
	ExcludedKeywords   []string
	RegulatoryKeywords []string
	Remap              RemapConfig
	WeeksBack          int
}

// DefaultRules returns the rules built from the config defaults.
func DefaultRules() Rules {
	return RulesFromConfig(config.DefaultValidateConfig())
}

// RulesFromConfig converts the validate section of the app config.
func RulesFromConfig(c config.ValidateConfig) Rules {
	r := Rules{
		MinDate:            model.NewDate(c.MinYear, time.January, 1),
		FutureBufferDays:   c.FutureBufferDays,
		StaleAfterDays:     c.StaleAfterDays,
		MinTitleLetters:    c.MinTitleLetters,
		ExcludedKeywords:   c.ExcludedKeywords,
		RegulatoryKeywords: c.RegulatoryKeywords,
		Remap:              RemapConfig{Parent: c.Remap.Parent},
		WeeksBack:          c.WeeksBack,
	}
	for _, rr := range c.Remap.Rules {
		r.Remap.Rules = append(r.Remap.Rules, RemapRule{Category: rr.Category, Keywords: rr.Keywords})
	}
	return r
}

// Validate checks the rules for configuration errors. It must pass before any
// extraction work starts.
func (r Rules) Validate() error {
	if r.MinDate.IsZero() {
		return eris.New("validate: min date is required")
	}
	if r.WeeksBack < 0 {
		return eris.Errorf("validate: weeks back must be >= 0, got %d", r.WeeksBack)
	}
	if r.FutureBufferDays < 0 {
		return eris.Errorf("validate: future buffer days must be >= 0, got %d", r.FutureBufferDays)
	}
	if r.StaleAfterDays <= 0 {
		return eris.Errorf("validate: stale after days must be > 0, got %d", r.StaleAfterDays)
	}
	if r.MinTitleLetters < 0 {
		return eris.Errorf("validate: min title letters must be >= 0, got %d", r.MinTitleLetters)
	}
	for _, kw := range r.ExcludedKeywords {
		if strings.TrimSpace(kw) == "" {
			return eris.New("validate: excluded keywords must not be blank")
		}
	}
	for _, kw := range r.RegulatoryKeywords {
		if strings.TrimSpace(kw) == "" {
			return eris.New("validate: regulatory keywords must not be blank")
		}
	}
	if len(r.Remap.Rules) > 0 && strings.TrimSpace(r.Remap.Parent) == "" {
		return eris.New("validate: remap rules need a parent category")
	}
	for i, rule := range r.Remap.Rules {
		if strings.TrimSpace(rule.Category) == "" {
			return eris.Errorf("validate: remap rule %d has no category", i)
		}
		if len(rule.Keywords) == 0 {
			return eris.Errorf("validate: remap rule %q has no keywords", rule.Category)
		}
		for _, kw := range rule.Keywords {
			if strings.TrimSpace(kw) == "" {
				return eris.Errorf("validate: remap rule %q has a blank keyword", rule.Category)
			}
		}
	}
	return nil
}

// Package pipeline drives extraction strategies for one target through a
// bounded retry and escalation cascade, then hands the surviving batch to
// the record validator.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/model"
)

// ContentLoader fetches the listing page for a target.
type ContentLoader interface {
	Load(ctx context.Context, target model.Target) (*model.Content, error)
}

// FeedProber looks for a structured data source behind a target. Errors
// are treated as "no feed".
type FeedProber interface {
	Probe(ctx context.Context, target model.Target, content *model.Content) (*model.Feed, error)
}

// Extractor is one extraction strategy. It returns an empty batch and a
// nil error when it legitimately finds nothing, and an error only when it
// could not run.
type Extractor interface {
	Strategy() model.Strategy
	Extract(ctx context.Context, in model.ExtractInput, hint model.Hint) (*model.ExtractionBatch, error)
}

// Validator turns the final batch into the canonical record set.
type Validator interface {
	Validate(batch *model.ExtractionBatch, category string) model.ValidatedBatch
}

// RunState is the mutable state of one run. Only the orchestrator touches it.
type RunState struct {
	AttemptCount int
	LastBatch    *model.ExtractionBatch
	Errors       []string
	Attempts     []model.Attempt
	Category     string
	Subfolder    string

	feedTried bool
}

func (s *RunState) addError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLoader sets the content loader.
func WithLoader(l ContentLoader) Option { return func(o *Orchestrator) { o.loader = l } }

// WithProber sets the structured-feed prober.
func WithProber(p FeedProber) Option { return func(o *Orchestrator) { o.prober = p } }

// WithStructured sets the structured-feed strategy.
func WithStructured(e Extractor) Option { return func(o *Orchestrator) { o.structured = e } }

// WithVisual sets the visual strategy used for escalation.
func WithVisual(e Extractor) Option { return func(o *Orchestrator) { o.visual = e } }

// WithClock overrides the clock used for run timestamps.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// Orchestrator runs the extraction state machine for one target at a time.
type Orchestrator struct {
	policy     Policy
	validator  Validator
	semantic   Extractor
	loader     ContentLoader
	prober     FeedProber
	structured Extractor
	visual     Extractor
	now        func() time.Time
}

// New creates an Orchestrator. The content-semantic strategy and the
// validator are required; every other collaborator is optional.
func New(policy Policy, v Validator, semantic Extractor, opts ...Option) (*Orchestrator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, eris.New("pipeline: validator is required")
	}
	if semantic == nil {
		return nil, eris.New("pipeline: semantic extractor is required")
	}
	o := &Orchestrator{
		policy:    policy,
		validator: v,
		semantic:  semantic,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Policy returns the orchestrator's retry policy.
func (o *Orchestrator) Policy() Policy { return o.policy }

// Run executes the cascade for target and always returns a result unless
// the target itself is malformed. Extraction failures, timeouts and empty
// output are recorded in the result's Errors.
func (o *Orchestrator) Run(ctx context.Context, target model.Target) (*model.RunResult, error) {
	if strings.TrimSpace(target.Category) == "" {
		return nil, eris.New("pipeline: target category is required")
	}
	if strings.TrimSpace(target.URL) == "" {
		return nil, eris.New("pipeline: target url is required")
	}

	log := zap.L().With(zap.String("category", target.Category), zap.String("subfolder", target.Subfolder))
	log.Info("pipeline: starting run", zap.String("url", target.URL))

	st := &RunState{Category: target.Category, Subfolder: target.Subfolder}
	res := &model.RunResult{Target: target, StartedAt: o.now()}

	var in model.ExtractInput
	state := StateInit
	for state != StateDone {
		switch state {
		case StateInit:
			in = o.init(ctx, target, st)
			if ctx.Err() != nil {
				st.addError(fmt.Sprintf("run cancelled: %v", ctx.Err()))
			}
			state = Next(state, Outcome{Cancelled: ctx.Err() != nil}, o.policy)

		case StateTryPrimary, StateTryEscalated:
			if ctx.Err() != nil {
				st.addError(fmt.Sprintf("run cancelled: %v", ctx.Err()))
				state = StateValidate
				continue
			}
			batch := o.attempt(ctx, state, in, st)
			outcome := Outcome{
				Records:       len(batch.Records),
				PriorFailures: st.AttemptCount,
				HasContent:    in.Content.HasBody(),
				HasVisual:     o.visual != nil,
				Cancelled:     ctx.Err() != nil,
			}
			if batch.Empty() {
				st.AttemptCount++
			}
			if outcome.Cancelled {
				st.addError(fmt.Sprintf("run cancelled: %v", ctx.Err()))
			}
			st.LastBatch = batch
			next := Next(state, outcome, o.policy)
			log.Debug("pipeline: transition",
				zap.Stringer("from", state),
				zap.Stringer("to", next),
				zap.Int("records", outcome.Records),
				zap.Int("attempt_count", st.AttemptCount),
			)
			state = next

		case StateValidate:
			o.validate(st, res, log)
			state = Next(state, Outcome{}, o.policy)
		}
	}

	res.Errors = st.Errors
	res.Attempts = st.Attempts
	res.FinishedAt = o.now()
	log.Info("pipeline: run complete",
		zap.Int("records", len(res.Records)),
		zap.Int("errors", len(res.Errors)),
		zap.Int("attempts", len(res.Attempts)),
		zap.String("strategy", string(res.StrategyUsed)),
		zap.Duration("duration", res.Duration()),
	)
	return res, nil
}

// init loads content and probes for a feed. Neither failure is fatal.
func (o *Orchestrator) init(ctx context.Context, target model.Target, st *RunState) model.ExtractInput {
	in := model.ExtractInput{Target: target}

	if o.loader != nil {
		lctx, cancel := context.WithTimeout(ctx, o.policy.AttemptTimeout)
		content, err := o.loader.Load(lctx, target)
		cancel()
		if err != nil {
			st.addError(fmt.Sprintf("load %s: %v", target.URL, err))
			zap.L().Warn("pipeline: content load failed", zap.String("url", target.URL), zap.Error(err))
		} else {
			in.Content = content
		}
	}

	if o.prober != nil {
		pctx, cancel := context.WithTimeout(ctx, o.policy.AttemptTimeout)
		feed, err := o.prober.Probe(pctx, target, in.Content)
		cancel()
		if err != nil {
			zap.L().Warn("pipeline: feed probe failed", zap.String("url", target.URL), zap.Error(err))
			feed = &model.Feed{Found: false}
		}
		in.Feed = feed
	}
	return in
}

// attempt runs the strategy for state. Within TryPrimary the structured
// strategy is consumed once; a zero-record feed falls through to the
// semantic strategy in the same step without counting as a failure.
func (o *Orchestrator) attempt(ctx context.Context, state State, in model.ExtractInput, st *RunState) *model.ExtractionBatch {
	hint := model.Hint{Attempt: len(st.Attempts) + 1, Refined: st.AttemptCount > 0}

	if state == StateTryEscalated {
		return o.try(ctx, o.visual, in, hint, st)
	}

	if in.Feed.Usable() && o.structured != nil && !st.feedTried {
		st.feedTried = true
		batch := o.try(ctx, o.structured, in, hint, st)
		if !batch.Empty() {
			return batch
		}
		zap.L().Info("pipeline: structured feed yielded no records, falling through",
			zap.String("feed", in.Feed.URL),
		)
		hint.Attempt = len(st.Attempts) + 1
	}

	if !in.Content.HasBody() {
		msg := fmt.Sprintf("attempt %d (%s): no content available for extraction", hint.Attempt, model.StrategySemantic)
		st.addError(msg)
		st.Attempts = append(st.Attempts, model.Attempt{
			Number:   hint.Attempt,
			Strategy: model.StrategySemantic,
			Refined:  hint.Refined,
			Error:    msg,
		})
		return &model.ExtractionBatch{StrategyUsed: model.StrategySemantic, Error: msg}
	}
	return o.try(ctx, o.semantic, in, hint, st)
}

// try runs one extractor under the per-attempt timeout and records the
// attempt. The returned batch is never nil.
func (o *Orchestrator) try(ctx context.Context, ex Extractor, in model.ExtractInput, hint model.Hint, st *RunState) *model.ExtractionBatch {
	strategy := ex.Strategy()
	actx, cancel := context.WithTimeout(ctx, o.policy.AttemptTimeout)
	defer cancel()

	start := o.now()
	batch, err := ex.Extract(actx, in, hint)
	elapsed := o.now().Sub(start)

	if batch == nil {
		batch = &model.ExtractionBatch{}
	}
	if batch.StrategyUsed == "" {
		batch.StrategyUsed = strategy
	}

	var msg string
	switch {
	case err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded):
		msg = fmt.Sprintf("attempt %d (%s): timed out after %s", hint.Attempt, strategy, o.policy.AttemptTimeout)
		batch = &model.ExtractionBatch{StrategyUsed: strategy, RawCount: batch.RawCount, Error: msg}
	case err != nil:
		msg = fmt.Sprintf("attempt %d (%s): %v", hint.Attempt, strategy, err)
		batch = &model.ExtractionBatch{StrategyUsed: strategy, RawCount: batch.RawCount, Error: msg}
	case batch.Empty():
		msg = fmt.Sprintf("attempt %d (%s): no records extracted", hint.Attempt, strategy)
	}

	st.Attempts = append(st.Attempts, model.Attempt{
		Number:   hint.Attempt,
		Strategy: strategy,
		Refined:  hint.Refined,
		Records:  len(batch.Records),
		Duration: elapsed,
		Error:    msg,
	})

	fields := []zap.Field{
		zap.Int("attempt", hint.Attempt),
		zap.String("strategy", string(strategy)),
		zap.Bool("refined", hint.Refined),
		zap.Int("records", len(batch.Records)),
		zap.Int("raw_count", batch.RawCount),
		zap.Duration("elapsed", elapsed),
	}
	if msg != "" {
		// An empty structured feed is not an error.
		if strategy != model.StrategyAPI || batch.Failed() {
			st.addError(msg)
		}
		zap.L().Warn("pipeline: attempt produced no records", append(fields, zap.String("reason", msg))...)
	} else {
		zap.L().Info("pipeline: attempt succeeded", fields...)
	}
	return batch
}

func (o *Orchestrator) validate(st *RunState, res *model.RunResult, log *zap.Logger) {
	if st.LastBatch == nil {
		st.addError("no extraction result")
	}
	vb := o.validator.Validate(st.LastBatch, st.Category)

	if st.LastBatch.Empty() && len(st.Attempts) > 0 {
		st.addError(fmt.Sprintf("extraction exhausted after %d attempts with no records", len(st.Attempts)))
	}

	res.Records = vb.Records
	res.Stats = vb.Stats
	res.Window = vb.Window
	res.StrategyUsed = vb.StrategyUsed

	log.Info("pipeline: validated",
		zap.Int("total_input", vb.Stats.TotalInput),
		zap.Int("valid", vb.Stats.ValidCount),
		zap.Int("removed_empty_title", vb.Stats.RemovedEmptyTitle),
		zap.Int("excluded_by_keyword", vb.Stats.ExcludedByKeyword),
		zap.Int("removed_unrealistic_date", vb.Stats.RemovedUnrealisticDate),
		zap.Int("removed_duplicate", vb.Stats.RemovedDuplicate),
		zap.Int("remapped_category", vb.Stats.RemappedCategory),
		zap.Int("out_of_window", vb.Stats.OutOfWindow),
		zap.Stringer("window_start", vb.Window.Start),
		zap.Stringer("window_end", vb.Window.End),
	)
}

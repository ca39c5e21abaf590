package pipeline

import (
	"time"

	"github.com/rotisserie/eris"
)

// State is a step of the extraction state machine.
type State int

const (
	StateInit State = iota
	StateTryPrimary
	StateTryEscalated
	StateValidate
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateTryPrimary:
		return "try_primary"
	case StateTryEscalated:
		return "try_escalated"
	case StateValidate:
		return "validate"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Policy bounds the cascade.
type Policy struct {
	// MaxRetries is the number of attempts allowed after the first one,
	// counted across all strategies.
	MaxRetries     int
	AttemptTimeout time.Duration
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, AttemptTimeout: 60 * time.Second}
}

// Validate checks the policy for configuration errors.
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return eris.Errorf("pipeline: max retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.AttemptTimeout <= 0 {
		return eris.Errorf("pipeline: attempt timeout must be > 0, got %s", p.AttemptTimeout)
	}
	return nil
}

// Outcome summarizes the attempt that just finished.
type Outcome struct {
	Records int
	// PriorFailures is the failure count before this attempt.
	PriorFailures int
	HasContent    bool
	HasVisual     bool
	Cancelled     bool
}

// Next is the transition function of the state machine. It performs no IO.
//
// After an attempt that found records the run validates. After an empty or
// failed attempt, the first failure retries the primary strategy with the
// refined hint, later failures escalate to the visual strategy, and the run
// validates once PriorFailures reaches MaxRetries.
func Next(s State, o Outcome, p Policy) State {
	switch s {
	case StateInit:
		if o.Cancelled {
			return StateValidate
		}
		return StateTryPrimary
	case StateTryPrimary:
		if o.Records > 0 || o.Cancelled || o.PriorFailures >= p.MaxRetries {
			return StateValidate
		}
		if o.PriorFailures == 0 && o.HasContent {
			return StateTryPrimary
		}
		if o.HasVisual {
			return StateTryEscalated
		}
		if o.HasContent {
			return StateTryPrimary
		}
		return StateValidate
	case StateTryEscalated:
		if o.Records > 0 || o.Cancelled || o.PriorFailures >= p.MaxRetries {
			return StateValidate
		}
		return StateTryEscalated
	}
	return StateDone
}

// Package arbiter races the detectors against a deadline and resolves the
// race into exactly one decision.
//
// A run starts the frame source, launches every detector and the deadline
// task, then waits for completions. Completions observed in the same wait
// cycle are evaluated in the fixed order gesture, identity, occupancy,
// deadline. The first terminal verdict ends the run: remaining tasks are
// cancelled and awaited for a bounded grace period, the frame source is
// stopped and the decision returned.
package arbiter

import (
	"fmt"
	"time"

	"github.com/robocof/robocof/internal/decision"
	"github.com/robocof/robocof/internal/detector"
	"github.com/robocof/robocof/internal/errors"
	"github.com/robocof/robocof/internal/frame"
	"github.com/robocof/robocof/internal/logging"
	"github.com/robocof/robocof/internal/telemetry"
)

// Mode selects normal or observation-only arbitration.
type Mode int

const (
	// ModeNormal resolves the run on the first terminal verdict or at the
	// deadline.
	ModeNormal Mode = iota
	// ModeDebug disables the deadline and every verdict. The run ends only
	// when its context is cancelled, and then returns decision.Error.
	ModeDebug
)

func (m Mode) String() string {
	if m == ModeDebug {
		return "debug"
	}
	return "normal"
}

// MinGracePeriod is the lower bound of the derived grace period.
const MinGracePeriod = 150 * time.Millisecond

// Config is the static arbitration configuration.
type Config struct {
	// Positive gestures resolve to CarryOutAction, negative ones to
	// UserAbort. Positive wins on overlap.
	Positive []string
	Negative []string

	Interval time.Duration
	Options  frame.Options
}

// Arbiter runs arbitration over one frame source and a fixed detector set.
// A single Arbiter may serve many runs, one at a time per frame source.
type Arbiter struct {
	source    frame.Source
	detectors [decision.NumTasks]detector.Detector
	policy    *decision.Policy
	interval  time.Duration
	options   frame.Options
	grace     time.Duration
	maxTO     time.Duration

	cfg    arbiterConfig
	logger *logging.Logger
}

// New validates cfg and the detector set and returns an Arbiter. At most one
// detector per kind is accepted; kinds left out are simply not raced.
func New(source frame.Source, cfg Config, detectors []detector.Detector, opts ...Option) (*Arbiter, error) {
	if source == nil {
		return nil, errors.NewConfigurationError("source", nil, "frame source is required")
	}
	if cfg.Interval < 0 {
		return nil, errors.NewConfigurationError("sampling.interval_ms", cfg.Interval, "must not be negative")
	}

	policy, err := decision.NewPolicy(cfg.Positive, cfg.Negative, false)
	if err != nil {
		return nil, err
	}

	a := &Arbiter{
		source:   source,
		policy:   policy,
		interval: cfg.Interval,
		options:  cfg.Options,
	}
	if a.interval == 0 {
		a.interval = detector.DefaultInterval
	}

	for _, d := range detectors {
		if d == nil {
			continue
		}
		task, ok := decision.TaskFor(d.ID())
		if !ok {
			return nil, errors.NewConfigurationError("detectors", d.ID(), "unknown detector kind")
		}
		if a.detectors[task] != nil {
			return nil, errors.NewConfigurationError("detectors", d.ID(), "duplicate detector kind")
		}
		if g, ok := d.(*detector.GestureDetector); ok && len(g.Triggers) == 0 {
			own := *g
			own.Triggers = policy.GestureTriggers()
			d = &own
		}
		a.detectors[task] = d
	}

	for _, opt := range opts {
		opt(&a.cfg)
	}
	if a.cfg.gracePeriod < 0 {
		return nil, errors.NewConfigurationError("decision.grace_period_ms", a.cfg.gracePeriod, "must not be negative")
	}
	if a.cfg.logger == nil {
		a.cfg.logger = logging.NopLogger()
	}
	if a.cfg.instruments == nil {
		a.cfg.instruments = telemetry.New()
	}
	a.logger = a.cfg.logger.WithPhase("arbiter")
	a.grace = a.cfg.gracePeriod
	if a.grace == 0 {
		a.grace = max(3*a.interval, MinGracePeriod)
	}
	a.maxTO = a.cfg.maxTimeout

	return a, nil
}

// Policy returns the arbiter's decision policy.
func (a *Arbiter) Policy() *decision.Policy { return a.policy }

// GracePeriod returns the effective cancellation grace period.
func (a *Arbiter) GracePeriod() time.Duration { return a.grace }

// Detectors returns the IDs of the raced detectors in priority order.
func (a *Arbiter) Detectors() []string {
	var ids []string
	for _, d := range a.detectors {
		if d != nil {
			ids = append(ids, string(d.ID()))
		}
	}
	return ids
}

func (a *Arbiter) validateTimeout(timeout time.Duration, mode Mode) error {
	if mode == ModeDebug {
		return nil
	}
	if timeout <= 0 {
		return errors.NewConfigurationError("timeout", timeout, "must be positive")
	}
	if a.maxTO > 0 && timeout > a.maxTO {
		return errors.NewConfigurationError("timeout", timeout, fmt.Sprintf("exceeds maximum of %s", a.maxTO))
	}
	return nil
}

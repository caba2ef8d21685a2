// Package detector wraps perception models as cancellable units of work.
//
// Each [Detector] repeatedly fetches the newest frame from a shared
// [frame.Source], classifies it and returns once an observation in its
// trigger set is seen or its context is cancelled. Detectors never return a
// raw failure to the caller: every exit is an [Outcome].
package detector

import (
	"context"
	"time"

	"github.com/robocof/robocof/internal/errors"
	"github.com/robocof/robocof/internal/frame"
	"github.com/robocof/robocof/internal/logging"
)

// ID names a detector kind.
type ID string

const (
	GestureID   ID = "gesture"
	IdentityID  ID = "identity"
	OccupancyID ID = "occupancy"
)

// DefaultInterval is the pause between two sampling rounds.
const DefaultInterval = 50 * time.Millisecond

// Kind discriminates the three Outcome shapes.
type Kind int

const (
	KindContinue Kind = iota
	KindConclusive
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindContinue:
		return "continue"
	case KindConclusive:
		return "conclusive"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the payload of a conclusive outcome. Each detector fills only
// its own field.
type Result struct {
	Gestures  GestureSet
	Identity  IdentityMatch
	Occupancy Occupancy

	// Expired is set only by the deadline task.
	Expired bool
}

// Outcome is what a detector run ends with: Continue, Conclusive(Result)
// or Failed(error).
type Outcome struct {
	Kind   Kind
	Result Result
	Err    error
}

// Continue returns an outcome carrying no verdict.
func Continue() Outcome { return Outcome{Kind: KindContinue} }

// Conclusive returns an outcome carrying r.
func Conclusive(r Result) Outcome { return Outcome{Kind: KindConclusive, Result: r} }

// Failed returns an outcome carrying err.
func Failed(err error) Outcome { return Outcome{Kind: KindFailed, Err: err} }

// Canceled reports whether the outcome is the acknowledgement of a
// cancellation rather than a real failure.
func (o Outcome) Canceled() bool {
	return o.Kind == KindFailed && errors.Is(o.Err, errors.ErrCanceled)
}

// Detector is one perception signal producer.
type Detector interface {
	ID() ID
	// Run samples until conclusive or ctx is done. It must return within
	// one sampling interval of cancellation, plus the latency of a
	// classification call already in flight.
	Run(ctx context.Context, env Env) Outcome
}

// Env is the shared, read-only environment of a detector run.
type Env struct {
	Source   frame.Source
	Options  frame.Options
	Interval time.Duration
	Logger   *logging.Logger

	// Report, if set, receives every non-empty observation. It is called
	// from the detector's goroutine and must not block.
	Report func(id ID, observation string)
}

func (e Env) interval() time.Duration {
	if e.Interval <= 0 {
		return DefaultInterval
	}
	return e.Interval
}

func (e Env) logger() *logging.Logger {
	if e.Logger == nil {
		return logging.NopLogger()
	}
	return e.Logger
}

func (e Env) report(id ID, observation string) {
	if e.Report != nil && observation != "" {
		e.Report(id, observation)
	}
}

// classifyFunc classifies one frame. It returns conclusive=true when the
// result ends the detector run.
type classifyFunc func(ctx context.Context, f *frame.Frame) (Result, bool, error)

// sample is the loop shared by all detectors: fetch the newest unseen
// frame, classify, wait one interval, repeat. Transient failures are logged
// and absorbed; any other error ends the run as a DetectorFault.
func sample(ctx context.Context, env Env, id ID, classify classifyFunc) Outcome {
	logger := env.logger().WithDetector(string(id))
	ticker := time.NewTicker(env.interval())
	defer ticker.Stop()

	var lastSeq uint64
	for {
		if err := ctx.Err(); err != nil {
			return canceled(err)
		}

		if f := env.Source.Latest(env.Options); f != nil && (f.Seq == 0 || f.Seq != lastSeq) {
			lastSeq = f.Seq
			result, conclusive, err := classify(ctx, f)
			switch {
			case err == nil && conclusive:
				logger.Debug("conclusive", "seq", f.Seq)
				return Conclusive(result)
			case err == nil:
			case ctx.Err() != nil:
				// Whatever the classifier returned, the run is over.
				return canceled(ctx.Err())
			case errors.IsTransient(err):
				logger.Debug("sampling round failed", "error", err)
			default:
				logger.Warn("classification failed", "error", err)
				return Failed(errors.NewDetectorFault(string(id), err))
			}
		}

		select {
		case <-ctx.Done():
			return canceled(ctx.Err())
		case <-ticker.C:
		}
	}
}

func canceled(cause error) Outcome {
	return Failed(errors.Join(errors.ErrCanceled, cause))
}

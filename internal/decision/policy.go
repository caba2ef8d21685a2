package decision

import (
	"github.com/robocof/robocof/internal/detector"
	"github.com/robocof/robocof/internal/errors"
)

// Task names one slot of an arbitration run. The numeric order is the
// tie-break order for completions observed in the same wait cycle.
type Task int

const (
	TaskGesture Task = iota
	TaskIdentity
	TaskOccupancy
	TaskDeadline

	// NumTasks is the number of task slots.
	NumTasks = int(TaskDeadline) + 1
)

func (t Task) String() string {
	switch t {
	case TaskGesture:
		return string(detector.GestureID)
	case TaskIdentity:
		return string(detector.IdentityID)
	case TaskOccupancy:
		return string(detector.OccupancyID)
	case TaskDeadline:
		return "deadline"
	default:
		return "unknown"
	}
}

// TaskFor returns the slot of a detector.
func TaskFor(id detector.ID) (Task, bool) {
	switch id {
	case detector.GestureID:
		return TaskGesture, true
	case detector.IdentityID:
		return TaskIdentity, true
	case detector.OccupancyID:
		return TaskOccupancy, true
	}
	return 0, false
}

// Verdict is the policy's answer for one completion.
type Verdict struct {
	// Terminal is false for "continue".
	Terminal bool
	Decision Decision
	// Err is set when Decision is Error.
	Err error
}

// Continue is the non-terminal verdict.
var Continue = Verdict{}

func terminal(d Decision) Verdict { return Verdict{Terminal: true, Decision: d} }

// String renders the verdict for logs and events.
func (v Verdict) String() string {
	if !v.Terminal {
		return "continue"
	}
	return v.Decision.String()
}

// Policy maps task completions onto decisions.
type Policy struct {
	Positive detector.GestureSet
	Negative detector.GestureSet

	// Debug turns every completion into "continue".
	Debug bool
}

// NewPolicy builds a Policy from trigger tags, rejecting unknown tags.
func NewPolicy(positive, negative []string, debug bool) (*Policy, error) {
	pos, err := detector.ParseGestureSet(positive)
	if err != nil {
		return nil, errors.NewConfigurationError("gestures.positive", positive, err.Error())
	}
	neg, err := detector.ParseGestureSet(negative)
	if err != nil {
		return nil, errors.NewConfigurationError("gestures.negative", negative, err.Error())
	}
	if len(pos) == 0 && len(neg) == 0 {
		return nil, errors.NewConfigurationError("gestures", nil, "at least one positive or negative gesture is required")
	}
	return &Policy{Positive: pos, Negative: neg, Debug: debug}, nil
}

// GestureTriggers returns the gestures that make a gesture detector
// conclusive: positive ∪ negative.
func (p *Policy) GestureTriggers() detector.GestureSet {
	return p.Positive.Union(p.Negative)
}

// Evaluate classifies the completion of task. A failed outcome resolves to
// Error in every mode, debug included. Identity never ends a run by itself;
// its result is read when the deadline expires (see Expire).
func (p *Policy) Evaluate(task Task, out detector.Outcome) Verdict {
	switch out.Kind {
	case detector.KindFailed:
		return Verdict{Terminal: true, Decision: Error, Err: out.Err}
	case detector.KindContinue:
		return Continue
	}
	if p.Debug {
		return Continue
	}

	switch task {
	case TaskGesture:
		return p.gesture(out.Result.Gestures)
	case TaskDeadline:
		return terminal(Timeout)
	default:
		return Continue
	}
}

// Expire classifies the deadline completion out given the identity slot's
// outcome so far. A conclusive identity turns Timeout into the matching
// TIMEOUT_*_USER decision; anything else leaves plain Timeout.
func (p *Policy) Expire(out, identityOut detector.Outcome) Verdict {
	v := p.Evaluate(TaskDeadline, out)
	if !v.Terminal || v.Decision != Timeout {
		return v
	}
	if identityOut.Kind == detector.KindConclusive {
		return identity(identityOut.Result.Identity)
	}
	return v
}

func (p *Policy) gesture(tags detector.GestureSet) Verdict {
	for g := range tags {
		if p.Positive.Has(g) {
			return terminal(CarryOutAction)
		}
	}
	for g := range tags {
		if p.Negative.Has(g) {
			return terminal(UserAbort)
		}
	}
	return Continue
}

func identity(m detector.IdentityMatch) Verdict {
	switch m {
	case detector.IdentityAbsent:
		return terminal(TimeoutNoUser)
	case detector.IdentityWrong:
		return terminal(TimeoutWrongUser)
	case detector.IdentityCorrect:
		return terminal(TimeoutCorrectUser)
	}
	return terminal(Timeout)
}

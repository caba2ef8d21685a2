package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/robocof/robocof/internal/frame"
)

// IdentityMatch is the tri-state result of comparing the people in view
// with the expected user.
type IdentityMatch int

const (
	IdentityAbsent IdentityMatch = iota
	IdentityWrong
	IdentityCorrect
)

func (m IdentityMatch) String() string {
	switch m {
	case IdentityAbsent:
		return "absent"
	case IdentityWrong:
		return "wrong"
	case IdentityCorrect:
		return "correct"
	default:
		return fmt.Sprintf("IdentityMatch(%d)", int(m))
	}
}

// ParseIdentityMatch parses "absent", "wrong" or "correct".
func ParseIdentityMatch(s string) (IdentityMatch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "absent":
		return IdentityAbsent, nil
	case "wrong":
		return IdentityWrong, nil
	case "correct":
		return IdentityCorrect, nil
	}
	return IdentityAbsent, fmt.Errorf("unknown identity match %q", s)
}

// DefaultConfirmations is the number of consecutive identical observations
// an IdentityDetector needs before it concludes.
const DefaultConfirmations = 3

// FaceRecognizer returns the names of the people recognized in a frame.
// Faces that are visible but not known are reported as empty names. No
// faces at all is a valid, empty result.
type FaceRecognizer interface {
	Recognize(ctx context.Context, f *frame.Frame) ([]string, error)
}

// FaceRecognizerFunc adapts a function to FaceRecognizer.
type FaceRecognizerFunc func(ctx context.Context, f *frame.Frame) ([]string, error)

// Recognize implements FaceRecognizer.
func (fn FaceRecognizerFunc) Recognize(ctx context.Context, f *frame.Frame) ([]string, error) {
	return fn(ctx, f)
}

// Match classifies the recognized names against the expected user.
func Match(names []string, expected string) IdentityMatch {
	if len(names) == 0 {
		return IdentityAbsent
	}
	for _, name := range names {
		if expected != "" && strings.EqualFold(name, expected) {
			return IdentityCorrect
		}
	}
	return IdentityWrong
}

// IdentityDetector samples frames until the same identity match in
// Triggers has been observed Confirmations times in a row.
type IdentityDetector struct {
	Recognizer    FaceRecognizer
	Expected      string
	Triggers      map[IdentityMatch]bool
	Confirmations int
}

// DefaultIdentityTriggers returns the trigger set used when none is
// configured. An empty room is not conclusive on its own.
func DefaultIdentityTriggers() map[IdentityMatch]bool {
	return map[IdentityMatch]bool{IdentityWrong: true, IdentityCorrect: true}
}

// ID implements Detector.
func (d *IdentityDetector) ID() ID { return IdentityID }

// Run implements Detector.
func (d *IdentityDetector) Run(ctx context.Context, env Env) Outcome {
	need := d.Confirmations
	if need <= 0 {
		need = DefaultConfirmations
	}
	triggers := d.Triggers
	if len(triggers) == 0 {
		triggers = DefaultIdentityTriggers()
	}

	var (
		streak  int
		current IdentityMatch
	)
	return sample(ctx, env, IdentityID, func(ctx context.Context, f *frame.Frame) (Result, bool, error) {
		names, err := d.Recognizer.Recognize(ctx, f)
		if err != nil {
			return Result{}, false, err
		}

		match := Match(names, d.Expected)
		env.report(IdentityID, match.String())

		if !triggers[match] {
			streak = 0
			return Result{}, false, nil
		}
		if streak == 0 || match != current {
			current, streak = match, 0
		}
		streak++
		if streak < need {
			return Result{}, false, nil
		}
		return Result{Identity: match}, true, nil
	})
}

package detector

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/robocof/robocof/internal/frame"
)

// Gesture is a hand gesture recognized by a GestureClassifier.
type Gesture int

const (
	GestureUnknown Gesture = iota
	GestureClosedFist
	GestureOpenPalm
	GesturePointingUp
	GestureThumbDown
	GestureThumbUp
	GestureVictory
	GestureILoveYou
)

var gestureNames = []string{
	GestureUnknown:    "UNKNOWN",
	GestureClosedFist: "CLOSED_FIST",
	GestureOpenPalm:   "OPEN_PALM",
	GesturePointingUp: "POINTING_UP",
	GestureThumbDown:  "THUMB_DOWN",
	GestureThumbUp:    "THUMB_UP",
	GestureVictory:    "VICTORY",
	GestureILoveYou:   "I_LOVE_YOU",
}

func (g Gesture) String() string {
	if g < 0 || int(g) >= len(gestureNames) {
		return fmt.Sprintf("Gesture(%d)", int(g))
	}
	return gestureNames[g]
}

// normalizeLabel folds model labels such as "Thumb_Up", "thumb-up" or
// "ILoveYou" onto the upper-case tag form.
func normalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	label = strings.ReplaceAll(label, "-", "_")
	label = strings.ReplaceAll(label, " ", "_")
	if strings.EqualFold(label, "iloveyou") || strings.EqualFold(label, "love") {
		return "I_LOVE_YOU"
	}
	return strings.ToUpper(label)
}

// ParseGesture maps a classifier label onto a Gesture. Labels that do not
// name a known gesture map to GestureUnknown.
func ParseGesture(label string) Gesture {
	g, err := ParseGestureStrict(label)
	if err != nil {
		return GestureUnknown
	}
	return g
}

// ParseGestureStrict is like ParseGesture but rejects labels that are not a
// known, concrete gesture. UNKNOWN is rejected as well; it can never be a
// trigger.
func ParseGestureStrict(label string) (Gesture, error) {
	want := normalizeLabel(label)
	for i, name := range gestureNames {
		if name == want && Gesture(i) != GestureUnknown {
			return Gesture(i), nil
		}
	}
	return GestureUnknown, fmt.Errorf("unknown gesture %q", label)
}

// GestureSet is a set of gesture tags.
type GestureSet map[Gesture]struct{}

// NewGestureSet builds a set from gs.
func NewGestureSet(gs ...Gesture) GestureSet {
	s := make(GestureSet, len(gs))
	for _, g := range gs {
		s[g] = struct{}{}
	}
	return s
}

// ParseGestureSet parses trigger tags strictly.
func ParseGestureSet(labels []string) (GestureSet, error) {
	s := make(GestureSet, len(labels))
	for _, label := range labels {
		g, err := ParseGestureStrict(label)
		if err != nil {
			return nil, err
		}
		s[g] = struct{}{}
	}
	return s, nil
}

// Has reports whether g is in the set.
func (s GestureSet) Has(g Gesture) bool {
	_, ok := s[g]
	return ok
}

// Intersect returns the gestures present in both sets.
func (s GestureSet) Intersect(other GestureSet) GestureSet {
	out := make(GestureSet)
	for g := range s {
		if other.Has(g) {
			out[g] = struct{}{}
		}
	}
	return out
}

// Union returns the gestures present in either set.
func (s GestureSet) Union(other GestureSet) GestureSet {
	out := make(GestureSet, len(s)+len(other))
	for g := range s {
		out[g] = struct{}{}
	}
	for g := range other {
		out[g] = struct{}{}
	}
	return out
}

// Sorted returns the members in tag order.
func (s GestureSet) Sorted() []Gesture {
	out := make([]Gesture, 0, len(s))
	for g := range s {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// String renders the set as comma-separated tags in tag order.
func (s GestureSet) String() string {
	sorted := s.Sorted()
	parts := make([]string, len(sorted))
	for i, g := range sorted {
		parts[i] = g.String()
	}
	return strings.Join(parts, ",")
}

// GestureClassifier recognizes the gestures visible in one frame. An empty
// slice with a nil error means "nothing recognized this round".
type GestureClassifier interface {
	Classify(ctx context.Context, f *frame.Frame) ([]Gesture, error)
}

// GestureClassifierFunc adapts a function to GestureClassifier.
type GestureClassifierFunc func(ctx context.Context, f *frame.Frame) ([]Gesture, error)

// Classify implements GestureClassifier.
func (fn GestureClassifierFunc) Classify(ctx context.Context, f *frame.Frame) ([]Gesture, error) {
	return fn(ctx, f)
}

// GestureDetector samples frames until the classifier reports a gesture in
// Triggers. Its conclusive result carries only the triggering gestures.
type GestureDetector struct {
	Classifier GestureClassifier
	Triggers   GestureSet
}

// ID implements Detector.
func (d *GestureDetector) ID() ID { return GestureID }

// Run implements Detector.
func (d *GestureDetector) Run(ctx context.Context, env Env) Outcome {
	return sample(ctx, env, GestureID, func(ctx context.Context, f *frame.Frame) (Result, bool, error) {
		gestures, err := d.Classifier.Classify(ctx, f)
		if err != nil {
			return Result{}, false, err
		}
		if len(gestures) == 0 {
			return Result{}, false, nil
		}

		seen := NewGestureSet(gestures...)
		env.report(GestureID, seen.String())

		matched := seen.Intersect(d.Triggers)
		if len(matched) == 0 {
			return Result{}, false, nil
		}
		return Result{Gestures: matched}, true, nil
	})
}

package detector

import (
	"context"
	"fmt"

	"github.com/robocof/robocof/internal/frame"
)

// Occupancy is the state of the seat in front of the robot.
type Occupancy int

const (
	// OccupancyInconclusive is the sentinel reported when no seat state
	// could be established.
	OccupancyInconclusive Occupancy = iota
	OccupancyNoChairsNoPeople
	OccupancyUnsure
	OccupancySeatEmpty
	OccupancySeatOccupied
)

var occupancyNames = []string{
	OccupancyInconclusive:     "INCONCLUSIVE",
	OccupancyNoChairsNoPeople: "NO_CHAIRS_NO_PEOPLE",
	OccupancyUnsure:           "UNSURE",
	OccupancySeatEmpty:        "SEAT_EMPTY",
	OccupancySeatOccupied:     "SEAT_OCCUPIED",
}

func (o Occupancy) String() string {
	if o < 0 || int(o) >= len(occupancyNames) {
		return fmt.Sprintf("Occupancy(%d)", int(o))
	}
	return occupancyNames[o]
}

// ParseOccupancy parses an occupancy tag.
func ParseOccupancy(s string) (Occupancy, error) {
	want := normalizeLabel(s)
	for i, name := range occupancyNames {
		if name == want {
			return Occupancy(i), nil
		}
	}
	return OccupancyInconclusive, fmt.Errorf("unknown occupancy %q", s)
}

// OccupancyClassifier reports the seat state visible in a frame.
type OccupancyClassifier interface {
	Classify(ctx context.Context, f *frame.Frame) (Occupancy, error)
}

// OccupancyClassifierFunc adapts a function to OccupancyClassifier.
type OccupancyClassifierFunc func(ctx context.Context, f *frame.Frame) (Occupancy, error)

// Classify implements OccupancyClassifier.
func (fn OccupancyClassifierFunc) Classify(ctx context.Context, f *frame.Frame) (Occupancy, error) {
	return fn(ctx, f)
}

// OccupancyDetector reports seat state. Without a classifier it concludes
// immediately with OccupancyInconclusive. With one, it samples until the
// classifier reports something other than OccupancyInconclusive. The
// decision policy never acts on its result.
type OccupancyDetector struct {
	Classifier OccupancyClassifier
}

// ID implements Detector.
func (d *OccupancyDetector) ID() ID { return OccupancyID }

// Run implements Detector.
func (d *OccupancyDetector) Run(ctx context.Context, env Env) Outcome {
	if d.Classifier == nil {
		if err := ctx.Err(); err != nil {
			return canceled(err)
		}
		return Conclusive(Result{Occupancy: OccupancyInconclusive})
	}
	return sample(ctx, env, OccupancyID, func(ctx context.Context, f *frame.Frame) (Result, bool, error) {
		state, err := d.Classifier.Classify(ctx, f)
		if err != nil {
			return Result{}, false, err
		}
		if state == OccupancyInconclusive {
			return Result{}, false, nil
		}
		env.report(OccupancyID, state.String())
		return Result{Occupancy: state}, true, nil
	})
}

package scenario

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robocof/robocof/internal/detector"
	"github.com/robocof/robocof/internal/errors"
	"github.com/robocof/robocof/internal/frame"
)

// Player plays a Scenario back against the wall clock.
type Player struct {
	s   *Scenario
	now func() time.Time

	once  sync.Once
	mu    sync.RWMutex
	start time.Time

	gestureCalls   atomic.Int64
	identityCalls  atomic.Int64
	occupancyCalls atomic.Int64
}

// NewPlayer returns a Player for s. The clock starts on Start or, failing
// that, on the first classification.
func NewPlayer(s *Scenario) *Player {
	return &Player{s: s, now: time.Now}
}

// Start starts the timeline clock. Later calls are no-ops.
func (p *Player) Start() {
	p.once.Do(func() {
		p.mu.Lock()
		p.start = p.now()
		p.mu.Unlock()
	})
}

// Elapsed returns the timeline offset.
func (p *Player) Elapsed() time.Duration {
	p.Start()
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.now().Sub(p.start)
}

// Calls returns how often each classifier has been invoked.
func (p *Player) Calls() (gesture, identity, occupancy int64) {
	return p.gestureCalls.Load(), p.identityCalls.Load(), p.occupancyCalls.Load()
}

// Source returns a synthetic frame source sized for the scenario, using the
// given geometry where the scenario sets none.
func (p *Player) Source(width, height int, fps float64) (*frame.Synthetic, error) {
	w, h, f := p.s.FrameSize(width, height, fps)
	return frame.NewSynthetic(w, h, f)
}

// Scenario returns the scenario being played.
func (p *Player) Scenario() *Scenario { return p.s }

func entryError(id detector.ID, e Entry) error {
	err := errors.New(e.Error)
	if e.Transient {
		return errors.NewCaptureError(string(id), err)
	}
	return err
}

// Gestures returns a classifier reporting the gestures of the active
// gesture entries.
func (p *Player) Gestures() detector.GestureClassifier {
	return detector.GestureClassifierFunc(func(ctx context.Context, f *frame.Frame) ([]detector.Gesture, error) {
		p.gestureCalls.Add(1)
		elapsed := p.Elapsed()

		var out []detector.Gesture
		for i, e := range p.s.Gesture {
			if !e.active(elapsed) {
				continue
			}
			if e.Error != "" {
				return nil, entryError(detector.GestureID, e)
			}
			out = append(out, p.s.gestures[i]...)
		}
		return out, nil
	})
}

// Faces returns a recognizer reporting the names of the active identity
// entries.
func (p *Player) Faces() detector.FaceRecognizer {
	return detector.FaceRecognizerFunc(func(ctx context.Context, f *frame.Frame) ([]string, error) {
		p.identityCalls.Add(1)
		elapsed := p.Elapsed()

		var out []string
		for _, e := range p.s.Identity {
			if !e.active(elapsed) {
				continue
			}
			if e.Error != "" {
				return nil, entryError(detector.IdentityID, e)
			}
			out = append(out, e.Names...)
		}
		return out, nil
	})
}

// Seats returns an occupancy classifier reporting the latest active
// occupancy entry, or nil when the scenario has no occupancy section.
func (p *Player) Seats() detector.OccupancyClassifier {
	if len(p.s.Occupancy) == 0 {
		return nil
	}
	return detector.OccupancyClassifierFunc(func(ctx context.Context, f *frame.Frame) (detector.Occupancy, error) {
		p.occupancyCalls.Add(1)
		elapsed := p.Elapsed()

		status := detector.OccupancyInconclusive
		for i, e := range p.s.Occupancy {
			if !e.active(elapsed) {
				continue
			}
			if e.Error != "" {
				return detector.OccupancyInconclusive, entryError(detector.OccupancyID, e)
			}
			status = p.s.occupancy[i]
		}
		return status, nil
	})
}

// Package scenario loads scripted perception timelines from YAML and plays
// them back through the classifier interfaces, so that arbitration can be
// exercised end to end without real models.
//
// A scenario file looks like:
//
//	name: user waves off
//	gesture:
//	  - at: 1s
//	    tags: [OPEN_PALM]
//	identity:
//	  - at: 0s
//	    until: 3s
//	    names: [alice]
//	occupancy:
//	  - at: 500ms
//	    status: SEAT_OCCUPIED
//
// Times are offsets from the moment the Player starts. An entry is active
// from At until Until (open-ended when Until is zero). Overlapping active
// entries are merged.
package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robocof/robocof/internal/detector"
	"github.com/robocof/robocof/internal/errors"
)

// Entry is one span of the timeline.
type Entry struct {
	At    time.Duration `yaml:"at"`
	Until time.Duration `yaml:"until,omitempty"`

	Tags   []string `yaml:"tags,omitempty"`
	Names  []string `yaml:"names,omitempty"`
	Status string   `yaml:"status,omitempty"`

	// Error makes the classifier fail while the entry is active. Transient
	// errors are absorbed by the detector; others are faults.
	Error     string `yaml:"error,omitempty"`
	Transient bool   `yaml:"transient,omitempty"`
}

func (e Entry) active(elapsed time.Duration) bool {
	return elapsed >= e.At && (e.Until == 0 || elapsed < e.Until)
}

// Scenario is a parsed timeline file.
type Scenario struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Width       int     `yaml:"width,omitempty"`
	Height      int     `yaml:"height,omitempty"`
	FPS         float64 `yaml:"fps,omitempty"`

	Gesture   []Entry `yaml:"gesture,omitempty"`
	Identity  []Entry `yaml:"identity,omitempty"`
	Occupancy []Entry `yaml:"occupancy,omitempty"`

	gestures  [][]detector.Gesture
	occupancy []detector.Occupancy
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates scenario YAML.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Width < 0 || s.Height < 0 || s.FPS < 0 {
		return errors.NewConfigurationError("scenario", fmt.Sprintf("%dx%d@%g", s.Width, s.Height, s.FPS), "frame geometry must not be negative")
	}

	check := func(section string, entries []Entry) error {
		for i, e := range entries {
			field := fmt.Sprintf("%s[%d]", section, i)
			if e.At < 0 {
				return errors.NewConfigurationError(field+".at", e.At, "must not be negative")
			}
			if e.Until != 0 && e.Until <= e.At {
				return errors.NewConfigurationError(field+".until", e.Until, "must be after at")
			}
		}
		return nil
	}
	if err := check("gesture", s.Gesture); err != nil {
		return err
	}
	if err := check("identity", s.Identity); err != nil {
		return err
	}
	if err := check("occupancy", s.Occupancy); err != nil {
		return err
	}

	s.gestures = make([][]detector.Gesture, len(s.Gesture))
	for i, e := range s.Gesture {
		for _, tag := range e.Tags {
			g, err := detector.ParseGestureStrict(tag)
			if err != nil {
				return errors.NewConfigurationError(fmt.Sprintf("gesture[%d].tags", i), tag, err.Error())
			}
			s.gestures[i] = append(s.gestures[i], g)
		}
	}

	s.occupancy = make([]detector.Occupancy, len(s.Occupancy))
	for i, e := range s.Occupancy {
		if e.Status == "" {
			continue
		}
		o, err := detector.ParseOccupancy(e.Status)
		if err != nil {
			return errors.NewConfigurationError(fmt.Sprintf("occupancy[%d].status", i), e.Status, err.Error())
		}
		s.occupancy[i] = o
	}
	return nil
}

// FrameSize returns the synthetic frame geometry. Values the scenario does
// not set fall back to the given defaults.
func (s *Scenario) FrameSize(width, height int, fps float64) (int, int, float64) {
	if s.Width > 0 {
		width = s.Width
	}
	if s.Height > 0 {
		height = s.Height
	}
	if s.FPS > 0 {
		fps = s.FPS
	}
	return width, height, fps
}

// Length returns the offset after which the timeline no longer changes.
func (s *Scenario) Length() time.Duration {
	var end time.Duration
	for _, section := range [][]Entry{s.Gesture, s.Identity, s.Occupancy} {
		for _, e := range section {
			end = max(end, e.At, e.Until)
		}
	}
	return end
}

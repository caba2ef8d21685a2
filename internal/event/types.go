// Package event defines event types for decoupling robocof components.
// The arbiter, the identity registry and the decision service publish
// these; the CLI, the observation view and the logs consume them.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "run.started", "detector.completed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeRunStarted        = "run.started"
	TypeRunDecided        = "run.decided"
	TypeDetectorSampled   = "detector.sampled"
	TypeDetectorCompleted = "detector.completed"
	TypeRegistryReloaded  = "identity.reloaded"
	TypeCallbackDelivered = "callback.delivered"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Arbitration Run Events
// -----------------------------------------------------------------------------

// RunStartedEvent is emitted once the frame source and all tasks are running.
type RunStartedEvent struct {
	baseEvent
	RunID     string
	Timeout   time.Duration // zero when the deadline is disabled
	Debug     bool
	Detectors []string
}

// NewRunStartedEvent creates a RunStartedEvent.
func NewRunStartedEvent(runID string, timeout time.Duration, debug bool, detectors []string) RunStartedEvent {
	return RunStartedEvent{
		baseEvent: newBaseEvent(TypeRunStarted),
		RunID:     runID,
		Timeout:   timeout,
		Debug:     debug,
		Detectors: detectors,
	}
}

// RunDecidedEvent is emitted when a run returns its decision.
type RunDecidedEvent struct {
	baseEvent
	RunID    string
	Decision string
	Winner   string // task whose completion decided the run, "" on error
	Elapsed  time.Duration
	Error    string
}

// NewRunDecidedEvent creates a RunDecidedEvent.
func NewRunDecidedEvent(runID, decision, winner string, elapsed time.Duration, errMsg string) RunDecidedEvent {
	return RunDecidedEvent{
		baseEvent: newBaseEvent(TypeRunDecided),
		RunID:     runID,
		Decision:  decision,
		Winner:    winner,
		Elapsed:   elapsed,
		Error:     errMsg,
	}
}

// -----------------------------------------------------------------------------
// Detector Events
// -----------------------------------------------------------------------------

// DetectorSampledEvent is emitted after every classification round that
// produced an observation, conclusive or not.
type DetectorSampledEvent struct {
	baseEvent
	RunID       string
	Detector    string
	Observation string
}

// NewDetectorSampledEvent creates a DetectorSampledEvent.
func NewDetectorSampledEvent(runID, detector, observation string) DetectorSampledEvent {
	return DetectorSampledEvent{
		baseEvent:   newBaseEvent(TypeDetectorSampled),
		RunID:       runID,
		Detector:    detector,
		Observation: observation,
	}
}

// DetectorCompletedEvent is emitted when the arbiter evaluates a finished task.
type DetectorCompletedEvent struct {
	baseEvent
	RunID    string
	Detector string
	Outcome  string
	Verdict  string // decision name, or "continue"
}

// NewDetectorCompletedEvent creates a DetectorCompletedEvent.
func NewDetectorCompletedEvent(runID, detector, outcome, verdict string) DetectorCompletedEvent {
	return DetectorCompletedEvent{
		baseEvent: newBaseEvent(TypeDetectorCompleted),
		RunID:     runID,
		Detector:  detector,
		Outcome:   outcome,
		Verdict:   verdict,
	}
}

// -----------------------------------------------------------------------------
// Service Events
// -----------------------------------------------------------------------------

// RegistryReloadedEvent is emitted when the identity reference directory
// has been (re)loaded.
type RegistryReloadedEvent struct {
	baseEvent
	Users int
	Error string
}

// NewRegistryReloadedEvent creates a RegistryReloadedEvent.
func NewRegistryReloadedEvent(users int, errMsg string) RegistryReloadedEvent {
	return RegistryReloadedEvent{
		baseEvent: newBaseEvent(TypeRegistryReloaded),
		Users:     users,
		Error:     errMsg,
	}
}

// CallbackDeliveredEvent is emitted after a deferred decision has been
// POSTed to its callback URL, or delivery gave up.
type CallbackDeliveredEvent struct {
	baseEvent
	RobotRunID int
	URL        string
	Decision   string
	Attempts   int
	Error      string
}

// NewCallbackDeliveredEvent creates a CallbackDeliveredEvent.
func NewCallbackDeliveredEvent(robotRunID int, url, decision string, attempts int, errMsg string) CallbackDeliveredEvent {
	return CallbackDeliveredEvent{
		baseEvent:  newBaseEvent(TypeCallbackDelivered),
		RobotRunID: robotRunID,
		URL:        url,
		Decision:   decision,
		Attempts:   attempts,
		Error:      errMsg,
	}
}

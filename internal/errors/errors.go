// Package errors provides centralized error definitions for robocof.
// It defines the sentinels and typed errors of the arbitration error
// taxonomy together with the classification helpers the arbiter and the
// decision service use to decide which failures are visible to callers.
//
// # Taxonomy
//
//   - CaptureError / ErrNoFrame: a single frame fetch or classify attempt
//     failed. Absorbed by the detector, which retries on its next round.
//   - DetectorFault: a classification call failed unexpectedly. The whole
//     arbitration run resolves to Decision.Error.
//   - ErrCanceled: cancellation of a losing detector or of the whole run.
//     Never user-visible on its own.
//   - ConfigurationError: invalid timeout bound, unknown trigger tag and the
//     like. Rejected before a run starts.
//
// # Usage
//
//	if errors.IsTransient(err) {
//	    continue // next sampling round
//	}
//
//	var fault *errors.DetectorFault
//	if errors.As(err, &fault) { ... }
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are only interesting while tuning.
	SeverityDebug Severity = iota
	// SeverityWarning is for errors that are absorbed but worth noticing.
	SeverityWarning
	// SeverityError is for errors that end an arbitration run.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Frame and detector sentinels
var (
	// ErrNoFrame indicates the frame source had no frame available yet.
	ErrNoFrame = New("no frame available")
	// ErrCanceled indicates that a detector or run was canceled.
	ErrCanceled = New("operation canceled")
	// ErrSourceStart indicates that the frame source failed to start.
	ErrSourceStart = New("frame source failed to start")
)

// Service sentinels
var (
	// ErrRunInProgress indicates another arbitration run owns the frame source.
	ErrRunInProgress = New("an arbitration run is already in progress")
	// ErrRateLimited indicates the caller exceeded its request budget.
	ErrRateLimited = New("rate limit exceeded")
	// ErrUnknownUser indicates an identity that is not in the reference registry.
	ErrUnknownUser = New("unknown user")
)

// -----------------------------------------------------------------------------
// Typed Errors
// -----------------------------------------------------------------------------

// CaptureError is a transient failure of one sampling attempt.
//
// Example:
//
//	err := errors.NewCaptureError("gesture", cause)
//	fmt.Println(err) // "capture failed [detector=gesture]: <cause>"
type CaptureError struct {
	Detector string
	cause    error
}

// NewCaptureError creates a CaptureError for the named detector.
func NewCaptureError(detector string, cause error) *CaptureError {
	return &CaptureError{Detector: detector, cause: cause}
}

// Error returns the formatted error message.
func (e *CaptureError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("capture failed [detector=%s]: %v", e.Detector, e.cause)
	}
	return fmt.Sprintf("capture failed [detector=%s]", e.Detector)
}

// Unwrap returns the underlying error.
func (e *CaptureError) Unwrap() error { return e.cause }

// Severity returns SeverityDebug; capture failures are expected while a
// stream warms up.
func (e *CaptureError) Severity() Severity { return SeverityDebug }

// DetectorFault is an unexpected classification failure. It ends the run.
type DetectorFault struct {
	Detector string
	// Panic holds the recovered value when the fault came from a panic.
	Panic any
	cause error
}

// NewDetectorFault creates a DetectorFault for the named detector.
func NewDetectorFault(detector string, cause error) *DetectorFault {
	return &DetectorFault{Detector: detector, cause: cause}
}

// NewDetectorPanic creates a DetectorFault from a recovered panic value.
func NewDetectorPanic(detector string, recovered any) *DetectorFault {
	return &DetectorFault{
		Detector: detector,
		Panic:    recovered,
		cause:    fmt.Errorf("panic: %v", recovered),
	}
}

// Error returns the formatted error message.
func (e *DetectorFault) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("detector fault [detector=%s]: %v", e.Detector, e.cause)
	}
	return fmt.Sprintf("detector fault [detector=%s]", e.Detector)
}

// Unwrap returns the underlying error.
func (e *DetectorFault) Unwrap() error { return e.cause }

// Severity returns SeverityError.
func (e *DetectorFault) Severity() Severity { return SeverityError }

// ConfigurationError reports an invalid arbitration setting. Field names the
// offending setting using its config key (e.g. "gestures.positive").
type ConfigurationError struct {
	Field   string
	Value   any
	Message string
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(field string, value any, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Message: message}
}

// Error returns the formatted error message.
func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration error")
	if e.Field != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Field)
		sb.WriteString("]")
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Value != nil {
		fmt.Fprintf(&sb, " (got: %v)", e.Value)
	}
	return sb.String()
}

// Severity returns SeverityError.
func (e *ConfigurationError) Severity() Severity { return SeverityError }

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsTransient reports whether err is a per-round failure a detector should
// absorb and retry on its next sampling attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrNoFrame) {
		return true
	}
	var capture *CaptureError
	return As(err, &capture)
}

// IsFault reports whether err is a DetectorFault.
func IsFault(err error) bool {
	var fault *DetectorFault
	return err != nil && As(err, &fault)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var cfg *ConfigurationError
	return err != nil && As(err, &cfg)
}

// IsCanceled reports whether err represents cancellation, either ErrCanceled
// or a context cancellation/deadline error.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrCanceled) || Is(err, context.Canceled) || Is(err, context.DeadlineExceeded)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't carry one.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var s interface{ Severity() Severity }
	if As(err, &s) {
		return s.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

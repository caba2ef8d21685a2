package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCaptureError(t *testing.T) {
	cause := errors.New("camera busy")
	err := NewCaptureError("gesture", cause)

	if got := err.Error(); got != "capture failed [detector=gesture]: camera busy" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("expected CaptureError to unwrap to its cause")
	}
	if err.Severity() != SeverityDebug {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityDebug)
	}
	if got := NewCaptureError("identity", nil).Error(); got != "capture failed [detector=identity]" {
		t.Errorf("Error() without cause = %q", got)
	}
}

func TestDetectorFault(t *testing.T) {
	t.Run("wraps cause", func(t *testing.T) {
		cause := errors.New("model crashed")
		err := NewDetectorFault("identity", cause)

		if !strings.Contains(err.Error(), "detector=identity") {
			t.Errorf("Error() = %q, want detector name", err.Error())
		}
		if !errors.Is(err, cause) {
			t.Error("expected DetectorFault to unwrap to its cause")
		}
		if err.Panic != nil {
			t.Errorf("Panic = %v, want nil", err.Panic)
		}
	})

	t.Run("from panic", func(t *testing.T) {
		err := NewDetectorPanic("gesture", "index out of range")

		if err.Panic != "index out of range" {
			t.Errorf("Panic = %v", err.Panic)
		}
		if !strings.Contains(err.Error(), "panic: index out of range") {
			t.Errorf("Error() = %q", err.Error())
		}
	})
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("decision.timeout_seconds", 500, "exceeds maximum of 120")
	want := "configuration error [decision.timeout_seconds]: exceeds maximum of 120 (got: 500)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := NewConfigurationError("", nil, "bad")
	if got := bare.Error(); got != "configuration error: bad" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no frame", ErrNoFrame, true},
		{"wrapped no frame", fmt.Errorf("sample: %w", ErrNoFrame), true},
		{"capture error", NewCaptureError("gesture", nil), true},
		{"fault", NewDetectorFault("gesture", nil), false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassification(t *testing.T) {
	fault := fmt.Errorf("run: %w", NewDetectorFault("identity", nil))
	cfg := Wrap(NewConfigurationError("gestures.positive", "WAVE", "unknown gesture"), "load")

	if !IsFault(fault) {
		t.Error("IsFault() = false for wrapped DetectorFault")
	}
	if IsFault(cfg) {
		t.Error("IsFault() = true for ConfigurationError")
	}
	if !IsConfiguration(cfg) {
		t.Error("IsConfiguration() = false for wrapped ConfigurationError")
	}
	if IsConfiguration(nil) || IsFault(nil) {
		t.Error("nil must not classify")
	}
}

func TestIsCanceled(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrCanceled, true},
		{"context canceled", context.Canceled, true},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), true},
		{"other", ErrNoFrame, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCanceled(tt.err); got != tt.want {
				t.Errorf("IsCanceled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetSeverity(t *testing.T) {
	if got := GetSeverity(nil); got != SeverityDebug {
		t.Errorf("GetSeverity(nil) = %v", got)
	}
	if got := GetSeverity(NewCaptureError("gesture", nil)); got != SeverityDebug {
		t.Errorf("GetSeverity(capture) = %v", got)
	}
	if got := GetSeverity(Wrap(NewDetectorFault("gesture", nil), "run")); got != SeverityError {
		t.Errorf("GetSeverity(fault) = %v", got)
	}
	if got := GetSeverity(errors.New("plain")); got != SeverityError {
		t.Errorf("GetSeverity(plain) = %v", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "x %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
	err := Wrapf(ErrNoFrame, "detector %s", "gesture")
	if err.Error() != "detector gesture: no frame available" {
		t.Errorf("Wrapf() = %q", err.Error())
	}
	if !errors.Is(err, ErrNoFrame) {
		t.Error("Wrapf should preserve the chain")
	}
}

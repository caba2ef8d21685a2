package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/robocof/robocof/internal/detector"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "decision.max_timeout_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Bounds for numeric settings.
const (
	// AbsoluteMaxTimeoutSeconds caps decision.max_timeout_seconds itself.
	AbsoluteMaxTimeoutSeconds = 3600
	minIntervalMs             = 5
	maxIntervalMs             = 5000
	maxConfirmations          = 100
	maxCallbackAttempts       = 20
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidIdentityTriggers returns the list of valid identity trigger values
func ValidIdentityTriggers() []string {
	return []string{"absent", "wrong", "correct"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateDecision()...)
	errors = append(errors, c.validateGestures()...)
	errors = append(errors, c.validateSampling()...)
	errors = append(errors, c.validateIdentity()...)
	errors = append(errors, c.validateSource()...)
	errors = append(errors, c.validateCallback()...)
	errors = append(errors, c.validateRateLimit()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateDecision validates the DecisionConfig
func (c *Config) validateDecision() []ValidationError {
	var errors []ValidationError
	d := c.Decision

	if d.MaxTimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "decision.max_timeout_seconds",
			Value:   d.MaxTimeoutSeconds,
			Message: "must be at least 1",
		})
	} else if d.MaxTimeoutSeconds > AbsoluteMaxTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   "decision.max_timeout_seconds",
			Value:   d.MaxTimeoutSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d", AbsoluteMaxTimeoutSeconds),
		})
	}

	if d.DefaultTimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "decision.default_timeout_seconds",
			Value:   d.DefaultTimeoutSeconds,
			Message: "must be at least 1",
		})
	} else if d.MaxTimeoutSeconds >= 1 && d.DefaultTimeoutSeconds > d.MaxTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   "decision.default_timeout_seconds",
			Value:   d.DefaultTimeoutSeconds,
			Message: fmt.Sprintf("exceeds decision.max_timeout_seconds (%d)", d.MaxTimeoutSeconds),
		})
	}

	if d.GracePeriodMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "decision.grace_period_ms",
			Value:   d.GracePeriodMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateGestures validates the trigger sets. Tags must name a concrete
// gesture; the sets may overlap (positive wins).
func (c *Config) validateGestures() []ValidationError {
	var errors []ValidationError

	check := func(field string, tags []string) {
		for _, tag := range tags {
			if _, err := detector.ParseGestureStrict(tag); err != nil {
				errors = append(errors, ValidationError{
					Field:   field,
					Value:   tag,
					Message: "unknown gesture tag",
				})
			}
		}
	}
	check("gestures.positive", c.Gestures.Positive)
	check("gestures.negative", c.Gestures.Negative)

	if len(c.Gestures.Positive) == 0 && len(c.Gestures.Negative) == 0 {
		errors = append(errors, ValidationError{
			Field:   "gestures",
			Value:   "[]",
			Message: "at least one positive or negative gesture is required",
		})
	}

	return errors
}

// validateSampling validates the SamplingConfig
func (c *Config) validateSampling() []ValidationError {
	var errors []ValidationError

	if c.Sampling.IntervalMs < minIntervalMs || c.Sampling.IntervalMs > maxIntervalMs {
		errors = append(errors, ValidationError{
			Field:   "sampling.interval_ms",
			Value:   c.Sampling.IntervalMs,
			Message: fmt.Sprintf("must be between %d and %d", minIntervalMs, maxIntervalMs),
		})
	}

	return errors
}

// validateIdentity validates the IdentityConfig
func (c *Config) validateIdentity() []ValidationError {
	var errors []ValidationError

	if c.Identity.Confirmations < 1 || c.Identity.Confirmations > maxConfirmations {
		errors = append(errors, ValidationError{
			Field:   "identity.confirmations",
			Value:   c.Identity.Confirmations,
			Message: fmt.Sprintf("must be between 1 and %d", maxConfirmations),
		})
	}

	for _, trigger := range c.Identity.Triggers {
		if !slices.Contains(ValidIdentityTriggers(), strings.ToLower(trigger)) {
			errors = append(errors, ValidationError{
				Field:   "identity.triggers",
				Value:   trigger,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidIdentityTriggers(), ", ")),
			})
		}
	}

	if c.Identity.ExpectedUser != "" && strings.TrimSpace(c.Identity.ExpectedUser) != c.Identity.ExpectedUser {
		errors = append(errors, ValidationError{
			Field:   "identity.expected_user",
			Value:   c.Identity.ExpectedUser,
			Message: "must not have leading or trailing whitespace",
		})
	}

	return errors
}

// validateSource validates the SourceConfig
func (c *Config) validateSource() []ValidationError {
	var errors []ValidationError

	if c.Source.Width <= 0 || c.Source.Height <= 0 {
		errors = append(errors, ValidationError{
			Field:   "source",
			Value:   fmt.Sprintf("%dx%d", c.Source.Width, c.Source.Height),
			Message: "width and height must be positive",
		})
	}
	if c.Source.FPS <= 0 || c.Source.FPS > 240 {
		errors = append(errors, ValidationError{
			Field:   "source.fps",
			Value:   c.Source.FPS,
			Message: "must be in (0, 240]",
		})
	}

	return errors
}

// validateCallback validates the CallbackConfig
func (c *Config) validateCallback() []ValidationError {
	var errors []ValidationError

	if c.Callback.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "callback.timeout_seconds",
			Value:   c.Callback.TimeoutSeconds,
			Message: "must be at least 1",
		})
	}
	if c.Callback.MaxAttempts < 1 || c.Callback.MaxAttempts > maxCallbackAttempts {
		errors = append(errors, ValidationError{
			Field:   "callback.max_attempts",
			Value:   c.Callback.MaxAttempts,
			Message: fmt.Sprintf("must be between 1 and %d", maxCallbackAttempts),
		})
	}
	if c.Callback.InitialBackoffMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "callback.initial_backoff_ms",
			Value:   c.Callback.InitialBackoffMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateRateLimit validates the RateLimitConfig
func (c *Config) validateRateLimit() []ValidationError {
	var errors []ValidationError

	if c.RateLimit.PerMinute < 0 {
		errors = append(errors, ValidationError{
			Field:   "rate_limit.per_minute",
			Value:   c.RateLimit.PerMinute,
			Message: "must be non-negative (0 disables limiting)",
		})
	}
	if c.RateLimit.PerMinute > 0 && c.RateLimit.Burst < 1 {
		errors = append(errors, ValidationError{
			Field:   "rate_limit.burst",
			Value:   c.RateLimit.Burst,
			Message: "must be at least 1 when rate limiting is enabled",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

package service

import (
	"net/http"
	"time"

	"github.com/robocof/robocof/internal/event"
	"github.com/robocof/robocof/internal/logging"
	"github.com/robocof/robocof/internal/telemetry"
)

type serviceConfig struct {
	logger         *logging.Logger
	bus            *event.Bus
	instruments    *telemetry.Instruments
	limiter        Limiter
	defaultTimeout time.Duration
	maxTimeout     time.Duration
	client         *http.Client
	maxAttempts    uint
	initialBackoff time.Duration
}

// Option configures a Service.
type Option func(*serviceConfig)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *serviceConfig) { c.logger = l }
}

// WithEventBus sets the bus callback events are published on.
func WithEventBus(b *event.Bus) Option {
	return func(c *serviceConfig) { c.bus = b }
}

// WithInstruments sets the OpenTelemetry instruments.
func WithInstruments(in *telemetry.Instruments) Option {
	return func(c *serviceConfig) { c.instruments = in }
}

// WithLimiter sets the per-caller request limiter. Defaults to no limit.
func WithLimiter(l Limiter) Option {
	return func(c *serviceConfig) { c.limiter = l }
}

// WithTimeouts sets the timeout used when a request names none and the
// largest timeout a request may ask for.
func WithTimeouts(defaultTimeout, maxTimeout time.Duration) Option {
	return func(c *serviceConfig) {
		c.defaultTimeout = defaultTimeout
		c.maxTimeout = maxTimeout
	}
}

// WithHTTPClient sets the client used for callback delivery.
func WithHTTPClient(client *http.Client) Option {
	return func(c *serviceConfig) { c.client = client }
}

// WithRetry sets how often and how patiently callbacks are retried.
func WithRetry(maxAttempts int, initialBackoff time.Duration) Option {
	return func(c *serviceConfig) {
		if maxAttempts > 0 {
			c.maxAttempts = uint(maxAttempts)
		}
		c.initialBackoff = initialBackoff
	}
}

package arbiter

import (
	"time"

	"github.com/robocof/robocof/internal/event"
	"github.com/robocof/robocof/internal/logging"
	"github.com/robocof/robocof/internal/telemetry"
)

// arbiterConfig holds optional configuration for an Arbiter.
type arbiterConfig struct {
	logger      *logging.Logger
	bus         *event.Bus
	instruments *telemetry.Instruments
	gracePeriod time.Duration
	maxTimeout  time.Duration
}

// Option configures an Arbiter.
type Option func(*arbiterConfig)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *arbiterConfig) { c.logger = l }
}

// WithEventBus sets the bus run and detector events are published on.
func WithEventBus(b *event.Bus) Option {
	return func(c *arbiterConfig) { c.bus = b }
}

// WithInstruments sets the OpenTelemetry instruments.
func WithInstruments(in *telemetry.Instruments) Option {
	return func(c *arbiterConfig) { c.instruments = in }
}

// WithGracePeriod bounds how long a finished run waits for cancelled tasks
// to stop. Zero derives it from the sampling interval.
func WithGracePeriod(d time.Duration) Option {
	return func(c *arbiterConfig) { c.gracePeriod = d }
}

// WithMaxTimeout sets the largest timeout Run accepts. Zero means no bound.
func WithMaxTimeout(d time.Duration) Option {
	return func(c *arbiterConfig) { c.maxTimeout = d }
}

// Package deadline provides the timer task raced against the detectors.
package deadline

import (
	"context"
	"fmt"
	"time"

	"github.com/robocof/robocof/internal/detector"
	"github.com/robocof/robocof/internal/errors"
)

// Controller completes with an expired result once its duration elapses.
// An infinite Controller never completes on its own.
type Controller struct {
	duration time.Duration
	infinite bool
}

// New returns a Controller that expires after d. d must be positive.
func New(d time.Duration) (*Controller, error) {
	if d <= 0 {
		return nil, errors.NewConfigurationError("timeout", d, "must be positive")
	}
	return &Controller{duration: d}, nil
}

// Infinite returns a Controller that never expires. Debug runs use it.
func Infinite() *Controller {
	return &Controller{infinite: true}
}

// IsInfinite reports whether the controller never expires.
func (c *Controller) IsInfinite() bool { return c.infinite }

// Duration returns the configured duration, zero when infinite.
func (c *Controller) Duration() time.Duration { return c.duration }

// Deadline returns the instant the controller expires for a run started at
// start. ok is false for an infinite controller.
func (c *Controller) Deadline(start time.Time) (deadline time.Time, ok bool) {
	if c.infinite {
		return time.Time{}, false
	}
	return start.Add(c.duration), true
}

// String implements fmt.Stringer.
func (c *Controller) String() string {
	if c.infinite {
		return "infinite"
	}
	return fmt.Sprint(c.duration)
}

// Run blocks until the duration elapses or ctx is done. Expiry yields a
// conclusive outcome with Result.Expired set; cancellation yields a
// canceled failure.
func (c *Controller) Run(ctx context.Context) detector.Outcome {
	if c.infinite {
		<-ctx.Done()
		return detector.Failed(errors.Join(errors.ErrCanceled, ctx.Err()))
	}

	timer := time.NewTimer(c.duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return detector.Conclusive(detector.Result{Expired: true})
	case <-ctx.Done():
		return detector.Failed(errors.Join(errors.ErrCanceled, ctx.Err()))
	}
}

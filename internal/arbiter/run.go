package arbiter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/codes"

	"github.com/robocof/robocof/internal/deadline"
	"github.com/robocof/robocof/internal/decision"
	"github.com/robocof/robocof/internal/detector"
	"github.com/robocof/robocof/internal/errors"
	"github.com/robocof/robocof/internal/event"
	"github.com/robocof/robocof/internal/logging"
	"github.com/robocof/robocof/internal/telemetry"
)

type slotState int

const (
	slotAbsent slotState = iota
	slotPending
	slotDone
)

type slot struct {
	state   slotState
	outcome detector.Outcome
}

type completion struct {
	task    decision.Task
	outcome detector.Outcome
}

// run is the per-call aggregate. Only the loop goroutine touches it.
type run struct {
	id       string
	mode     Mode
	started  time.Time
	deadline *deadline.Controller
	policy   decision.Policy
	slots    [decision.NumTasks]slot
	pending  int

	decision decision.Decision
	winner   decision.Task
	err      error
}

// Result describes a finished run.
type Result struct {
	RunID    string
	Decision decision.Decision
	// Winner is the task whose completion decided the run. Meaningless when
	// Decision is Error and Err is a cancellation or configuration error.
	Winner  decision.Task
	Elapsed time.Duration
	Err     error
}

// Run performs one arbitration and returns its decision. err is non-nil only
// when the decision is decision.Error: a ConfigurationError (the frame
// source was never started), a DetectorFault, a frame source failure, or
// ErrCanceled when ctx was cancelled.
//
// An identity match does not end the run. It is remembered and picks the
// TIMEOUT_*_USER variant when the deadline expires, so a gesture can still
// win until then. Tasks that ignore cancellation past the grace period are
// abandoned, not joined: Run returns and they finish in the background.
func (a *Arbiter) Run(ctx context.Context, timeout time.Duration, mode Mode) (decision.Decision, error) {
	res := a.RunWithResult(ctx, timeout, mode)
	return res.Decision, res.Err
}

// RunWithResult is Run with the full run description.
func (a *Arbiter) RunWithResult(ctx context.Context, timeout time.Duration, mode Mode) Result {
	if err := a.validateTimeout(timeout, mode); err != nil {
		a.logger.Warn("rejected arbitration run", "error", err)
		return Result{Decision: decision.Error, Err: err}
	}

	r := &run{
		id:      uuid.NewString(),
		mode:    mode,
		started: time.Now(),
		policy:  *a.policy,
	}
	r.policy.Debug = mode == ModeDebug
	if mode == ModeDebug {
		r.deadline = deadline.Infinite()
	} else {
		// validateTimeout guarantees a positive duration.
		r.deadline, _ = deadline.New(timeout)
	}

	logger := a.logger.WithRun(r.id)
	ctx, span := a.cfg.instruments.StartSpan(ctx, "arbiter.Run",
		telemetry.AttrRunID.String(r.id),
		telemetry.AttrDebug.Bool(mode == ModeDebug),
		telemetry.AttrTimeout.Float64(timeout.Seconds()),
	)
	defer span.End()

	a.execute(ctx, r, logger)

	elapsed := time.Since(r.started)
	a.cfg.instruments.RecordDecision(ctx, r.decision.String(), elapsed, mode == ModeDebug)
	span.SetAttributes(telemetry.AttrDecision.String(r.decision.String()))
	if r.err != nil {
		span.RecordError(r.err)
		span.SetStatus(codes.Error, r.err.Error())
	} else {
		span.SetAttributes(telemetry.AttrWinner.String(r.winner.String()))
	}

	var errMsg, winner string
	if r.err != nil {
		errMsg = r.err.Error()
	} else {
		winner = r.winner.String()
	}
	a.cfg.bus.Publish(event.NewRunDecidedEvent(r.id, r.decision.String(), winner, elapsed, errMsg))
	logger.Info("arbitration decided",
		"decision", r.decision.String(),
		"winner", winner,
		"elapsed_ms", elapsed.Milliseconds(),
		"error", errMsg,
	)

	return Result{
		RunID:    r.id,
		Decision: r.decision,
		Winner:   r.winner,
		Elapsed:  elapsed,
		Err:      r.err,
	}
}

// execute is the run body scoped by the frame source lifecycle.
func (a *Arbiter) execute(ctx context.Context, r *run, logger *logging.Logger) {
	// A source that failed to start is not stopped: on a shared Mailbox the
	// failure usually means another run owns it.
	if err := a.source.Start(ctx); err != nil {
		r.fail(errors.Join(errors.ErrSourceStart, err))
		logger.Error("frame source failed to start", "error", err)
		return
	}
	defer func() {
		if err := a.source.Stop(); err != nil {
			logger.Warn("failed to stop frame source", "error", err)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	completions := make(chan completion, decision.NumTasks)
	var wg conc.WaitGroup

	env := detector.Env{
		Source:   a.source,
		Options:  a.options,
		Interval: a.interval,
		Logger:   logger,
		Report: func(id detector.ID, observation string) {
			a.cfg.bus.Publish(event.NewDetectorSampledEvent(r.id, string(id), observation))
		},
	}

	for task, d := range a.detectors {
		if d == nil {
			continue
		}
		a.launch(&wg, r, decision.Task(task), completions, func() detector.Outcome {
			return d.Run(runCtx, env)
		})
	}
	a.launch(&wg, r, decision.TaskDeadline, completions, func() detector.Outcome {
		return r.deadline.Run(runCtx)
	})

	a.cfg.bus.Publish(event.NewRunStartedEvent(r.id, r.deadline.Duration(), r.mode == ModeDebug, a.Detectors()))
	logger.Info("arbitration started",
		"mode", r.mode.String(),
		"deadline", r.deadline.String(),
		"detectors", a.Detectors(),
	)

	a.loop(ctx, r, completions, logger)

	cancel()
	a.awaitStop(&wg, r, completions, logger)
}

// launch starts one task. A panic inside the task becomes a DetectorFault
// outcome. completions is buffered for every task, so the send never blocks.
func (a *Arbiter) launch(wg *conc.WaitGroup, r *run, task decision.Task, completions chan<- completion, fn func() detector.Outcome) {
	r.slots[task].state = slotPending
	r.pending++
	wg.Go(func() {
		var out detector.Outcome
		var pc panics.Catcher
		pc.Try(func() { out = fn() })
		if rec := pc.Recovered(); rec != nil {
			out = detector.Failed(errors.NewDetectorPanic(task.String(), rec.Value))
		}
		completions <- completion{task: task, outcome: out}
	})
}

// loop waits for completions until a terminal verdict, cancellation of ctx,
// or exhaustion of all tasks.
func (a *Arbiter) loop(ctx context.Context, r *run, completions <-chan completion, logger *logging.Logger) {
	for r.pending > 0 {
		var cycle [decision.NumTasks]bool

		select {
		case c := <-completions:
			r.record(c, &cycle)
		case <-ctx.Done():
			r.cancelled(ctx.Err())
			logger.Info("arbitration cancelled by caller")
			return
		}
	drain:
		for {
			select {
			case c := <-completions:
				r.record(c, &cycle)
			default:
				break drain
			}
		}

		for task := range cycle {
			if !cycle[task] {
				continue
			}
			if a.evaluate(ctx, r, decision.Task(task), logger) {
				return
			}
		}
	}

	r.fail(fmt.Errorf("all tasks finished without a decision"))
	logger.Error("arbitration exhausted all tasks")
}

// evaluate applies the policy to one completed task. It returns true once
// the run has a decision.
func (a *Arbiter) evaluate(ctx context.Context, r *run, task decision.Task, logger *logging.Logger) bool {
	out := r.slots[task].outcome

	if out.Canceled() {
		// Before a decision exists only the caller can cancel a task.
		if ctx.Err() != nil {
			r.cancelled(ctx.Err())
			logger.Info("arbitration cancelled by caller")
		} else {
			r.fail(fmt.Errorf("%s stopped without being cancelled: %w", task, out.Err))
			logger.Error("task stopped early", "task", task.String(), "error", out.Err)
		}
		return true
	}

	var verdict decision.Verdict
	if task == decision.TaskDeadline {
		verdict = r.policy.Expire(out, r.slots[decision.TaskIdentity].outcome)
	} else {
		verdict = r.policy.Evaluate(task, out)
	}
	a.cfg.bus.Publish(event.NewDetectorCompletedEvent(r.id, task.String(), out.Kind.String(), verdict.String()))
	logger.WithDetector(task.String()).Info("task completed",
		"outcome", out.Kind.String(),
		"verdict", verdict.String(),
		"observation", observation(task, out),
	)

	if !verdict.Terminal {
		return false
	}
	if verdict.Decision == decision.Error {
		r.fail(verdict.Err)
		logger.Error("detector fault", "task", task.String(), "error", verdict.Err)
		return true
	}
	r.decide(verdict.Decision, task)
	return true
}

// awaitStop waits for cancelled tasks, bounded by the grace period. When
// the grace period runs out, the helper waiting on wg outlives the run
// until the stuck tasks return.
func (a *Arbiter) awaitStop(wg *conc.WaitGroup, r *run, completions <-chan completion, logger *logging.Logger) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()

	timer := time.NewTimer(a.grace)
	defer timer.Stop()

	select {
	case <-done:
		logger.Debug("all tasks stopped")
	case <-timer.C:
		var ignored [decision.NumTasks]bool
	drain:
		for {
			select {
			case c := <-completions:
				r.record(c, &ignored)
			default:
				break drain
			}
		}
		var stuck []string
		for task := range r.slots {
			if r.slots[task].state == slotPending {
				stuck = append(stuck, decision.Task(task).String())
			}
		}
		logger.Warn("tasks did not stop within grace period, leaving them to exit in the background",
			"grace_ms", a.grace.Milliseconds(),
			"pending", stuck,
		)
	}
}

func (r *run) record(c completion, cycle *[decision.NumTasks]bool) {
	r.slots[c.task] = slot{state: slotDone, outcome: c.outcome}
	r.pending--
	cycle[c.task] = true
}

func (r *run) decide(d decision.Decision, winner decision.Task) {
	r.decision = d
	r.winner = winner
}

func (r *run) fail(err error) {
	r.decision = decision.Error
	r.err = err
}

func (r *run) cancelled(cause error) {
	r.fail(errors.Join(errors.ErrCanceled, cause))
}

func observation(task decision.Task, out detector.Outcome) string {
	if out.Kind != detector.KindConclusive {
		if out.Err != nil {
			return out.Err.Error()
		}
		return ""
	}
	switch task {
	case decision.TaskGesture:
		return out.Result.Gestures.String()
	case decision.TaskIdentity:
		return out.Result.Identity.String()
	case decision.TaskOccupancy:
		return out.Result.Occupancy.String()
	case decision.TaskDeadline:
		return "expired"
	}
	return ""
}

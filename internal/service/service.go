// Package service is the request-facing side of robocof. It validates
// decision requests, keeps runs on a shared frame source strictly one at a
// time, applies per-caller rate limits, and either answers synchronously or
// delivers the decision to a callback URL once the run is done.
package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"golang.org/x/sync/semaphore"

	"github.com/robocof/robocof/internal/arbiter"
	"github.com/robocof/robocof/internal/decision"
	"github.com/robocof/robocof/internal/errors"
	"github.com/robocof/robocof/internal/logging"
	"github.com/robocof/robocof/internal/telemetry"
)

// Default request bounds.
const (
	DefaultTimeout     = 15 * time.Second
	DefaultMaxTimeout  = 120 * time.Second
	DefaultMaxAttempts = 3
)

// Runner performs one arbitration. *arbiter.Arbiter implements it.
type Runner interface {
	RunWithResult(ctx context.Context, timeout time.Duration, mode arbiter.Mode) arbiter.Result
}

// Request asks for one decision.
type Request struct {
	// RunID is the caller's identifier of the robot action, echoed back in
	// the callback payload. Must be at least 1.
	RunID int
	// TimeoutSeconds bounds the run; zero selects the default.
	TimeoutSeconds int
	// CallbackURL receives the decision of a deferred request.
	CallbackURL string
	// Caller identifies the requester for rate limiting.
	Caller string
	// Debug runs in observation mode.
	Debug bool
}

// Response is the outcome of a synchronous request.
type Response struct {
	RunID         int
	ArbitrationID string
	Decision      decision.Decision
	Winner        string
	Elapsed       time.Duration
}

// Reply is the JSON body of a synchronous answer.
type Reply struct {
	Decision string `json:"decision"`
}

// Reply returns the wire form of r.
func (r Response) Reply() Reply {
	return Reply{Decision: r.Decision.String()}
}

// Service serves decision requests against one Runner.
type Service struct {
	runner   Runner
	sem      *semaphore.Weighted
	limiter  Limiter
	notifier *Notifier

	defaultTimeout time.Duration
	maxTimeout     time.Duration

	logger      *logging.Logger
	instruments *telemetry.Instruments

	// background runs started by Submit
	wg       conc.WaitGroup
	baseCtx  context.Context
	stop     context.CancelFunc
	closeMu  sync.RWMutex
	isClosed bool
}

// New returns a Service in front of runner.
func New(runner Runner, opts ...Option) (*Service, error) {
	if runner == nil {
		return nil, errors.NewConfigurationError("runner", nil, "runner is required")
	}

	cfg := serviceConfig{
		defaultTimeout: DefaultTimeout,
		maxTimeout:     DefaultMaxTimeout,
		maxAttempts:    DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxTimeout <= 0 {
		return nil, errors.NewConfigurationError("decision.max_timeout_seconds", cfg.maxTimeout, "must be positive")
	}
	if cfg.defaultTimeout <= 0 || cfg.defaultTimeout > cfg.maxTimeout {
		return nil, errors.NewConfigurationError("decision.default_timeout_seconds", cfg.defaultTimeout,
			fmt.Sprintf("must be between 1s and %s", cfg.maxTimeout))
	}
	if cfg.logger == nil {
		cfg.logger = logging.NopLogger()
	}
	if cfg.instruments == nil {
		cfg.instruments = telemetry.New()
	}
	if cfg.limiter == nil {
		cfg.limiter = Unlimited{}
	}
	if cfg.client == nil {
		cfg.client = &http.Client{Timeout: 10 * time.Second}
	}

	logger := cfg.logger.WithPhase("service")
	baseCtx, stop := context.WithCancel(context.Background())
	return &Service{
		runner:  runner,
		sem:     semaphore.NewWeighted(1),
		limiter: cfg.limiter,
		notifier: &Notifier{
			client:         cfg.client,
			maxAttempts:    cfg.maxAttempts,
			initialBackoff: cfg.initialBackoff,
			logger:         logger,
			bus:            cfg.bus,
			instruments:    cfg.instruments,
		},
		defaultTimeout: cfg.defaultTimeout,
		maxTimeout:     cfg.maxTimeout,
		logger:         logger,
		instruments:    cfg.instruments,
		baseCtx:        baseCtx,
		stop:           stop,
	}, nil
}

// Validate checks req and returns the timeout it resolves to.
// A deferred request must carry an http or https callback URL.
func (s *Service) Validate(req Request, deferred bool) (time.Duration, error) {
	if req.RunID < 1 {
		return 0, errors.NewConfigurationError("run_id", req.RunID, "must be at least 1")
	}

	timeout := s.defaultTimeout
	if req.TimeoutSeconds != 0 {
		// Bound the seconds before converting; large values overflow Duration.
		maxSeconds := int(s.maxTimeout / time.Second)
		if req.TimeoutSeconds < 1 || req.TimeoutSeconds > maxSeconds {
			return 0, errors.NewConfigurationError("timeout", req.TimeoutSeconds,
				fmt.Sprintf("must be between 1 and %d seconds", maxSeconds))
		}
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	if deferred || req.CallbackURL != "" {
		if err := validateCallbackURL(req.CallbackURL); err != nil {
			return 0, err
		}
	}
	return timeout, nil
}

func validateCallbackURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.NewConfigurationError("callback_url", raw, "is required for deferred requests")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.NewConfigurationError("callback_url", raw, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.NewConfigurationError("callback_url", raw, "scheme must be http or https")
	}
	if u.Host == "" {
		return errors.NewConfigurationError("callback_url", raw, "host is required")
	}
	return nil
}

// ErrClosed is returned for requests made after Close.
var ErrClosed = errors.New("service is closed")

// admit validates, rate limits and reserves the frame source. The caller
// must hold closeMu for reading and, on success, release s.sem.
func (s *Service) admit(ctx context.Context, req Request, deferred bool) (time.Duration, error) {
	if s.isClosed {
		return 0, ErrClosed
	}

	timeout, err := s.Validate(req, deferred)
	if err != nil {
		s.reject(ctx, req, "invalid", err)
		return 0, err
	}
	if !s.limiter.Allow(req.Caller) {
		err := fmt.Errorf("%w for caller %q", errors.ErrRateLimited, req.Caller)
		s.reject(ctx, req, "rate_limited", err)
		return 0, err
	}
	if !s.sem.TryAcquire(1) {
		s.reject(ctx, req, "busy", errors.ErrRunInProgress)
		return 0, errors.ErrRunInProgress
	}
	return timeout, nil
}

func (s *Service) reject(ctx context.Context, req Request, reason string, err error) {
	s.instruments.RecordRejected(ctx, reason)
	s.logger.Warn("rejected decision request",
		"run_id", req.RunID,
		"caller", req.Caller,
		"reason", reason,
		"error", err,
	)
}

func (s *Service) run(ctx context.Context, req Request, timeout time.Duration) (Response, error) {
	mode := arbiter.ModeNormal
	if req.Debug {
		mode = arbiter.ModeDebug
	}

	res := s.runner.RunWithResult(ctx, timeout, mode)
	resp := Response{
		RunID:         req.RunID,
		ArbitrationID: res.RunID,
		Decision:      res.Decision,
		Elapsed:       res.Elapsed,
	}
	if res.Decision != decision.Error {
		resp.Winner = res.Winner.String()
	}
	return resp, res.Err
}

// Decide runs one arbitration and returns its decision. A rejected request
// returns decision.Error with a ConfigurationError, ErrRateLimited or
// ErrRunInProgress.
func (s *Service) Decide(ctx context.Context, req Request) (Response, error) {
	s.closeMu.RLock()
	timeout, err := s.admit(ctx, req, false)
	s.closeMu.RUnlock()
	if err != nil {
		return Response{RunID: req.RunID, Decision: decision.Error}, err
	}
	defer s.sem.Release(1)

	s.logger.Info("deciding", "run_id", req.RunID, "caller", req.Caller, "timeout", timeout)
	return s.run(ctx, req, timeout)
}

// Submit admits req and returns immediately. The run continues in the
// background, detached from ctx, and its decision is POSTed to
// req.CallbackURL. Use Wait or Close to wait for outstanding runs.
func (s *Service) Submit(ctx context.Context, req Request) error {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()

	timeout, err := s.admit(ctx, req, true)
	if err != nil {
		return err
	}

	s.logger.Info("accepted deferred request", "run_id", req.RunID, "caller", req.Caller, "timeout", timeout)
	s.wg.Go(func() {
		defer s.sem.Release(1)

		resp, err := s.run(s.baseCtx, req, timeout)
		if err != nil {
			s.logger.Warn("deferred run ended with error", "run_id", req.RunID, "error", err)
		}
		// Delivery still happens when the service is closing.
		deliverCtx := context.WithoutCancel(s.baseCtx)
		_, _ = s.notifier.Deliver(deliverCtx, req.CallbackURL, Payload{
			Decision: resp.Decision.String(),
			RunID:    req.RunID,
		})
	})
	return nil
}

// Wait blocks until every submitted run has been decided and delivered.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close rejects new requests, cancels outstanding runs and waits for their
// callbacks.
func (s *Service) Close() {
	s.closeMu.Lock()
	s.isClosed = true
	s.closeMu.Unlock()

	s.stop()
	s.wg.Wait()
}

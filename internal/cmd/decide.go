package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/robocof/robocof/internal/config"
	"github.com/robocof/robocof/internal/event"
	"github.com/robocof/robocof/internal/service"
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Run one arbitration and print its decision",
	Long: `Run one arbitration against a scripted scenario and print the decision.

The scenario file scripts what the gesture, identity and seat models report
over time. Without --callback the decision is printed as soon as the run is
decided. With --callback the run is deferred: the decision is POSTed as
{"decision": ..., "run_id": ...} to the given URL.

Decisions: USER_ABORT, CARRY_OUT_ACTION, TIMEOUT_NO_USER, TIMEOUT_WRONG_USER,
TIMEOUT_CORRECT_USER, TIMEOUT, ERROR.`,
	Example: `  robocof decide --scenario wave.yaml --timeout 5
  robocof decide --scenario wave.yaml --run-id 17 --callback http://robot.local/decision`,
	RunE: runDecide,
}

var (
	decideScenario string
	decideRunID    int
	decideTimeout  int
	decideCallback string
	decideCaller   string
	decideDebug    bool
	decideJSON     bool
)

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringVarP(&decideScenario, "scenario", "s", "", "scenario file scripting the perception models")
	decideCmd.Flags().IntVar(&decideRunID, "run-id", 1, "robot run identifier echoed in the callback payload")
	decideCmd.Flags().IntVarP(&decideTimeout, "timeout", "t", 0, "timeout in seconds (0 uses decision.default_timeout_seconds)")
	decideCmd.Flags().StringVar(&decideCallback, "callback", "", "defer the decision and POST it to this URL")
	decideCmd.Flags().StringVar(&decideCaller, "caller", "cli", "caller name used for rate limiting")
	decideCmd.Flags().BoolVar(&decideDebug, "debug", false, "observe only; run until interrupted (overrides decision.debug)")
	decideCmd.Flags().BoolVar(&decideJSON, "json", false, "print the decision as JSON")
	_ = decideCmd.MarkFlagRequired("scenario")
}

// newService puts the decision service in front of the engine's arbiter.
func newService(cfg *config.Config, eng *engine) (*service.Service, error) {
	opts := []service.Option{
		service.WithLogger(eng.logger),
		service.WithEventBus(eng.bus),
		service.WithInstruments(eng.instruments),
		service.WithTimeouts(cfg.Decision.DefaultTimeout(), cfg.Decision.MaxTimeout()),
		service.WithHTTPClient(&http.Client{Timeout: cfg.Callback.Timeout()}),
		service.WithRetry(cfg.Callback.MaxAttempts, cfg.Callback.InitialBackoff()),
	}
	if cfg.RateLimit.PerMinute > 0 {
		opts = append(opts, service.WithLimiter(service.NewPerCallerLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)))
	}
	return service.New(eng.arbiter, opts...)
}

func runDecide(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := CreateLogger(cfg)
	defer func() { _ = logger.Close() }()

	eng, err := newEngine(cfg, decideScenario, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	svc, err := newService(cfg, eng)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := service.Request{
		RunID:          decideRunID,
		TimeoutSeconds: decideTimeout,
		CallbackURL:    decideCallback,
		Caller:         decideCaller,
		Debug:          decideDebug || cfg.Decision.Debug,
	}
	out := cmd.OutOrStdout()

	if decideCallback != "" {
		return submitDeferred(ctx, out, eng, svc, req)
	}

	eng.player.Start()
	resp, runErr := svc.Decide(ctx, req)
	if decideJSON {
		if err := json.NewEncoder(out).Encode(resp.Reply()); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, resp.Decision)
	}
	if runErr != nil {
		return fmt.Errorf("arbitration failed: %w", runErr)
	}
	return nil
}

func submitDeferred(ctx context.Context, out io.Writer, eng *engine, svc *service.Service, req service.Request) error {
	var delivered event.CallbackDeliveredEvent
	eng.bus.Subscribe(event.TypeCallbackDelivered, func(e event.Event) {
		if ev, ok := e.(event.CallbackDeliveredEvent); ok {
			delivered = ev
		}
	})

	eng.player.Start()
	if err := svc.Submit(ctx, req); err != nil {
		return err
	}
	// Interrupting abandons the run; its decision is still delivered.
	go func() {
		<-ctx.Done()
		svc.Close()
	}()
	fmt.Fprintf(out, "Accepted run %d; the decision will be sent to %s\n", req.RunID, req.CallbackURL)

	svc.Wait()
	if delivered.Error != "" {
		return fmt.Errorf("callback delivery failed after %d attempts: %s", delivered.Attempts, delivered.Error)
	}
	fmt.Fprintf(out, "Delivered %s after %d attempt(s)\n", delivered.Decision, delivered.Attempts)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

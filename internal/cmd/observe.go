package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/robocof/robocof/internal/arbiter"
	"github.com/robocof/robocof/internal/config"
	"github.com/robocof/robocof/internal/errors"
	"github.com/robocof/robocof/internal/event"
	"github.com/robocof/robocof/internal/tui"
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Watch the detectors without deciding anything",
	Long: `Run arbitration in debug mode: every detector keeps reporting what it sees
but no verdict ends the run and there is no deadline. The run stops when you
press q (or Ctrl+C), or after --for has elapsed.

On a terminal a live view is shown; otherwise every observation is printed
as a line.`,
	RunE: runObserve,
}

var (
	observeScenario string
	observeFor      time.Duration
	observePlain    bool
)

func init() {
	rootCmd.AddCommand(observeCmd)

	observeCmd.Flags().StringVarP(&observeScenario, "scenario", "s", "", "scenario file scripting the perception models")
	observeCmd.Flags().DurationVar(&observeFor, "for", 0, "stop observing after this long (0 runs until interrupted)")
	observeCmd.Flags().BoolVar(&observePlain, "plain", false, "print events as lines even on a terminal")
	_ = observeCmd.MarkFlagRequired("scenario")
}

func runObserve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := CreateLogger(cfg)
	defer func() { _ = logger.Close() }()

	eng, err := newEngine(cfg, observeScenario, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if observeFor > 0 {
		var cancelFor context.CancelFunc
		ctx, cancelFor = context.WithTimeout(ctx, observeFor)
		defer cancelFor()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := cmd.OutOrStdout()
	interactive := !observePlain && isTerminal(out)

	var res arbiter.Result
	if interactive {
		res, err = observeInteractive(ctx, cancel, eng)
	} else {
		res = observePlainText(ctx, out, eng)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Observation ended after %s\n", res.Elapsed.Round(time.Millisecond))
	if res.Err != nil && !errors.Is(res.Err, errors.ErrCanceled) {
		return fmt.Errorf("observation failed: %w", res.Err)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func observeInteractive(ctx context.Context, cancel context.CancelFunc, eng *engine) (arbiter.Result, error) {
	app := tui.New(eng.bus, cancel)

	resCh := make(chan arbiter.Result, 1)
	eng.player.Start()
	go func() {
		resCh <- eng.arbiter.RunWithResult(ctx, 0, arbiter.ModeDebug)
	}()

	_, err := app.Run()
	// Leaving the view ends the run.
	cancel()
	return <-resCh, err
}

func observePlainText(ctx context.Context, out io.Writer, eng *engine) arbiter.Result {
	var mu sync.Mutex
	id := eng.bus.SubscribeAll(func(e event.Event) {
		line := describeEvent(e)
		if line == "" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, "%s %-18s %s\n", e.Timestamp().Format("15:04:05.000"), e.EventType(), line)
	})
	defer eng.bus.Unsubscribe(id)

	eng.player.Start()
	return eng.arbiter.RunWithResult(ctx, 0, arbiter.ModeDebug)
}

// describeEvent renders the interesting fields of an event for plain output.
func describeEvent(e event.Event) string {
	switch ev := e.(type) {
	case event.RunStartedEvent:
		return fmt.Sprintf("run=%s detectors=%v", ev.RunID, ev.Detectors)
	case event.DetectorSampledEvent:
		return fmt.Sprintf("%s: %s", ev.Detector, ev.Observation)
	case event.DetectorCompletedEvent:
		return fmt.Sprintf("%s: %s -> %s", ev.Detector, ev.Outcome, ev.Verdict)
	case event.RunDecidedEvent:
		if ev.Error != "" {
			return fmt.Sprintf("%s (%s)", ev.Decision, ev.Error)
		}
		return ev.Decision
	case event.RegistryReloadedEvent:
		return fmt.Sprintf("users=%d", ev.Users)
	}
	return ""
}

package cmd

import (
	"fmt"

	"github.com/robocof/robocof/internal/arbiter"
	"github.com/robocof/robocof/internal/config"
	"github.com/robocof/robocof/internal/detector"
	"github.com/robocof/robocof/internal/event"
	"github.com/robocof/robocof/internal/identity"
	"github.com/robocof/robocof/internal/logging"
	"github.com/robocof/robocof/internal/scenario"
	"github.com/robocof/robocof/internal/telemetry"
)

// engine is the wired arbitration stack shared by decide and observe.
type engine struct {
	cfg         *config.Config
	logger      *logging.Logger
	bus         *event.Bus
	instruments *telemetry.Instruments
	player      *scenario.Player
	registry    *identity.Registry
	arbiter     *arbiter.Arbiter
}

// newEngine wires a scenario-driven arbiter from cfg.
func newEngine(cfg *config.Config, scenarioPath string, logger *logging.Logger) (*engine, error) {
	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		return nil, err
	}
	player := scenario.NewPlayer(sc)

	source, err := player.Source(cfg.Source.Width, cfg.Source.Height, cfg.Source.FPS)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame source: %w", err)
	}

	bus := event.NewBus(logger)
	registry, err := identity.NewRegistry(cfg.Identity.ReferenceDir, logger, bus)
	if err != nil {
		return nil, err
	}

	faces := player.Faces()
	expected := cfg.Identity.ExpectedUser
	if registry.Len() > 0 {
		if expected != "" {
			user, err := registry.Require(expected)
			if err != nil {
				return nil, fmt.Errorf("identity.expected_user: %w", err)
			}
			expected = user.Name
		}
		faces = registry.Recognizer(faces)
	}

	detectors := []detector.Detector{
		&detector.GestureDetector{Classifier: player.Gestures()},
		&detector.OccupancyDetector{Classifier: player.Seats()},
	}
	// Without an expected user every face would count as the wrong one.
	if expected != "" {
		detectors = append(detectors, &detector.IdentityDetector{
			Recognizer:    faces,
			Expected:      expected,
			Triggers:      cfg.Identity.TriggerSet(),
			Confirmations: cfg.Identity.Confirmations,
		})
	} else {
		logger.Info("no expected user configured, identity is not raced")
	}

	instruments := telemetry.New()
	arb, err := arbiter.New(source, arbiter.Config{
		Positive: cfg.Gestures.Positive,
		Negative: cfg.Gestures.Negative,
		Interval: cfg.Sampling.Interval(),
		Options:  cfg.Sampling.FrameOptions(),
	}, detectors,
		arbiter.WithLogger(logger),
		arbiter.WithEventBus(bus),
		arbiter.WithInstruments(instruments),
		arbiter.WithGracePeriod(cfg.Decision.GracePeriod()),
		arbiter.WithMaxTimeout(cfg.Decision.MaxTimeout()),
	)
	if err != nil {
		return nil, err
	}

	if cfg.Identity.Watch && cfg.Identity.ReferenceDir != "" {
		if err := registry.Watch(); err != nil {
			logger.Warn("failed to watch identity references", "error", err)
		}
	}

	return &engine{
		cfg:         cfg,
		logger:      logger,
		bus:         bus,
		instruments: instruments,
		player:      player,
		registry:    registry,
		arbiter:     arb,
	}, nil
}

func (e *engine) Close() {
	e.registry.Stop()
}

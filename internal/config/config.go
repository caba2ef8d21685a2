package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/robocof/robocof/internal/detector"
	"github.com/robocof/robocof/internal/frame"
)

// Config represents the complete robocof configuration
type Config struct {
	Decision  DecisionConfig  `mapstructure:"decision" yaml:"decision"`
	Gestures  GesturesConfig  `mapstructure:"gestures" yaml:"gestures"`
	Sampling  SamplingConfig  `mapstructure:"sampling" yaml:"sampling"`
	Identity  IdentityConfig  `mapstructure:"identity" yaml:"identity"`
	Source    SourceConfig    `mapstructure:"source" yaml:"source"`
	Callback  CallbackConfig  `mapstructure:"callback" yaml:"callback"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// DecisionConfig controls arbitration runs
type DecisionConfig struct {
	// DefaultTimeoutSeconds is used when a request does not carry a timeout
	DefaultTimeoutSeconds int `mapstructure:"default_timeout_seconds" yaml:"default_timeout_seconds"`
	// MaxTimeoutSeconds bounds every requested timeout (default: 120)
	MaxTimeoutSeconds int `mapstructure:"max_timeout_seconds" yaml:"max_timeout_seconds"`
	// Debug runs arbitration in observation-only mode: no deadline, no verdicts
	Debug bool `mapstructure:"debug" yaml:"debug"`
	// GracePeriodMs bounds the wait for cancelled detectors (0 = 3× sampling interval, min 150ms)
	GracePeriodMs int `mapstructure:"grace_period_ms" yaml:"grace_period_ms"`
}

// GesturesConfig holds the gesture trigger sets
type GesturesConfig struct {
	// Positive gestures resolve to CARRY_OUT_ACTION
	Positive []string `mapstructure:"positive" yaml:"positive"`
	// Negative gestures resolve to USER_ABORT
	Negative []string `mapstructure:"negative" yaml:"negative"`
}

// SamplingConfig controls how detectors read frames
type SamplingConfig struct {
	IntervalMs int  `mapstructure:"interval_ms" yaml:"interval_ms"`
	SquareCrop bool `mapstructure:"square_crop" yaml:"square_crop"`
	Enhance    bool `mapstructure:"enhance" yaml:"enhance"`
}

// IdentityConfig controls the identity detector and the reference registry
type IdentityConfig struct {
	// ExpectedUser is the user who is allowed to confirm actions
	ExpectedUser string `mapstructure:"expected_user" yaml:"expected_user"`
	// ReferenceDir holds one YAML file per known user
	ReferenceDir string `mapstructure:"reference_dir" yaml:"reference_dir"`
	// Confirmations is the number of consecutive identical observations required
	Confirmations int `mapstructure:"confirmations" yaml:"confirmations"`
	// Triggers lists the matches that end the identity detector: absent, wrong, correct
	Triggers []string `mapstructure:"triggers" yaml:"triggers"`
	// Watch reloads ReferenceDir when its files change
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// SourceConfig describes the synthetic frame source used without a camera
type SourceConfig struct {
	Width  int     `mapstructure:"width" yaml:"width"`
	Height int     `mapstructure:"height" yaml:"height"`
	FPS    float64 `mapstructure:"fps" yaml:"fps"`
}

// CallbackConfig controls deferred decision delivery
type CallbackConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxAttempts      int `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialBackoffMs int `mapstructure:"initial_backoff_ms" yaml:"initial_backoff_ms"`
}

// RateLimitConfig controls the per-caller request limiter
type RateLimitConfig struct {
	// PerMinute is the sustained request rate per caller (0 disables limiting)
	PerMinute int `mapstructure:"per_minute" yaml:"per_minute"`
	Burst     int `mapstructure:"burst" yaml:"burst"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is active (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level sets the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the log directory; empty logs to stderr
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Decision: DecisionConfig{
			DefaultTimeoutSeconds: 15,
			MaxTimeoutSeconds:     120,
			Debug:                 false,
			GracePeriodMs:         0,
		},
		Gestures: GesturesConfig{
			Positive: []string{"THUMB_UP"},
			Negative: []string{"OPEN_PALM"},
		},
		Sampling: SamplingConfig{
			IntervalMs: 50,
			SquareCrop: true,
			Enhance:    false,
		},
		Identity: IdentityConfig{
			ExpectedUser:  "",
			ReferenceDir:  "",
			Confirmations: 3,
			Triggers:      []string{"wrong", "correct"},
			Watch:         true,
		},
		Source: SourceConfig{
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Callback: CallbackConfig{
			TimeoutSeconds:   10,
			MaxAttempts:      3,
			InitialBackoffMs: 200,
		},
		RateLimit: RateLimitConfig{
			PerMinute: 30,
			Burst:     5,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     "",
		},
	}
}

// DefaultTimeout returns the default timeout as a time.Duration
func (c *DecisionConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutSeconds) * time.Second
}

// MaxTimeout returns the maximum timeout as a time.Duration
func (c *DecisionConfig) MaxTimeout() time.Duration {
	return time.Duration(c.MaxTimeoutSeconds) * time.Second
}

// GracePeriod returns the grace period as a time.Duration (0 means derived)
func (c *DecisionConfig) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodMs) * time.Millisecond
}

// Interval returns the sampling interval as a time.Duration
func (c *SamplingConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// FrameOptions returns the per-read frame transformations
func (c *SamplingConfig) FrameOptions() frame.Options {
	return frame.Options{SquareCrop: c.SquareCrop, Enhance: c.Enhance}
}

// TriggerSet parses Triggers. Invalid entries are skipped; Validate reports
// them.
func (c *IdentityConfig) TriggerSet() map[detector.IdentityMatch]bool {
	set := make(map[detector.IdentityMatch]bool, len(c.Triggers))
	for _, t := range c.Triggers {
		if m, err := detector.ParseIdentityMatch(t); err == nil {
			set[m] = true
		}
	}
	return set
}

// Timeout returns the per-attempt callback timeout as a time.Duration
func (c *CallbackConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// InitialBackoff returns the first retry delay as a time.Duration
func (c *CallbackConfig) InitialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Decision defaults
	viper.SetDefault("decision.default_timeout_seconds", defaults.Decision.DefaultTimeoutSeconds)
	viper.SetDefault("decision.max_timeout_seconds", defaults.Decision.MaxTimeoutSeconds)
	viper.SetDefault("decision.debug", defaults.Decision.Debug)
	viper.SetDefault("decision.grace_period_ms", defaults.Decision.GracePeriodMs)

	// Gesture defaults
	viper.SetDefault("gestures.positive", defaults.Gestures.Positive)
	viper.SetDefault("gestures.negative", defaults.Gestures.Negative)

	// Sampling defaults
	viper.SetDefault("sampling.interval_ms", defaults.Sampling.IntervalMs)
	viper.SetDefault("sampling.square_crop", defaults.Sampling.SquareCrop)
	viper.SetDefault("sampling.enhance", defaults.Sampling.Enhance)

	// Identity defaults
	viper.SetDefault("identity.expected_user", defaults.Identity.ExpectedUser)
	viper.SetDefault("identity.reference_dir", defaults.Identity.ReferenceDir)
	viper.SetDefault("identity.confirmations", defaults.Identity.Confirmations)
	viper.SetDefault("identity.triggers", defaults.Identity.Triggers)
	viper.SetDefault("identity.watch", defaults.Identity.Watch)

	// Source defaults
	viper.SetDefault("source.width", defaults.Source.Width)
	viper.SetDefault("source.height", defaults.Source.Height)
	viper.SetDefault("source.fps", defaults.Source.FPS)

	// Callback defaults
	viper.SetDefault("callback.timeout_seconds", defaults.Callback.TimeoutSeconds)
	viper.SetDefault("callback.max_attempts", defaults.Callback.MaxAttempts)
	viper.SetDefault("callback.initial_backoff_ms", defaults.Callback.InitialBackoffMs)

	// Rate limit defaults
	viper.SetDefault("rate_limit.per_minute", defaults.RateLimit.PerMinute)
	viper.SetDefault("rate_limit.burst", defaults.RateLimit.Burst)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "robocof")
	}
	// Fall back to ~/.config/robocof
	home, err := os.UserHomeDir()
	if err != nil {
		return ".robocof"
	}
	return filepath.Join(home, ".config", "robocof")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/robocof/robocof/internal/detector"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default decision config
	if cfg.Decision.DefaultTimeoutSeconds != 15 {
		t.Errorf("Decision.DefaultTimeoutSeconds = %d, want 15", cfg.Decision.DefaultTimeoutSeconds)
	}
	if cfg.Decision.MaxTimeoutSeconds != 120 {
		t.Errorf("Decision.MaxTimeoutSeconds = %d, want 120", cfg.Decision.MaxTimeoutSeconds)
	}
	if cfg.Decision.Debug {
		t.Error("Decision.Debug should be false by default")
	}

	// Verify default gesture triggers
	if len(cfg.Gestures.Positive) != 1 || cfg.Gestures.Positive[0] != "THUMB_UP" {
		t.Errorf("Gestures.Positive = %v, want [THUMB_UP]", cfg.Gestures.Positive)
	}
	if len(cfg.Gestures.Negative) != 1 || cfg.Gestures.Negative[0] != "OPEN_PALM" {
		t.Errorf("Gestures.Negative = %v, want [OPEN_PALM]", cfg.Gestures.Negative)
	}

	// Verify default sampling config
	if cfg.Sampling.IntervalMs != 50 {
		t.Errorf("Sampling.IntervalMs = %d, want 50", cfg.Sampling.IntervalMs)
	}
	if !cfg.Sampling.SquareCrop {
		t.Error("Sampling.SquareCrop should be true by default")
	}

	// Verify default identity config
	if cfg.Identity.Confirmations != 3 {
		t.Errorf("Identity.Confirmations = %d, want 3", cfg.Identity.Confirmations)
	}

	// Verify default callback and rate limit config
	if cfg.Callback.MaxAttempts != 3 {
		t.Errorf("Callback.MaxAttempts = %d, want 3", cfg.Callback.MaxAttempts)
	}
	if cfg.RateLimit.PerMinute != 30 || cfg.RateLimit.Burst != 5 {
		t.Errorf("RateLimit = %+v, want 30/min burst 5", cfg.RateLimit)
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"default timeout", cfg.Decision.DefaultTimeout(), 15 * time.Second},
		{"max timeout", cfg.Decision.MaxTimeout(), 120 * time.Second},
		{"grace period", cfg.Decision.GracePeriod(), 0},
		{"interval", cfg.Sampling.Interval(), 50 * time.Millisecond},
		{"callback timeout", cfg.Callback.Timeout(), 10 * time.Second},
		{"initial backoff", cfg.Callback.InitialBackoff(), 200 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestSamplingConfig_FrameOptions(t *testing.T) {
	cfg := SamplingConfig{SquareCrop: true, Enhance: true}
	opts := cfg.FrameOptions()
	if !opts.SquareCrop || !opts.Enhance {
		t.Errorf("FrameOptions() = %+v", opts)
	}
}

func TestIdentityConfig_TriggerSet(t *testing.T) {
	cfg := IdentityConfig{Triggers: []string{"Wrong", "correct", "bogus"}}
	set := cfg.TriggerSet()

	if len(set) != 2 || !set[detector.IdentityWrong] || !set[detector.IdentityCorrect] {
		t.Errorf("TriggerSet() = %v", set)
	}
	if set[detector.IdentityAbsent] {
		t.Error("absent should not be a trigger")
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/robocof"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "robocof")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/robocof/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	// Set defaults in viper first (normally done by cmd init)
	SetDefaults()

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Decision.DefaultTimeoutSeconds != 15 {
		t.Errorf("Get().Decision.DefaultTimeoutSeconds = %d, want 15", cfg.Decision.DefaultTimeoutSeconds)
	}
	if len(cfg.Identity.Triggers) != 2 {
		t.Errorf("Get().Identity.Triggers = %v", cfg.Identity.Triggers)
	}
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `decision:
  default_timeout_seconds: 5
gestures:
  positive: [VICTORY, THUMB_UP]
identity:
  expected_user: alice
  confirmations: 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Decision.DefaultTimeoutSeconds != 5 {
		t.Errorf("DefaultTimeoutSeconds = %d, want 5", cfg.Decision.DefaultTimeoutSeconds)
	}
	if cfg.Decision.MaxTimeoutSeconds != 120 {
		t.Errorf("MaxTimeoutSeconds = %d, want default 120", cfg.Decision.MaxTimeoutSeconds)
	}
	if len(cfg.Gestures.Positive) != 2 {
		t.Errorf("Gestures.Positive = %v", cfg.Gestures.Positive)
	}
	if cfg.Identity.ExpectedUser != "alice" || cfg.Identity.Confirmations != 2 {
		t.Errorf("Identity = %+v", cfg.Identity)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	viper.Set("decision.default_timeout_seconds", 500)
	viper.Set("gestures.negative", []string{"WAVE"})

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail validation")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Load() error type = %T, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Errorf("expected 2 validation errors, got %d: %v", len(verrs), verrs)
	}
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/robocof/robocof/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify robocof configuration",
	Long: `View or modify robocof configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  robocof config set decision.default_timeout_seconds 20
  robocof config set gestures.positive THUMB_UP,VICTORY
  robocof config set identity.expected_user alice

List values are comma separated. The resulting configuration is validated
before it is written.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/robocof/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the current configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := strings.ToLower(args[0])
	value := args[1]

	current := viper.Get(key)
	if current == nil || !slices.Contains(viper.AllKeys(), key) {
		return fmt.Errorf("unknown configuration key: %s\nRun 'robocof config show' to see valid keys", key)
	}

	typedValue, err := parseConfigValue(key, current, value)
	if err != nil {
		return err
	}

	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("refusing to write invalid configuration: %w", err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", configFile)
	return nil
}

// parseConfigValue converts value to the type of the key's current value.
func parseConfigValue(key string, current any, value string) (any, error) {
	switch current.(type) {
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return b, nil
	case int, int64:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		return n, nil
	case float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected number", key)
		}
		return f, nil
	case []string, []any:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	default:
		return value, nil
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'robocof config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigFile), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

const defaultConfigFile = `# robocof configuration

decision:
  # Timeout used when a request names none (seconds)
  default_timeout_seconds: 15
  # Largest timeout a request may ask for (seconds)
  max_timeout_seconds: 120
  # Observe only: no deadline and no verdicts
  debug: false
  # How long a decided run waits for cancelled detectors (0 = derived)
  grace_period_ms: 0

# Gesture tags: CLOSED_FIST, OPEN_PALM, POINTING_UP, THUMB_DOWN, THUMB_UP,
# VICTORY, I_LOVE_YOU. Positive wins when both sets match.
gestures:
  positive: [THUMB_UP]
  negative: [OPEN_PALM]

sampling:
  interval_ms: 50
  square_crop: true
  enhance: false

identity:
  # User whose presence yields TIMEOUT_CORRECT_USER
  expected_user: ""
  # Directory with one YAML file per known user
  reference_dir: ""
  # Identical observations needed before identity concludes
  confirmations: 3
  # Matches that conclude the identity detector: absent, wrong, correct
  triggers: [wrong, correct]
  # Reload the reference directory when it changes
  watch: true

source:
  width: 640
  height: 480
  fps: 30

callback:
  timeout_seconds: 10
  max_attempts: 3
  initial_backoff_ms: 200

rate_limit:
  # Requests per caller per minute (0 disables limiting)
  per_minute: 30
  burst: 5

logging:
  enabled: true
  # debug, info, warn or error
  level: info
  # Empty logs to the logs directory next to this file
  dir: ""
`

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", configFile)
	fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: ROBOCOF_* (e.g., ROBOCOF_DECISION_DEFAULT_TIMEOUT_SECONDS)")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
	return nil
}

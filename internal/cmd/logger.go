package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/robocof/robocof/internal/config"
	"github.com/robocof/robocof/internal/logging"
)

// CreateLogger creates a logger if logging is enabled in config.
// Returns a NopLogger if logging is disabled or if creation fails.
// Logs go to logging.dir, or to the logs directory under the config
// directory when none is set.
func CreateLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	logger, err := logging.NewLogger(logDir(cfg), cfg.Logging.Level)
	if err != nil {
		// Log creation failure shouldn't prevent the application from starting
		fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		return logging.NopLogger()
	}
	return logger
}

// logDir returns the directory robocof writes its log file to.
func logDir(cfg *config.Config) string {
	if cfg.Logging.Dir != "" {
		return cfg.Logging.Dir
	}
	return filepath.Join(config.ConfigDir(), "logs")
}

// Package logging provides structured logging for robocof.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation. Every arbitration run gets a child logger carrying
// its run ID, and every detector task a child of that carrying the detector
// name, so the log of a single run can be reconstructed after the fact.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/robocof", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	runLogger := logger.WithRun("4f1c...")
//	runLogger.WithDetector("gesture").Debug("sample", "tags", "THUMB_UP")
//
// Output:
//
//	{"time":"...","level":"DEBUG","msg":"sample","run_id":"4f1c...","detector":"gesture","tags":"THUMB_UP"}
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] to capture it.
package logging

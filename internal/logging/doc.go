// Package logging provides structured logging for icebox.
//
// This package wraps a global zap logger with convenience functions and a few
// protocol-specific helpers for logging fridge frames.
//
// # Log Levels
//
//   - Debug: Frame traffic with hex dumps, poll ticks
//   - Info: Bind results, settings applied, publisher connects
//   - Warn: Malformed frames, timeouts, retries
//   - Error: Transport failures
//
// # Configuration
//
// Logging is silent unless a level is given, either with --log-level or the
// ICEBOX_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize(flagLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// Logs go to stderr so that `icebox status --format json` output on stdout
// stays machine readable.
//
// # Frame Logging
//
//	logging.LogFrame(log, "tx", frame)
//	logging.LogFrameError(log, raw, err)
//
// Frames are rendered as "FE FE 03 01 02 00".
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. SetLogger is not, and
// should only be called during startup or from tests.
package logging

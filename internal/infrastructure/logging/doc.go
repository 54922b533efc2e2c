// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON lines on stderr
//   - Development: colored console output for humans
//
// Reports produced by the worker tree go to their own artifact; the logger
// only carries lifecycle events (spawn, pause, disposition, exit).
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	wlog := logger.Worker(3, "wkr_01J...")
//	wlog.Info("paused", zap.Int("hidden", 4))
package logging

// Package app wires configuration, logging, telemetry and the input and
// report artifacts around one pool run. cmd/forktree is a thin flag layer
// on top of Run.
//
// Example Usage:
//
//	cfg := config.Default()
//	cfg.Run.Length, cfg.Run.Hidden = 800, 60
//	sum, err := app.Run(ctx, cfg, app.Streams{Stdout: os.Stdout})
//	os.Exit(app.ExitCode(err))
package app

// Package main is the forktree command.
//
// forktree generates an array of L values with H hidden markers, splits it
// across a root and seven workers, disposes of each worker by the rank of its
// hidden-count and writes the global max, average and hidden total.
//
// Configuration:
//   - Defaults
//   - Config file (-config, YAML or TOML)
//   - Environment variables (FORKTREE_*)
//   - CLI flags and the positional L and H
//
// Usage:
//
//	forktree 800 60
//	forktree -ranking settled -format json -metrics forktree.prom 800 60
//	forktree -input-from input.txt.zst 800 60
//
// Exit codes:
//   - 0: success
//   - 1: runtime failure (artifact I/O)
//   - 2: invalid arguments
//   - 3: channel allocation failure
//   - 4: worker spawn failure
//
// Signals:
//   - SIGINT, SIGTERM: abandon the run
package main

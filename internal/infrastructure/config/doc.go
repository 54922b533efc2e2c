// Package config provides layered configuration for forktree.
//
// Precedence, lowest first:
//  1. Default()
//  2. optional config file (.yaml/.yml via goccy/go-yaml, .toml via go-toml)
//  3. environment variables (envconfig)
//  4. command line flags, applied by cmd/forktree
//
// Environment Variables:
//   - FORKTREE_LENGTH, FORKTREE_HIDDEN, FORKTREE_SEED
//   - FORKTREE_SEED_POLICY, FORKTREE_RANKING, FORKTREE_RELAY_SIGNAL
//   - FORKTREE_INPUT, FORKTREE_INPUT_FROM, FORKTREE_OUTPUT, FORKTREE_FORMAT
//   - FORKTREE_LOG_LEVEL, FORKTREE_LOG_DEV
//   - FORKTREE_DIAGNOSTICS, FORKTREE_PSTREE_INTERVAL_MS, FORKTREE_PSTREE_BURST
//   - FORKTREE_METRICS_FILE, FORKTREE_TRACE_FILE
package config

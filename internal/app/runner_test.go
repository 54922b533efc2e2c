package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/forktree/internal/domain/pool"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/config"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/logging"
	"github.com/GriffinCanCode/forktree/internal/providers/input"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Run.Length = 800
	cfg.Run.Hidden = 60
	cfg.Run.Seed = 17
	cfg.Files.Input = filepath.Join(dir, "input.txt")
	cfg.Files.Output = filepath.Join(dir, "output.txt")
	cfg.Diagnostics.Mode = config.DiagnosticsOff
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunWritesArtifacts(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Dir(cfg.Files.Input)
	cfg.Telemetry.MetricsFile = filepath.Join(dir, "forktree.prom")
	cfg.Telemetry.TraceFile = filepath.Join(dir, "trace.json")

	var stdout bytes.Buffer
	sum, err := Run(context.Background(), cfg, Streams{Stdout: &stdout, Logger: logging.NewNop()})
	require.NoError(t, err)
	assert.Equal(t, 60, sum.Hidden)

	array, err := input.Read(cfg.Files.Input)
	require.NoError(t, err)
	assert.Len(t, array, 800)
	assert.Equal(t, 60, input.CountHidden(array))

	out, err := os.ReadFile(cfg.Files.Output)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Hidden Nodes Total = 60")
	assert.Equal(t, 60, strings.Count(string(out), "I found the hidden key"))

	metrics, err := os.ReadFile(cfg.Telemetry.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "forktree_workers_spawned_total 7")

	trace, err := os.ReadFile(cfg.Telemetry.TraceFile)
	require.NoError(t, err)
	assert.Contains(t, string(trace), `"Name":"run"`)

	assert.Contains(t, stdout.String(), "Program took")
}

func TestRunFromArtifactIsRepeatable(t *testing.T) {
	cfg := testConfig(t)
	first, err := Run(context.Background(), cfg, Streams{Stdout: &bytes.Buffer{}, Logger: logging.NewNop()})
	require.NoError(t, err)

	again := testConfig(t)
	again.Files.InputFrom = cfg.Files.Input
	again.Run.Seed = 0
	second, err := Run(context.Background(), again, Streams{Stdout: &bytes.Buffer{}, Logger: logging.NewNop()})
	require.NoError(t, err)

	assert.Equal(t, first.Max, second.Max)
	assert.Equal(t, first.Average, second.Average)
	assert.Equal(t, first.Hidden, second.Hidden)
	assert.Equal(t, first.Rules(), second.Rules())
}

func TestRunJSONReport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Files.Format = config.FormatJSON

	_, err := Run(context.Background(), cfg, Streams{Stdout: &bytes.Buffer{}, Logger: logging.NewNop()})
	require.NoError(t, err)

	out, err := os.ReadFile(cfg.Files.Output)
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		assert.True(t, strings.HasPrefix(line, `{"kind":"`), line)
	}
}

func TestRunBadRelaySignal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.RelaySignal = "SIGNOPE"

	_, err := Run(context.Background(), cfg, Streams{Logger: logging.NewNop()})
	assert.ErrorIs(t, err, pool.ErrArgument)
	assert.Equal(t, 2, ExitCode(err))
}

func TestRunMissingArtifact(t *testing.T) {
	cfg := testConfig(t)
	cfg.Files.InputFrom = filepath.Join(t.TempDir(), "missing.txt")

	_, err := Run(context.Background(), cfg, Streams{Logger: logging.NewNop()})
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("disk full"), 1},
		{&pool.StartupError{Kind: pool.ErrArgument, Err: errors.New("x")}, 2},
		{&pool.StartupError{Kind: pool.ErrChannel, Err: errors.New("x")}, 3},
		{&pool.StartupError{Kind: pool.ErrSpawn, Err: errors.New("x")}, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err))
	}
}

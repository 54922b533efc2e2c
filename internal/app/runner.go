package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/forktree/internal/domain/disposition"
	"github.com/GriffinCanCode/forktree/internal/domain/pool"
	"github.com/GriffinCanCode/forktree/internal/domain/worker"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/config"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/logging"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/forktree/internal/providers/diagnostics"
	"github.com/GriffinCanCode/forktree/internal/providers/input"
	"github.com/GriffinCanCode/forktree/internal/providers/report"
	"github.com/GriffinCanCode/forktree/internal/shared/id"
)

const serviceName = "forktree"

// Streams are where human-facing output goes. Logs always go to the
// configured logger.
type Streams struct {
	Stdout io.Writer
	Logger *logging.Logger
}

// Run executes one invocation described by cfg. cfg must already be valid.
func Run(ctx context.Context, cfg *config.Config, s Streams) (sum *pool.Summary, err error) {
	if s.Stdout == nil {
		s.Stdout = os.Stdout
	}
	logger := s.Logger
	if logger == nil {
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			return nil, argumentError(fmt.Errorf("logger: %w", err))
		}
		defer logger.Sync()
	}

	opts, err := options(cfg)
	if err != nil {
		return nil, argumentError(err)
	}
	runID := id.NewRunID().String()
	logger = logger.With(zap.String("run_id", runID))

	tracer, err := tracing.New(serviceName, cfg.Telemetry.TraceFile, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if serr := tracer.Shutdown(context.Background()); serr != nil && err == nil {
			err = serr
		}
	}()

	array, err := loadArray(cfg, logger)
	if err != nil {
		return nil, err
	}

	writer, err := report.Create(cfg.Files.Output, cfg.Files.Format, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to finish report: %w", cerr)
		}
	}()

	metrics := monitoring.NewMetrics()
	mode, _ := diagnostics.ParseMode(cfg.Diagnostics.Mode)
	inspector := diagnostics.New(diagnostics.Config{
		Mode:     mode,
		Interval: time.Duration(cfg.Diagnostics.PstreeIntervalMS) * time.Millisecond,
		Burst:    cfg.Diagnostics.PstreeBurst,
		Output:   s.Stdout,
		Run:      runID,
		Logger:   logger,
	})

	opts.Array = array
	opts.RunID = runID
	opts.Reporter = writer
	opts.Diagnostics = inspector
	opts.Logger = logger
	opts.Metrics = metrics
	opts.Tracer = tracer

	p, err := pool.New(opts)
	if err != nil {
		return nil, err
	}
	sum, err = p.Run(ctx)
	if err != nil {
		return nil, err
	}

	if err := metrics.WriteTextfile(cfg.Telemetry.MetricsFile); err != nil {
		return sum, fmt.Errorf("failed to write metrics: %w", err)
	}
	fmt.Fprintf(s.Stdout, "Program took %f seconds to run\n", sum.CPUTime.Seconds())
	return sum, nil
}

// options translates the validated config into pool options.
func options(cfg *config.Config) (pool.Options, error) {
	seed, err := worker.ParseSeedPolicy(cfg.Run.SeedPolicy)
	if err != nil {
		return pool.Options{}, err
	}
	mode, err := disposition.ParseMode(cfg.Run.Ranking)
	if err != nil {
		return pool.Options{}, err
	}
	sig, err := worker.ParseSignal(cfg.Run.RelaySignal)
	if err != nil {
		return pool.Options{}, fmt.Errorf("relay signal: %w", err)
	}
	return pool.Options{Seed: seed, Ranking: mode, RelaySignal: sig}, nil
}

// loadArray reads the array back from an artifact, or generates it and
// persists it.
func loadArray(cfg *config.Config, logger *logging.Logger) ([]int, error) {
	if cfg.Files.InputFrom != "" {
		array, err := input.Read(cfg.Files.InputFrom)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded input", zap.String("path", cfg.Files.InputFrom), zap.Int("length", len(array)))
		if cfg.Run.Length != 0 && cfg.Run.Length != len(array) {
			logger.Warn("Input length differs from L, using the artifact",
				zap.Int("L", cfg.Run.Length),
				zap.Int("length", len(array)),
			)
		}
		return array, nil
	}

	seed := cfg.Run.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	array, err := input.Generate(cfg.Run.Length, cfg.Run.Hidden, seed)
	if err != nil {
		return nil, argumentError(err)
	}
	if err := input.Write(cfg.Files.Input, array); err != nil {
		return nil, err
	}
	logger.Info("Generated input",
		zap.String("path", cfg.Files.Input),
		zap.Int("length", len(array)),
		zap.Int("hidden", cfg.Run.Hidden),
		zap.Int64("seed", seed),
	)
	return array, nil
}

func argumentError(err error) error {
	return &pool.StartupError{Kind: pool.ErrArgument, Err: err}
}

// ExitCode maps an error from Run to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var se *pool.StartupError
	if errors.As(err, &se) {
		return se.ExitCode()
	}
	return 1
}

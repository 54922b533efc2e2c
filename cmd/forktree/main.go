package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/GriffinCanCode/forktree/internal/app"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "forktree: %v\n", err)
		return 2
	}
	applyFlags(fs, cfg)

	if err := applyPositional(fs.Args(), cfg); err != nil {
		fmt.Fprintf(stderr, "forktree: %v\n", err)
		fs.Usage()
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "forktree: %v\n", err)
		fs.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := app.Run(ctx, cfg, app.Streams{Stdout: stdout}); err != nil {
		fmt.Fprintf(stderr, "forktree: %v\n", err)
		return app.ExitCode(err)
	}
	return 0
}

func newFlagSet(stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet("forktree", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: forktree [flags] <L> <H>")
		fmt.Fprintf(stderr, "  L  array length, 1..%d\n", config.MaxLength)
		fmt.Fprintf(stderr, "  H  hidden markers, 0..%d and at most L\n", config.MaxHidden)
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "Config file (.yaml, .yml or .toml)")
	fs.String("input", "", "Where to write the generated input (.gz/.zst compress)")
	fs.String("input-from", "", "Read the input from this artifact instead of generating it")
	fs.String("output", "", "Report file")
	fs.Int64("seed", 0, "Generator seed, 0 for time-based")
	fs.String("seed-policy", "", "Max seeding: segment or array-head")
	fs.String("ranking", "", "Disposition ranking: online or settled")
	fs.String("relay-signal", "", "Signal carried by relay termination")
	fs.String("format", "", "Report format: text or json")
	fs.String("diagnostics", "", "Checkpoint output: tree, pstree or off")
	fs.String("metrics", "", "Write Prometheus metrics to this textfile")
	fs.String("trace", "", "Write OpenTelemetry spans to this file")
	fs.String("log-level", "", "Log level: debug, info, warn, error")
	fs.Bool("log-dev", false, "Human-readable colored logs")
	return fs, configPath
}

// applyFlags copies explicitly set flags over the loaded config, so flags
// win over file and environment values.
func applyFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "input":
			cfg.Files.Input = v
		case "input-from":
			cfg.Files.InputFrom = v
		case "output":
			cfg.Files.Output = v
		case "seed":
			cfg.Run.Seed, _ = strconv.ParseInt(v, 10, 64)
		case "seed-policy":
			cfg.Run.SeedPolicy = v
		case "ranking":
			cfg.Run.Ranking = v
		case "relay-signal":
			cfg.Run.RelaySignal = v
		case "format":
			cfg.Files.Format = v
		case "diagnostics":
			cfg.Diagnostics.Mode = v
		case "metrics":
			cfg.Telemetry.MetricsFile = v
		case "trace":
			cfg.Telemetry.TraceFile = v
		case "log-level":
			cfg.Logging.Level = v
		case "log-dev":
			cfg.Logging.Development = v == "true"
		}
	})
}

// applyPositional reads L and H. They may be omitted when the config file or
// environment already supplies them.
func applyPositional(args []string, cfg *config.Config) error {
	switch len(args) {
	case 0:
		if cfg.Run.Length == 0 {
			return errors.New("missing L and H")
		}
		return nil
	case 2:
	default:
		return fmt.Errorf("expected 2 arguments, got %d", len(args))
	}

	l, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("L must be an integer: %w", err)
	}
	h, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("H must be an integer: %w", err)
	}
	cfg.Run.Length, cfg.Run.Hidden = l, h
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Input bounds. Larger arrays are refused to keep memory use predictable.
const (
	MaxLength = 1_500_000
	MaxHidden = 60
)

// Max seeding policies.
const (
	SeedPolicySegment   = "segment"
	SeedPolicyArrayHead = "array-head"
)

// Ranking modes.
const (
	RankingOnline  = "online"
	RankingSettled = "settled"
)

// Diagnostics modes.
const (
	DiagnosticsTree   = "tree"
	DiagnosticsPstree = "pstree"
	DiagnosticsOff    = "off"
)

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Run         RunConfig         `yaml:"run" toml:"run"`
	Files       FilesConfig       `yaml:"files" toml:"files"`
	Logging     LogConfig         `yaml:"logging" toml:"logging"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" toml:"diagnostics"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" toml:"telemetry"`
}

// RunConfig holds the computation parameters.
type RunConfig struct {
	Length      int    `envconfig:"FORKTREE_LENGTH" yaml:"length" toml:"length"`
	Hidden      int    `envconfig:"FORKTREE_HIDDEN" yaml:"hidden" toml:"hidden"`
	Seed        int64  `envconfig:"FORKTREE_SEED" yaml:"seed" toml:"seed"`
	SeedPolicy  string `envconfig:"FORKTREE_SEED_POLICY" yaml:"seed_policy" toml:"seed_policy"`
	Ranking     string `envconfig:"FORKTREE_RANKING" yaml:"ranking" toml:"ranking"`
	RelaySignal string `envconfig:"FORKTREE_RELAY_SIGNAL" yaml:"relay_signal" toml:"relay_signal"`
}

// FilesConfig holds artifact paths.
type FilesConfig struct {
	Input     string `envconfig:"FORKTREE_INPUT" yaml:"input" toml:"input"`
	InputFrom string `envconfig:"FORKTREE_INPUT_FROM" yaml:"input_from" toml:"input_from"`
	Output    string `envconfig:"FORKTREE_OUTPUT" yaml:"output" toml:"output"`
	Format    string `envconfig:"FORKTREE_FORMAT" yaml:"format" toml:"format"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"FORKTREE_LOG_LEVEL" yaml:"level" toml:"level"`
	Development bool   `envconfig:"FORKTREE_LOG_DEV" yaml:"development" toml:"development"`
}

// DiagnosticsConfig controls process tree inspection at checkpoints.
type DiagnosticsConfig struct {
	Mode             string `envconfig:"FORKTREE_DIAGNOSTICS" yaml:"mode" toml:"mode"`
	PstreeIntervalMS int    `envconfig:"FORKTREE_PSTREE_INTERVAL_MS" yaml:"pstree_interval_ms" toml:"pstree_interval_ms"`
	PstreeBurst      int    `envconfig:"FORKTREE_PSTREE_BURST" yaml:"pstree_burst" toml:"pstree_burst"`
}

// TelemetryConfig holds optional metrics and trace sinks. Empty paths disable them.
type TelemetryConfig struct {
	MetricsFile string `envconfig:"FORKTREE_METRICS_FILE" yaml:"metrics_file" toml:"metrics_file"`
	TraceFile   string `envconfig:"FORKTREE_TRACE_FILE" yaml:"trace_file" toml:"trace_file"`
}

// Default returns default configuration. Length and Hidden have no useful
// default and are normally supplied on the command line.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			SeedPolicy:  SeedPolicySegment,
			Ranking:     RankingOnline,
			RelaySignal: "SIGTERM",
		},
		Files: FilesConfig{
			Input:  "input.txt",
			Output: "output.txt",
			Format: FormatText,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Diagnostics: DiagnosticsConfig{
			Mode:             DiagnosticsTree,
			PstreeIntervalMS: 100,
			PstreeBurst:      3,
		},
	}
}

// Load builds configuration from defaults, an optional file and the
// environment, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: unsupported config file type %q", ErrInvalid, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the run parameters against the tool's bounds.
func (c *Config) Validate() error {
	r := c.Run
	switch {
	case r.Length <= 0:
		return fmt.Errorf("%w: L must be positive, got %d", ErrInvalid, r.Length)
	case r.Length > MaxLength:
		return fmt.Errorf("%w: L must be at most %d, got %d", ErrInvalid, MaxLength, r.Length)
	case r.Hidden < 0 || r.Hidden > MaxHidden:
		return fmt.Errorf("%w: H must be between 0 and %d, got %d", ErrInvalid, MaxHidden, r.Hidden)
	case r.Hidden > r.Length:
		return fmt.Errorf("%w: H (%d) cannot exceed L (%d)", ErrInvalid, r.Hidden, r.Length)
	}

	if !oneOf(r.SeedPolicy, SeedPolicySegment, SeedPolicyArrayHead) {
		return fmt.Errorf("%w: unknown seed policy %q", ErrInvalid, r.SeedPolicy)
	}
	if !oneOf(r.Ranking, RankingOnline, RankingSettled) {
		return fmt.Errorf("%w: unknown ranking mode %q", ErrInvalid, r.Ranking)
	}
	if !oneOf(c.Files.Format, FormatText, FormatJSON) {
		return fmt.Errorf("%w: unknown report format %q", ErrInvalid, c.Files.Format)
	}
	if !oneOf(c.Diagnostics.Mode, DiagnosticsTree, DiagnosticsPstree, DiagnosticsOff) {
		return fmt.Errorf("%w: unknown diagnostics mode %q", ErrInvalid, c.Diagnostics.Mode)
	}
	return nil
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

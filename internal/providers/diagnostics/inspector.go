package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/forktree/internal/domain/worker"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/logging"
	"github.com/GriffinCanCode/forktree/internal/shared/id"
)

// Checkpoints run by the pool. Workers run CheckpointResumed from the
// worker package.
const (
	CheckpointStart    = "start"
	CheckpointSpawned  = "spawned"
	CheckpointComplete = "complete"
)

// Mode selects what a checkpoint prints.
type Mode string

const (
	ModeTree   Mode = "tree"
	ModePstree Mode = "pstree"
	ModeOff    Mode = "off"
)

// ParseMode validates a configured diagnostics mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeTree, ModePstree, ModeOff:
		return m, nil
	case "":
		return ModeTree, nil
	default:
		return "", fmt.Errorf("unknown diagnostics mode %q", s)
	}
}

// Source lists the workers to render.
type Source func() []worker.Record

// Runner executes the external process-tree tool.
type Runner func(ctx context.Context, pid int) ([]byte, error)

// Config configures an Inspector.
type Config struct {
	Mode     Mode
	Interval time.Duration
	Burst    int
	Output   io.Writer
	Run      string
	Logger   *logging.Logger
	Runner   Runner
}

// Inspector prints the process tree at checkpoints. Output is for humans
// only; nothing reads it back.
type Inspector struct {
	mode    Mode
	out     io.Writer
	run     string
	pid     int
	logger  *logging.Logger
	limiter *rate.Limiter
	runner  Runner

	mu      sync.Mutex
	source  Source
	counts  map[string]int
	skipped int
}

// New creates an inspector. A zero Interval disables rate limiting.
func New(cfg Config) *Inspector {
	if cfg.Mode == "" {
		cfg.Mode = ModeTree
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Runner == nil {
		cfg.Runner = pstree
	}

	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Inspector{
		mode:    cfg.Mode,
		out:     cfg.Output,
		run:     cfg.Run,
		pid:     unix.Getpid(),
		logger:  cfg.Logger.Named("diagnostics"),
		limiter: rate.NewLimiter(limit, burst),
		runner:  cfg.Runner,
		counts:  make(map[string]int),
	}
}

// SetSource registers the workers shown by tree mode.
func (i *Inspector) SetSource(src Source) {
	if i == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.source = src
}

// Checkpoint prints the tree for the named checkpoint. Failures are logged,
// never returned.
func (i *Inspector) Checkpoint(ctx context.Context, name string) {
	if i == nil {
		return
	}

	i.mu.Lock()
	mode := i.mode
	if mode != ModeOff {
		i.counts[name]++
	}
	i.mu.Unlock()

	switch mode {
	case ModeOff:
	case ModePstree:
		i.pstree(ctx, name)
	default:
		i.write(i.render(name))
	}
}

// Count returns how often the named checkpoint ran.
func (i *Inspector) Count(name string) int {
	if i == nil {
		return 0
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.counts[name]
}

// Skipped returns how many pstree invocations the limiter suppressed.
func (i *Inspector) Skipped() int {
	if i == nil {
		return 0
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.skipped
}

func (i *Inspector) pstree(ctx context.Context, name string) {
	if !i.limiter.Allow() {
		i.mu.Lock()
		i.skipped++
		i.mu.Unlock()
		i.logger.Debug("pstree rate limited", zap.String("checkpoint", name))
		return
	}

	out, err := i.runner(ctx, i.pid)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			i.logger.Warn("pstree not available, falling back to tree view", zap.Error(err))
			i.mu.Lock()
			i.mode = ModeTree
			i.mu.Unlock()
			i.write(i.render(name))
			return
		}
		i.logger.Warn("pstree failed", zap.String("checkpoint", name), zap.Error(err))
		return
	}
	i.write(out)
}

func (i *Inspector) write(b []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, err := i.out.Write(b); err != nil {
		i.logger.Warn("Failed to write diagnostics", zap.Error(err))
	}
}

// render draws the pool as a two-level tree.
func (i *Inspector) render(name string) []byte {
	i.mu.Lock()
	src := i.source
	i.mu.Unlock()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[%s] forktree(%d) %s\n", name, i.pid, i.run)
	if src == nil {
		return buf.Bytes()
	}

	records := src()
	for n, r := range records {
		branch := "├─"
		if n == len(records)-1 {
			branch = "└─"
		}
		fmt.Fprintf(&buf, "  %s worker %d %s identity=%d %s %s\n",
			branch, r.Index, id.Short(r.ID), r.Identity, r.Segment, r.State)
	}
	return buf.Bytes()
}

func pstree(ctx context.Context, pid int) ([]byte, error) {
	return exec.CommandContext(ctx, "pstree", "-p", strconv.Itoa(pid)).Output()
}

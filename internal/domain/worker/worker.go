package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/forktree/internal/domain/partition"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/logging"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/forktree/internal/providers/report"
	"github.com/GriffinCanCode/forktree/internal/shared/id"
)

// CheckpointResumed is the diagnostics checkpoint a worker runs after a
// plain Continue.
const CheckpointResumed = "resumed"

// ErrInvalidConfig is returned by New.
var ErrInvalidConfig = errors.New("invalid worker config")

// Reporter receives report lines.
type Reporter interface {
	Emit(report.Event) error
}

// Checkpointer runs a diagnostics checkpoint.
type Checkpointer interface {
	Checkpoint(ctx context.Context, name string)
}

// Config describes one worker.
type Config struct {
	Index    int
	Identity int64
	ID       string
	ParentID string
	Array    []int
	Segment  partition.Segment
	Seed     SeedPolicy
	Channels *Channels

	Reporter     Reporter
	Checkpointer Checkpointer
	Logger       *logging.Logger
	Metrics      *monitoring.Metrics
	Tracer       *tracing.Tracer
}

// Record is the worker's mutable state, owned by the worker goroutine.
type Record struct {
	ID       string
	Index    int
	ParentID string
	Identity int64
	Segment  partition.Segment
	Max      int
	Sum      int
	Regular  int
	Hidden   int
	State    State
}

// Worker scans one segment, reports to its ancestor, then pauses until the
// ancestor disposes of it.
type Worker struct {
	cfg    Config
	view   []int
	seed   int
	logger *logging.Logger

	state      atomic.Int32
	interrupts atomic.Int32

	mu     sync.Mutex
	record Record
}

type nopReporter struct{}

func (nopReporter) Emit(report.Event) error { return nil }

type nopCheckpointer struct{}

func (nopCheckpointer) Checkpoint(context.Context, string) {}

// New validates cfg and builds a worker in the Spawned state. The worker
// keeps only a read-only view of its segment.
func New(cfg Config) (*Worker, error) {
	if err := cfg.Channels.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	seg := cfg.Segment
	if seg.Start < 0 || seg.End < seg.Start || seg.End > len(cfg.Array) {
		return nil, fmt.Errorf("%w: segment %s outside array of length %d", ErrInvalidConfig, seg, len(cfg.Array))
	}
	if cfg.Identity <= 0 {
		return nil, fmt.Errorf("%w: identity must be positive, got %d", ErrInvalidConfig, cfg.Identity)
	}
	if cfg.Seed == "" {
		cfg.Seed = SeedSegment
	}
	if cfg.ID == "" {
		cfg.ID = id.NewWorkerID().String()
	}
	if cfg.Reporter == nil {
		cfg.Reporter = nopReporter{}
	}
	if cfg.Checkpointer == nil {
		cfg.Checkpointer = nopCheckpointer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}

	w := &Worker{
		cfg:    cfg,
		view:   seg.Slice(cfg.Array),
		seed:   seedFor(cfg.Array, cfg.Seed),
		logger: cfg.Logger.Worker(cfg.Index, cfg.ID),
		record: Record{
			ID:       cfg.ID,
			Index:    cfg.Index,
			ParentID: cfg.ParentID,
			Identity: cfg.Identity,
			Segment:  seg,
		},
	}
	w.cfg.Array = nil
	w.state.Store(int32(Spawned))
	cfg.Metrics.RecordTransition("", Spawned.String())
	return w, nil
}

// Index returns the worker's pool index.
func (w *Worker) Index() int { return w.cfg.Index }

// ID returns the worker's ID.
func (w *Worker) ID() string { return w.cfg.ID }

// Identity returns the worker's exit value.
func (w *Worker) Identity() int64 { return w.cfg.Identity }

// State returns the current lifecycle state. Safe to call from any goroutine.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Interrupts returns how many interrupts the worker acknowledged.
func (w *Worker) Interrupts() int {
	return int(w.interrupts.Load())
}

// Record returns a copy of the worker's record.
func (w *Worker) Record() Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.record
	r.State = w.State()
	return r
}

// Run computes, reports and then blocks for disposition. It returns once the
// worker has exited, or with ctx's error if the ancestor abandons it; in
// that case the worker stays Paused and never publishes an exit status.
func (w *Worker) Run(ctx context.Context) error {
	w.transition(Computing)
	res := w.compute(ctx)

	w.transition(Reported)
	w.report(res)

	w.transition(Paused)
	w.cfg.Channels.Status <- Stopped(unix.SIGTSTP)
	w.logger.Debug("Worker paused", zap.Int("hidden", res.Hidden))

	return w.await(ctx)
}

func (w *Worker) compute(ctx context.Context) Result {
	seg := w.cfg.Segment
	_, span := w.cfg.Tracer.Start(ctx, "worker.scan",
		attribute.Int("worker", w.cfg.Index),
		attribute.String("segment", seg.String()),
	)

	start := time.Now()
	res := scanView(w.view, seg.Start, w.seed)
	w.cfg.Metrics.ObserveScan(time.Since(start), seg.Len())

	span.SetInt("hidden", res.Hidden)
	span.End(nil)

	w.mu.Lock()
	w.record.Max = res.Max
	w.record.Sum = res.Sum
	w.record.Regular = res.Regular
	w.record.Hidden = res.Hidden
	w.mu.Unlock()

	short := id.Short(w.cfg.ID)
	for _, pos := range res.Positions {
		w.emit(report.Hidden(short, w.cfg.Index, w.cfg.Identity, pos, w.view[pos-seg.Start]))
	}
	w.emit(report.Identity(short, w.cfg.Index, w.cfg.Identity, w.cfg.ParentID))

	for _, m := range res.Markers {
		w.cfg.Channels.Markers <- m
	}
	close(w.cfg.Channels.Markers)

	maxField := zap.Skip()
	if res.Regular > 0 {
		maxField = zap.Int("max", res.Max)
	}
	w.logger.Debug("Segment scanned",
		zap.Stringer("segment", seg),
		maxField,
		zap.Int("regular", res.Regular),
		zap.Int("hidden", res.Hidden),
	)
	return res
}

func (w *Worker) report(res Result) {
	w.cfg.Channels.Results <- res.Partial()
	close(w.cfg.Channels.Results)
	w.cfg.Channels.Count <- res.Hidden
	close(w.cfg.Channels.Count)
}

// await blocks on the control channel. Commands that arrive before any
// Continue are held back, as signals are for a stopped process, and applied
// once the worker is continued.
func (w *Worker) await(ctx context.Context) error {
	var pending []Command
	for {
		select {
		case <-ctx.Done():
			w.logger.Warn("Abandoned while paused", zap.Error(ctx.Err()))
			return ctx.Err()
		case d, ok := <-w.cfg.Channels.Control:
			if !ok {
				w.logger.Warn("Control channel closed while paused")
				return fmt.Errorf("control: %w", ErrChannelClosed)
			}
			pending = append(pending, d...)
			if !hasContinue(pending) {
				w.logger.Debug("Commands queued while stopped", zap.Stringer("directive", d))
				continue
			}
			return w.apply(ctx, pending)
		}
	}
}

func hasContinue(cmds []Command) bool {
	for _, c := range cmds {
		if c.Kind == CommandContinue {
			return true
		}
	}
	return false
}

func (w *Worker) apply(ctx context.Context, cmds []Command) error {
	w.transition(Resumed)
	w.cfg.Channels.Status <- Continued()
	w.logger.Debug("Worker continued")

	for _, c := range cmds {
		switch c.Kind {
		case CommandContinue:
		case CommandInterrupt:
			w.interrupts.Add(1)
			w.cfg.Metrics.RecordInterrupt()
			w.logger.Info("Interrupt received, continuing")
		case CommandQuit:
			w.transition(Terminating)
			return w.exit(ExitedWith(int(w.cfg.Identity)))
		case CommandTerminate:
			w.transition(Terminating)
			w.logger.Debug("Relayed termination", zap.String("signal", SignalName(c.Signal)))
			return w.exit(Signaled(c.Signal))
		}
	}

	w.cfg.Checkpointer.Checkpoint(ctx, CheckpointResumed)
	return w.exit(ExitedWith(int(w.cfg.Identity)))
}

func (w *Worker) exit(s Status) error {
	w.transition(Exited)
	w.cfg.Metrics.RecordExit(s.Kind.String())
	w.cfg.Channels.Status <- s
	close(w.cfg.Channels.Status)
	w.logger.Debug("Worker exited", zap.Stringer("status", s))
	return nil
}

func (w *Worker) transition(next State) {
	prev := w.State()
	if !prev.CanTransition(next) {
		w.logger.Warn("Unexpected state transition",
			zap.Stringer("from", prev),
			zap.Stringer("to", next),
		)
	}
	w.state.Store(int32(next))
	w.cfg.Metrics.RecordTransition(prev.String(), next.String())
}

func (w *Worker) emit(e report.Event) {
	if err := w.cfg.Reporter.Emit(e); err != nil {
		w.logger.Error("Failed to write report line", zap.String("kind", string(e.Kind)), zap.Error(err))
	}
}

package pool

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/forktree/internal/domain/counter"
	"github.com/GriffinCanCode/forktree/internal/domain/disposition"
	"github.com/GriffinCanCode/forktree/internal/domain/partition"
	"github.com/GriffinCanCode/forktree/internal/domain/worker"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/config"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/logging"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/forktree/internal/providers/diagnostics"
	"github.com/GriffinCanCode/forktree/internal/providers/report"
	"github.com/GriffinCanCode/forktree/internal/shared/id"
)

// RootIdentity is the identity value held by the root. Workers are issued
// the values that follow it.
const RootIdentity = 1

// Options configures a Pool.
type Options struct {
	Array       []int
	Seed        worker.SeedPolicy
	Ranking     disposition.Mode
	RelaySignal unix.Signal
	RunID       string

	Reporter    worker.Reporter
	Diagnostics *diagnostics.Inspector
	Logger      *logging.Logger
	Metrics     *monitoring.Metrics
	Tracer      *tracing.Tracer
}

// Pool is the root of the worker tree: it scans segment 0 itself and
// disposes of one worker per remaining segment.
type Pool struct {
	opts     Options
	layout   partition.Layout
	channels []*worker.Channels
	logger   *logging.Logger
	started  atomic.Bool

	newWorker func(worker.Config) (*worker.Worker, error)
}

type nopReporter struct{}

func (nopReporter) Emit(report.Event) error { return nil }

// New validates opts, plans the segments and allocates every worker's
// channels. Failures are *StartupError.
func New(opts Options) (*Pool, error) {
	return newPool(opts, allocate)
}

func allocate(n int) ([]*worker.Channels, error) {
	out := make([]*worker.Channels, n)
	for i := range out {
		out[i] = worker.NewChannels()
	}
	return out, nil
}

func newPool(opts Options, alloc func(int) ([]*worker.Channels, error)) (*Pool, error) {
	n := len(opts.Array)
	if n == 0 || n > config.MaxLength {
		return nil, startupError(ErrArgument, "L must be in [1, %d], got %d", config.MaxLength, n)
	}
	if _, err := worker.ParseSeedPolicy(string(opts.Seed)); err != nil {
		return nil, startupError(ErrArgument, "%w", err)
	}
	if _, err := disposition.ParseMode(string(opts.Ranking)); err != nil {
		return nil, startupError(ErrArgument, "%w", err)
	}
	if opts.RelaySignal == 0 {
		opts.RelaySignal = unix.SIGTERM
	}
	if unix.SignalName(opts.RelaySignal) == "" {
		return nil, startupError(ErrArgument, "unknown relay signal %d", int(opts.RelaySignal))
	}

	layout, err := partition.Plan(n, partition.Workers)
	if err != nil {
		return nil, startupError(ErrArgument, "%w", err)
	}

	channels, err := alloc(len(layout.Workers))
	if err != nil {
		return nil, startupError(ErrChannel, "%w", err)
	}
	if len(channels) != len(layout.Workers) {
		return nil, startupError(ErrChannel, "allocated %d channel sets for %d workers", len(channels), len(layout.Workers))
	}

	if opts.RunID == "" {
		opts.RunID = id.NewRunID().String()
	}
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	return &Pool{
		opts:      opts,
		layout:    layout,
		channels:  channels,
		logger:    opts.Logger.Named("pool").With(zap.String("run_id", opts.RunID)),
		newWorker: worker.New,
	}, nil
}

// Layout returns the planned segments.
func (p *Pool) Layout() partition.Layout { return p.layout }

// RunID returns the run's ID.
func (p *Pool) RunID() string { return p.opts.RunID }

// Run executes the whole protocol once and returns the aggregate result.
func (p *Pool) Run(ctx context.Context) (sum *Summary, err error) {
	if !p.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	began := time.Now()
	cpu0 := cpuTime()

	ctx, span := p.opts.Tracer.Start(ctx, "run",
		attribute.Int("length", p.layout.Length),
		attribute.String("ranking", string(p.opts.Ranking)),
	)
	defer func() { span.End(err) }()

	p.logger.Info("Run starting",
		zap.Int("length", p.layout.Length),
		zap.Int("workers", len(p.layout.Workers)),
		zap.Stringer("root_segment", p.layout.Root),
	)
	p.opts.Diagnostics.Checkpoint(ctx, diagnostics.CheckpointStart)

	workers, err := p.spawn()
	if err != nil {
		return nil, err
	}
	p.opts.Diagnostics.SetSource(func() []worker.Record {
		out := make([]worker.Record, len(workers))
		for i, w := range workers {
			out[i] = w.Record()
		}
		return out
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	for _, w := range workers {
		p.opts.Metrics.RecordSpawn()
		g.Go(func() error { return w.Run(gctx) })
	}
	p.opts.Diagnostics.Checkpoint(ctx, diagnostics.CheckpointSpawned)

	sum, err = p.collect(runCtx, workers)
	if err != nil {
		cancel()
		_ = g.Wait()
		return nil, err
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("worker failed: %w", err)
	}

	rootResult := worker.Scan(p.opts.Array, p.layout.Root, p.opts.Seed)
	for _, pos := range rootResult.Positions {
		p.emit(report.Hidden(id.Short(p.opts.RunID), 0, RootIdentity, pos, p.opts.Array[pos]))
	}
	sum.add(Part{Index: 0, Partial: rootResult.Partial(), Hidden: rootResult.Hidden})
	sum.finish()

	sum.Elapsed = time.Since(began)
	sum.CPUTime = cpuTime() - cpu0

	if sum.HasMax {
		p.emit(report.Summary(sum.Max, sum.Average))
	} else {
		p.emit(report.SummaryWithoutMax(sum.Average))
	}
	p.emit(report.HiddenTotal(sum.Hidden))
	p.emit(report.Timing(sum.CPUTime.Seconds()))
	p.opts.Metrics.RecordResult(sum.Max, sum.Hidden, sum.Elapsed)
	p.opts.Diagnostics.Checkpoint(ctx, diagnostics.CheckpointComplete)

	p.logger.Info("Run complete",
		zap.Int("max", sum.Max),
		zap.Bool("has_max", sum.HasMax),
		zap.Float64("average", sum.Average),
		zap.Int("hidden", sum.Hidden),
		zap.Duration("elapsed", sum.Elapsed),
		zap.Duration("cpu", sum.CPUTime),
	)
	return sum, nil
}

// spawn builds every worker before any of them starts, so a failure leaves
// nothing running.
func (p *Pool) spawn() ([]*worker.Worker, error) {
	seq := counter.NewSequence(RootIdentity)
	workers := make([]*worker.Worker, len(p.layout.Workers))
	for i, seg := range p.layout.Workers {
		w, err := p.newWorker(worker.Config{
			Index:        seg.Index,
			Identity:     seq.Next(),
			ParentID:     p.opts.RunID,
			Array:        p.opts.Array,
			Segment:      seg,
			Seed:         p.opts.Seed,
			Channels:     p.channels[i],
			Reporter:     p.opts.Reporter,
			Checkpointer: p.opts.Diagnostics,
			Logger:       p.opts.Logger,
			Metrics:      p.opts.Metrics,
			Tracer:       p.opts.Tracer,
		})
		if err != nil {
			return nil, startupError(ErrSpawn, "worker %d: %w", seg.Index, err)
		}
		workers[i] = w
	}
	return workers, nil
}

// collect disposes of every worker in index order, then reads their
// partials. Every read happens after the worker stopped, so the values are
// final.
func (p *Pool) collect(ctx context.Context, workers []*worker.Worker) (*Summary, error) {
	handles := make([]*worker.Handle, len(workers))
	for i, w := range workers {
		handles[i] = worker.NewHandle(w)
	}

	ranker := disposition.NewRanker(p.opts.Ranking, p.opts.RelaySignal)
	controller := disposition.NewController(ranker, p.opts.Logger, p.opts.Metrics, p.opts.Tracer)

	children := make([]disposition.Child, len(handles))
	for i, h := range handles {
		children[i] = h
	}
	if ranker.Mode() == disposition.ModeSettled {
		settled, counts, err := settle(ctx, handles)
		if err != nil {
			return nil, err
		}
		ranker.Settle(counts)
		children = settled
	}

	sum := &Summary{
		RunID:   p.opts.RunID,
		Length:  p.layout.Length,
		Markers: make(map[int][]int),
	}
	for _, child := range children {
		p.logger.Debug("Waiting for worker to stop", zap.Int("worker", child.Index()))
		out, err := controller.Dispose(ctx, child)
		if err != nil {
			return nil, fmt.Errorf("disposition: %w", err)
		}
		sum.Outcomes = append(sum.Outcomes, out)
		p.emit(report.Disposition(id.Short(out.ID), out.Index, out.Decision.Rule.String(), out.Status.String()))
	}

	for _, h := range handles {
		partial, err := h.Partial(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading result of worker %d: %w", h.Index(), err)
		}
		markers, err := h.Markers(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading markers of worker %d: %w", h.Index(), err)
		}
		if len(markers) > 0 {
			sum.Markers[h.Index()] = markers
			p.logger.Debug("Hidden markers forwarded",
				zap.Int("worker", h.Index()),
				zap.String("id", h.ID()),
				zap.Ints("markers", markers),
			)
		}
		sum.add(Part{Index: h.Index(), Partial: partial, Hidden: outcomeHidden(sum.Outcomes, h.Index())})
	}
	return sum, nil
}

func outcomeHidden(outcomes []disposition.Outcome, index int) int {
	for _, o := range outcomes {
		if o.Index == index {
			return o.Hidden
		}
	}
	return 0
}

// settledChild replays a hidden-count that was read ahead of disposition.
type settledChild struct {
	*worker.Handle
	count int
}

func (c settledChild) HiddenCount(context.Context) (int, error) { return c.count, nil }

// settle reads every hidden-count up front for settled ranking. Workers
// write their count before pausing, so this waits for every scan to finish.
func settle(ctx context.Context, handles []*worker.Handle) ([]disposition.Child, []int, error) {
	children := make([]disposition.Child, len(handles))
	counts := make([]int, len(handles))
	for i, h := range handles {
		n, err := h.HiddenCount(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("reading hidden-count of worker %d: %w", h.Index(), err)
		}
		counts[i] = n
		children[i] = settledChild{Handle: h, count: n}
	}
	return children, counts, nil
}

func (p *Pool) emit(e report.Event) {
	if err := p.opts.Reporter.Emit(e); err != nil {
		p.logger.Error("Failed to write report line", zap.String("kind", string(e.Kind)), zap.Error(err))
	}
}

// cpuTime returns user plus system CPU time consumed by the process.
func cpuTime() time.Duration {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
}

package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/forktree/internal/domain/partition"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/logging"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/forktree/internal/providers/report"
)

type recordingReporter struct {
	mu     sync.Mutex
	events []report.Event
}

func (r *recordingReporter) Emit(e report.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingReporter) kinds() []report.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]report.Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

type recordingCheckpointer struct {
	mu    sync.Mutex
	names []string
}

func (c *recordingCheckpointer) Checkpoint(_ context.Context, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
}

func (c *recordingCheckpointer) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

type fixture struct {
	worker      *Worker
	handle      *Handle
	reporter    *recordingReporter
	checkpoints *recordingCheckpointer
	metrics     *monitoring.Metrics
	logs        *observer.ObservedLogs
	done        chan error
	cancel      context.CancelFunc
}

func start(t *testing.T, array []int, seg partition.Segment) *fixture {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	f := &fixture{
		reporter:    &recordingReporter{},
		checkpoints: &recordingCheckpointer{},
		metrics:     monitoring.NewMetrics(),
		logs:        logs,
		done:        make(chan error, 1),
	}

	w, err := New(Config{
		Index:        seg.Index,
		Identity:     int64(seg.Index + 1),
		ParentID:     "run_test",
		Array:        array,
		Segment:      seg,
		Channels:     NewChannels(),
		Reporter:     f.reporter,
		Checkpointer: f.checkpoints,
		Logger:       logging.Wrap(zap.New(core)),
		Metrics:      f.metrics,
	})
	require.NoError(t, err)
	f.worker = w
	f.handle = NewHandle(w)

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	t.Cleanup(cancel)

	go func() { f.done <- w.Run(ctx) }()
	return f
}

func (f *fixture) next(t *testing.T) Status {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := f.handle.WaitStatus(ctx)
	require.NoError(t, err)
	return s
}

func (f *fixture) finished(t *testing.T) error {
	t.Helper()
	select {
	case err := <-f.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not return")
		return nil
	}
}

var sample = []int{1, 2, 3, 4, 10, -5, 6, -7, 8, 9, -2, 0}

func TestWorkerReportsThenPauses(t *testing.T) {
	f := start(t, sample, partition.Segment{Index: 2, Start: 4, End: 12})

	assert.Equal(t, Stopped(unix.SIGTSTP), f.next(t))
	assert.Equal(t, Paused, f.worker.State())

	ctx := context.Background()
	count, err := f.handle.HiddenCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	partial, err := f.handle.Partial(ctx)
	require.NoError(t, err)
	assert.Equal(t, Partial{Max: 10, Sum: 33, Regular: 5}, partial)

	markers, err := f.handle.Markers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{-5, -7}, markers)

	assert.Equal(t,
		[]report.Kind{report.KindHidden, report.KindHidden, report.KindHidden, report.KindIdentity},
		f.reporter.kinds(),
	)

	rec := f.worker.Record()
	assert.Equal(t, 3, rec.Hidden)
	assert.Equal(t, 10, rec.Max)
	assert.Equal(t, int64(3), rec.Identity)
	assert.Equal(t, Paused, rec.State)
}

func TestWorkerContinue(t *testing.T) {
	f := start(t, sample, partition.Segment{Index: 1, Start: 0, End: 4})
	require.Equal(t, StatusStopped, f.next(t).Kind)

	require.NoError(t, f.handle.Send(context.Background(), Directive{Continue()}))

	assert.Equal(t, Continued(), f.next(t))
	assert.Equal(t, ExitedWith(2), f.next(t))
	assert.NoError(t, f.finished(t))

	assert.Equal(t, Exited, f.worker.State())
	assert.Equal(t, []string{CheckpointResumed}, f.checkpoints.seen())
	assert.Equal(t, int64(1), f.metrics.Snapshot().Exits["exited"])

	_, err := f.handle.WaitStatus(context.Background())
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestWorkerRelayTermination(t *testing.T) {
	f := start(t, sample, partition.Segment{Index: 1, Start: 0, End: 4})
	require.Equal(t, StatusStopped, f.next(t).Kind)

	require.NoError(t, f.handle.Send(context.Background(), Directive{Continue(), Relay(unix.SIGUSR2)}))

	assert.Equal(t, Continued(), f.next(t))
	assert.Equal(t, Signaled(unix.SIGUSR2), f.next(t))
	assert.NoError(t, f.finished(t))
	assert.Empty(t, f.checkpoints.seen())
	assert.Equal(t, int64(1), f.metrics.Snapshot().Exits["signaled"])
}

func TestWorkerEscalation(t *testing.T) {
	f := start(t, sample, partition.Segment{Index: 4, Start: 0, End: 4})
	require.Equal(t, StatusStopped, f.next(t).Kind)

	require.NoError(t, f.handle.Send(context.Background(), Directive{Continue(), Interrupt(), Quit()}))

	assert.Equal(t, Continued(), f.next(t))
	assert.Equal(t, ExitedWith(5), f.next(t))
	assert.NoError(t, f.finished(t))

	assert.Equal(t, 1, f.worker.Interrupts())
	assert.Equal(t, 1, f.logs.FilterMessage("Interrupt received, continuing").Len())
	assert.Empty(t, f.checkpoints.seen())
}

func TestWorkerHoldsCommandsUntilContinued(t *testing.T) {
	f := start(t, sample, partition.Segment{Index: 1, Start: 0, End: 4})
	require.Equal(t, StatusStopped, f.next(t).Kind)
	ctx := context.Background()

	require.NoError(t, f.handle.Send(ctx, Directive{Interrupt()}))
	require.NoError(t, f.handle.Send(ctx, Directive{Quit()}))
	assert.Never(t, func() bool { return f.worker.State() != Paused }, 50*time.Millisecond, 5*time.Millisecond)

	require.NoError(t, f.handle.Send(ctx, Directive{Continue()}))
	assert.Equal(t, Continued(), f.next(t))
	assert.Equal(t, ExitedWith(2), f.next(t))
	assert.NoError(t, f.finished(t))
	assert.Equal(t, 1, f.worker.Interrupts())
}

func TestWorkerAbandonedStaysPaused(t *testing.T) {
	f := start(t, sample, partition.Segment{Index: 1, Start: 0, End: 4})
	require.Equal(t, StatusStopped, f.next(t).Kind)

	f.cancel()
	err := f.finished(t)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, Paused, f.worker.State())

	select {
	case s, ok := <-f.worker.cfg.Channels.Status:
		t.Fatalf("unexpected status %v (open=%v)", s, ok)
	default:
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	array := make([]int, 8)
	seg := partition.Segment{Index: 1, Start: 0, End: 8}

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing channels", cfg: Config{Identity: 2, Array: array, Segment: seg}},
		{name: "partial channels", cfg: Config{Identity: 2, Array: array, Segment: seg, Channels: &Channels{Results: make(chan Partial, 1)}}},
		{name: "segment past end", cfg: Config{Identity: 2, Array: array, Segment: partition.Segment{Start: 4, End: 9}, Channels: NewChannels()}},
		{name: "inverted segment", cfg: Config{Identity: 2, Array: array, Segment: partition.Segment{Start: 5, End: 4}, Channels: NewChannels()}},
		{name: "zero identity", cfg: Config{Array: array, Segment: seg, Channels: NewChannels()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNewDefaults(t *testing.T) {
	w, err := New(Config{Identity: 2, Array: []int{1}, Segment: partition.Segment{End: 1}, Channels: NewChannels()})
	require.NoError(t, err)

	assert.Equal(t, Spawned, w.State())
	assert.NotEmpty(t, w.ID())
	assert.Equal(t, SeedSegment, w.cfg.Seed)
	assert.Nil(t, w.cfg.Array)
}

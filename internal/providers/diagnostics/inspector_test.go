package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/forktree/internal/domain/partition"
	"github.com/GriffinCanCode/forktree/internal/domain/worker"
)

func records() []worker.Record {
	return []worker.Record{
		{ID: "wkr_01J9Z3ABCDEFGHJKMNPQRSTVWX", Index: 1, Identity: 2, Segment: partition.Segment{Index: 1, Start: 2, End: 4}, State: worker.Paused},
		{ID: "wkr_01J9Z3ABCDEFGHJKMNPQRSTVWY", Index: 2, Identity: 3, Segment: partition.Segment{Index: 2, Start: 4, End: 6}, State: worker.Exited},
	}
}

func TestTreeMode(t *testing.T) {
	var buf bytes.Buffer
	in := New(Config{Mode: ModeTree, Output: &buf, Run: "run_X"})
	in.SetSource(records)

	in.Checkpoint(context.Background(), CheckpointSpawned)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "[spawned] forktree(")
	assert.Contains(t, lines[0], "run_X")
	assert.Contains(t, lines[1], "├─ worker 1 RSTVWX identity=2 #1[2,4) paused")
	assert.Contains(t, lines[2], "└─ worker 2 RSTVWY identity=3 #2[4,6) exited")
	assert.Equal(t, 1, in.Count(CheckpointSpawned))
}

func TestTreeModeWithoutSource(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Output: &buf}).Checkpoint(context.Background(), CheckpointStart)
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestOffMode(t *testing.T) {
	var buf bytes.Buffer
	in := New(Config{Mode: ModeOff, Output: &buf})
	in.Checkpoint(context.Background(), CheckpointStart)

	assert.Empty(t, buf.String())
	assert.Equal(t, 0, in.Count(CheckpointStart))
}

func TestPstreeModeRateLimited(t *testing.T) {
	var (
		buf   bytes.Buffer
		mu    sync.Mutex
		calls int
	)
	runner := func(_ context.Context, pid int) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return []byte(fmt.Sprintf("forktree(%d)\n", pid)), nil
	}

	in := New(Config{Mode: ModePstree, Output: &buf, Interval: time.Hour, Burst: 2, Runner: runner})
	for n := 0; n < 5; n++ {
		in.Checkpoint(context.Background(), worker.CheckpointResumed)
	}

	assert.Equal(t, 2, calls)
	assert.Equal(t, 3, in.Skipped())
	assert.Equal(t, 5, in.Count(worker.CheckpointResumed))
	assert.Equal(t, 2, strings.Count(buf.String(), "forktree("))
}

func TestPstreeMissingFallsBackToTree(t *testing.T) {
	var buf bytes.Buffer
	runner := func(context.Context, int) ([]byte, error) {
		return nil, &exec.Error{Name: "pstree", Err: exec.ErrNotFound}
	}

	in := New(Config{Mode: ModePstree, Output: &buf, Runner: runner})
	in.SetSource(records)
	in.Checkpoint(context.Background(), CheckpointComplete)

	assert.Contains(t, buf.String(), "[complete]")
	assert.Contains(t, buf.String(), "worker 2")
}

func TestPstreeFailureIsNotFatal(t *testing.T) {
	var buf bytes.Buffer
	runner := func(context.Context, int) ([]byte, error) { return nil, errors.New("exit status 1") }

	in := New(Config{Mode: ModePstree, Output: &buf, Runner: runner})
	in.Checkpoint(context.Background(), CheckpointStart)
	assert.Empty(t, buf.String())
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"tree", "pstree", "off"} {
		m, err := ParseMode(s)
		assert.NoError(t, err)
		assert.Equal(t, Mode(s), m)
	}
	_, err := ParseMode("ps")
	assert.Error(t, err)
}

func TestNilInspector(t *testing.T) {
	var in *Inspector

	assert.NotPanics(t, func() {
		in.SetSource(records)
		in.Checkpoint(context.Background(), CheckpointStart)
	})
	assert.Zero(t, in.Count(CheckpointStart))
	assert.Zero(t, in.Skipped())
}

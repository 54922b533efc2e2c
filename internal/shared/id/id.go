// Package id generates prefixed ULIDs for runs and workers.
//
// ULIDs sort by creation time, so worker IDs minted in index order also sort
// in index order within a run, which keeps logs and reports easy to scan.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunID identifies one invocation of the worker tree.
type RunID string

// WorkerID identifies one worker within a run.
type WorkerID string

const (
	RunPrefix    = "run"
	WorkerPrefix = "wkr"
)

func (id RunID) String() string    { return string(id) }
func (id WorkerID) String() string { return string(id) }

// Generator mints ULIDs from a monotonic entropy source.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator(rand.Reader)
	})
	return defaultGenerator
}

// NewGenerator creates a generator reading entropy from r.
// Tests pass a deterministic reader.
func NewGenerator(r io.Reader) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(r, 0),
		now:     time.Now,
	}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// WithPrefix creates a prefixed ULID string.
func (g *Generator) WithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewRunID generates a new run ID.
func NewRunID() RunID {
	return RunID(Default().WithPrefix(RunPrefix))
}

// NewWorkerID generates a new worker ID.
func NewWorkerID() WorkerID {
	return WorkerID(Default().WithPrefix(WorkerPrefix))
}

// Short returns the last 6 characters of the ULID part, enough to tell
// workers of one run apart in human-readable output.
func Short(id string) string {
	_, body, ok := strings.Cut(id, "_")
	if !ok {
		body = id
	}
	if len(body) <= 6 {
		return body
	}
	return body[len(body)-6:]
}

// IsValid reports whether id is a prefixed ULID with the given prefix.
func IsValid(id, prefix string) bool {
	p, body, ok := strings.Cut(id, "_")
	if !ok || p != prefix {
		return false
	}
	_, err := ulid.Parse(body)
	return err == nil
}

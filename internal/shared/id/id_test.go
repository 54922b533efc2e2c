package id

import (
	"bytes"
	"sort"
	"strings"
	"sync"
	"testing"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator(bytes.NewReader(bytes.Repeat([]byte{7}, 1024)))

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestMonotonicOrder(t *testing.T) {
	gen := NewGenerator(bytes.NewReader(bytes.Repeat([]byte{7}, 4096)))

	ids := make([]string, 50)
	for i := range ids {
		ids[i] = gen.WithPrefix(WorkerPrefix)
	}

	if !sort.StringsAreSorted(ids) {
		t.Error("IDs minted in sequence should sort in sequence")
	}
}

func TestTypedIDs(t *testing.T) {
	run := NewRunID()
	wkr := NewWorkerID()

	if !strings.HasPrefix(run.String(), "run_") {
		t.Errorf("RunID should start with 'run_', got: %s", run)
	}
	if !IsValid(run.String(), RunPrefix) {
		t.Errorf("RunID should be valid: %s", run)
	}
	if !IsValid(wkr.String(), WorkerPrefix) {
		t.Errorf("WorkerID should be valid: %s", wkr)
	}
	if IsValid(wkr.String(), RunPrefix) {
		t.Errorf("WorkerID must not validate as a run ID: %s", wkr)
	}
}

func TestIsValidRejects(t *testing.T) {
	for _, id := range []string{"", "wkr", "wkr_", "wkr_invalid", "01HZZZZZZZZZZZZZZZZZZZZZZZ"} {
		if IsValid(id, WorkerPrefix) {
			t.Errorf("ID should be invalid: %q", id)
		}
	}
}

func TestShort(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"wkr_01J9Z3ABCDEFGHJKMNPQRSTVWX", "RSTVWX"},
		{"abc", "abc"},
		{"run_ABC", "ABC"},
	}
	for _, tt := range tests {
		if got := Short(tt.in); got != tt.want {
			t.Errorf("Short(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConcurrentGeneration(t *testing.T) {
	const goroutines = 16
	const perGoroutine = 50

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id := NewWorkerID().String()
				mu.Lock()
				if seen[id] {
					t.Errorf("Duplicate ID: %s", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

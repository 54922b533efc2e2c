// Package counter hands out per-worker identity values.
//
// Each worker owns a distinct value that ends up as its exit code. Values
// are issued at construction time from an atomic counter, never incremented
// by the workers themselves, so no two workers can observe the same number.
package counter

import "sync/atomic"

// Sequence is an atomic identity source. The zero value starts at 0.
type Sequence struct {
	v atomic.Int64
}

// NewSequence returns a sequence whose Current value is start.
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.v.Store(start)
	return s
}

// Next increments the sequence and returns the new value.
func (s *Sequence) Next() int64 {
	return s.v.Add(1)
}

// Current returns the last issued value.
func (s *Sequence) Current() int64 {
	return s.v.Load()
}

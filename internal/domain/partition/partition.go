// Package partition splits an array into the fixed segment layout of the
// worker tree.
//
// The tree always has eight members: the root and seven workers. Every
// member gets L/8 elements; the L%8 leftover elements are folded into the
// root's segment, which is laid out first so that it starts at index 0.
package partition

import (
	"errors"
	"fmt"
)

// Workers is the number of segments, root included.
const Workers = 8

var (
	ErrInvalidLength  = errors.New("array length must be positive")
	ErrInvalidWorkers = errors.New("unsupported worker count")
)

// Segment is the half-open index range [Start, End) owned by one member.
type Segment struct {
	Index int // 0 is the root
	Start int
	End   int
}

// Len returns the number of elements in the segment.
func (s Segment) Len() int {
	return s.End - s.Start
}

// Contains reports whether index i falls inside the segment.
func (s Segment) Contains(i int) bool {
	return i >= s.Start && i < s.End
}

// Slice returns the segment's read-only view of array.
func (s Segment) Slice(array []int) []int {
	return array[s.Start:s.End:s.End]
}

func (s Segment) String() string {
	return fmt.Sprintf("#%d[%d,%d)", s.Index, s.Start, s.End)
}

// Layout is the result of Plan.
type Layout struct {
	Length  int
	Root    Segment
	Workers []Segment
}

// Segments returns the root followed by every worker segment.
func (l Layout) Segments() []Segment {
	all := make([]Segment, 0, len(l.Workers)+1)
	all = append(all, l.Root)
	return append(all, l.Workers...)
}

// Plan computes the segment layout for an array of the given length.
// Identical inputs always yield identical boundaries.
func Plan(length, workers int) (Layout, error) {
	if length <= 0 {
		return Layout{}, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	if workers != Workers {
		return Layout{}, fmt.Errorf("%w: %d (want %d)", ErrInvalidWorkers, workers, Workers)
	}

	size := length / workers
	rootEnd := size + length%workers

	layout := Layout{
		Length:  length,
		Root:    Segment{Index: 0, Start: 0, End: rootEnd},
		Workers: make([]Segment, 0, workers-1),
	}

	start := rootEnd
	for i := 1; i < workers; i++ {
		layout.Workers = append(layout.Workers, Segment{Index: i, Start: start, End: start + size})
		start += size
	}
	return layout, nil
}

package worker

import (
	"fmt"
	"math"

	"github.com/GriffinCanCode/forktree/internal/domain/partition"
)

// SeedPolicy selects the initial value of a segment's running max.
type SeedPolicy string

const (
	// SeedSegment starts from the segment's own values, so the reported max
	// always lies inside the segment. A segment with no regular values
	// reports math.MinInt.
	SeedSegment SeedPolicy = "segment"
	// SeedArrayHead starts every segment from array[0]. The reported max can
	// then come from outside the segment.
	SeedArrayHead SeedPolicy = "array-head"
)

// ParseSeedPolicy validates a configured policy name.
func ParseSeedPolicy(s string) (SeedPolicy, error) {
	switch p := SeedPolicy(s); p {
	case SeedSegment, SeedArrayHead:
		return p, nil
	case "":
		return SeedSegment, nil
	default:
		return "", fmt.Errorf("unknown seed policy %q", s)
	}
}

// Result is what one pass over a segment produces.
type Result struct {
	Max       int
	Sum       int
	Regular   int
	Hidden    int
	Positions []int
	Markers   []int
}

// Partial returns the part of r sent on the results channel.
func (r Result) Partial() Partial {
	return Partial{Max: r.Max, Sum: r.Sum, Regular: r.Regular}
}

// Scan makes one pass over seg. Negative values are hidden markers: they are
// counted and their positions recorded, but never feed the max or the sum.
// The first MaxMarkers hidden values are kept for forwarding.
func Scan(array []int, seg partition.Segment, policy SeedPolicy) Result {
	return scanView(seg.Slice(array), seg.Start, seedFor(array, policy))
}

func seedFor(array []int, policy SeedPolicy) int {
	if policy == SeedArrayHead && len(array) > 0 {
		return array[0]
	}
	return math.MinInt
}

// scanView scans a segment's view. offset is the view's position in the
// full array and is only used to report marker positions.
func scanView(view []int, offset, seed int) Result {
	r := Result{Max: seed}
	for i, v := range view {
		if v < 0 {
			r.Hidden++
			r.Positions = append(r.Positions, offset+i)
			if len(r.Markers) < MaxMarkers {
				r.Markers = append(r.Markers, v)
			}
			continue
		}
		if v > r.Max {
			r.Max = v
		}
		r.Sum += v
		r.Regular++
	}
	return r
}

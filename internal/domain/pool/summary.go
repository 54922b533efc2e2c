package pool

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/forktree/internal/domain/disposition"
	"github.com/GriffinCanCode/forktree/internal/domain/worker"
)

// Part is one segment's contribution to the aggregate. Index 0 is the root.
type Part struct {
	Index   int
	Partial worker.Partial
	Hidden  int
}

// Summary is the aggregate result of a run.
type Summary struct {
	RunID  string
	Length int

	// Max is meaningful only when HasMax is set. A run whose values are all
	// hidden has no maximum and reports Max as 0.
	Max     int
	HasMax  bool
	Average float64
	Sum     int
	Regular int
	Hidden  int

	Parts    []Part
	Outcomes []disposition.Outcome
	Markers  map[int][]int

	Elapsed time.Duration
	CPUTime time.Duration
}

func (s *Summary) add(p Part) {
	s.Parts = append(s.Parts, p)
}

// finish folds the parts into the totals. The average covers regular values
// only: each segment's mean is weighted by its regular count, which equals
// the sum of regular values over their number.
func (s *Summary) finish() {
	sort.Slice(s.Parts, func(i, j int) bool { return s.Parts[i].Index < s.Parts[j].Index })

	s.Max = math.MinInt
	s.Sum, s.Regular, s.Hidden = 0, 0, 0

	var means, weights []float64
	for _, p := range s.Parts {
		if p.Partial.Max > s.Max {
			s.Max = p.Partial.Max
		}
		s.Sum += p.Partial.Sum
		s.Regular += p.Partial.Regular
		s.Hidden += p.Hidden
		if p.Partial.Regular > 0 {
			means = append(means, float64(p.Partial.Sum)/float64(p.Partial.Regular))
			weights = append(weights, float64(p.Partial.Regular))
		}
	}

	s.HasMax = s.Regular > 0
	if !s.HasMax {
		s.Max = 0
	}

	s.Average = 0
	if len(means) > 0 {
		s.Average = stat.Mean(means, weights)
	}
}

// Rules returns the rule applied to each worker, keyed by index.
func (s *Summary) Rules() map[int]disposition.Rule {
	out := make(map[int]disposition.Rule, len(s.Outcomes))
	for _, o := range s.Outcomes {
		out[o.Index] = o.Decision.Rule
	}
	return out
}

// Anomalies returns the number of unexpected statuses seen across all rounds.
func (s *Summary) Anomalies() int {
	n := 0
	for _, o := range s.Outcomes {
		n += len(o.Anomalies)
	}
	return n
}

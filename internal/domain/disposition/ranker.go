package disposition

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Mode selects the comparison set a Ranker ranks against.
type Mode string

const (
	// ModeOnline compares each count against the counts observed so far,
	// including itself. The first worker disposed always ties the running max.
	ModeOnline Mode = "online"
	// ModeSettled compares every count against all sibling counts, primed
	// with Settle before the first disposition.
	ModeSettled Mode = "settled"
)

// ParseMode validates a configured ranking mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeOnline, ModeSettled:
		return m, nil
	case "":
		return ModeOnline, nil
	default:
		return "", fmt.Errorf("unknown ranking mode %q", s)
	}
}

// Ranker picks a rule for each hidden-count in a disposition round.
type Ranker struct {
	mode   Mode
	signal unix.Signal

	mu       sync.Mutex
	seen     int
	min, max int
}

// NewRanker creates a ranker. signal is carried by Rule 2 decisions.
func NewRanker(mode Mode, signal unix.Signal) *Ranker {
	if mode == "" {
		mode = ModeOnline
	}
	return &Ranker{mode: mode, signal: signal}
}

// Mode returns the ranking mode.
func (r *Ranker) Mode() Mode { return r.mode }

// Settle primes the comparison set with every sibling's count. It only
// affects ModeSettled; an online ranker ignores it.
func (r *Ranker) Settle(counts []int) {
	if r.mode != ModeSettled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range counts {
		r.add(c)
	}
}

// Observe ranks count. Equality with the max wins over equality with the min,
// so a round where every count is equal is all Rule 1.
func (r *Ranker) Observe(count int) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode == ModeOnline || r.seen == 0 {
		r.add(count)
	}

	switch {
	case count == r.max:
		return Decision{Rule: RuleContinue}
	case count == r.min:
		return Decision{Rule: RuleEscalate}
	default:
		return Decision{Rule: RuleRelay, Signal: r.signal}
	}
}

func (r *Ranker) add(c int) {
	if r.seen == 0 || c < r.min {
		r.min = c
	}
	if r.seen == 0 || c > r.max {
		r.max = c
	}
	r.seen++
}

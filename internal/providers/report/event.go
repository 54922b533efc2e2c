package report

import "fmt"

// Kind identifies a report line.
type Kind string

const (
	KindHidden      Kind = "hidden"
	KindIdentity    Kind = "identity"
	KindDisposition Kind = "disposition"
	KindSummary     Kind = "summary"
	KindHiddenTotal Kind = "hidden_total"
	KindTiming      Kind = "timing"
)

// Event is one line of the report. Only the fields relevant to Kind are set.
type Event struct {
	Kind     Kind    `json:"kind"`
	Run      string  `json:"run,omitempty"`
	Worker   string  `json:"worker,omitempty"`
	Index    int     `json:"index"`
	Identity int64   `json:"identity,omitempty"`
	Parent   string  `json:"parent,omitempty"`
	Position *int    `json:"position,omitempty"`
	Value    *int    `json:"value,omitempty"`
	Rule     string  `json:"rule,omitempty"`
	Outcome  string  `json:"outcome,omitempty"`
	Max      *int    `json:"max,omitempty"`
	Average  float64 `json:"average,omitempty"`
	Hidden   int     `json:"hidden,omitempty"`
	Seconds  float64 `json:"seconds,omitempty"`
}

// Hidden reports a hidden marker found at position.
func Hidden(worker string, index int, identity int64, position, value int) Event {
	return Event{Kind: KindHidden, Worker: worker, Index: index, Identity: identity, Position: &position, Value: &value}
}

// Identity reports a worker and its ancestor.
func Identity(worker string, index int, identity int64, parent string) Event {
	return Event{Kind: KindIdentity, Worker: worker, Index: index, Identity: identity, Parent: parent}
}

// Disposition reports the rule applied to a worker and how it ended.
func Disposition(worker string, index int, rule, outcome string) Event {
	return Event{Kind: KindDisposition, Worker: worker, Index: index, Rule: rule, Outcome: outcome}
}

// Summary reports the global max and average.
func Summary(max int, average float64) Event {
	return Event{Kind: KindSummary, Max: &max, Average: average}
}

// SummaryWithoutMax reports a run in which every value was hidden, so no
// maximum exists.
func SummaryWithoutMax(average float64) Event {
	return Event{Kind: KindSummary, Average: average}
}

// HiddenTotal reports the number of hidden markers found.
func HiddenTotal(hidden int) Event {
	return Event{Kind: KindHiddenTotal, Hidden: hidden}
}

// Timing reports CPU time spent by the run.
func Timing(seconds float64) Event {
	return Event{Kind: KindTiming, Seconds: seconds}
}

// Text renders the event as a human-readable line without the trailing newline.
func (e Event) Text() string {
	switch e.Kind {
	case KindHidden:
		return fmt.Sprintf("Hi I'm worker %s with return arg %d. I found the hidden key in position A[%d].",
			e.Worker, e.Identity, deref(e.Position))
	case KindIdentity:
		return fmt.Sprintf("Hi I'm worker %s with return arg %d and my parent is %s", e.Worker, e.Identity, e.Parent)
	case KindDisposition:
		return fmt.Sprintf("Worker %s received %s and %s", e.Worker, e.Rule, e.Outcome)
	case KindSummary:
		if e.Max == nil {
			return fmt.Sprintf("Max = none, Avg = %f", e.Average)
		}
		return fmt.Sprintf("Max = %d, Avg = %f", *e.Max, e.Average)
	case KindHiddenTotal:
		return fmt.Sprintf("Hidden Nodes Total = %d", e.Hidden)
	case KindTiming:
		return fmt.Sprintf("Program took %f seconds to run", e.Seconds)
	default:
		return fmt.Sprintf("%s %s", e.Kind, e.Worker)
	}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

package disposition

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/forktree/internal/domain/worker"
)

// Rule is the disposition applied to a paused worker.
type Rule int

const (
	// RuleContinue (Rule 1) resumes the worker and lets it exit on its own.
	RuleContinue Rule = iota + 1
	// RuleRelay (Rule 2) resumes the worker and has it end itself with the
	// relay signal.
	RuleRelay
	// RuleEscalate (Rule 3) resumes, interrupts and then quits the worker.
	RuleEscalate
)

func (r Rule) String() string {
	switch r {
	case RuleContinue:
		return "continue"
	case RuleRelay:
		return "relay-terminate"
	case RuleEscalate:
		return "escalate-terminate"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// Decision is the rule chosen for one worker plus the signal the relay path
// carries.
type Decision struct {
	Rule   Rule
	Signal unix.Signal
}

// Directive translates the decision into the commands sent to the worker.
func (d Decision) Directive() worker.Directive {
	switch d.Rule {
	case RuleRelay:
		return worker.Directive{worker.Continue(), worker.Relay(d.Signal)}
	case RuleEscalate:
		return worker.Directive{worker.Continue(), worker.Interrupt(), worker.Quit()}
	default:
		return worker.Directive{worker.Continue()}
	}
}

package worker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// CommandKind is the type of a control command sent by the ancestor.
type CommandKind int

const (
	CommandContinue CommandKind = iota
	CommandInterrupt
	CommandQuit
	CommandTerminate
)

func (k CommandKind) String() string {
	switch k {
	case CommandContinue:
		return "continue"
	case CommandInterrupt:
		return "interrupt"
	case CommandQuit:
		return "quit"
	case CommandTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Reason qualifies a Terminate command.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonRelay asks the worker to end itself with the attached signal.
	ReasonRelay
)

// Command is one control message. Signal is only meaningful for Terminate.
type Command struct {
	Kind   CommandKind
	Reason Reason
	Signal unix.Signal
}

// Continue resumes a paused worker.
func Continue() Command { return Command{Kind: CommandContinue} }

// Interrupt is a soft warning. The worker logs it and carries on.
func Interrupt() Command { return Command{Kind: CommandInterrupt} }

// Quit forces the worker to exit.
func Quit() Command { return Command{Kind: CommandQuit} }

// Relay tells the worker to terminate itself with sig.
func Relay(sig unix.Signal) Command {
	return Command{Kind: CommandTerminate, Reason: ReasonRelay, Signal: sig}
}

func (c Command) String() string {
	if c.Kind == CommandTerminate {
		return fmt.Sprintf("terminate(%s)", SignalName(c.Signal))
	}
	return c.Kind.String()
}

// Directive is a batch of commands delivered to a worker in one send. The
// worker applies them in order before deciding how to exit.
type Directive []Command

func (d Directive) String() string {
	parts := make([]string, len(d))
	for i, c := range d {
		parts[i] = c.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// StatusKind is the class of a state change observed by the ancestor.
type StatusKind int

const (
	StatusStopped StatusKind = iota
	StatusContinued
	StatusExited
	StatusSignaled
)

func (k StatusKind) String() string {
	switch k {
	case StatusStopped:
		return "stopped"
	case StatusContinued:
		return "continued"
	case StatusExited:
		return "exited"
	case StatusSignaled:
		return "signaled"
	default:
		return "unknown"
	}
}

// Status is a state change published by a worker, in the manner of a
// waitpid status word.
type Status struct {
	Kind   StatusKind
	Code   int
	Signal unix.Signal
}

// Stopped is published when the worker pauses after reporting.
func Stopped(sig unix.Signal) Status { return Status{Kind: StatusStopped, Signal: sig} }

// Continued is published when the worker resumes.
func Continued() Status { return Status{Kind: StatusContinued} }

// ExitedWith is published when the worker exits on its own.
func ExitedWith(code int) Status { return Status{Kind: StatusExited, Code: code} }

// Signaled is published when the worker ends by a signal.
func Signaled(sig unix.Signal) Status { return Status{Kind: StatusSignaled, Signal: sig} }

// Terminal reports whether no further status follows.
func (s Status) Terminal() bool {
	return s.Kind == StatusExited || s.Kind == StatusSignaled
}

// String renders the status the way a child-termination analysis reads.
func (s Status) String() string {
	switch s.Kind {
	case StatusExited:
		return fmt.Sprintf("exited naturally with code %d", s.Code)
	case StatusSignaled:
		return fmt.Sprintf("killed by signal %d (%s)", int(s.Signal), SignalName(s.Signal))
	case StatusStopped:
		return fmt.Sprintf("stopped by signal %d (%s)", int(s.Signal), SignalName(s.Signal))
	case StatusContinued:
		return "continued"
	default:
		return "unknown status"
	}
}

// SignalName returns the symbolic name of sig, falling back to its number.
func SignalName(sig unix.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return fmt.Sprintf("signal %d", int(sig))
}

// ParseSignal accepts a name such as "SIGTERM" or "term", or a number.
func ParseSignal(s string) (unix.Signal, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "" {
		return 0, errors.New("empty signal")
	}
	if n, err := strconv.Atoi(name); err == nil {
		sig := unix.Signal(n)
		if unix.SignalName(sig) == "" {
			return 0, fmt.Errorf("unknown signal %d", n)
		}
		return sig, nil
	}
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, fmt.Errorf("unknown signal %q", s)
	}
	return sig, nil
}

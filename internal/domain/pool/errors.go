package pool

import (
	"errors"
	"fmt"
)

// Startup failure kinds, matched with errors.Is.
var (
	ErrArgument = errors.New("invalid arguments")
	ErrChannel  = errors.New("channel allocation failed")
	ErrSpawn    = errors.New("worker spawn failed")
)

// ErrAlreadyRun is returned when Run is called twice on one Pool.
var ErrAlreadyRun = errors.New("pool already ran")

// StartupError aborts a run before any worker goroutine exists.
type StartupError struct {
	Kind error
	Err  error
}

func startupError(kind error, format string, args ...any) *StartupError {
	return &StartupError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StartupError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// ExitCode maps the failure kind to the process exit status.
func (e *StartupError) ExitCode() int {
	switch e.Kind {
	case ErrArgument:
		return 2
	case ErrChannel:
		return 3
	case ErrSpawn:
		return 4
	default:
		return 1
	}
}

package worker

// State is a worker's position in its lifecycle.
type State int32

const (
	Spawned State = iota
	Computing
	Reported
	Paused
	Resumed
	Terminating
	Exited
)

func (s State) String() string {
	switch s {
	case Spawned:
		return "spawned"
	case Computing:
		return "computing"
	case Reported:
		return "reported"
	case Paused:
		return "paused"
	case Resumed:
		return "resumed"
	case Terminating:
		return "terminating"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s State) CanTransition(next State) bool {
	switch s {
	case Spawned:
		return next == Computing
	case Computing:
		return next == Reported
	case Reported:
		return next == Paused
	case Paused:
		return next == Resumed
	case Resumed:
		return next == Terminating || next == Exited
	case Terminating:
		return next == Exited
	default:
		return false
	}
}

package player

// State is the transport state of the controller.
type State int

const (
	StateIdle    State = iota // nothing selected
	StateLoading              // media requested, duration not known yet
	StatePlaying
	StatePaused
	StateErrored // media failed to load or play
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateErrored:
		return "Errored"
	default:
		return "Unknown"
	}
}

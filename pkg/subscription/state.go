package subscription

// State represents the subscription state.
type State uint8

const (
	// StateClosed indicates no active publish cycle.
	StateClosed State = iota

	// StateOpen indicates publishing is enabled and the publish cycle is
	// running.
	StateOpen
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

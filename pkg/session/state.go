package session

// State represents the session state.
type State uint8

const (
	// StateDisconnected indicates no channel and no session.
	StateDisconnected State = iota

	// StateConnecting indicates a channel attempt is in progress.
	StateConnecting

	// StateNoSession indicates an open channel without a session.
	StateNoSession

	// StateCreating indicates the CreateSession/ActivateSession handshake
	// is in flight.
	StateCreating

	// StateSessionActive indicates an activated session.
	StateSessionActive

	// StateError indicates an externally signalled failure.
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateNoSession:
		return "NO_SESSION"
	case StateCreating:
		return "CREATING"
	case StateSessionActive:
		return "SESSION_ACTIVE"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

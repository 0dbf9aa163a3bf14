package runware

// State is the lifecycle state of the connection.
type State int

const (
	// StateDisconnected means no socket is open; a reconnect may be scheduled.
	StateDisconnected State = iota
	// StateConnecting means a socket is being dialled.
	StateConnecting
	// StateAuthenticating means the socket is open and the handshake is in flight.
	StateAuthenticating
	// StateReady means the connection is authenticated and can carry tasks.
	StateReady
	// StateClosed means Close was called; the client will not reconnect.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

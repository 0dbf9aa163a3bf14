package runware

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("runware: client closed")
	// ErrSocketNotOpen is returned when authentication starts on a socket
	// that is not the current open connection.
	ErrSocketNotOpen = errors.New("runware: socket not ready for authentication")
	// ErrMissingCredential is returned when no API key is configured.
	ErrMissingCredential = errors.New("runware: API key not set")
	// ErrDuplicateTask is returned when a task identifier is already pending.
	ErrDuplicateTask = errors.New("runware: duplicate task identifier")
	// ErrInvalidTask is returned when a task has no identifier or continuation.
	ErrInvalidTask = errors.New("runware: task identifier and continuation are required")
	// ErrNotReady is returned when the connection could not be made ready.
	ErrNotReady = errors.New("runware: connection not ready")
	// ErrConnectionLost rejects a connect cycle whose socket closed before
	// the handshake completed.
	ErrConnectionLost = errors.New("runware: connection lost")
	// ErrReconnectExhausted is returned when MaxReconnectAttempts is reached.
	ErrReconnectExhausted = errors.New("runware: reconnect attempts exhausted")
)

// TaskError is a task-level failure reported by the server.
type TaskError struct {
	TaskUUID string
	Message  string
}

func (e *TaskError) Error() string {
	if e.Message == "" {
		return "An error occurred"
	}
	return e.Message
}

// ServerError is a frame-level failure reported by the server, for example a
// rejected authentication.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("runware server error: %s", e.Message)
}

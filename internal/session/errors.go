package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when a capability call is made on a session
	// that has not completed Connect, or that has been closed.
	ErrNotConnected = errors.New("session: not connected to MCP server")

	// ErrAlreadyConnected is returned when Connect is called a second time.
	// Re-handshaking on a live session is rejected rather than silently
	// replacing the transport.
	ErrAlreadyConnected = errors.New("session: already connected")
)

// UnsupportedServerKindError is returned by Connect when the locator matches
// no recognised server kind. It is raised before any process is spawned or
// channel opened.
type UnsupportedServerKindError struct {
	Locator string
}

func (e *UnsupportedServerKindError) Error() string {
	return fmt.Sprintf("session: unsupported server kind for %q: must be a .py or .js file", e.Locator)
}

// ToolInvocationError is returned by CallTool when the server reports a
// failure executing the named tool. Message carries the remote-supplied text.
type ToolInvocationError struct {
	Tool    string
	Message string
	Err     error // underlying protocol error, when there was one
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("session: tool %q failed: %s", e.Tool, e.Message)
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }

// Package session owns the connection to one MCP tool server.
//
// A Session wraps the MCP SDK client session and presents a narrow capability
// surface: Connect, ListTools, CallTool, Close. Callers above this package
// never see transport mechanics, only tool descriptors and opaque result
// payloads.
//
// Lifecycle: Uninitialized -> Connected -> Closed. Capability calls are only
// legal while Connected. Close is idempotent and safe on every exit path,
// including after a failed Connect.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// State is the connection lifecycle state of a Session.
type State int

const (
	StateUninitialized State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrClosed is returned when Connect is called on a session that was already
// closed. Sessions are single-use; retrying means constructing a new one.
var ErrClosed = errors.New("session: closed")

// ToolDescriptor describes one callable operation exposed by the server.
// InputSchema is the server's declared JSON Schema for arguments; it is
// forwarded to the model verbatim and arguments are validated remotely.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// TransportBuilder turns a server locator into an MCP transport. The default
// builder spawns the server as a subprocess speaking stdio.
type TransportBuilder func(ctx context.Context, locator string) (mcpsdk.Transport, error)

// Option customises a Session at construction time.
type Option func(*Session)

// WithTransportBuilder overrides how locators become transports. Tests use
// this to connect sessions over in-memory transports.
func WithTransportBuilder(fn TransportBuilder) Option {
	return func(s *Session) { s.buildTransport = fn }
}

// Session manages one live MCP server connection.
type Session struct {
	log            zerolog.Logger
	buildTransport TransportBuilder

	mu    sync.Mutex
	state State
	conn  *mcpsdk.ClientSession
}

// New returns an unconnected Session.
func New(log zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		log:            log.With().Str("component", "session").Logger(),
		buildTransport: buildTransport,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect launches the server identified by locator, performs the MCP
// initialize handshake, and returns the initial tool catalog. It may be
// called at most once; a second call on a live session returns
// ErrAlreadyConnected without touching the existing transport.
func (s *Session) Connect(ctx context.Context, locator string) ([]ToolDescriptor, error) {
	s.mu.Lock()
	switch s.state {
	case StateConnected:
		s.mu.Unlock()
		return nil, ErrAlreadyConnected
	case StateClosed:
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.mu.Unlock()

	// Reject unrecognised locators before the transport layer is touched.
	if _, err := kindOf(locator); err != nil {
		return nil, err
	}

	transport, err := s.buildTransport(ctx, locator)
	if err != nil {
		return nil, err
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "mcp-host", Version: "0.1.0"}, nil)
	conn, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("session: connect %q: %w", locator, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateConnected
	s.mu.Unlock()

	s.log.Info().Str("locator", locator).Msg("connected to MCP server")

	catalog, err := s.ListTools(ctx)
	if err != nil {
		// A server that cannot answer tools/list right after the handshake is
		// unusable; tear the connection down rather than hand back a session
		// in a half-working state.
		_ = s.Close()
		return nil, fmt.Errorf("session: initial tool listing: %w", err)
	}
	return catalog, nil
}

// ListTools queries the server's current tool catalog. No caching: the server
// may add or remove tools between calls, and callers rely on seeing that.
// Order is preserved as received.
func (s *Session) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	conn, err := s.connected()
	if err != nil {
		return nil, err
	}

	var catalog []ToolDescriptor
	for tool, err := range conn.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("session: list tools: %w", err)
		}
		desc := ToolDescriptor{Name: tool.Name, Description: tool.Description}
		if tool.InputSchema != nil {
			raw, err := json.Marshal(tool.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("session: tool %q schema: %w", tool.Name, err)
			}
			desc.InputSchema = raw
			s.checkSchema(tool.Name, raw)
		}
		catalog = append(catalog, desc)
	}
	return catalog, nil
}

// checkSchema compiles a declared input schema and logs when it is malformed.
// Arguments are validated by the server, so a bad schema is a catalog hygiene
// problem, not a reason to drop the tool.
func (s *Session) checkSchema(name string, raw json.RawMessage) {
	if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw)); err != nil {
		s.log.Warn().Str("tool", name).Err(err).Msg("tool declares an input schema that does not compile")
	}
}

// CallTool invokes the named tool with the given JSON argument payload and
// returns the server's result content verbatim as a JSON array. Any remote
// failure, whether a protocol error or an isError result, is surfaced as a
// *ToolInvocationError carrying the remote message; there is no retry.
func (s *Session) CallTool(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	conn, err := s.connected()
	if err != nil {
		return nil, err
	}

	res, err := conn.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, &ToolInvocationError{Tool: name, Message: err.Error(), Err: err}
	}
	if res.IsError {
		return nil, &ToolInvocationError{Tool: name, Message: textFromContent(res.Content)}
	}

	payload, err := json.Marshal(res.Content)
	if err != nil {
		return nil, fmt.Errorf("session: tool %q result: %w", name, err)
	}
	return payload, nil
}

// Close releases the server connection. It never releases twice: the handle
// is cleared on the first call and later calls return nil. Safe after a
// failed Connect, where no handle was ever acquired.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.state = StateClosed
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	s.log.Debug().Msg("closing MCP session")
	if err := conn.Close(); err != nil {
		return fmt.Errorf("session: close: %w", err)
	}
	return nil
}

func (s *Session) connected() (*mcpsdk.ClientSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected || s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn, nil
}

// textFromContent flattens the text parts of an MCP content list, used for
// error messages where the server reports failure through result content.
func textFromContent(content []mcpsdk.Content) string {
	var out string
	for _, c := range content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			if out != "" {
				out += "\n"
			}
			out += tc.Text
		}
	}
	if out == "" {
		return "tool execution failed"
	}
	return out
}

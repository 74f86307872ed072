package session_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/mcp-host/internal/mcptest"
	"github.com/petasbytes/mcp-host/internal/session"
)

// newConnected returns a session wired to an in-memory server, plus the
// server for inspecting observed calls and a counter of transport builds.
func newConnected(t *testing.T) (*session.Session, *mcptest.Server, *atomic.Int32) {
	t.Helper()

	srv := mcptest.New()
	transport := srv.Transport(t)

	var builds atomic.Int32
	s := session.New(zerolog.Nop(), session.WithTransportBuilder(
		func(ctx context.Context, locator string) (mcpsdk.Transport, error) {
			builds.Add(1)
			return transport, nil
		}))
	t.Cleanup(func() { _ = s.Close() })

	catalog, err := s.Connect(context.Background(), "weather.py")
	require.NoError(t, err)
	require.NotEmpty(t, catalog)

	return s, srv, &builds
}

func TestConnect_ReturnsInitialCatalog(t *testing.T) {
	s, _, builds := newConnected(t)

	require.Equal(t, session.StateConnected, s.State())
	require.Equal(t, int32(1), builds.Load())

	catalog, err := s.ListTools(context.Background())
	require.NoError(t, err)

	names := make(map[string]session.ToolDescriptor, len(catalog))
	for _, d := range catalog {
		names[d.Name] = d
	}
	require.Contains(t, names, "weather")
	require.Contains(t, names, "echo")
	require.Contains(t, names, "boom")

	weather := names["weather"]
	require.NotEmpty(t, weather.Description)
	var schema map[string]any
	require.NoError(t, json.Unmarshal(weather.InputSchema, &schema))
	require.Equal(t, "object", schema["type"])
}

func TestConnect_UnsupportedKindHasNoTransportSideEffect(t *testing.T) {
	var builds atomic.Int32
	s := session.New(zerolog.Nop(), session.WithTransportBuilder(
		func(ctx context.Context, locator string) (mcpsdk.Transport, error) {
			builds.Add(1)
			return nil, fmt.Errorf("should not be reached")
		}))

	_, err := s.Connect(context.Background(), "weather.txt")
	var kindErr *session.UnsupportedServerKindError
	require.ErrorAs(t, err, &kindErr)
	require.Equal(t, int32(0), builds.Load(), "transport must not be touched for unsupported locators")
	require.Equal(t, session.StateUninitialized, s.State())
}

func TestCapabilityGating_BeforeConnect(t *testing.T) {
	s := session.New(zerolog.Nop())

	_, err := s.ListTools(context.Background())
	require.ErrorIs(t, err, session.ErrNotConnected)

	_, err = s.CallTool(context.Background(), "weather", json.RawMessage(`{}`))
	require.ErrorIs(t, err, session.ErrNotConnected)
}

func TestListTools_QueriesFreshAndDeterministic(t *testing.T) {
	s, _, _ := newConnected(t)

	first, err := s.ListTools(context.Background())
	require.NoError(t, err)
	second, err := s.ListTools(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second, "catalog order must be stable across calls")
}

func TestCallTool_ReturnsPayloadVerbatim(t *testing.T) {
	s, srv, _ := newConnected(t)

	payload, err := s.CallTool(context.Background(), "weather", json.RawMessage(`{"city":"Tokyo"}`))
	require.NoError(t, err)

	var content []map[string]any
	require.NoError(t, json.Unmarshal(payload, &content))
	require.Len(t, content, 1)
	require.Equal(t, "It is sunny in Tokyo", content[0]["text"])

	calls := srv.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "weather", calls[0].Tool)
	require.JSONEq(t, `{"city":"Tokyo"}`, calls[0].Args)
}

func TestCallTool_RemoteFailureSurfacesToolAndMessage(t *testing.T) {
	s, _, _ := newConnected(t)

	_, err := s.CallTool(context.Background(), "boom", json.RawMessage(`{}`))
	var invErr *session.ToolInvocationError
	require.ErrorAs(t, err, &invErr)
	require.Equal(t, "boom", invErr.Tool)
	require.Contains(t, invErr.Message, "remote exploded")
	require.Contains(t, err.Error(), "boom")
}

func TestCallTool_UnknownTool(t *testing.T) {
	s, _, _ := newConnected(t)

	_, err := s.CallTool(context.Background(), "no_such_tool", json.RawMessage(`{}`))
	var invErr *session.ToolInvocationError
	require.ErrorAs(t, err, &invErr)
	require.Equal(t, "no_such_tool", invErr.Tool)
}

func TestCallTool_InvalidArgumentsRejectedByServer(t *testing.T) {
	s, _, _ := newConnected(t)

	_, err := s.CallTool(context.Background(), "weather", json.RawMessage(`{"town":"Tokyo"}`))
	var invErr *session.ToolInvocationError
	require.ErrorAs(t, err, &invErr)
	require.Equal(t, "weather", invErr.Tool)
}

func TestClose_Idempotent(t *testing.T) {
	s, _, builds := newConnected(t)

	require.NoError(t, s.Close())
	require.Equal(t, session.StateClosed, s.State())
	require.NoError(t, s.Close(), "second close must be a no-op")

	_, err := s.ListTools(context.Background())
	require.ErrorIs(t, err, session.ErrNotConnected)

	require.Equal(t, int32(1), builds.Load())
}

func TestClose_AfterFailedConnect(t *testing.T) {
	s := session.New(zerolog.Nop(), session.WithTransportBuilder(
		func(ctx context.Context, locator string) (mcpsdk.Transport, error) {
			return nil, fmt.Errorf("spawn failed")
		}))

	_, err := s.Connect(context.Background(), "weather.py")
	require.Error(t, err)
	require.Equal(t, session.StateUninitialized, s.State())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestConnect_SecondCallRejected(t *testing.T) {
	s, _, builds := newConnected(t)

	_, err := s.Connect(context.Background(), "other.py")
	require.ErrorIs(t, err, session.ErrAlreadyConnected)
	require.Equal(t, int32(1), builds.Load(), "rejected reconnect must not build a new transport")
}

func TestConnect_AfterCloseRejected(t *testing.T) {
	s, _, _ := newConnected(t)
	require.NoError(t, s.Close())

	_, err := s.Connect(context.Background(), "weather.py")
	require.ErrorIs(t, err, session.ErrClosed)
}

func TestConnect_HandshakeFailureIsFatal(t *testing.T) {
	s := session.New(zerolog.Nop(), session.WithTransportBuilder(
		func(ctx context.Context, locator string) (mcpsdk.Transport, error) {
			return failingTransport{}, nil
		}))

	_, err := s.Connect(context.Background(), "weather.py")
	require.Error(t, err)
	require.NotEqual(t, session.StateConnected, s.State())
	require.NoError(t, s.Close())
}

type failingTransport struct{}

func (failingTransport) Connect(context.Context) (mcpsdk.Connection, error) {
	return nil, fmt.Errorf("handshake rejected")
}

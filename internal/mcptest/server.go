// Package mcptest provides an in-memory MCP server for exercising the
// session and runner packages without spawning subprocesses.
//
// Tool input schemas are generated from Go structs, and every handler
// validates its arguments against the declared schema before running, the
// same contract a real server holds: arguments are validated server-side.
package mcptest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/invopop/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/xeipuuv/gojsonschema"
)

// Call records one tool invocation the server observed.
type Call struct {
	Tool string
	Args string // raw JSON as received
}

// Server is an MCP server held in memory, with invocation recording.
type Server struct {
	impl *mcpsdk.Server

	mu    sync.Mutex
	calls []Call
}

type WeatherInput struct {
	City string `json:"city" jsonschema_description:"City to report weather for."`
}

type EchoInput struct {
	Text string `json:"text" jsonschema_description:"Text to echo back."`
}

// New builds a server exposing three tools:
//   - weather: returns a canned forecast for the given city
//   - echo: returns its input text
//   - boom: always reports a remote execution failure
func New() *Server {
	s := &Server{
		impl: mcpsdk.NewServer(&mcpsdk.Implementation{Name: "mcptest", Version: "test"}, nil),
	}

	weatherSchema := schemaFor[WeatherInput]()
	s.impl.AddTool(&mcpsdk.Tool{
		Name:        "weather",
		Description: "Report current weather for a city",
		InputSchema: weatherSchema,
	}, s.handler("weather", weatherSchema, func(args json.RawMessage) (string, error) {
		var in WeatherInput
		if err := json.Unmarshal(args, &in); err != nil {
			return "", err
		}
		return fmt.Sprintf("It is sunny in %s", in.City), nil
	}))

	echoSchema := schemaFor[EchoInput]()
	s.impl.AddTool(&mcpsdk.Tool{
		Name:        "echo",
		Description: "Echo the given text",
		InputSchema: echoSchema,
	}, s.handler("echo", echoSchema, func(args json.RawMessage) (string, error) {
		var in EchoInput
		if err := json.Unmarshal(args, &in); err != nil {
			return "", err
		}
		return in.Text, nil
	}))

	boomSchema := schemaFor[struct{}]()
	s.impl.AddTool(&mcpsdk.Tool{
		Name:        "boom",
		Description: "Always fails",
		InputSchema: boomSchema,
	}, s.handler("boom", boomSchema, func(json.RawMessage) (string, error) {
		return "", fmt.Errorf("remote exploded")
	}))

	return s
}

// Transport connects the server over an in-memory pipe and returns the
// client-side transport. The server side is torn down via t.Cleanup.
func (s *Server) Transport(t *testing.T) mcpsdk.Transport {
	t.Helper()

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ready := make(chan error, 1)
	go func() {
		defer close(done)
		conn, err := s.impl.Connect(ctx, serverTransport, nil)
		if err != nil {
			ready <- err
			return
		}
		ready <- nil
		<-ctx.Done()
		_ = conn.Close()
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		if err := <-ready; err != nil {
			t.Errorf("mcptest: server connect failed: %v", err)
		}
	})
	return clientTransport
}

// Calls returns the invocations observed so far, in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Server) record(tool string, args json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Tool: tool, Args: string(args)})
}

// handler wraps a tool body with invocation recording and schema validation.
// Failures are reported through isError results, matching how MCP servers
// surface tool execution errors as opposed to protocol errors.
func (s *Server) handler(name string, schema map[string]any, fn func(json.RawMessage) (string, error)) func(context.Context, *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args := req.Params.Arguments
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		s.record(name, args)

		if err := validate(schema, args); err != nil {
			return errorResult(err.Error()), nil
		}
		text, err := fn(args)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
		}, nil
	}
}

func errorResult(msg string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: msg}},
	}
}

func validate(schema map[string]any, args json.RawMessage) error {
	res, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewBytesLoader(args))
	if err != nil {
		return fmt.Errorf("validate arguments: %w", err)
	}
	if !res.Valid() {
		return fmt.Errorf("invalid arguments: %v", res.Errors())
	}
	return nil
}

// schemaFor derives a JSON Schema from a Go struct and flattens it to the
// map form the MCP SDK expects.
func schemaFor[T any]() map[string]any {
	reflector := jsonschema.Reflector{AllowAdditionalProperties: false, DoNotReference: true}
	var v T
	schema := reflector.Reflect(&v)
	b, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("mcptest: marshal schema: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(fmt.Sprintf("mcptest: reload schema: %v", err))
	}
	return m
}

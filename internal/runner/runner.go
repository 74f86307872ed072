package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petasbytes/mcp-host/internal/config"
	"github.com/petasbytes/mcp-host/internal/session"
)

// Capabilities is the slice of the session surface the loop depends on:
// discover tools, invoke tools. Transport mechanics stay out of sight.
type Capabilities interface {
	ListTools(ctx context.Context) ([]session.ToolDescriptor, error)
	CallTool(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)
}

// Runner drives the conversation loop for one session.
type Runner struct {
	client *anthropic.Client
	caps   Capabilities
	cfg    *config.Config
	log    zerolog.Logger
}

func New(client *anthropic.Client, caps Capabilities, cfg *config.Config, log zerolog.Logger) *Runner {
	return &Runner{
		client: client,
		caps:   caps,
		cfg:    cfg,
		log:    log.With().Str("component", "runner").Logger(),
	}
}

// Process answers one user query, invoking zero or more tools along the way.
// Any session or model error aborts the query and propagates to the caller;
// this layer performs no retry and returns no partial results.
func (r *Runner) Process(ctx context.Context, query string) (string, error) {
	log := r.log.With().Str("query_id", uuid.NewString()).Logger()

	conv := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
	}

	msg, err := r.step(ctx, log, conv)
	if err != nil {
		return "", err
	}

	// Walk the response blocks in source order. Later blocks may depend on
	// earlier tool results already being in the conversation.
	var parts []string
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			parts = append(parts, v.Text)
		case anthropic.ToolUseBlock:
			input := json.RawMessage(v.JSON.Input.Raw())
			part, err := r.execTool(ctx, log, &conv, v.ID, v.Name, input)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
	}

	return strings.Join(parts, "\n"), nil
}

// step fetches the current tool catalog and submits the conversation to the
// model. The catalog is queried fresh on every call on purpose: the server's
// tool set may change between turns.
func (r *Runner) step(ctx context.Context, log zerolog.Logger, conv []anthropic.MessageParam) (*anthropic.Message, error) {
	catalog, err := r.caps.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(r.cfg.Model),
		MaxTokens: r.cfg.MaxTokens,
		Messages:  conv,
	}
	if len(catalog) > 0 {
		tools, err := toolParams(catalog)
		if err != nil {
			return nil, err
		}
		params.Tools = tools
	}

	log.Debug().Int("tools", len(catalog)).Int("messages", len(conv)).Msg("calling model")
	msg, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}
	return msg, nil
}

// execTool satisfies one tool_use block: invoke the tool, append the
// invocation and its result to the conversation, then run a continuation
// turn. The returned text is the debug trace line followed by the
// continuation's first text content.
func (r *Runner) execTool(ctx context.Context, log zerolog.Logger, conv *[]anthropic.MessageParam, id, name string, input json.RawMessage) (string, error) {
	start := time.Now()
	payload, err := r.caps.CallTool(ctx, name, input)
	if err != nil {
		log.Error().Str("tool", name).Err(err).Msg("tool invocation failed")
		return "", err
	}
	log.Info().Str("tool", name).Dur("duration", time.Since(start)).Msg("tool invoked")

	debug := fmt.Sprintf("[Calling tool %s with args %s]", name, input)

	*conv = append(*conv,
		anthropic.NewAssistantMessage(anthropic.NewToolUseBlock(id, input, name)),
		anthropic.NewUserMessage(anthropic.NewToolResultBlock(id, renderPayload(payload), false)),
	)

	followup, err := r.step(ctx, log, *conv)
	if err != nil {
		return "", err
	}
	// The continuation response stays out of the conversation: it may carry
	// its own tool_use block, and a tool_use without a matching tool_result
	// is rejected by the API.

	return debug + "\n" + firstText(followup), nil
}

// toolParams converts server tool descriptors into Anthropic tool
// definitions, lifting properties and required out of each raw schema.
func toolParams(catalog []session.ToolDescriptor) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(catalog))
	for _, d := range catalog {
		var schema anthropic.ToolInputSchemaParam
		if len(d.InputSchema) > 0 {
			var decoded struct {
				Properties map[string]any `json:"properties"`
				Required   []string       `json:"required"`
			}
			if err := json.Unmarshal(d.InputSchema, &decoded); err != nil {
				return nil, fmt.Errorf("tool %q schema: %w", d.Name, err)
			}
			schema.Properties = decoded.Properties
			schema.Required = decoded.Required
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: schema,
		}})
	}
	return out, nil
}

func firstText(msg *anthropic.Message) string {
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			return tb.Text
		}
	}
	return ""
}

package session

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// serverKind identifies how a locator should be launched.
type serverKind int

const (
	kindPython serverKind = iota
	kindNode
)

// kindOf resolves the launch strategy from the locator's suffix. Rejection
// happens here, before any process is spawned or channel opened.
func kindOf(locator string) (serverKind, error) {
	switch {
	case strings.HasSuffix(locator, ".py"):
		return kindPython, nil
	case strings.HasSuffix(locator, ".js"):
		return kindNode, nil
	default:
		return 0, &UnsupportedServerKindError{Locator: locator}
	}
}

// serverCommand maps a server locator onto the command that launches it.
// Python servers run under uv from the script's directory; JavaScript servers
// run under node directly.
func serverCommand(ctx context.Context, locator string) (*exec.Cmd, error) {
	kind, err := kindOf(locator)
	if err != nil {
		return nil, err
	}
	switch kind {
	case kindPython:
		abs, err := filepath.Abs(locator)
		if err != nil {
			return nil, err
		}
		return exec.CommandContext(ctx, "uv", "--directory", filepath.Dir(abs), "run", filepath.Base(abs)), nil
	default:
		return exec.CommandContext(ctx, "node", locator), nil
	}
}

func buildTransport(ctx context.Context, locator string) (mcpsdk.Transport, error) {
	cmd, err := serverCommand(ctx, locator)
	if err != nil {
		return nil, err
	}
	return &mcpsdk.CommandTransport{Command: cmd}, nil
}

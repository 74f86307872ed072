// Package chat owns the interactive read/print loop around a query processor.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// quitCommand ends the loop.
const quitCommand = "quit"

// Processor answers one query. Errors come back to this layer, get printed,
// and the loop continues; the core never resumes a failed query itself.
type Processor interface {
	Process(ctx context.Context, query string) (string, error)
}

// Chat reads queries from in and writes responses to out until EOF, the quit
// command, or context cancellation.
type Chat struct {
	proc Processor
	in   io.Reader
	out  io.Writer
}

func New(proc Processor, in io.Reader, out io.Writer) *Chat {
	return &Chat{proc: proc, in: in, out: out}
}

// Run executes the interactive loop.
func (c *Chat) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, "\nMCP host started.")
	fmt.Fprintf(c.out, "Type your queries or %q to exit.\n", quitCommand)

	// Reader goroutine so a pending Scan cannot outlive ctx cancellation.
	// The derived context releases the goroutine when Run returns via quit.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanner := bufio.NewScanner(c.in)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(c.out, "\nQuery: ")

		var (
			query string
			ok    bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out, "\nGoodbye!")
			return nil
		case query, ok = <-lines:
			if !ok {
				return scanner.Err()
			}
		}

		query = strings.TrimSpace(query)
		if query == "" {
			continue
		}
		if strings.EqualFold(query, quitCommand) {
			return nil
		}

		response, err := c.proc.Process(ctx, query)
		if err != nil {
			fmt.Fprintf(c.out, "\nError: %v\n", err)
			continue
		}
		fmt.Fprintf(c.out, "\n%s\n", response)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/petasbytes/mcp-host/internal/chat"
	"github.com/petasbytes/mcp-host/internal/config"
	"github.com/petasbytes/mcp-host/internal/logger"
	"github.com/petasbytes/mcp-host/internal/provider"
	"github.com/petasbytes/mcp-host/internal/runner"
	"github.com/petasbytes/mcp-host/internal/session"
)

func printUsage() {
	fmt.Println("Usage: mcphost <path_to_server_script>")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  mcphost ../mcp-server/server.py")
	fmt.Println("  mcphost /path/to/weather-server.js")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	if err := run(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(serverPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: true})

	// Graceful shutdown on Ctrl-C (SIGINT) / SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigch)
	go func() {
		<-sigch
		cancel()
	}()

	s := session.New(log)
	defer func() {
		if err := s.Close(); err != nil {
			log.Warn().Err(err).Msg("session close")
		}
	}()

	catalog, err := s.Connect(ctx, serverPath)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(catalog))
	for _, tool := range catalog {
		names = append(names, tool.Name)
	}
	fmt.Printf("\nConnected to server with tools: %v\n", names)

	r := runner.New(provider.NewAnthropicClient(cfg), s, cfg, log)
	return chat.New(r, os.Stdin, os.Stdout).Run(ctx)
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/tempora/adapter/cli"
	cliHold "github.com/felixgeelhaar/tempora/adapter/cli/hold"
	"github.com/felixgeelhaar/tempora/internal/app"
	"github.com/felixgeelhaar/tempora/pkg/config"
	"github.com/felixgeelhaar/tempora/pkg/observability"
)

func main() {
	// Setup logger
	logger := observability.LoggerFromEnv()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	cli.SetContainer(container)

	// Register commands
	cli.AddCommand(cliHold.Cmd)

	// Execute CLI
	cli.Execute(ctx)
}

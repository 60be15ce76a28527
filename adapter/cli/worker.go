package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background workers",
	Long: `Run the hold expiry sweeper, the workflow timeout dispatcher and the
outbox processor until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := GetContainer()
		if c == nil {
			return fmt.Errorf("workers unavailable: container not initialized")
		}
		ctx := cmd.Context()

		if err := c.OutboxProcessor.Start(ctx); err != nil {
			return fmt.Errorf("start outbox processor: %w", err)
		}
		defer c.OutboxProcessor.Stop()

		errCh := make(chan error, 2)
		go func() { errCh <- c.Sweeper.Run(ctx) }()
		go func() { errCh <- c.TimeoutDispatcher.Run(ctx) }()

		logger.Info("workers started")

		var firstErr error
		for i := 0; i < 2; i++ {
			if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) && firstErr == nil {
				firstErr = err
			}
			// One worker down takes the rest with it.
			c.Sweeper.Stop()
			c.TimeoutDispatcher.Stop()
		}

		logger.Info("workers stopped")
		return firstErr
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

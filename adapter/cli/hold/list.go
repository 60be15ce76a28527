package hold

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tempora/adapter/cli"
)

var listCmd = &cobra.Command{
	Use:   "list [request-id]",
	Short: "List the holds placed for a meeting request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cli.GetContainer()
		if c == nil {
			return fmt.Errorf("holds unavailable: container not initialized")
		}

		requestID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid request ID: %w", err)
		}

		held, err := c.HoldManager.FindForRequest(cmd.Context(), requestID)
		if err != nil {
			return fmt.Errorf("list holds: %w", err)
		}
		if len(held) == 0 {
			fmt.Println("No holds for this request.")
			return nil
		}

		for _, h := range held {
			window := h.Window()
			fmt.Printf("%s  %s - %s  %-9s  expires %s\n",
				h.ID(),
				window.Start().Format(time.RFC3339),
				window.End().Format(time.RFC3339),
				h.Status(),
				h.ExpiresAt().Format(time.RFC3339),
			)
		}
		return nil
	},
}

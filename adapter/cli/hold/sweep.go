package hold

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tempora/adapter/cli"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire overdue pending holds now",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cli.GetContainer()
		if c == nil {
			return fmt.Errorf("holds unavailable: container not initialized")
		}

		swept, err := c.HoldManager.SweepExpired(cmd.Context())
		if err != nil {
			return fmt.Errorf("sweep holds: %w", err)
		}
		fmt.Printf("Expired %d hold(s)\n", swept)
		return nil
	},
}

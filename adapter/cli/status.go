package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tempora/pkg/observability"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the health of the pipeline's dependencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := GetContainer()
		if c == nil {
			return fmt.Errorf("status unavailable: container not initialized")
		}

		results := c.Health.Check(cmd.Context())
		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			result := results[name]
			if result.Message != "" {
				fmt.Printf("%-10s %-10s %s\n", name, result.Status, result.Message)
			} else {
				fmt.Printf("%-10s %s\n", name, result.Status)
			}
		}

		overall := observability.OverallStatus(results)
		fmt.Printf("overall    %s\n", overall)
		if overall == observability.HealthStatusUnhealthy {
			return fmt.Errorf("pipeline is unhealthy")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

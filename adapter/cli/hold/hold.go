// Package hold provides the calendar hold subcommands.
package hold

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for hold operations.
var Cmd = &cobra.Command{
	Use:   "hold",
	Short: "Inspect and sweep calendar holds",
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(sweepCmd)
}

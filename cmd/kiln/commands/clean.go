package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove module outputs and build records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, _ := cmd.Flags().GetBool("records")
			all, _ := cmd.Flags().GetBool("all")

			opts := app.CleanOptions{}

			switch {
			case all:
				opts.Outputs = true
				opts.Records = true
			case records:
				opts.Records = true
			default:
				// Default behavior: clean module outputs and incremental state
				opts.Outputs = true
			}

			return c.app.Clean(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolP("records", "r", false, "Clean the build record store")
	cmd.Flags().BoolP("all", "a", false, "Clean outputs, incremental state and build records")

	return cmd
}

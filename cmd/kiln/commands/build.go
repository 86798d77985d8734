package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [modules...]",
		Short: "Build all modules, or the named modules in dependency order",
		Long: `Build compiles every configured module in dependency order.

With module arguments only the named modules are built and the build stops at
the first module that does not succeed. An explicit change descriptor
(--known, --removed or --unknown) applies to the named modules, or to the
module given by --changed in a full build.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed, _ := cmd.Flags().GetString("changed")
			known, _ := cmd.Flags().GetStringSlice("known")
			removed, _ := cmd.Flags().GetStringSlice("removed")
			unknown, _ := cmd.Flags().GetBool("unknown")
			cancel, _ := cmd.Flags().GetStringSlice("cancel")
			mode, _ := cmd.Flags().GetString("mode")
			artifacts, _ := cmd.Flags().GetStringSlice("artifact")

			return c.app.Build(cmd.Context(), app.BuildOptions{
				Modules:   args,
				Changed:   changed,
				Known:     known,
				Removed:   removed,
				Unknown:   unknown,
				Cancel:    cancel,
				Mode:      mode,
				Artifacts: artifacts,
			})
		},
	}
	cmd.Flags().StringP("changed", "c", "", "Module the explicit change descriptor applies to in a full build")
	cmd.Flags().StringSliceP("known", "k", nil, "Source files known to have changed")
	cmd.Flags().StringSliceP("removed", "r", nil, "Source files known to have been removed")
	cmd.Flags().BoolP("unknown", "u", false, "Treat changes as unknown and recompute from scratch")
	cmd.Flags().StringSlice("cancel", nil, "Cancel the compilation of these modules before it starts")
	cmd.Flags().StringP("mode", "m", "", "Override the execution mode: in-process or worker")
	cmd.Flags().StringSliceP("artifact", "a", nil, "Override the toolchain artifact locations")
	cmd.MarkFlagsMutuallyExclusive("unknown", "known")
	cmd.MarkFlagsMutuallyExclusive("unknown", "removed")
	return cmd
}

func (c *CLI) newOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "Print the build order of the configured modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Order(cmd.Context())
		},
	}
}

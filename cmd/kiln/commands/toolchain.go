package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newToolchainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toolchain",
		Short: "Manage compiler toolchain artifacts",
	}
	cmd.AddCommand(c.newToolchainInstallCmd())
	return cmd
}

func (c *CLI) newToolchainInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <version>",
		Short: "Install a reference compiler artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			location, err := c.app.InstallToolchain(cmd.Context(), dir, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), location)
			return nil
		},
	}
	cmd.Flags().StringP("dir", "d", ".kiln/toolchains", "Directory to install the artifact into")
	return cmd
}

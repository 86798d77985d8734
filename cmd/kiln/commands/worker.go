package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/core/domain"
)

func (c *CLI) newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage the background compilation worker",
	}
	cmd.PersistentFlags().String("work-dir", "", "Worker directory (defaults to the configured one)")

	cmd.AddCommand(c.newWorkerServeCmd())
	cmd.AddCommand(c.newWorkerStatusCmd())
	cmd.AddCommand(c.newWorkerStopCmd())

	return cmd
}

func workerOptions(cmd *cobra.Command) app.WorkerOptions {
	workDir, _ := cmd.Flags().GetString("work-dir")
	delay, _ := cmd.Flags().GetDuration("shutdown-delay")
	return app.WorkerOptions{WorkDir: workDir, ShutdownDelay: delay}
}

func (c *CLI) newWorkerServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "serve",
		Short:  "Start the worker server (internal use)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.ServeWorker(cmd.Context(), workerOptions(cmd))
		},
	}
	cmd.Flags().Duration("shutdown-delay", domain.DefaultShutdownDelay, "Stop after being idle this long")
	return cmd
}

func (c *CLI) newWorkerStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show worker status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.WorkerStatus(cmd.Context(), workerOptions(cmd))
		},
	}
}

func (c *CLI) newWorkerStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.StopWorker(cmd.Context(), workerOptions(cmd))
		},
	}
}

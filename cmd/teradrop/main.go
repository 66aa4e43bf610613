// Command teradrop runs the file upload service, its reclaim worker and its
// schema migrations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "teradrop: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := newServeCmd()
	cmd := &cobra.Command{
		Use:   "teradrop",
		Short: "File upload and retrieval service",
		Long: `teradrop stores uploaded files under a logical name and serves them back.
Without a subcommand it runs the HTTP server. Configuration is read from the
environment and an optional .env file.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	cmd.Flags().AddFlagSet(serve.Flags())
	cmd.AddCommand(
		serve,
		newWorkerCmd(),
		newMigrateCmd(),
	)
	return cmd
}

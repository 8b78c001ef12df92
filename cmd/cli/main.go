package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultServerURL = "http://localhost:9765"

// cliContext carries the persistent flags to every command
type cliContext struct {
	serverURL   string
	noAutoStart bool
}

// client returns an API client, starting the server first unless --no-auto-start
func (c *cliContext) client(cmd *cobra.Command) *apiClient {
	if !c.noAutoStart {
		if err := ensureServerRunning(c.serverURL, cmd.ErrOrStderr()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
	}
	return newAPIClient(c.serverURL)
}

func newRootCommand() *cobra.Command {
	ctx := &cliContext{}

	rootCmd := &cobra.Command{
		Use:           "cratedig",
		Short:         "cratedig CLI - find, download and import music from Soulseek",
		Long:          `A command-line interface for searching peers, acquiring tracks and albums through slskd, and importing them with beets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&ctx.serverURL, "server", defaultServerURL, "Server URL")
	rootCmd.PersistentFlags().BoolVar(&ctx.noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newAcquireCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newGetCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newBatchesCommand(ctx))
	rootCmd.AddCommand(newCancelCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

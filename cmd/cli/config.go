package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yourusername/cratedig-go/internal/app"
	"github.com/yourusername/cratedig-go/internal/domain"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the server configuration file",
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigShowCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var path string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with every default value",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("resolve home directory: %w", err)
				}
				path = filepath.Join(home, ".cratedig", "config.yaml")
			}
			if _, err := os.Stat(path); err == nil && !overwrite {
				return fmt.Errorf("%s already exists (use --overwrite to replace it)", path)
			}
			if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Destination (default ~/.cratedig/config.yaml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration the server would load",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := app.LoadConfig(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Server:      %s:%d\n", config.Server.Host, config.Server.Port)
			fmt.Fprintf(out, "Backend:     %s (%s)\n", config.Slskd.Backend, config.Slskd.URL)
			fmt.Fprintf(out, "Downloads:   %s\n", config.Slskd.DownloadDir)
			fmt.Fprintf(out, "Importer:    %s -> %s\n", config.Import.Importer, config.Import.TargetDir)
			fmt.Fprintf(out, "Batch size:  %d (delay %s)\n", config.Download.BatchSize, config.Download.BatchDelay)
			fmt.Fprintf(out, "Monitor:     every %s, up to %d polls\n", config.Monitor.PollInterval, config.Monitor.MaxPollAttempts)
			fmt.Fprintf(out, "History:     %s\n", config.Store.DatabasePath)
			fmt.Fprintf(out, "Logs:        %s\n", config.Logging.LogsDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Config file (default: search ./configs, ~/.cratedig, /etc/cratedig)")
	return cmd
}

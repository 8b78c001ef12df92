package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/cratedig-go/api/handlers"
)

func newStatusCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether slskd and beets are usable and which backends are registered",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client(cmd)

			var health handlers.SystemHealthResponse
			if err := client.get("/api/v1/system/health", nil, &health); err != nil {
				return err
			}
			var backends handlers.BackendsResponse
			if err := client.get("/api/v1/system/backends", nil, &backends); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status:      %s\n", health.Status)
			fmt.Fprintf(out, "Downloader:  %s\n", toolState(health.DownloaderOnline, "online", health.DownloaderError))
			fmt.Fprintf(out, "Importer:    %s\n", toolState(health.ImporterReady, "ready", health.ImporterError))
			fmt.Fprintf(out, "Backends:    download %s, importer %s\n", backendList(backends.Download), backendList(backends.Importer))
			return nil
		},
	}
}

func toolState(ok bool, okText, reason string) string {
	if ok {
		return okText
	}
	return "unavailable (" + reason + ")"
}

// backendList renders ids with the active one starred
func backendList(infos []handlers.BackendInfo) string {
	names := make([]string, 0, len(infos))
	for _, b := range infos {
		if b.Active {
			names = append(names, b.ID+"*")
		} else {
			names = append(names, b.ID)
		}
	}
	return strings.Join(names, " ")
}

package main

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/cratedig-go/pkg/logger"
)

func newLogsCommand(ctx *cliContext) *cobra.Command {
	var limit int
	var query, date string

	cmd := &cobra.Command{
		Use:       "logs <category>",
		Short:     "Show the server's category logs (acquisition, import, error)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(logger.CategoryAcquisition), string(logger.CategoryImport), string(logger.CategoryError)},
		RunE: func(cmd *cobra.Command, args []string) error {
			category := logger.LogCategory(args[0])
			if !logger.ValidCategory(category) {
				return fmt.Errorf("unknown log category %q", args[0])
			}

			params := url.Values{}
			params.Set("limit", strconv.Itoa(limit))
			if date != "" {
				if _, err := time.Parse("2006-01-02", date); err != nil {
					return fmt.Errorf("invalid --date, use YYYY-MM-DD")
				}
				params.Set("date", date)
			}

			path := "/api/v1/logs/" + string(category)
			if query != "" {
				path += "/search"
				params.Set("q", query)
			}

			var resp struct {
				Date    string            `json:"date"`
				Count   int               `json:"count"`
				Entries []logger.LogEntry `json:"entries"`
			}
			if err := ctx.client(cmd).get(path, params, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Entries) == 0 {
				fmt.Fprintf(out, "No %s log entries for %s\n", category, resp.Date)
				return nil
			}
			for _, e := range resp.Entries {
				line := fmt.Sprintf("%s %-5s %s", e.Timestamp, e.Level, e.Message)
				for _, key := range []string{"entry_id", "batch_id", "state", "error"} {
					if v, ok := e.Fields[key]; ok {
						line += fmt.Sprintf(" %s=%v", key, v)
					}
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum number of entries")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Only entries containing this text")
	cmd.Flags().StringVar(&date, "date", "", "Log date (YYYY-MM-DD, default today)")
	return cmd
}

package main

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yourusername/cratedig-go/internal/app"
	"github.com/yourusername/cratedig-go/internal/domain"
)

func newListCommand(ctx *cliContext) *cobra.Command {
	var state, session, batch string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List acquisition history",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if state != "" {
				query.Set("state", state)
			}
			if session != "" {
				query.Set("session_id", session)
			}
			if batch != "" {
				query.Set("batch_id", batch)
			}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}

			var entries []*domain.AcquisitionEntry
			if err := ctx.client(cmd).get("/api/v1/acquisitions", query, &entries); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No acquisitions found")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					shortID(e.ID),
					string(e.Kind),
					string(e.State),
					truncate(describeEntry(e), 48),
					e.Username,
					e.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Kind", "State", "Item", "Peer", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "Filter by state (e.g. downloading, imported, failed)")
	cmd.Flags().StringVar(&session, "session", "", "Filter by session ID")
	cmd.Flags().StringVar(&batch, "batch", "", "Filter by batch ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of entries (0 for all)")
	return cmd
}

func newGetCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <entry-id>",
		Short: "Show one acquisition entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var e domain.AcquisitionEntry
			if err := ctx.client(cmd).get("/api/v1/acquisitions/"+url.PathEscape(args[0]), nil, &e); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:       %s\n", e.ID)
			fmt.Fprintf(out, "Session:  %s\n", e.SessionID)
			if e.BatchID != "" {
				fmt.Fprintf(out, "Batch:    %s\n", e.BatchID)
			}
			fmt.Fprintf(out, "Kind:     %s\n", e.Kind)
			fmt.Fprintf(out, "Item:     %s\n", describeEntry(&e))
			fmt.Fprintf(out, "Peer:     %s\n", e.Username)
			fmt.Fprintf(out, "State:    %s\n", e.State)
			if e.Error != "" {
				fmt.Fprintf(out, "Error:    %s\n", e.Error)
			}
			fmt.Fprintf(out, "Created:  %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			if e.CompletedAt != nil {
				fmt.Fprintf(out, "Finished: %s\n", e.CompletedAt.Local().Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintf(out, "Files:    %d\n", len(e.Files))
			for _, f := range e.Files {
				fmt.Fprintf(out, "  %s (%s)\n", f.Filename, formatMB(f.Size))
			}
			return nil
		},
	}
}

func newStatsCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show acquisition statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats domain.EntryStats
			if err := ctx.client(cmd).get("/api/v1/acquisitions/stats", nil, &stats); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:    %d\n", stats.Total)
			fmt.Fprintf(out, "Active:   %d\n", stats.Active)
			fmt.Fprintf(out, "Imported: %d\n", stats.Imported)
			fmt.Fprintf(out, "Failed:   %d\n", stats.Failed)

			if len(stats.ByState) > 0 {
				states := make([]string, 0, len(stats.ByState))
				for s := range stats.ByState {
					states = append(states, string(s))
				}
				sort.Strings(states)
				rows := make([][]string, 0, len(states))
				for _, s := range states {
					rows = append(rows, []string{s, strconv.FormatInt(stats.ByState[domain.EntryState(s)], 10)})
				}
				fmt.Fprintln(out, renderTable([]string{"State", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			}
			return nil
		},
	}
}

func newBatchesCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "batches",
		Short: "List in-flight batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			var batches []app.BatchInfo
			if err := ctx.client(cmd).get("/api/v1/batches", nil, &batches); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(batches) == 0 {
				fmt.Fprintln(out, "No batches in flight")
				return nil
			}

			rows := make([][]string, 0, len(batches))
			for _, b := range batches {
				rows = append(rows, []string{
					b.ID,
					shortID(b.SessionID),
					string(b.Phase),
					strconv.Itoa(len(b.EntryIDs)),
					b.SubmittedAt.Local().Format("15:04:05"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Batch", "Session", "Phase", "Entries", "Submitted"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newCancelCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <batch-id>",
		Short: "Cancel an in-flight batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/batches/" + url.PathEscape(args[0]) + "/cancel"
			if err := ctx.client(cmd).post(path, nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Batch %s cancelled\n", args[0])
			return nil
		},
	}
}

func describeEntry(e *domain.AcquisitionEntry) string {
	switch {
	case e.Kind == domain.KindAlbum && e.Album != "":
		if e.Artist != "" {
			return e.Artist + " - " + e.Album
		}
		return e.Album
	case e.Title != "":
		if e.Artist != "" {
			return e.Artist + " - " + e.Title
		}
		return e.Title
	case len(e.Files) > 0:
		return e.Files[0].Filename
	}
	return e.ID
}

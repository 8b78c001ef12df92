package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/yourusername/cratedig-go/api/handlers"
	"github.com/yourusername/cratedig-go/internal/domain"
)

func newAcquireCommand(ctx *cliContext) *cobra.Command {
	var file string
	var watch bool

	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Download and import the tracks and albums of an acquire request",
		Long: `Submit an acquire request written by "cratedig search ... --out FILE".
The command returns once every batch was handed to slskd.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			req, err := readRequest(file)
			if err != nil {
				return err
			}
			if len(req.Tracks) == 0 && len(req.Albums) == 0 {
				return fmt.Errorf("%s contains nothing to acquire", file)
			}

			client := ctx.client(cmd)
			out := cmd.OutOrStdout()

			// Subscribe before submitting so no early transition is missed
			var conn *websocket.Conn
			if watch {
				conn, _, err = websocket.DefaultDialer.Dial(client.wsURL("/api/v1/progress/ws", nil), nil)
				if err != nil {
					return fmt.Errorf("connect to progress stream: %w", err)
				}
				defer conn.Close()
			}

			fmt.Fprintf(out, "Submitting %d tracks and %d albums...\n", len(req.Tracks), len(req.Albums))
			var resp handlers.AcquireResponse
			if err := client.post("/api/v1/acquisitions", req, &resp); err != nil {
				return err
			}
			printAcquireResponse(out, resp)

			if conn == nil || len(resp.Batches) == 0 {
				return nil
			}

			pending := make(map[string]bool)
			for _, b := range resp.Batches {
				for _, id := range b.EntryIDs {
					pending[id] = true
				}
			}
			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return streamProgress(sigCtx, conn, out, func(s domain.ProgressSnapshot) (bool, bool) {
				if s.SessionID != resp.SessionID {
					return false, false
				}
				if s.State.IsTerminal() {
					delete(pending, s.EntryID)
				}
				return true, len(pending) == 0
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Acquire request JSON file")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow progress until every entry settles")
	return cmd
}

func printAcquireResponse(out io.Writer, resp handlers.AcquireResponse) {
	fmt.Fprintf(out, "Session: %s\n", resp.SessionID)
	if len(resp.Batches) > 0 {
		rows := make([][]string, 0, len(resp.Batches))
		for _, b := range resp.Batches {
			rows = append(rows, []string{b.ID, fmt.Sprintf("%d", len(b.EntryIDs))})
		}
		fmt.Fprintln(out, renderTable([]string{"Batch", "Entries"}, rows, []columnAlignment{alignLeft, alignRight}))
	}
	if len(resp.Errored) > 0 {
		fmt.Fprintf(out, "%d entries could not be submitted:\n", len(resp.Errored))
		for _, e := range resp.Errored {
			fmt.Fprintf(out, "  %s  %s: %s\n", shortID(e.ID), e.Username, e.Error)
		}
	}
}

func newWatchCommand(ctx *cliContext) *cobra.Command {
	var sessionID, batchID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live state changes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if sessionID != "" {
				query.Set("session_id", sessionID)
			}
			if batchID != "" {
				query.Set("batch_id", batchID)
			}

			client := ctx.client(cmd)
			conn, _, err := websocket.DefaultDialer.Dial(client.wsURL("/api/v1/progress/ws", query), nil)
			if err != nil {
				return fmt.Errorf("connect to progress stream: %w", err)
			}
			defer conn.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Watching progress (Ctrl+C to stop)...")
			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return streamProgress(sigCtx, conn, cmd.OutOrStdout(), func(domain.ProgressSnapshot) (bool, bool) { return true, false })
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Only show this session")
	cmd.Flags().StringVar(&batchID, "batch", "", "Only show this batch")
	return cmd
}

// streamProgress prints the snapshots accept shows until it reports done. It also
// returns when ctx ends or the server closes the stream.
func streamProgress(ctx context.Context, conn *websocket.Conn, out io.Writer, accept func(domain.ProgressSnapshot) (show, done bool)) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var snap domain.ProgressSnapshot
		if err := conn.ReadJSON(&snap); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("progress stream: %w", err)
		}
		show, done := accept(snap)
		if show {
			fmt.Fprintln(out, formatSnapshot(snap))
		}
		if done {
			return nil
		}
	}
}

func formatSnapshot(s domain.ProgressSnapshot) string {
	line := fmt.Sprintf("%s  %s  %-14s", s.Timestamp.Local().Format("15:04:05"), shortID(s.EntryID), s.State)
	if s.Error != "" {
		line += "  " + s.Error
	}
	return line
}

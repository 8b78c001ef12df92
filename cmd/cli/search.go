package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/cratedig-go/api/handlers"
	"github.com/yourusername/cratedig-go/internal/app"
	"github.com/yourusername/cratedig-go/internal/domain"
)

type searchOptions struct {
	artist string
	title  string
	album  string
	tracks []string
	top    int
	out    string
}

func newSearchCommand(ctx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search peers for tracks or albums",
	}
	cmd.AddCommand(newSearchTracksCommand(ctx))
	cmd.AddCommand(newSearchAlbumsCommand(ctx))
	return cmd
}

func newSearchTracksCommand(ctx *cliContext) *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "tracks [query]",
		Short: "Search for single tracks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := opts.query(args)
			var resp struct {
				Count  int                  `json:"count"`
				Tracks []domain.ScoredTrack `json:"tracks"`
			}
			if err := ctx.client(cmd).post("/api/v1/search/tracks", q, &resp); err != nil {
				return err
			}

			tracks := resp.Tracks
			if opts.top > 0 && len(tracks) > opts.top {
				tracks = tracks[:opts.top]
			}

			out := cmd.OutOrStdout()
			if len(tracks) == 0 {
				fmt.Fprintln(out, "No matching tracks")
				return nil
			}
			fmt.Fprintln(out, renderTracks(tracks))
			fmt.Fprintf(out, "%d of %d results\n", len(tracks), resp.Count)

			if opts.out != "" {
				if err := writeRequest(opts.out, handlers.AcquireRequest{Tracks: tracks}); err != nil {
					return err
				}
				fmt.Fprintf(out, "Acquire request written to %s\n", opts.out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.artist, "artist", "", "Wanted artist")
	cmd.Flags().StringVar(&opts.title, "title", "", "Wanted track title")
	cmd.Flags().IntVar(&opts.top, "top", 20, "Show at most N results (0 for all)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the shown results as an acquire request to this file")
	return cmd
}

func newSearchAlbumsCommand(ctx *cliContext) *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "albums [query]",
		Short: "Search for complete album folders",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := opts.query(args)
			var resp struct {
				Count  int                  `json:"count"`
				Albums []domain.ScoredAlbum `json:"albums"`
			}
			if err := ctx.client(cmd).post("/api/v1/search/albums", q, &resp); err != nil {
				return err
			}

			albums := resp.Albums
			if opts.top > 0 && len(albums) > opts.top {
				albums = albums[:opts.top]
			}

			out := cmd.OutOrStdout()
			if len(albums) == 0 {
				fmt.Fprintln(out, "No matching albums")
				return nil
			}
			fmt.Fprintln(out, renderAlbums(albums))
			fmt.Fprintf(out, "%d of %d results\n", len(albums), resp.Count)

			if opts.out != "" {
				if err := writeRequest(opts.out, handlers.AcquireRequest{Albums: albums}); err != nil {
					return err
				}
				fmt.Fprintf(out, "Acquire request written to %s\n", opts.out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.artist, "artist", "", "Wanted artist")
	cmd.Flags().StringVar(&opts.album, "album", "", "Wanted album title")
	cmd.Flags().StringArrayVar(&opts.tracks, "track", nil, "Track title to search individually (repeatable)")
	cmd.Flags().IntVar(&opts.top, "top", 10, "Show at most N results (0 for all)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the shown results as an acquire request to this file")
	return cmd
}

func (o *searchOptions) query(args []string) app.SearchQuery {
	q := app.SearchQuery{
		Artist: o.artist,
		Title:  o.title,
		Album:  o.album,
		Tracks: o.tracks,
	}
	if len(args) > 0 {
		q.Query = strings.TrimSpace(args[0])
	}
	return q
}

func renderTracks(tracks []domain.ScoredTrack) string {
	rows := make([][]string, 0, len(tracks))
	for i, t := range tracks {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			formatScore(t.Score),
			truncate(t.Artist, 24),
			truncate(t.Title, 40),
			t.Quality,
			formatMB(t.Size),
			t.Username,
		})
	}
	return renderTable(
		[]string{"#", "Score", "Artist", "Title", "Quality", "Size", "Peer"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func renderAlbums(albums []domain.ScoredAlbum) string {
	rows := make([][]string, 0, len(albums))
	for i, a := range albums {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			formatScore(a.Score),
			truncate(a.Artist, 24),
			truncate(a.Title, 40),
			fmt.Sprintf("%d", a.TrackCount),
			a.DominantQuality,
			formatMB(a.TotalSize),
			a.Username,
		})
	}
	return renderTable(
		[]string{"#", "Score", "Artist", "Album", "Tracks", "Quality", "Size", "Peer"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	)
}

func writeRequest(path string, req handlers.AcquireRequest) error {
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readRequest(path string) (handlers.AcquireRequest, error) {
	var req handlers.AcquireRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parse %s: %w", path, err)
	}
	return req, nil
}

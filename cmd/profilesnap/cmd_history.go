package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/HatiCode/profilesnap/pkg/client"
	"github.com/HatiCode/profilesnap/pkg/history"
)

var historyFlags struct {
	limit    int
	server   string
	markdown bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent fetch outcomes from the history database",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.IntVar(&historyFlags.limit, "limit", 20, "Number of entries to show")
	f.StringVar(&historyFlags.server, "server", "", "Watch server base URL instead of --history-db")
	f.BoolVar(&historyFlags.markdown, "markdown", false, "Render as a Markdown table")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	var entries []history.Entry
	if historyFlags.server != "" {
		e, err := client.NewSnapshotClient(historyFlags.server).History(cmd.Context(), historyFlags.limit)
		if err != nil {
			return err
		}
		entries = e
	} else {
		h, err := openHistory(cfg)
		if err != nil {
			return err
		}
		if h == nil {
			return errors.New("--history-db is not set")
		}
		defer h.Close()

		entries, err = h.Recent(cmd.Context(), historyFlags.limit)
		if err != nil {
			return err
		}
	}

	t := newTable(cmd.OutOrStdout(), "Fetched", "Run", "Source", "Category", "Outcome", "Version", "Duration", "Error")
	for _, e := range entries {
		version := "-"
		if e.Version > 0 {
			version = strconv.Itoa(e.Version)
		}
		t.AppendRow(table.Row{
			e.FetchedAt.Local().Format(time.DateTime),
			shortID(e.RunID),
			e.Source,
			e.Category,
			e.Outcome,
			version,
			(time.Duration(e.DurationMs) * time.Millisecond).String(),
			truncate(e.ErrorMessage, 60),
		})
	}
	render(t, historyFlags.markdown)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/HatiCode/profilesnap/pkg/storage"
)

var listFlags struct {
	markdown bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every snapshot category with its count and latest version",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listFlags.markdown, "markdown", false, "Render as a Markdown table")
}

func runList(cmd *cobra.Command, _ []string) error {
	stores := fileStores(cfg)

	t := newTable(cmd.OutOrStdout(), "Source", "Category", "Directory", "Snapshots", "Latest")
	for _, name := range sourceNames() {
		var prefixes []string
		for _, c := range sourceCategories[name] {
			prefixes = append(prefixes, c.Prefix)
		}
		summaries, err := stores[name].Summarize(prefixes...)
		if err != nil {
			return err
		}
		for _, s := range summaries {
			latest := "-"
			if s.Count > 0 {
				latest = storage.FileName(s.Category, s.Latest)
			}
			t.AppendRow(table.Row{s.Source, s.Category, s.Dir, s.Count, latest})
		}
	}
	render(t, listFlags.markdown)
	return nil
}

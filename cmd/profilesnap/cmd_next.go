package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HatiCode/profilesnap/pkg/storage"
)

var nextFlags struct {
	dir    string
	prefix string
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Print the path the next snapshot of a prefix would be written to",
	Args:  cobra.NoArgs,
	RunE:  runNext,
}

func init() {
	f := nextCmd.Flags()
	f.StringVar(&nextFlags.dir, "dir", "", "Snapshot directory (required)")
	f.StringVar(&nextFlags.prefix, "prefix", "", "Snapshot prefix, e.g. codeforces_info (required)")

	_ = nextCmd.MarkFlagRequired("dir")
	_ = nextCmd.MarkFlagRequired("prefix")
}

func runNext(cmd *cobra.Command, _ []string) error {
	path, _, err := storage.NextVersionedPath(nextFlags.dir, nextFlags.prefix)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

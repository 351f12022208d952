package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HatiCode/profilesnap/pkg/client"
	"github.com/HatiCode/profilesnap/pkg/storage"
)

var latestFlags struct {
	category string
	server   string
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the newest snapshot of a category",
	Long: "latest prints the stored payload of the newest snapshot of a category,\n" +
		"read from the local snapshot directory or, with --server, from a\n" +
		"running watch server.",
	Args: cobra.NoArgs,
	RunE: runLatest,
}

func init() {
	f := latestCmd.Flags()
	f.StringVar(&latestFlags.category, "category", "", "Snapshot category, e.g. leetcode_info (required)")
	f.StringVar(&latestFlags.server, "server", "", "Watch server base URL, e.g. http://localhost:8080")

	_ = latestCmd.MarkFlagRequired("category")
}

func runLatest(cmd *cobra.Command, _ []string) error {
	source, err := sourceOf(latestFlags.category)
	if err != nil {
		return err
	}

	var snap storage.Snapshot
	if latestFlags.server != "" {
		res, err := client.NewSnapshotClient(latestFlags.server).GetLatest(cmd.Context(), source, latestFlags.category)
		if errors.Is(err, client.ErrNotFound) {
			return fmt.Errorf("no snapshot for %s yet", latestFlags.category)
		}
		if err != nil {
			return err
		}
		if res.Stale {
			log.Warn("snapshot is stale", "category", latestFlags.category, "written_at", res.Snapshot.WrittenAt)
		}
		snap = res.Snapshot
	} else {
		s, found, err := fileStores(cfg)[source].GetLatest(latestFlags.category)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no snapshot for %s yet", latestFlags.category)
		}
		snap = s
	}

	log.Info("latest snapshot", "category", snap.Category, "version", snap.Version, "path", snap.Path)
	data, err := storage.Encode(snap.Payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", snap.Path, err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

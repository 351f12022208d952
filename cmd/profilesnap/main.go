// Package main implements profilesnap.
//
// profilesnap fetches a user's Codeforces and LeetCode profile data, stores
// every response as a numbered JSON snapshot (<category>_<N>.json) and
// commits and pushes the new files so that the repository accumulates a
// history of the profile over time.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/HatiCode/profilesnap/cmd/profilesnap/config"
	"github.com/HatiCode/profilesnap/cmd/profilesnap/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "profilesnap",
	Short: "Snapshot Codeforces and LeetCode profiles into a git repository",
	Long: "profilesnap fetches Codeforces and LeetCode profile data, writes each\n" +
		"response as a versioned JSON snapshot and commits and pushes it.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	cfg = config.Bind(rootCmd.PersistentFlags())

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.Version = version
}

// setup layers the config file under flags and environment, validates the
// result and installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	if cfg.ConfigFile != "" {
		if err := config.ApplyFile(cmd.Flags(), cfg.ConfigFile); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log = logger.New(cfg)
	slog.SetDefault(log)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/HatiCode/profilesnap/cmd/profilesnap/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch every configured profile once, then commit and push",
	Long: "run performs a single update: Codeforces info and submissions, then\n" +
		"LeetCode profile and recent submissions, each written as the next\n" +
		"snapshot version and committed, followed by a final commit and push.\n" +
		"Failed fetches are logged and skipped; the command still exits 0.",
	Args: cobra.NoArgs,
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, _ []string) error {
	if err := cfg.RequireSource(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	a, err := newApp(ctx, cfg, m, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.updater.Tick(ctx); err != nil {
		return err
	}

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(ctx, cfg.PushgatewayURL, "profilesnap", reg); err != nil {
			log.Warn("failed to push metrics", "error", err)
		}
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/HatiCode/profilesnap/cmd/profilesnap/config"
	"github.com/HatiCode/profilesnap/cmd/profilesnap/metrics"
	"github.com/HatiCode/profilesnap/cmd/profilesnap/runlock"
	"github.com/HatiCode/profilesnap/pkg/adapters"
	"github.com/HatiCode/profilesnap/pkg/history"
	"github.com/HatiCode/profilesnap/pkg/publish"
	"github.com/HatiCode/profilesnap/pkg/storage"
)

const (
	sourceCodeforces = "codeforces"
	sourceLeetCode   = "leetcode"
)

// sourceCategories lists every category each source produces, in fetch order.
var sourceCategories = map[string][]adapters.Category{
	sourceCodeforces: {adapters.CodeforcesInfo, adapters.CodeforcesSubmissions},
	sourceLeetCode:   {adapters.LeetCodeInfo, adapters.LeetCodeRecentSubmissions},
}

// sourceNames returns the known sources in fetch order.
func sourceNames() []string {
	return []string{sourceCodeforces, sourceLeetCode}
}

// categoryNames returns the category prefixes of every source.
func categoryNames() map[string][]string {
	out := make(map[string][]string, len(sourceCategories))
	for name, cats := range sourceCategories {
		for _, c := range cats {
			out[name] = append(out[name], c.Prefix)
		}
	}
	return out
}

// sourceOf returns the source that produces category.
func sourceOf(category string) (string, error) {
	for _, name := range sourceNames() {
		for _, c := range sourceCategories[name] {
			if c.Prefix == category {
				return name, nil
			}
		}
	}
	var known []string
	for _, cats := range sourceCategories {
		for _, c := range cats {
			known = append(known, c.Prefix)
		}
	}
	sort.Strings(known)
	return "", fmt.Errorf("unknown category %q (known: %s)", category, strings.Join(known, ", "))
}

// snapshotDir resolves a relative snapshot directory against the repository.
func snapshotDir(cfg *config.Config, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(cfg.RepoDir, dir)
}

// fileStores returns a store for every known source, configured or not.
func fileStores(cfg *config.Config) map[string]*storage.FileStore {
	return map[string]*storage.FileStore{
		sourceCodeforces: storage.NewFileStore(sourceCodeforces, snapshotDir(cfg, cfg.CodeforcesDir)),
		sourceLeetCode:   storage.NewFileStore(sourceLeetCode, snapshotDir(cfg, cfg.LeetCodeDir)),
	}
}

// buildSources returns the configured sources, Codeforces first.
func buildSources(cfg *config.Config, stores map[string]*storage.FileStore) []Source {
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	var sources []Source
	if cfg.CodeforcesHandle != "" {
		sources = append(sources, Source{
			Adapter: adapters.NewCodeforcesAdapter(cfg.CodeforcesURL, cfg.CodeforcesHandle, client, cfg.RequestInterval),
			Store:   stores[sourceCodeforces],
		})
	}
	if cfg.LeetCodeUsername != "" {
		sources = append(sources, Source{
			Adapter: adapters.NewLeetCodeAdapter(cfg.LeetCodeURL, cfg.LeetCodeUsername, cfg.LeetCodeRecentLimit, client, cfg.RequestInterval),
			Store:   stores[sourceLeetCode],
		})
	}
	return sources
}

// openHistory returns nil when the fetch history is disabled.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if cfg.HistoryDB == "" {
		return nil, nil
	}
	h, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// app is everything a run needs, built from the configuration.
type app struct {
	updater *Updater
	history *history.Store
	stores  map[string]*storage.FileStore
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*app, error) {
	a := &app{stores: fileStores(cfg)}

	locker, closeLock, err := runlock.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeLock)

	opts := Options{
		Locker:      locker,
		Metrics:     m,
		CommitEach:  cfg.CommitEach,
		SourceDelay: cfg.SourceDelay,
		Logger:      logger,
	}

	if !cfg.NoGit {
		repo, err := publish.Open(ctx, cfg.RepoDir, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open git repository %s: %w", cfg.RepoDir, err)
		}
		p, err := publish.NewPublisher(ctx, repo, publish.Options{
			Remote:    cfg.Remote,
			UserName:  cfg.GitUserName,
			UserEmail: cfg.GitUserEmail,
			NoPush:    cfg.NoPush,
		}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts.Publisher = p
	}

	h, err := openHistory(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if h != nil {
		a.history = h
		a.closers = append(a.closers, h.Close)
		opts.Recorder = h
	}

	a.updater = NewUpdater(buildSources(cfg, a.stores), opts)
	return a, nil
}

// Close releases the lock backend and the history database.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Package router configures HTTP routes for the watch-mode server.
//
// Routes configured:
//   - GET /healthz - 200 while the last run published cleanly, 503 otherwise
//   - GET /metrics - Prometheus metrics endpoint
//   - GET /snapshots/{source}/{category}/latest - newest snapshot of a category
//   - GET /history?limit=<n> - recent fetch outcomes, newest first
//
// Snapshots older than the stale threshold carry an X-Profilesnap-Stale
// header.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/profilesnap/pkg/client"
	"github.com/HatiCode/profilesnap/pkg/history"
	"github.com/HatiCode/profilesnap/pkg/httpx"
	"github.com/HatiCode/profilesnap/pkg/storage"
)

// HistoryReader returns recent fetch outcomes.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Deps are the handlers' collaborators. History and Health may be nil.
//
// Stores maps a source name to its snapshot store and Categories lists the
// categories each source serves. A category not listed is not found, even
// when files sharing its prefix exist.
type Deps struct {
	Stores     map[string]storage.Store
	Categories map[string][]string
	History    HistoryReader
	Gatherer   prometheus.Gatherer
	StaleAfter time.Duration
	Health     func() error
	Logger     *slog.Logger
}

// SetupRoutes configures HTTP endpoints for watch mode.
func SetupRoutes(d Deps) *chi.Mux {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(httpx.LoggingMiddleware(d.Logger))

	r.Method(http.MethodGet, "/healthz", httpx.HealthHandlerWithCheck(d.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/snapshots/{source}/{category}/latest", handleGetLatest(d))
	r.Get("/history", handleHistory(d))

	return r
}

func handleGetLatest(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source := chi.URLParam(r, "source")
		category := chi.URLParam(r, "category")

		store, ok := d.Stores[source]
		if !ok {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("unknown source %q", source))
			return
		}
		if !slices.Contains(d.Categories[source], category) {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("unknown category %q for %s", category, source))
			return
		}

		snap, found, err := store.GetLatest(category)
		if err != nil {
			d.Logger.Error("failed to get snapshot", "source", source, "category", category, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !found {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("no snapshot for %s/%s", source, category))
			return
		}

		if d.StaleAfter > 0 && time.Since(snap.WrittenAt) > d.StaleAfter {
			w.Header().Set(client.StaleHeader, "true")
		}

		httpx.WriteJSON(w, http.StatusOK, client.SnapshotResponse{
			Source:    snap.Source,
			Category:  snap.Category,
			Version:   snap.Version,
			Path:      snap.Path,
			WrittenAt: snap.WrittenAt,
			Payload:   snap.Payload,
		})
	}
}

func handleHistory(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.History == nil {
			httpx.WriteErrorMessage(w, http.StatusNotFound, "fetch history is disabled")
			return
		}

		limit := 0
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				httpx.WriteErrorMessage(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		entries, err := d.History.Recent(r.Context(), limit)
		if err != nil {
			d.Logger.Error("failed to read history", "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if entries == nil {
			entries = []history.Entry{}
		}
		httpx.WriteJSON(w, http.StatusOK, entries)
	}
}

// Package client provides an HTTP client for a profilesnap watch server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/HatiCode/profilesnap/pkg/history"
	"github.com/HatiCode/profilesnap/pkg/storage"
)

// StaleHeader is set by the server when the latest snapshot is older than
// its freshness threshold.
const StaleHeader = "X-Profilesnap-Stale"

// ErrNotFound is returned when the server has no snapshot for a category.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotResponse is the JSON body of
// GET /snapshots/{source}/{category}/latest.
type SnapshotResponse struct {
	Source    string          `json:"source"`
	Category  string          `json:"category"`
	Version   int             `json:"version"`
	Path      string          `json:"path"`
	WrittenAt time.Time       `json:"writtenAt"`
	Payload   json.RawMessage `json:"payload"`
}

// SnapshotResult contains the snapshot and whether the server marked it stale.
type SnapshotResult struct {
	Snapshot storage.Snapshot
	Stale    bool
}

// SnapshotClient talks to a watch server. It is safe for concurrent use.
type SnapshotClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSnapshotClient uses a 5 second request timeout.
func NewSnapshotClient(baseURL string) *SnapshotClient {
	return NewSnapshotClientWithTimeout(baseURL, 5*time.Second)
}

func NewSnapshotClientWithTimeout(baseURL string, timeout time.Duration) *SnapshotClient {
	return &SnapshotClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetLatest fetches the newest snapshot of category from source.
func (c *SnapshotClient) GetLatest(ctx context.Context, source, category string) (*SnapshotResult, error) {
	if source == "" || category == "" {
		return nil, fmt.Errorf("source and category are required")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u = u.JoinPath("snapshots", source, category, "latest")

	var resp SnapshotResponse
	header, err := c.get(ctx, u.String(), &resp)
	if err != nil {
		return nil, err
	}

	return &SnapshotResult{
		Snapshot: storage.Snapshot{
			Source:    resp.Source,
			Category:  resp.Category,
			Version:   resp.Version,
			Path:      resp.Path,
			WrittenAt: resp.WrittenAt,
			Payload:   resp.Payload,
		},
		Stale: header.Get(StaleHeader) == "true",
	}, nil
}

// History fetches up to limit recent fetch-log entries.
func (c *SnapshotClient) History(ctx context.Context, limit int) ([]history.Entry, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u = u.JoinPath("history")
	if limit > 0 {
		u.RawQuery = url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	var entries []history.Entry
	if _, err := c.get(ctx, u.String(), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *SnapshotClient) get(ctx context.Context, u string, v any) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.Header, nil
}

// IsStale reports whether s is older than staleAfter.
func IsStale(s storage.Snapshot, staleAfter time.Duration) bool {
	return time.Since(s.WrittenAt) > staleAfter
}

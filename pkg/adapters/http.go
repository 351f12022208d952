// Package adapters provides the upstream profile sources that produce raw
// snapshot payloads.
//
// Each adapter implements the Adapter interface:
//   - CodeforcesAdapter: user.info and user.status from the Codeforces API
//   - LeetCodeAdapter: profile and recent accepted submissions via GraphQL
//
// Adapters only fetch and check responses for error markers. They return the
// response body untouched so that snapshots hold exactly what upstream sent.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const maxBodyBytes = 64 << 20

// DefaultTimeout applies when an adapter is built without an HTTP client.
const DefaultTimeout = 30 * time.Second

// requester performs the HTTP side shared by all adapters: pacing, status
// handling and body decoding.
type requester struct {
	source  string
	client  *http.Client
	limiter *rate.Limiter
}

func newRequester(source string, client *http.Client, interval time.Duration) requester {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return requester{source: source, client: client, limiter: rate.NewLimiter(limit, 1)}
}

// do sends req and returns the body as raw JSON plus its decoded top level.
func (r requester) do(ctx context.Context, category string, req *http.Request) (json.RawMessage, map[string]json.RawMessage, error) {
	fail := func(kind Kind, code int, err error) (json.RawMessage, map[string]json.RawMessage, error) {
		return nil, nil, &FetchError{Source: r.source, Category: category, Kind: kind, StatusCode: code, Err: err}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return fail(KindTransport, 0, err)
	}

	resp, err := r.client.Do(req.WithContext(ctx))
	if err != nil {
		return fail(KindTransport, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fail(KindTransport, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(KindStatus, resp.StatusCode, fmt.Errorf("unexpected status: %s", snippet(body)))
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return fail(KindDecode, resp.StatusCode, err)
	}
	return json.RawMessage(body), top, nil
}

func snippet(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) > 200 {
		return string(body[:200]) + "..."
	}
	return string(body)
}

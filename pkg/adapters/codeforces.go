package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultCodeforcesURL is the public Codeforces API host.
const DefaultCodeforcesURL = "https://codeforces.com"

var (
	CodeforcesInfo        = Category{Prefix: "codeforces_info", Label: "Codeforces info"}
	CodeforcesSubmissions = Category{Prefix: "codeforces_submissions", Label: "Codeforces submissions"}
)

// CodeforcesAdapter fetches a user's profile (user.info) and full submission
// history (user.status) from the Codeforces API.
//
// A response is rejected unless its top-level "status" is "OK"; Codeforces
// reports failures as {"status":"FAILED","comment":"..."}.
type CodeforcesAdapter struct {
	// BaseURL defaults to DefaultCodeforcesURL.
	BaseURL string
	Handle  string

	req requester
}

// NewCodeforcesAdapter returns an adapter for handle. client may be nil.
// interval, when positive, is the minimum spacing between two requests.
func NewCodeforcesAdapter(baseURL, handle string, client *http.Client, interval time.Duration) *CodeforcesAdapter {
	if baseURL == "" {
		baseURL = DefaultCodeforcesURL
	}
	return &CodeforcesAdapter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Handle:  handle,
		req:     newRequester("codeforces", client, interval),
	}
}

func (c *CodeforcesAdapter) Name() string { return "codeforces" }

func (c *CodeforcesAdapter) Categories() []Category {
	return []Category{CodeforcesInfo, CodeforcesSubmissions}
}

// Fetch implements Adapter.
func (c *CodeforcesAdapter) Fetch(ctx context.Context, cat Category) Result {
	start := time.Now()
	var res Result
	switch cat {
	case CodeforcesInfo:
		res = c.call(ctx, cat, "user.info", url.Values{"handles": {c.Handle}})
	case CodeforcesSubmissions:
		res = c.call(ctx, cat, "user.status", url.Values{"handle": {c.Handle}})
	default:
		res = unknownCategory(c.Name(), cat)
	}
	res.Duration = time.Since(start)
	return res
}

func (c *CodeforcesAdapter) call(ctx context.Context, cat Category, method string, q url.Values) Result {
	res := Result{Category: cat}
	if c.Handle == "" {
		res.Err = &FetchError{Source: c.Name(), Category: cat.Prefix, Kind: KindUpstream, Err: errors.New("handle is required")}
		return res
	}

	u := c.BaseURL + "/api/" + method + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		res.Err = &FetchError{Source: c.Name(), Category: cat.Prefix, Kind: KindTransport, Err: err}
		return res
	}
	req.Header.Set("Accept", "application/json")

	body, top, err := c.req.do(ctx, cat.Prefix, req)
	if err != nil {
		res.Err = err
		return res
	}

	var status, comment string
	_ = json.Unmarshal(top["status"], &status)
	if status != "OK" {
		_ = json.Unmarshal(top["comment"], &comment)
		if comment == "" {
			comment = fmt.Sprintf("status %q", status)
		}
		res.Err = &FetchError{Source: c.Name(), Category: cat.Prefix, Kind: KindUpstream, Err: errors.New(comment)}
		return res
	}

	res.Payload = body
	return res
}

package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultLeetCodeURL is the public LeetCode host; queries go to /graphql.
const DefaultLeetCodeURL = "https://leetcode.com"

// DefaultRecentLimit is the number of recent accepted submissions requested.
const DefaultRecentLimit = 20

var (
	LeetCodeInfo              = Category{Prefix: "leetcode_info", Label: "LeetCode info"}
	LeetCodeRecentSubmissions = Category{Prefix: "leetcode_recent_submissions", Label: "LeetCode submissions"}
)

const profileQuery = `query userProfile($username: String!) {
  matchedUser(username: $username) {
    username
    submitStats: submitStatsGlobal {
      acSubmissionNum {
        difficulty
        count
        submissions
      }
    }
    profile {
      ranking
      userAvatar
      realName
      aboutMe
      school
      websites
      countryName
      company
      jobTitle
      skillTags
      postViewCount
      reputation
      solutionCount
      categoryDiscussCount
    }
  }
}`

const recentSubmissionsQuery = `query recentAcSubmissions($username: String!, $limit: Int!) {
  recentAcSubmissionList(username: $username, limit: $limit) {
    id
    title
    titleSlug
    timestamp
    statusDisplay
    lang
  }
}`

// LeetCodeAdapter fetches a user's public profile and recent accepted
// submissions through the LeetCode GraphQL endpoint.
//
// A response is rejected when it carries a top-level "errors" member or when
// the expected data field (matchedUser, recentAcSubmissionList) is missing,
// null or empty.
type LeetCodeAdapter struct {
	// BaseURL defaults to DefaultLeetCodeURL.
	BaseURL  string
	Username string
	// RecentLimit defaults to DefaultRecentLimit.
	RecentLimit int

	req requester
}

// NewLeetCodeAdapter returns an adapter for username. client may be nil.
func NewLeetCodeAdapter(baseURL, username string, recentLimit int, client *http.Client, interval time.Duration) *LeetCodeAdapter {
	if baseURL == "" {
		baseURL = DefaultLeetCodeURL
	}
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &LeetCodeAdapter{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Username:    username,
		RecentLimit: recentLimit,
		req:         newRequester("leetcode", client, interval),
	}
}

func (l *LeetCodeAdapter) Name() string { return "leetcode" }

func (l *LeetCodeAdapter) Categories() []Category {
	return []Category{LeetCodeInfo, LeetCodeRecentSubmissions}
}

// Fetch implements Adapter.
func (l *LeetCodeAdapter) Fetch(ctx context.Context, cat Category) Result {
	start := time.Now()
	var res Result
	switch cat {
	case LeetCodeInfo:
		res = l.query(ctx, cat, profileQuery, map[string]any{"username": l.Username}, "matchedUser")
	case LeetCodeRecentSubmissions:
		res = l.query(ctx, cat, recentSubmissionsQuery,
			map[string]any{"username": l.Username, "limit": l.RecentLimit}, "recentAcSubmissionList")
	default:
		res = unknownCategory(l.Name(), cat)
	}
	res.Duration = time.Since(start)
	return res
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func (l *LeetCodeAdapter) query(ctx context.Context, cat Category, q string, vars map[string]any, field string) Result {
	res := Result{Category: cat}
	upstream := func(msg string) Result {
		res.Err = &FetchError{Source: l.Name(), Category: cat.Prefix, Kind: KindUpstream, Err: errors.New(msg)}
		return res
	}
	if l.Username == "" {
		return upstream("username is required")
	}

	payload, err := json.Marshal(graphQLRequest{Query: q, Variables: vars})
	if err != nil {
		res.Err = &FetchError{Source: l.Name(), Category: cat.Prefix, Kind: KindTransport, Err: err}
		return res
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.BaseURL+"/graphql", bytes.NewReader(payload))
	if err != nil {
		res.Err = &FetchError{Source: l.Name(), Category: cat.Prefix, Kind: KindTransport, Err: err}
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	body, top, err := l.req.do(ctx, cat.Prefix, req)
	if err != nil {
		res.Err = err
		return res
	}

	if errs, ok := top["errors"]; ok {
		return upstream("graphql errors: " + snippet(errs))
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(top["data"], &data); err != nil || data == nil {
		return upstream("response has no data")
	}
	if isEmptyJSON(data[field]) {
		return upstream("no " + field + " in response")
	}

	res.Payload = body
	return res
}

// isEmptyJSON reports whether raw is absent, null, false, 0, "" or an empty
// array or object.
func isEmptyJSON(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", "0", `""`, "[]", "{}":
		return true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch x := v.(type) {
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

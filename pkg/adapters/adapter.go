package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Category identifies one snapshot series of a source.
type Category struct {
	// Prefix is the file prefix and version-counter key, e.g. "codeforces_info".
	Prefix string
	// Label is the human name used in commit messages, e.g. "Codeforces info".
	Label string
}

// Result is the outcome of fetching one category. Exactly one of Payload and
// Err is set.
type Result struct {
	Category Category
	Payload  json.RawMessage
	Err      error
	Duration time.Duration
}

// Adapter is the interface every upstream profile source implements.
//
// Fetch issues the request for a single category. It must respect context
// cancellation and never panic; any failure is reported in Result.Err.
type Adapter interface {
	Fetch(ctx context.Context, c Category) Result

	// Name returns a short identifier such as "codeforces".
	Name() string

	// Categories lists the series this adapter produces, in fetch order.
	Categories() []Category
}

// FetchAll fetches every category of a sequentially. A failed category never
// prevents the remaining ones from being fetched.
func FetchAll(ctx context.Context, a Adapter) []Result {
	cats := a.Categories()
	results := make([]Result, 0, len(cats))
	for _, c := range cats {
		results = append(results, a.Fetch(ctx, c))
	}
	return results
}

func unknownCategory(source string, c Category) Result {
	return Result{Category: c, Err: &FetchError{Source: source, Category: c.Prefix, Kind: KindUpstream, Err: errors.New("unknown category")}}
}

// Kind classifies why a fetch was skipped.
type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindDecode    Kind = "decode"
	KindUpstream  Kind = "upstream"
)

// FetchError reports a failed fetch of one category.
type FetchError struct {
	Source     string
	Category   string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %s (http %d): %v", e.Source, e.Category, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Source, e.Category, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is not a *FetchError.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

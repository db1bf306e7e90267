// Package testutil provides configurable test fakes for gateway interfaces.
package testutil

import (
	"context"
	"sync"

	gateway "github.com/eugener/newsgate/internal"
)

// DefaultArticles is the body FakeProvider returns when FetchFn is nil.
const DefaultArticles = `{"status":"ok","totalResults":1,"articles":[{"title":"fake"}]}`

// FakeProvider is a configurable gateway.NewsProvider that counts calls.
type FakeProvider struct {
	FetchFn func(ctx context.Context, q gateway.Query) ([]byte, error)

	mu      sync.Mutex
	calls   int
	queries []gateway.Query
}

var _ gateway.NewsProvider = (*FakeProvider)(nil)

// Name returns "fake".
func (f *FakeProvider) Name() string { return "fake" }

// Fetch records the query and delegates to FetchFn or returns DefaultArticles.
func (f *FakeProvider) Fetch(ctx context.Context, q gateway.Query) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	if f.FetchFn != nil {
		return f.FetchFn(ctx, q)
	}
	return []byte(DefaultArticles), nil
}

// Calls returns the number of Fetch invocations.
func (f *FakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastQuery returns the most recent query passed to Fetch, or nil.
func (f *FakeProvider) LastQuery() gateway.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return nil
	}
	return f.queries[len(f.queries)-1]
}

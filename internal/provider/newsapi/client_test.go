package newsapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	gateway "github.com/eugener/newsgate/internal"
	"github.com/eugener/newsgate/internal/provider"
)

const articlesBody = `{"status":"ok","totalResults":1,"articles":[{"title":"Go 1.26 released"}]}`

func TestFetchHeadlines(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/v2/top-headlines" {
			t.Errorf("path = %s, want /v2/top-headlines", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("X-Api-Key = %q, want test-key", got)
		}
		q := r.URL.Query()
		if q.Get("country") != "us" || q.Get("category") != "technology" {
			t.Errorf("query = %v", q)
		}
		if q.Has("q") {
			t.Error("absent q should not be forwarded")
		}
		if q.Get("pageSize") != "20" {
			t.Errorf("pageSize = %q, want 20", q.Get("pageSize"))
		}
		if q.Has("apiKey") {
			t.Error("credential should travel in the header, not the query")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, articlesBody)
	}))
	defer srv.Close()

	client := New("test-key", srv.URL+"/v2/", nil)
	body, err := client.Fetch(context.Background(), gateway.HeadlinesQuery{
		Country:  gateway.Set("us"),
		Category: gateway.Set("technology"),
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != articlesBody {
		t.Errorf("body = %s, want %s", body, articlesBody)
	}
}

func TestFetchSearchForwardsOnlyNonEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/everything" {
			t.Errorf("path = %s, want /everything", r.URL.Path)
		}
		q := r.URL.Query()
		want := map[string]string{
			"q":        "golang",
			"language": "en",
			"sortBy":   "publishedAt",
			"pageSize": "100",
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("%s = %q, want %q", k, q.Get(k), v)
			}
		}
		for _, k := range []string{"from", "to", "domains"} {
			if q.Has(k) {
				t.Errorf("%s should not be forwarded", k)
			}
		}
		fmt.Fprint(w, articlesBody)
	}))
	defer srv.Close()

	client := New("k", srv.URL, nil)
	_, err := client.Fetch(context.Background(), gateway.SearchQuery{
		Q:        gateway.Set("golang"),
		From:     gateway.Set(""), // explicitly empty: not forwarded
		Language: gateway.Set("en"),
		SortBy:   gateway.Set("publishedAt"),
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}

func TestFetchSourcesNoPageSize(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sources" {
			t.Errorf("path = %s, want /sources", r.URL.Path)
		}
		if r.URL.Query().Has("pageSize") {
			t.Error("sources should not send pageSize")
		}
		fmt.Fprint(w, `{"status":"ok","sources":[]}`)
	}))
	defer srv.Close()

	client := New("k", srv.URL, nil)
	if _, err := client.Fetch(context.Background(), gateway.SourcesQuery{}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}

func TestFetchHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"status":"error","code":"rateLimited","message":"You have made too many requests recently."}`)
	}))
	defer srv.Close()

	client := New("k", srv.URL, nil)
	_, err := client.Fetch(context.Background(), gateway.HeadlinesQuery{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, gateway.ErrUpstream) {
		t.Errorf("error should match ErrUpstream: %v", err)
	}
	var ae *provider.APIError
	if !errors.As(err, &ae) {
		t.Fatalf("error type = %T, want *provider.APIError", err)
	}
	if ae.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", ae.StatusCode)
	}
	if ae.Code != "rateLimited" {
		t.Errorf("code = %q, want rateLimited", ae.Code)
	}
	if ae.ClientMessage() != "You have made too many requests recently." {
		t.Errorf("message = %q", ae.ClientMessage())
	}
}

func TestFetchErrorEnvelopeWith200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"error","code":"unexpectedError","message":"Something broke."}`)
	}))
	defer srv.Close()

	client := New("k", srv.URL, nil)
	_, err := client.Fetch(context.Background(), gateway.SourcesQuery{})
	if got := provider.MessageOf(err); got != "Something broke." {
		t.Errorf("message = %q, want provider message", got)
	}
}

func TestFetchMalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"ok","articles":[`)
	}))
	defer srv.Close()

	client := New("k", srv.URL, nil)
	_, err := client.Fetch(context.Background(), gateway.HeadlinesQuery{})
	if !errors.Is(err, gateway.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
	if !errors.Is(err, errMalformedBody) {
		t.Errorf("error = %v, want malformed body cause", err)
	}
}

func TestFetchNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listening anymore

	client := New("k", url, nil)
	_, err := client.Fetch(context.Background(), gateway.HeadlinesQuery{})
	if !errors.Is(err, gateway.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
	if got := provider.MessageOf(err); got != "upstream request failed" {
		t.Errorf("message = %q, want generic", got)
	}
}

func TestFetchMissingKeySkipsNetwork(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, articlesBody)
	}))
	defer srv.Close()

	client := New("", srv.URL, nil)
	_, err := client.Fetch(context.Background(), gateway.HeadlinesQuery{})
	if !errors.Is(err, gateway.ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
	if !errors.Is(err, gateway.ErrUpstream) {
		t.Error("missing key should surface as an upstream error")
	}
	if calls.Load() != 0 {
		t.Errorf("upstream calls = %d, want 0", calls.Load())
	}
}

func TestEncodeParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		q    gateway.Query
		want string
	}{
		{name: "empty headlines", q: gateway.HeadlinesQuery{}, want: "pageSize=20"},
		{name: "empty sources", q: gateway.SourcesQuery{}, want: ""},
		{
			name: "sources all set",
			q: gateway.SourcesQuery{
				Category: gateway.Set("business"),
				Language: gateway.Set("en"),
				Country:  gateway.Set("us"),
			},
			want: "category=business&country=us&language=en",
		},
		{
			name: "escaping",
			q:    gateway.SearchQuery{Q: gateway.Set("bitcoin & ai")},
			want: "pageSize=100&q=bitcoin+%26+ai",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := encodeParams(tt.q); got != tt.want {
				t.Errorf("encodeParams = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	t.Parallel()
	if got := New("k", "", nil).Name(); got != "newsapi" {
		t.Errorf("Name() = %q", got)
	}
	if got := New("k", "", nil).baseURL; got != defaultBaseURL {
		t.Errorf("baseURL = %q, want default", got)
	}
}

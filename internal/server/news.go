package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	gateway "github.com/eugener/newsgate/internal"
	"github.com/eugener/newsgate/internal/provider"
)

// Client-facing labels for failed queries, one per endpoint.
const (
	labelHeadlines = "Failed to fetch news"
	labelSearch    = "Failed to search news"
	labelSources   = "Failed to fetch sources"
)

// param reads an optional query parameter. A name present with an empty value
// is explicitly empty, which is distinct from absent.
func param(v url.Values, name string) gateway.Param {
	if !v.Has(name) {
		return gateway.Param{}
	}
	return gateway.Set(v.Get(name))
}

func (s *server) handleHeadlines(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := gateway.HeadlinesQuery{
		Country:  param(v, "country"),
		Category: param(v, "category"),
		Q:        param(v, "q"),
	}
	s.respond(w, r, labelHeadlines, func(ctx context.Context) (*gateway.Response, error) {
		return s.deps.News.Headlines(ctx, q)
	})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := gateway.SearchQuery{
		Q:        param(v, "q"),
		From:     param(v, "from"),
		To:       param(v, "to"),
		Language: param(v, "language"),
		SortBy:   param(v, "sortBy"),
		Domains:  param(v, "domains"),
	}
	s.respond(w, r, labelSearch, func(ctx context.Context) (*gateway.Response, error) {
		return s.deps.News.Search(ctx, q)
	})
}

func (s *server) handleSources(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := gateway.SourcesQuery{
		Category: param(v, "category"),
		Language: param(v, "language"),
		Country:  param(v, "country"),
	}
	s.respond(w, r, labelSources, func(ctx context.Context) (*gateway.Response, error) {
		return s.deps.News.Sources(ctx, q)
	})
}

// respond runs a news query and writes the provider payload, or a 500 with
// the endpoint label and the provider's message.
func (s *server) respond(w http.ResponseWriter, r *http.Request, label string, query func(context.Context) (*gateway.Response, error)) {
	resp, err := query(r.Context())
	if err != nil {
		slog.LogAttrs(r.Context(), slog.LevelError, label,
			slog.String("error", err.Error()),
			slog.String("request_id", gateway.RequestIDFromContext(r.Context())),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   label,
			Message: provider.MessageOf(err),
		})
		return
	}
	writeRaw(w, http.StatusOK, resp.Body)
}

package server

import (
	"log/slog"
	"net/http"
	"time"

	gateway "github.com/eugener/newsgate/internal"
)

var banner = struct {
	Message   string   `json:"message"`
	Status    string   `json:"status"`
	Endpoints []string `json:"endpoints"`
}{
	Message: "News API Backend Running",
	Status:  "OK",
	Endpoints: []string{
		"GET /api/news/top-headlines",
		"GET /api/news/everything",
		"GET /api/news/sources",
		"POST /api/cache/clear",
	},
}

func (s *server) handleBanner(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, banner)
}

// --- Cache ---

func (s *server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.deps.News.ClearCache(r.Context())
	writeJSON(w, http.StatusOK, messageBody{Message: "Cache cleared successfully"})
}

// --- Usage ---

// parseSinceUntil validates optional since/until RFC3339 query params.
// Writes 400 and returns false on invalid format.
func parseSinceUntil(w http.ResponseWriter, r *http.Request) (since, until string, ok bool) {
	q := r.URL.Query()
	since, until = q.Get("since"), q.Get("until")
	if since != "" {
		if _, err := time.Parse(time.RFC3339, since); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid since format, use RFC3339"})
			return "", "", false
		}
	}
	if until != "" {
		if _, err := time.Parse(time.RFC3339, until); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid until format, use RFC3339"})
			return "", "", false
		}
	}
	return since, until, true
}

func parseEndpoint(raw string) (gateway.Endpoint, bool) {
	switch ep := gateway.Endpoint(raw); ep {
	case "", gateway.EndpointHeadlines, gateway.EndpointSearch, gateway.EndpointSources:
		return ep, true
	default:
		return "", false
	}
}

func (s *server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Usage == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "usage ledger is disabled"})
		return
	}
	since, until, ok := parseSinceUntil(w, r)
	if !ok {
		return
	}
	ep, ok := parseEndpoint(r.URL.Query().Get("endpoint"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown endpoint"})
		return
	}

	summary, err := s.deps.Usage.SummarizeUsage(r.Context(), gateway.UsageFilter{
		Endpoint: ep,
		Since:    since,
		Until:    until,
	})
	if err != nil {
		slog.LogAttrs(r.Context(), slog.LevelError, "usage summary failed",
			slog.String("error", err.Error()),
		)
		writeJSON(w, errorStatus(err), errorBody{Error: "failed to summarize usage"})
		return
	}
	if summary == nil {
		summary = []gateway.UsageSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": summary})
}

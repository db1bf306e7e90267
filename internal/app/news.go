// Package app implements the gateway's query services.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	gateway "github.com/eugener/newsgate/internal"
	"github.com/eugener/newsgate/internal/cache"
	"github.com/eugener/newsgate/internal/provider"
	"github.com/eugener/newsgate/internal/telemetry"
)

// UsageRecorder records gateway queries asynchronously.
type UsageRecorder interface {
	Record(gateway.UsageRecord)
}

// NewsDeps holds the collaborators of a NewsService.
type NewsDeps struct {
	Cache    cache.Cache
	Provider gateway.NewsProvider
	Metrics  *telemetry.Metrics // nil = no metrics
	Usage    UsageRecorder      // nil = no usage ledger
}

// NewsService answers headline, search, and source queries from the cache,
// falling through to the upstream provider on a miss. Identical concurrent
// misses are not coalesced: each calls upstream and the last write wins.
type NewsService struct {
	cache    cache.Cache
	provider gateway.NewsProvider
	metrics  *telemetry.Metrics
	usage    UsageRecorder
}

// NewNewsService returns a NewsService wired to the given dependencies.
func NewNewsService(deps NewsDeps) *NewsService {
	return &NewsService{
		cache:    deps.Cache,
		provider: deps.Provider,
		metrics:  deps.Metrics,
		usage:    deps.Usage,
	}
}

// Headlines returns top headlines. Country defaults to "us".
func (s *NewsService) Headlines(ctx context.Context, q gateway.HeadlinesQuery) (*gateway.Response, error) {
	return s.serve(ctx, q.Normalize())
}

// Search runs a full-text article search. Language defaults to "en" and
// sortBy to "publishedAt".
func (s *NewsService) Search(ctx context.Context, q gateway.SearchQuery) (*gateway.Response, error) {
	return s.serve(ctx, q.Normalize())
}

// Sources lists news sources.
func (s *NewsService) Sources(ctx context.Context, q gateway.SourcesQuery) (*gateway.Response, error) {
	return s.serve(ctx, q)
}

// ClearCache drops every cached response. Requests already past their cache
// lookup are unaffected.
func (s *NewsService) ClearCache(ctx context.Context) {
	s.cache.Purge(ctx)
	if s.metrics != nil {
		s.metrics.CacheClears.Inc()
	}
	slog.LogAttrs(ctx, slog.LevelInfo, "cache cleared",
		slog.String("request_id", gateway.RequestIDFromContext(ctx)),
	)
}

func (s *NewsService) serve(ctx context.Context, q gateway.Query) (*gateway.Response, error) {
	ep := q.Endpoint()
	key := cacheKey(q)
	start := time.Now()
	rec := gateway.UsageRecord{
		RequestID: gateway.RequestIDFromContext(ctx),
		Endpoint:  ep,
		CacheKey:  key,
		CreatedAt: start.UTC(),
	}

	if body, ok := s.cache.Get(ctx, key); ok {
		if s.metrics != nil {
			s.metrics.CacheHits.WithLabelValues(string(ep)).Inc()
		}
		rec.Cached = true
		s.record(rec, start)
		return &gateway.Response{Body: markCached(body), Cached: true}, nil
	}

	if s.metrics != nil {
		s.metrics.CacheMisses.WithLabelValues(string(ep)).Inc()
	}

	body, err := s.provider.Fetch(ctx, q)
	if s.metrics != nil {
		s.metrics.UpstreamDuration.WithLabelValues(string(ep)).Observe(time.Since(start).Seconds())
	}
	rec.Upstream = true

	if err != nil {
		status := upstreamStatus(err)
		if s.metrics != nil {
			s.metrics.UpstreamErrors.WithLabelValues(string(ep), statusLabel(status)).Inc()
		}
		slog.LogAttrs(ctx, slog.LevelWarn, "upstream fetch failed",
			slog.String("endpoint", string(ep)),
			slog.String("cache_key", key),
			slog.String("error", err.Error()),
		)
		rec.StatusCode = status
		rec.Error = provider.MessageOf(err)
		s.record(rec, start)
		return nil, fmt.Errorf("%s: %w", ep, err)
	}

	s.cache.Set(ctx, key, body)
	rec.StatusCode = 200
	s.record(rec, start)
	return &gateway.Response{Body: body}, nil
}

func (s *NewsService) record(rec gateway.UsageRecord, start time.Time) {
	if s.usage == nil {
		return
	}
	rec.LatencyMs = int(time.Since(start).Milliseconds())
	s.usage.Record(rec)
}

// httpStatusError is satisfied by errors carrying an upstream HTTP status.
type httpStatusError interface {
	HTTPStatus() int
}

func upstreamStatus(err error) int {
	var he httpStatusError
	if errors.As(err, &he) {
		return he.HTTPStatus()
	}
	return 0
}

func statusLabel(status int) string {
	if status == 0 {
		return "none"
	}
	return strconv.Itoa(status)
}

var fromCacheMember = []byte(`"fromCache":true`)

// markCached adds "fromCache": true to a JSON object payload. Non-object
// payloads are returned unchanged.
func markCached(body []byte) []byte {
	r := gjson.ParseBytes(body)
	if !r.IsObject() {
		return body
	}
	if r.Get("fromCache").Exists() {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(body, &m); err != nil {
			return body
		}
		m["fromCache"] = json.RawMessage("true")
		out, err := json.Marshal(m)
		if err != nil {
			return body
		}
		return out
	}

	trimmed := bytes.TrimSpace(body)
	inner := bytes.TrimSpace(trimmed[1 : len(trimmed)-1])
	out := make([]byte, 0, len(trimmed)+len(fromCacheMember)+1)
	out = append(out, trimmed[:len(trimmed)-1]...)
	if len(inner) > 0 {
		out = append(out, ',')
	}
	out = append(out, fromCacheMember...)
	return append(out, '}')
}

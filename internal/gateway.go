// Package gateway defines domain types and interfaces for the newsgate caching gateway.
// This package has no project imports -- it is the dependency root.
package gateway

import (
	"context"
	"encoding/json"
	"time"
)

// --- Endpoints ---

// Endpoint identifies one of the query shapes the gateway serves.
type Endpoint string

const (
	EndpointHeadlines Endpoint = "headlines"
	EndpointSearch    Endpoint = "everything"
	EndpointSources   Endpoint = "sources"
)

// Route returns the upstream path segment for the endpoint.
func (e Endpoint) Route() string {
	switch e {
	case EndpointHeadlines:
		return "top-headlines"
	case EndpointSearch:
		return "everything"
	case EndpointSources:
		return "sources"
	default:
		return string(e)
	}
}

// PageSize returns the upstream page-size ceiling, or 0 when the route takes none.
func (e Endpoint) PageSize() int {
	switch e {
	case EndpointHeadlines:
		return 20
	case EndpointSearch:
		return 100
	default:
		return 0
	}
}

// --- Query parameters ---

// Param is an optional query parameter. The zero value is absent; a Valid
// Param with an empty Value was supplied explicitly empty.
type Param struct {
	Value string
	Valid bool
}

// Set returns a present Param holding v.
func Set(v string) Param { return Param{Value: v, Valid: true} }

// Or returns p, or a present Param holding def when p is absent.
func (p Param) Or(def string) Param {
	if p.Valid {
		return p
	}
	return Set(def)
}

// NamedParam pairs a Param with its wire name.
type NamedParam struct {
	Name string
	Param
}

// Query is a normalized request for one endpoint. Params returns every
// recognized parameter in a fixed, endpoint-specific order, absent ones included.
type Query interface {
	Endpoint() Endpoint
	Params() []NamedParam
}

// HeadlinesQuery selects top headlines.
type HeadlinesQuery struct {
	Country  Param
	Category Param
	Q        Param
}

// Normalize applies defaults (country "us").
func (q HeadlinesQuery) Normalize() HeadlinesQuery {
	q.Country = q.Country.Or("us")
	return q
}

func (HeadlinesQuery) Endpoint() Endpoint { return EndpointHeadlines }

func (q HeadlinesQuery) Params() []NamedParam {
	return []NamedParam{
		{"country", q.Country},
		{"category", q.Category},
		{"q", q.Q},
	}
}

// SearchQuery is a full-text article search.
type SearchQuery struct {
	Q        Param
	From     Param
	To       Param
	Language Param
	SortBy   Param
	Domains  Param
}

// Normalize applies defaults (language "en", sortBy "publishedAt").
func (q SearchQuery) Normalize() SearchQuery {
	q.Language = q.Language.Or("en")
	q.SortBy = q.SortBy.Or("publishedAt")
	return q
}

func (SearchQuery) Endpoint() Endpoint { return EndpointSearch }

func (q SearchQuery) Params() []NamedParam {
	return []NamedParam{
		{"q", q.Q},
		{"from", q.From},
		{"to", q.To},
		{"language", q.Language},
		{"sortBy", q.SortBy},
		{"domains", q.Domains},
	}
}

// SourcesQuery lists news sources. It has no defaults.
type SourcesQuery struct {
	Category Param
	Language Param
	Country  Param
}

func (SourcesQuery) Endpoint() Endpoint { return EndpointSources }

func (q SourcesQuery) Params() []NamedParam {
	return []NamedParam{
		{"category", q.Category},
		{"language", q.Language},
		{"country", q.Country},
	}
}

// --- Provider ---

// NewsProvider performs the outbound call for a query against the news API.
type NewsProvider interface {
	// Name returns the provider identifier (e.g., "newsapi").
	Name() string
	// Fetch issues exactly one upstream request and returns the raw JSON body.
	Fetch(ctx context.Context, q Query) ([]byte, error)
}

// Response is what the gateway returns for a query. When Cached is true the
// Body carries a "fromCache": true member.
type Response struct {
	Body   json.RawMessage
	Cached bool
}

// --- Usage ledger ---

// UsageRecord describes one gateway query, hit or miss.
type UsageRecord struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	Endpoint   Endpoint  `json:"endpoint"`
	CacheKey   string    `json:"cache_key"`
	Cached     bool      `json:"cached"`
	Upstream   bool      `json:"upstream"`    // an upstream call was made
	StatusCode int       `json:"status_code"` // upstream HTTP status, 0 if none
	LatencyMs  int       `json:"latency_ms"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// UsageFilter narrows usage queries. Since and Until are RFC3339 strings.
type UsageFilter struct {
	Endpoint Endpoint
	Since    string
	Until    string
}

// UsageSummary aggregates usage records for one endpoint.
type UsageSummary struct {
	Endpoint       Endpoint `json:"endpoint"`
	Requests       int      `json:"requests"`
	CacheHits      int      `json:"cache_hits"`
	UpstreamCalls  int      `json:"upstream_calls"`
	UpstreamErrors int      `json:"upstream_errors"`
	AvgLatencyMs   float64  `json:"avg_latency_ms"`
}

// --- Context keys ---

type contextKey int

const ctxKeyRequestID contextKey = 0

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

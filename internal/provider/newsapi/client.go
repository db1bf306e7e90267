// Package newsapi implements the gateway.NewsProvider adapter for the NewsAPI.org v2 API.
package newsapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	gateway "github.com/eugener/newsgate/internal"
	"github.com/eugener/newsgate/internal/provider"
	"github.com/eugener/newsgate/internal/telemetry"
)

const (
	defaultBaseURL = "https://newsapi.org/v2"
	providerName   = "newsapi"
	apiKeyHeader   = "X-Api-Key"
)

var errMalformedBody = errors.New("malformed response body")

var _ gateway.NewsProvider = (*Client)(nil)

// Client is a NewsAPI adapter that implements gateway.NewsProvider.
type Client struct {
	baseURL string
	http    *http.Client
	hasKey  bool
	tracer  trace.Tracer
}

// New creates a NewsAPI Client. If baseURL is empty, it defaults to
// "https://newsapi.org/v2". base is the underlying transport (nil uses
// http.DefaultTransport); the API key is injected on top of it.
// An empty apiKey is accepted: every Fetch then fails with gateway.ErrNotConfigured.
func New(apiKey, baseURL string, base http.RoundTripper) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: &provider.APIKeyTransport{Key: apiKey, HeaderName: apiKeyHeader, Base: base},
		},
		hasKey: apiKey != "",
		tracer: telemetry.Tracer("newsgate/newsapi"),
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string { return providerName }

// Fetch issues one GET against the query's route and returns the raw JSON body.
// Failures are returned as *provider.APIError.
func (c *Client) Fetch(ctx context.Context, q gateway.Query) ([]byte, error) {
	ep := q.Endpoint()
	ctx, span := c.tracer.Start(ctx, "newsapi."+ep.Route(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("newsgate.endpoint", string(ep))),
	)
	defer span.End()

	body, err := c.fetch(ctx, q)
	if err != nil {
		var ae *provider.APIError
		if errors.As(err, &ae) && ae.StatusCode != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", ae.StatusCode))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return body, nil
}

func (c *Client) fetch(ctx context.Context, q gateway.Query) ([]byte, error) {
	if !c.hasKey {
		return nil, &provider.APIError{Provider: providerName, Err: gateway.ErrNotConfigured}
	}

	target := c.baseURL + "/" + q.Endpoint().Route()
	if enc := encodeParams(q); enc != "" {
		target += "?" + enc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &provider.APIError{Provider: providerName, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &provider.APIError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, provider.ParseAPIError(providerName, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.APIError{Provider: providerName, Err: fmt.Errorf("read response: %w", err)}
	}
	if !gjson.ValidBytes(body) {
		return nil, &provider.APIError{Provider: providerName, Err: errMalformedBody}
	}
	// NewsAPI reports errors with a non-2xx status, but guard against an
	// error envelope delivered with 200.
	if gjson.GetBytes(body, "status").String() == "error" {
		return nil, provider.ErrorFromBody(providerName, resp.StatusCode, body)
	}
	return body, nil
}

// encodeParams forwards only present, non-empty parameters plus the
// endpoint's page-size ceiling.
func encodeParams(q gateway.Query) string {
	v := url.Values{}
	for _, p := range q.Params() {
		if p.Valid && p.Value != "" {
			v.Set(p.Name, p.Value)
		}
	}
	if n := q.Endpoint().PageSize(); n > 0 {
		v.Set("pageSize", strconv.Itoa(n))
	}
	return v.Encode()
}

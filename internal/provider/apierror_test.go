package provider

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	gateway "github.com/eugener/newsgate/internal"
)

func TestParseAPIError(t *testing.T) {
	t.Parallel()

	resp := &http.Response{
		StatusCode: http.StatusUnauthorized,
		Body:       io.NopCloser(strings.NewReader(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`)),
	}
	err := ParseAPIError("newsapi", resp)

	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if ae.HTTPStatus() != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", ae.HTTPStatus())
	}
	if ae.Code != "apiKeyInvalid" {
		t.Errorf("code = %q, want apiKeyInvalid", ae.Code)
	}
	if ae.ClientMessage() != "Your API key is invalid." {
		t.Errorf("message = %q", ae.ClientMessage())
	}
	if !errors.Is(err, gateway.ErrUpstream) {
		t.Error("APIError should match gateway.ErrUpstream")
	}
}

func TestParseAPIError_NonJSONBody(t *testing.T) {
	t.Parallel()

	resp := &http.Response{
		StatusCode: http.StatusBadGateway,
		Body:       io.NopCloser(strings.NewReader("<html>bad gateway</html>")),
	}
	err := ParseAPIError("newsapi", resp)

	if got := MessageOf(err); got != "upstream request failed with status code 502" {
		t.Errorf("MessageOf = %q", got)
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := error(&APIError{Provider: "newsapi", Err: cause})

	if !errors.Is(err, gateway.ErrUpstream) {
		t.Error("should match ErrUpstream")
	}
	if !errors.Is(err, cause) {
		t.Error("should match the underlying cause")
	}
	if errors.Is(err, gateway.ErrNotConfigured) {
		t.Error("should not match ErrNotConfigured")
	}
	if got := MessageOf(err); got != "upstream request failed" {
		t.Errorf("MessageOf = %q", got)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q, want cause included", err.Error())
	}
}

func TestAPIError_NotConfigured(t *testing.T) {
	t.Parallel()

	err := error(&APIError{Provider: "newsapi", Err: gateway.ErrNotConfigured})
	if !errors.Is(err, gateway.ErrNotConfigured) || !errors.Is(err, gateway.ErrUpstream) {
		t.Error("should match both ErrNotConfigured and ErrUpstream")
	}
	if got := MessageOf(err); got != "news API key is not configured" {
		t.Errorf("MessageOf = %q", got)
	}
}

func TestMessageOf_PlainError(t *testing.T) {
	t.Parallel()
	if got := MessageOf(errors.New("boom")); got != "boom" {
		t.Errorf("MessageOf = %q, want boom", got)
	}
}

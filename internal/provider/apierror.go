// Package provider contains shared plumbing for upstream news provider clients.
package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	gateway "github.com/eugener/newsgate/internal"
)

// APIError is the upstream failure type. Every APIError matches
// gateway.ErrUpstream; Err holds the underlying cause when there is one
// (transport error, decode error, gateway.ErrNotConfigured).
type APIError struct {
	Provider   string
	StatusCode int    // 0 when no response was received
	Code       string // provider error code, e.g. "apiKeyInvalid"
	Message    string // provider-supplied message, may be empty
	Err        error
}

// Error returns a formatted error string including provider, status, and message.
func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d", e.Provider, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
}

// Unwrap exposes gateway.ErrUpstream and the underlying cause to errors.Is/As.
func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{gateway.ErrUpstream}
	}
	return []error{gateway.ErrUpstream, e.Err}
}

// HTTPStatus returns the upstream HTTP status code (0 if none).
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// ClientMessage returns the provider's message when present, else a generic one.
func (e *APIError) ClientMessage() string {
	if e.Message != "" {
		return e.Message
	}
	switch {
	case errors.Is(e.Err, gateway.ErrNotConfigured):
		return "news API key is not configured"
	case e.StatusCode != 0:
		return fmt.Sprintf("upstream request failed with status code %d", e.StatusCode)
	case e.Err != nil:
		return "upstream request failed"
	default:
		return "unknown upstream error"
	}
}

// MessageOf returns the client-facing message for any error: the provider
// message for an APIError, err.Error() otherwise.
func MessageOf(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.ClientMessage()
	}
	return err.Error()
}

// ParseAPIError reads up to 4KB from the response body and returns an APIError
// carrying the provider's "message" and "code" fields when the body is JSON.
func ParseAPIError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return ErrorFromBody(provider, resp.StatusCode, body)
}

// ErrorFromBody builds an APIError from a provider error body.
func ErrorFromBody(provider string, status int, body []byte) *APIError {
	e := &APIError{Provider: provider, StatusCode: status}
	if gjson.ValidBytes(body) {
		r := gjson.ParseBytes(body)
		e.Code = r.Get("code").String()
		e.Message = r.Get("message").String()
	}
	return e
}

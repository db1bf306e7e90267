package gateway

import "errors"

// Sentinel errors for the gateway domain.
var (
	ErrUpstream      = errors.New("upstream error")
	ErrNotConfigured = errors.New("upstream credential not configured")
	ErrNotFound      = errors.New("not found")
	ErrBadRequest    = errors.New("bad request")
)

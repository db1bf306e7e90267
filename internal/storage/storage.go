// Package storage defines persistence interfaces for the gateway.
package storage

import (
	"context"

	gateway "github.com/eugener/newsgate/internal"
)

// UsageStore manages usage record persistence.
type UsageStore interface {
	InsertUsage(ctx context.Context, records []gateway.UsageRecord) error
	SummarizeUsage(ctx context.Context, f gateway.UsageFilter) ([]gateway.UsageSummary, error)
}

// Store combines all storage interfaces.
type Store interface {
	UsageStore
	Ping(ctx context.Context) error
	Close() error
}

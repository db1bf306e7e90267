package worker

import (
	"context"
	"log/slog"
	"time"
)

// DNSCache is satisfied by *dnscache.Resolver.
type DNSCache interface {
	Refresh(clearUnused bool)
}

// DNSRefresher periodically refreshes cached upstream DNS lookups so a
// long-running process follows address changes of the news API host.
type DNSRefresher struct {
	resolver DNSCache
	every    time.Duration
}

// NewDNSRefresher returns a refresher that runs every d.
func NewDNSRefresher(r DNSCache, every time.Duration) *DNSRefresher {
	return &DNSRefresher{resolver: r, every: every}
}

// Name returns the worker identifier.
func (d *DNSRefresher) Name() string { return "dns_refresher" }

// Run refreshes the resolver on each tick until ctx is cancelled. Unused
// entries are cleared on every pass.
func (d *DNSRefresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.resolver.Refresh(true)
			slog.LogAttrs(ctx, slog.LevelDebug, "dns cache refreshed")
		case <-ctx.Done():
			return nil
		}
	}
}

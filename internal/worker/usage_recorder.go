package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	gateway "github.com/eugener/newsgate/internal"
)

const (
	usageChanSize   = 1000
	usageBatchSize  = 100
	usageFlushEvery = 5 * time.Second
	usageDrainTime  = 30 * time.Second
)

// UsageStore is the persistence interface consumed by UsageRecorder.
type UsageStore interface {
	InsertUsage(ctx context.Context, records []gateway.UsageRecord) error
}

// UsageRecorder buffers usage records and batch-flushes them to the store.
// Records are dropped if the channel is full (back-pressure on slow DB).
type UsageRecorder struct {
	ch         chan gateway.UsageRecord
	store      UsageStore
	flushEvery time.Duration
	queueLen   prometheus.Gauge // nil = not exported
}

// RecorderOption configures a UsageRecorder.
type RecorderOption func(*UsageRecorder)

// WithFlushInterval overrides the periodic flush interval.
func WithFlushInterval(d time.Duration) RecorderOption {
	return func(u *UsageRecorder) {
		if d > 0 {
			u.flushEvery = d
		}
	}
}

// WithQueueGauge reports the pending queue length on g after each enqueue and flush.
func WithQueueGauge(g prometheus.Gauge) RecorderOption {
	return func(u *UsageRecorder) { u.queueLen = g }
}

// NewUsageRecorder creates a UsageRecorder backed by store.
func NewUsageRecorder(store UsageStore, opts ...RecorderOption) *UsageRecorder {
	u := &UsageRecorder{
		ch:         make(chan gateway.UsageRecord, usageChanSize),
		store:      store,
		flushEvery: usageFlushEvery,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Name returns the worker identifier.
func (u *UsageRecorder) Name() string { return "usage_recorder" }

// Record enqueues a usage record. It never blocks; drops on full channel.
func (u *UsageRecorder) Record(r gateway.UsageRecord) {
	select {
	case u.ch <- r:
		u.reportQueue()
	default:
		slog.LogAttrs(context.Background(), slog.LevelWarn, "usage record dropped, channel full",
			slog.String("endpoint", string(r.Endpoint)),
			slog.String("request_id", r.RequestID),
		)
	}
}

// Run processes records until ctx is cancelled, then drains remaining records.
func (u *UsageRecorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(u.flushEvery)
	defer ticker.Stop()

	buf := make([]gateway.UsageRecord, 0, usageBatchSize)

	for {
		select {
		case r := <-u.ch:
			buf = append(buf, r)
			if len(buf) >= usageBatchSize {
				u.flush(ctx, buf)
				buf = buf[:0]
			}

		case <-ticker.C:
			if len(buf) > 0 {
				u.flush(ctx, buf)
				buf = buf[:0]
			}

		case <-ctx.Done():
			u.drain(buf)
			return nil
		}
	}
}

// drain flushes whatever is buffered or queued using a fresh context, since
// the run context is already cancelled.
func (u *UsageRecorder) drain(buf []gateway.UsageRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), usageDrainTime)
	defer cancel()

	for {
		select {
		case r := <-u.ch:
			buf = append(buf, r)
			if len(buf) >= usageBatchSize {
				u.flush(ctx, buf)
				buf = buf[:0]
			}
		default:
			if len(buf) > 0 {
				u.flush(ctx, buf)
			}
			return
		}
	}
}

func (u *UsageRecorder) flush(ctx context.Context, buf []gateway.UsageRecord) {
	batch := make([]gateway.UsageRecord, len(buf))
	copy(batch, buf)

	// IDs are assigned here, off the request path.
	for i := range batch {
		if batch[i].ID == "" {
			batch[i].ID = uuid.Must(uuid.NewV7()).String()
		}
	}

	if err := u.store.InsertUsage(ctx, batch); err != nil {
		slog.LogAttrs(ctx, slog.LevelError, "usage flush failed",
			slog.Int("count", len(batch)),
			slog.String("error", err.Error()),
		)
	}
	u.reportQueue()
}

func (u *UsageRecorder) reportQueue() {
	if u.queueLen != nil {
		u.queueLen.Set(float64(len(u.ch)))
	}
}

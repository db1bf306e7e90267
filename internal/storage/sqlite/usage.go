package sqlite

import (
	"context"
	"strings"
	"time"

	gateway "github.com/eugener/newsgate/internal"
)

// timeLayout is fixed-width so stored timestamps order lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// InsertUsage batch-inserts usage records.
func (s *Store) InsertUsage(ctx context.Context, records []gateway.UsageRecord) error {
	if len(records) == 0 {
		return nil
	}

	// cols must match the column list in the INSERT below.
	const cols = 10
	placeholders := make([]string, len(records))
	args := make([]any, 0, len(records)*cols)

	for i, r := range records {
		placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args,
			r.ID, r.RequestID, string(r.Endpoint), r.CacheKey,
			boolToInt(r.Cached), boolToInt(r.Upstream), r.StatusCode, r.LatencyMs,
			r.Error, r.CreatedAt.UTC().Format(timeLayout),
		)
	}

	query := `INSERT INTO usage_records
		(id, request_id, endpoint, cache_key, cached, upstream, status_code, latency_ms,
		 error, created_at)
		VALUES ` + strings.Join(placeholders, ", ")

	_, err := s.write.ExecContext(ctx, query, args...)
	return err
}

// SummarizeUsage aggregates records matching the filter per endpoint, ordered
// by endpoint name. A record counts as an upstream error when an upstream call
// was made and an error was recorded.
func (s *Store) SummarizeUsage(ctx context.Context, f gateway.UsageFilter) ([]gateway.UsageSummary, error) {
	where, args := usageWhere(f)
	rows, err := s.read.QueryContext(ctx,
		`SELECT endpoint,
		 COUNT(*),
		 COALESCE(SUM(cached), 0),
		 COALESCE(SUM(upstream), 0),
		 COALESCE(SUM(CASE WHEN upstream = 1 AND error <> '' THEN 1 ELSE 0 END), 0),
		 COALESCE(AVG(latency_ms), 0)
		 FROM usage_records`+where+` GROUP BY endpoint ORDER BY endpoint`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []gateway.UsageSummary{}
	for rows.Next() {
		var u gateway.UsageSummary
		var ep string
		if err := rows.Scan(&ep, &u.Requests, &u.CacheHits, &u.UpstreamCalls, &u.UpstreamErrors, &u.AvgLatencyMs); err != nil {
			return nil, err
		}
		u.Endpoint = gateway.Endpoint(ep)
		out = append(out, u)
	}
	return out, rows.Err()
}

// usageWhere builds the WHERE clause. Bounds are normalized to timeLayout
// before comparison.
func usageWhere(f gateway.UsageFilter) (string, []any) {
	var clauses []string
	var args []any
	if f.Endpoint != "" {
		clauses = append(clauses, "endpoint = ?")
		args = append(args, string(f.Endpoint))
	}
	if f.Since != "" {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, normalizeBound(f.Since))
	}
	if f.Until != "" {
		clauses = append(clauses, "created_at < ?")
		args = append(args, normalizeBound(f.Until))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func normalizeBound(s string) string {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC().Format(timeLayout)
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

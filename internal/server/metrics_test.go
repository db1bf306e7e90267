package server

import (
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eugener/newsgate/internal/telemetry"
	"github.com/eugener/newsgate/internal/testutil"
)

func newMetricsHandler(t *testing.T) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	h := New(Deps{
		News:           newTestNews(t, &testutil.FakeProvider{}),
		Metrics:        metrics,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return h, reg
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	h, _ := newMetricsHandler(t)

	// Hit a normal endpoint first to generate metrics.
	if rec := do(h, http.MethodGet, "/api/news/top-headlines"); rec.Code != http.StatusOK {
		t.Fatalf("headlines: status = %d; body = %s", rec.Code, rec.Body.String())
	}

	rec := do(h, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: status = %d; body = %s", rec.Code, rec.Body.String())
	}
	metricsBody := rec.Body.String()
	for _, name := range []string{
		"newsgate_requests_total",
		"newsgate_request_duration_seconds",
	} {
		if !strings.Contains(metricsBody, name) {
			t.Errorf("metrics should contain %s", name)
		}
	}
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)
	if rec := do(h, http.MethodGet, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a metrics handler", rec.Code)
	}
}

func TestMetricsMiddleware_IncrementsCounters(t *testing.T) {
	t.Parallel()
	h, reg := newMetricsHandler(t)

	for range 3 {
		do(h, http.MethodGet, "/healthz")
	}
	do(h, http.MethodGet, "/no/such/path")

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	paths := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "newsgate_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "path" {
					paths[l.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	if paths["/healthz"] != 3 {
		t.Errorf("requests_total for /healthz = %v, want 3", paths["/healthz"])
	}
	if _, raw := paths["/no/such/path"]; raw {
		t.Error("unmatched paths must not become label values")
	}
}

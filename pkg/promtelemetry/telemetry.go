package promtelemetry

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dashboard "github.com/goliatone/go-flowboard/components/dashboard"
)

const namespace = "flowboard"

// Telemetry records dashboard telemetry events as Prometheus metrics. It
// satisfies dashboard.Telemetry and commands.Telemetry.
type Telemetry struct {
	gatherer prometheus.Gatherer

	Events        *prometheus.CounterVec
	Saves         *prometheus.CounterVec
	SaveDuration  prometheus.Histogram
	FetchFailures *prometheus.CounterVec
	Fetches       *prometheus.CounterVec
	OpenSessions  prometheus.Gauge
}

var _ dashboard.Telemetry = (*Telemetry)(nil)

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Telemetry {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Telemetry{
		gatherer: reg,
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Dashboard telemetry events by name",
		}, []string{"event"}),
		Saves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layout_saves_total",
			Help:      "Layout save attempts by result",
		}, []string{"dashboard", "result"}),
		SaveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_save_duration_seconds",
			Help:      "Duration of layout saves in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_fetch_failures_total",
			Help:      "Failed telemetry fetches by dashboard",
		}, []string{"dashboard"}),
		Fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_fetches_total",
			Help:      "Applied telemetry fetches by dashboard and source",
		}, []string{"dashboard", "source"}),
		OpenSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_open",
			Help:      "Mounted dashboard sessions",
		}),
	}
}

// Record implements dashboard.Telemetry.
func (t *Telemetry) Record(_ context.Context, event string, payload map[string]any) {
	t.Events.WithLabelValues(event).Inc()
	dashboardID := stringField(payload, "dashboard_id")
	switch event {
	case "dashboard.session.open":
		t.OpenSessions.Inc()
	case "dashboard.session.close":
		t.OpenSessions.Dec()
	case "dashboard.layout.saved", "dashboard.layout.save_failed":
		result := strings.TrimPrefix(event, "dashboard.layout.")
		t.Saves.WithLabelValues(dashboardID, result).Inc()
		if ms, ok := payload["duration_ms"].(int64); ok {
			t.SaveDuration.Observe(float64(ms) / 1000)
		}
	case "dashboard.metrics.fetch_failed":
		t.FetchFailures.WithLabelValues(dashboardID).Inc()
	case "dashboard.metrics.fetched":
		source := stringField(payload, "source")
		if source == "" {
			source = "none"
		}
		t.Fetches.WithLabelValues(dashboardID, source).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.gatherer, promhttp.HandlerOpts{})
}

func stringField(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

package dashboard

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Metric keys understood by the default registry.
const (
	MetricOFR = "ofr"
	MetricWFR = "wfr"
	MetricGFR = "gfr"
	MetricGVF = "gvf"
	MetricWLR = "wlr"

	// MetricLastRefresh is the key of the fallback "last refresh" card.
	MetricLastRefresh = "last_refresh"
)

const lastRefreshLayout = "15:04:05"

// MetricDefinition maps a metric key onto a snapshot field.
type MetricDefinition struct {
	Key   string
	Label string
	Unit  string
	Value func(MetricSnapshot) float64
}

// MetricCard is a formatted value ready for display.
type MetricCard struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// MetricRegistry resolves metric keys to definitions.
type MetricRegistry struct {
	mu          sync.RWMutex
	definitions map[string]MetricDefinition
	fallback    []string
}

// NewMetricRegistry builds a registry seeded with the flow-rate metrics.
func NewMetricRegistry() *MetricRegistry {
	reg := &MetricRegistry{
		definitions: map[string]MetricDefinition{},
		fallback:    []string{MetricOFR, MetricWFR, MetricGFR},
	}
	for _, def := range defaultMetricDefinitions() {
		_ = reg.Register(def)
	}
	return reg
}

func defaultMetricDefinitions() []MetricDefinition {
	return []MetricDefinition{
		{Key: MetricOFR, Label: "Oil Flow Rate", Unit: "bbl/d", Value: func(s MetricSnapshot) float64 { return s.TotalOFR }},
		{Key: MetricWFR, Label: "Water Flow Rate", Unit: "bbl/d", Value: func(s MetricSnapshot) float64 { return s.TotalWFR }},
		{Key: MetricGFR, Label: "Gas Flow Rate", Unit: "Mscf/d", Value: func(s MetricSnapshot) float64 { return s.TotalGFR }},
		{Key: MetricGVF, Label: "Gas Volume Fraction", Unit: "%", Value: func(s MetricSnapshot) float64 { return s.AvgGVF }},
		{Key: MetricWLR, Label: "Water Liquid Ratio", Unit: "%", Value: func(s MetricSnapshot) float64 { return s.AvgWLR }},
	}
}

// Register stores or replaces a metric definition.
func (r *MetricRegistry) Register(def MetricDefinition) error {
	key := strings.ToLower(strings.TrimSpace(def.Key))
	if key == "" {
		return fmt.Errorf("metric key is required")
	}
	if def.Value == nil {
		return fmt.Errorf("metric %s requires a value func", key)
	}
	def.Key = key
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[key] = def
	return nil
}

// Definition looks a metric key up, ignoring case.
func (r *MetricRegistry) Definition(key string) (MetricDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[strings.ToLower(strings.TrimSpace(key))]
	return def, ok
}

// Cards formats the configured keys against snapshot. Unknown keys are
// skipped. With no keys the fallback flow-rate cards are returned together
// with a last refresh card.
func (r *MetricRegistry) Cards(keys []string, snapshot MetricSnapshot, lastRefresh time.Time) []MetricCard {
	if len(keys) == 0 {
		r.mu.RLock()
		fallback := append([]string(nil), r.fallback...)
		r.mu.RUnlock()
		cards := r.cards(fallback, snapshot)
		return append(cards, MetricCard{
			Key:   MetricLastRefresh,
			Label: "Last Refresh",
			Value: formatRefreshTime(lastRefresh),
		})
	}
	return r.cards(keys, snapshot)
}

func (r *MetricRegistry) cards(keys []string, snapshot MetricSnapshot) []MetricCard {
	cards := make([]MetricCard, 0, len(keys))
	for _, key := range keys {
		def, ok := r.Definition(key)
		if !ok {
			continue
		}
		cards = append(cards, MetricCard{
			Key:   def.Key,
			Label: def.Label,
			Value: FormatMetricValue(def.Value(snapshot)),
			Unit:  def.Unit,
		})
	}
	return cards
}

// FormatMetricValue renders a metric with two decimals.
func FormatMetricValue(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatRefreshTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(lastRefreshLayout)
}

// MetricKeys extracts the configured metric keys from a widget's data source
// config. Both "metrics" and "metricKeys" are accepted, as a list or a comma
// separated string.
func MetricKeys(widget WidgetConfig) []string {
	for _, field := range []string{"metrics", "metricKeys"} {
		raw, ok := widget.DataSourceConfig[field]
		if !ok {
			continue
		}
		if keys := toKeyList(raw); len(keys) > 0 {
			return keys
		}
	}
	return nil
}

func toKeyList(raw any) []string {
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	switch v := raw.(type) {
	case string:
		for _, part := range strings.Split(v, ",") {
			add(part)
		}
	case []string:
		for _, s := range v {
			add(s)
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	return out
}

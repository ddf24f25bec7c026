package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateUsesLastDeviceSample(t *testing.T) {
	device := &DeviceTelemetry{Samples: []DeviceSample{
		{OFR: 1, WFR: 2, GFR: 3, GVF: 4, WLR: 5},
		{OFR: 10, WFR: 20, GFR: 30, GVF: 40, WLR: 50},
	}}

	snap := Aggregate(device, nil)

	assert.Equal(t, 10.0, snap.TotalOFR)
	assert.Equal(t, 20.0, snap.TotalWFR)
	assert.Equal(t, 30.0, snap.TotalGFR)
	assert.Equal(t, 40.0, snap.AvgGVF)
	assert.Equal(t, 50.0, snap.AvgWLR)
	assert.Equal(t, MetricSourceDevice, snap.Source)
}

func TestAggregatePrefersHierarchy(t *testing.T) {
	device := &DeviceTelemetry{Samples: []DeviceSample{{OFR: 999}}}
	hierarchy := &HierarchyTelemetry{Samples: []HierarchySample{
		{TotalOFR: 1},
		{TotalOFR: 7, TotalWFR: 8, TotalGFR: 9, AvgGVF: 0.5, AvgWLR: 0.25},
	}}

	snap := Aggregate(device, hierarchy)

	assert.Equal(t, MetricSnapshot{
		TotalOFR: 7, TotalWFR: 8, TotalGFR: 9, AvgGVF: 0.5, AvgWLR: 0.25,
		Source: MetricSourceHierarchy,
	}, snap)
}

func TestAggregateFallsBackWhenHierarchyEmpty(t *testing.T) {
	device := &DeviceTelemetry{Samples: []DeviceSample{{OFR: 3}}}
	snap := Aggregate(device, &HierarchyTelemetry{})
	assert.Equal(t, 3.0, snap.TotalOFR)

	assert.Equal(t, MetricSnapshot{}, Aggregate(nil, nil))
	assert.Equal(t, MetricSnapshot{}, Aggregate(&DeviceTelemetry{}, &HierarchyTelemetry{}))
}

func TestAggregatorRecomputesOnReferenceChange(t *testing.T) {
	agg := NewMetricsAggregator()
	device := &DeviceTelemetry{Samples: []DeviceSample{{OFR: 1}}}

	snap, changed := agg.Update(device, nil)
	require.True(t, changed)
	assert.Equal(t, 1.0, snap.TotalOFR)

	_, changed = agg.Update(device, nil)
	assert.False(t, changed)
	assert.Equal(t, 1, agg.Recomputes())

	next := &DeviceTelemetry{Samples: []DeviceSample{{OFR: 2}}}
	snap, changed = agg.Update(next, nil)
	assert.True(t, changed)
	assert.Equal(t, 2.0, snap.TotalOFR)
	assert.Equal(t, snap, agg.Snapshot())
}

func TestMetricCardsForConfiguredKeys(t *testing.T) {
	reg := NewMetricRegistry()
	snap := MetricSnapshot{TotalOFR: 1234.567, AvgWLR: 0.1}

	cards := reg.Cards([]string{"ofr", "WLR", "unknown"}, snap, time.Time{})

	require.Len(t, cards, 2)
	assert.Equal(t, "1234.57", cards[0].Value)
	assert.Equal(t, "Oil Flow Rate", cards[0].Label)
	assert.Equal(t, "0.10", cards[1].Value)
	assert.Equal(t, MetricWLR, cards[1].Key)
}

func TestMetricCardsFallback(t *testing.T) {
	reg := NewMetricRegistry()
	refreshed := time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC)

	cards := reg.Cards(nil, MetricSnapshot{TotalGFR: 2}, refreshed)

	require.Len(t, cards, 4)
	keys := []string{cards[0].Key, cards[1].Key, cards[2].Key, cards[3].Key}
	assert.Equal(t, []string{MetricOFR, MetricWFR, MetricGFR, MetricLastRefresh}, keys)
	assert.Equal(t, "2.00", cards[2].Value)
	assert.Equal(t, "14:05:09", cards[3].Value)

	cards = reg.Cards(nil, MetricSnapshot{}, time.Time{})
	assert.Equal(t, "never", cards[3].Value)
}

func TestMetricRegistryRejectsInvalidDefinitions(t *testing.T) {
	reg := NewMetricRegistry()
	assert.Error(t, reg.Register(MetricDefinition{}))
	assert.Error(t, reg.Register(MetricDefinition{Key: "x"}))
	require.NoError(t, reg.Register(MetricDefinition{Key: " Pressure ", Value: func(MetricSnapshot) float64 { return 42 }}))

	cards := reg.Cards([]string{"pressure"}, MetricSnapshot{}, time.Time{})
	require.Len(t, cards, 1)
	assert.Equal(t, "42.00", cards[0].Value)
}

func TestMetricKeysFromDataSource(t *testing.T) {
	assert.Nil(t, MetricKeys(WidgetConfig{}))
	assert.Equal(t, []string{"ofr", "gvf"}, MetricKeys(WidgetConfig{
		DataSourceConfig: map[string]any{"metrics": []any{"OFR", " gvf ", 3}},
	}))
	assert.Equal(t, []string{"wfr", "wlr"}, MetricKeys(WidgetConfig{
		DataSourceConfig: map[string]any{"metricKeys": "wfr, wlr"},
	}))
}

func TestValueFontSize(t *testing.T) {
	assert.Equal(t, 36.0, ValueFontSize(1200, "1234.56"))
	assert.Equal(t, 48.0, ValueFontSize(1200, "12.5"))
	assert.Equal(t, 40.8, ValueFontSize(1200, "123.45"))
	assert.InDelta(t, 28.8, ValueFontSize(1200, "123456.789"), 1e-9)
	assert.Equal(t, 20.0, ValueFontSize(60, "1.00"))
	assert.Equal(t, 16.0, ValueFontSize(60, "1234567.89"))
	assert.Equal(t, 30.0, ValueFontSize(180, "0.00"))
}

func TestUnitFontSize(t *testing.T) {
	assert.Equal(t, 10.0, UnitFontSize(90))
	assert.Equal(t, 12.0, UnitFontSize(216))
	assert.Equal(t, 16.0, UnitFontSize(1200))
}

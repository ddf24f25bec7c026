package dashboard

import (
	"sync"
	"time"
)

// Metric sources reported on a MetricSnapshot.
const (
	MetricSourceNone      = ""
	MetricSourceDevice    = "device"
	MetricSourceHierarchy = "hierarchy"
)

// DeviceSample is one per-device telemetry reading.
type DeviceSample struct {
	Timestamp time.Time `json:"timestamp"`
	OFR       float64   `json:"ofr"`
	WFR       float64   `json:"wfr"`
	GFR       float64   `json:"gfr"`
	GVF       float64   `json:"gvf"`
	WLR       float64   `json:"wlr"`
}

// HierarchySample is one pre-aggregated reading spanning many devices.
type HierarchySample struct {
	Timestamp time.Time `json:"timestamp"`
	TotalOFR  float64   `json:"totalOFR"`
	TotalWFR  float64   `json:"totalWFR"`
	TotalGFR  float64   `json:"totalGFR"`
	AvgGVF    float64   `json:"avgGVF"`
	AvgWLR    float64   `json:"avgWLR"`
}

// DeviceTelemetry is a time-ordered device series.
type DeviceTelemetry struct {
	DeviceID string         `json:"deviceId"`
	Samples  []DeviceSample `json:"samples"`
}

// HierarchyTelemetry is a time-ordered hierarchy series.
type HierarchyTelemetry struct {
	HierarchyID string            `json:"hierarchyId"`
	Samples     []HierarchySample `json:"samples"`
}

// MetricSnapshot holds the display values derived from the latest sample.
type MetricSnapshot struct {
	TotalOFR  float64   `json:"totalOFR"`
	TotalWFR  float64   `json:"totalWFR"`
	TotalGFR  float64   `json:"totalGFR"`
	AvgGVF    float64   `json:"avgGVF"`
	AvgWLR    float64   `json:"avgWLR"`
	Source    string    `json:"source,omitempty"`
	SampledAt time.Time `json:"sampledAt,omitzero"`
}

// Aggregate derives a snapshot from whichever payload is usable. Hierarchy
// data wins when it has samples, then device data; otherwise the snapshot is
// all zeros. Only the last sample is read.
func Aggregate(device *DeviceTelemetry, hierarchy *HierarchyTelemetry) MetricSnapshot {
	if hierarchy != nil && len(hierarchy.Samples) > 0 {
		return hierarchy.Samples[len(hierarchy.Samples)-1].snapshot()
	}
	if device != nil && len(device.Samples) > 0 {
		return device.Samples[len(device.Samples)-1].snapshot()
	}
	return MetricSnapshot{}
}

// Series maps every sample of the preferred payload to a snapshot, oldest
// first, using the same source selection as Aggregate.
func Series(device *DeviceTelemetry, hierarchy *HierarchyTelemetry) []MetricSnapshot {
	switch {
	case hierarchy != nil && len(hierarchy.Samples) > 0:
		out := make([]MetricSnapshot, len(hierarchy.Samples))
		for i, sample := range hierarchy.Samples {
			out[i] = sample.snapshot()
		}
		return out
	case device != nil && len(device.Samples) > 0:
		out := make([]MetricSnapshot, len(device.Samples))
		for i, sample := range device.Samples {
			out[i] = sample.snapshot()
		}
		return out
	}
	return nil
}

func (d DeviceSample) snapshot() MetricSnapshot {
	return MetricSnapshot{
		TotalOFR:  d.OFR,
		TotalWFR:  d.WFR,
		TotalGFR:  d.GFR,
		AvgGVF:    d.GVF,
		AvgWLR:    d.WLR,
		Source:    MetricSourceDevice,
		SampledAt: d.Timestamp,
	}
}

func (h HierarchySample) snapshot() MetricSnapshot {
	return MetricSnapshot{
		TotalOFR:  h.TotalOFR,
		TotalWFR:  h.TotalWFR,
		TotalGFR:  h.TotalGFR,
		AvgGVF:    h.AvgGVF,
		AvgWLR:    h.AvgWLR,
		Source:    MetricSourceHierarchy,
		SampledAt: h.Timestamp,
	}
}

// MetricsAggregator caches the snapshot for the current pair of payloads and
// recomputes only when either payload reference changes.
type MetricsAggregator struct {
	mu         sync.RWMutex
	device     *DeviceTelemetry
	hierarchy  *HierarchyTelemetry
	snapshot   MetricSnapshot
	recomputes int
}

// NewMetricsAggregator returns an aggregator holding the zero snapshot.
func NewMetricsAggregator() *MetricsAggregator {
	return &MetricsAggregator{}
}

// Update swaps in new payloads and reports whether the snapshot was recomputed.
func (a *MetricsAggregator) Update(device *DeviceTelemetry, hierarchy *HierarchyTelemetry) (MetricSnapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if device == a.device && hierarchy == a.hierarchy {
		return a.snapshot, false
	}
	a.device = device
	a.hierarchy = hierarchy
	a.snapshot = Aggregate(device, hierarchy)
	a.recomputes++
	return a.snapshot, true
}

// Snapshot returns the current derived values.
func (a *MetricsAggregator) Snapshot() MetricSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Payloads returns the telemetry the current snapshot was derived from.
func (a *MetricsAggregator) Payloads() (*DeviceTelemetry, *HierarchyTelemetry) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.device, a.hierarchy
}

// Recomputes counts how many times the snapshot was derived.
func (a *MetricsAggregator) Recomputes() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.recomputes
}

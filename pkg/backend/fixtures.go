package backend

import (
	"math"
	"time"

	dashboard "github.com/goliatone/go-flowboard/components/dashboard"
)

// DemoData returns fixtures for local demos: one multiphase meter type, a
// device with a day of hourly samples and an aggregated hierarchy.
func DemoData(now time.Time) MockData {
	const meter = dashboard.ID("1")
	samples := make([]dashboard.DeviceSample, 24)
	totals := make([]dashboard.HierarchySample, 24)
	start := now.Truncate(time.Hour).Add(-23 * time.Hour)
	for i := range samples {
		wave := math.Sin(float64(i) / 24 * 2 * math.Pi)
		ts := start.Add(time.Duration(i) * time.Hour)
		samples[i] = dashboard.DeviceSample{
			Timestamp: ts,
			OFR:       round2(1250 + 80*wave),
			WFR:       round2(310 + 25*wave),
			GFR:       round2(4.2 + 0.3*wave),
			GVF:       round2(62 + 4*wave),
			WLR:       round2(19.8 + 1.5*wave),
		}
		totals[i] = dashboard.HierarchySample{
			Timestamp: ts,
			TotalOFR:  round2(3 * samples[i].OFR),
			TotalWFR:  round2(3 * samples[i].WFR),
			TotalGFR:  round2(3 * samples[i].GFR),
			AvgGVF:    samples[i].GVF,
			AvgWLR:    samples[i].WLR,
		}
	}
	return MockData{
		DeviceTypes: []dashboard.DeviceType{{ID: meter, TypeName: "Multiphase meter"}},
		AvailableWidgets: map[dashboard.ID]dashboard.AvailableWidgets{
			meter: {
				WidgetTypes: []dashboard.WidgetType{
					{ID: "1", Name: "Line chart", Component: "LineChart"},
					{ID: "2", Name: "Metric cards", Component: "MetricCard"},
				},
				Properties: []dashboard.Property{
					{ID: "10", Name: "Oil flow rate", Key: dashboard.MetricOFR, Unit: "bbl/d"},
					{ID: "11", Name: "Water flow rate", Key: dashboard.MetricWFR, Unit: "bbl/d"},
					{ID: "12", Name: "Gas flow rate", Key: dashboard.MetricGFR, Unit: "Mscf/d"},
				},
			},
		},
		Devices: map[dashboard.ID][]dashboard.Device{
			meter: {{ID: "100", Name: "Well 12 MPFM", SerialNumber: "MPFM-0012", DeviceTypeID: meter}},
		},
		Device: map[string]dashboard.DeviceTelemetry{
			"100": {DeviceID: "100", Samples: samples},
		},
		Hierarchy: map[string]dashboard.HierarchyTelemetry{
			"field-north": {HierarchyID: "field-north", Samples: totals},
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

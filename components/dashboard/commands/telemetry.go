package commands

import (
	"context"

	"github.com/goliatone/go-flowboard/components/dashboard"
)

// Telemetry is the sink commands report to. Any dashboard.Telemetry works,
// including promtelemetry.
type Telemetry = dashboard.Telemetry

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

// dashboardPayload builds an event payload keyed by dashboard id. extra is
// read as alternating key/value pairs.
func dashboardPayload(dashboardID string, extra ...any) map[string]any {
	payload := map[string]any{"dashboard_id": dashboardID}
	for i := 0; i+1 < len(extra); i += 2 {
		if key, ok := extra[i].(string); ok {
			payload[key] = extra[i+1]
		}
	}
	return payload
}

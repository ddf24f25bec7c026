package backend

import (
	dashboard "github.com/goliatone/go-flowboard/components/dashboard"
)

// Client is the full backend surface a dashboard host needs: layout
// persistence, the widget wizard catalog and telemetry.
type Client interface {
	dashboard.LayoutSaver
	dashboard.WidgetCatalog
	dashboard.MetricsSource
}

var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*MockClient)(nil)
)

package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-flowboard/components/dashboard"
)

// DashboardInput identifies the dashboard a query targets.
type DashboardInput struct {
	DashboardID string `json:"dashboardId"`
}

type layoutService interface {
	Layout(ctx context.Context, dashboardID string) (dashboard.LayoutSnapshot, error)
}

// LayoutQuery returns the current layout snapshot.
type LayoutQuery struct {
	service layoutService
}

// NewLayoutQuery builds the query.
func NewLayoutQuery(service layoutService) *LayoutQuery {
	return &LayoutQuery{service: service}
}

var _ gocommand.Querier[DashboardInput, dashboard.LayoutSnapshot] = (*LayoutQuery)(nil)

// Query resolves the layout of the dashboard.
func (q *LayoutQuery) Query(ctx context.Context, input DashboardInput) (dashboard.LayoutSnapshot, error) {
	return q.service.Layout(ctx, input.DashboardID)
}

type viewService interface {
	View(ctx context.Context, dashboardID string) (dashboard.View, error)
}

// ViewQuery builds the full render model.
type ViewQuery struct {
	service viewService
}

// NewViewQuery builds the query.
func NewViewQuery(service viewService) *ViewQuery {
	return &ViewQuery{service: service}
}

var _ gocommand.Querier[DashboardInput, dashboard.View] = (*ViewQuery)(nil)

// Query renders the dashboard view.
func (q *ViewQuery) Query(ctx context.Context, input DashboardInput) (dashboard.View, error) {
	return q.service.View(ctx, input.DashboardID)
}

type metricsService interface {
	MetricSnapshot(ctx context.Context, dashboardID string) (dashboard.MetricSnapshot, error)
}

// MetricsQuery returns the last aggregated metrics.
type MetricsQuery struct {
	service metricsService
}

// NewMetricsQuery builds the query.
func NewMetricsQuery(service metricsService) *MetricsQuery {
	return &MetricsQuery{service: service}
}

var _ gocommand.Querier[DashboardInput, dashboard.MetricSnapshot] = (*MetricsQuery)(nil)

// Query returns the snapshot.
func (q *MetricsQuery) Query(ctx context.Context, input DashboardInput) (dashboard.MetricSnapshot, error) {
	return q.service.MetricSnapshot(ctx, input.DashboardID)
}

package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// RefreshMetricsInput requests an out-of-cycle telemetry fetch.
type RefreshMetricsInput struct {
	DashboardID string `json:"dashboardId"`
}

type metricsRefresher interface {
	Refresh(ctx context.Context, dashboardID string) error
}

// RefreshMetricsCommand triggers a fetch without touching the refresh cycle.
type RefreshMetricsCommand struct {
	service   metricsRefresher
	telemetry Telemetry
}

// NewRefreshMetricsCommand creates the command.
func NewRefreshMetricsCommand(service metricsRefresher, telemetry Telemetry) *RefreshMetricsCommand {
	return &RefreshMetricsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefreshMetricsInput] = (*RefreshMetricsCommand)(nil)

// Execute requests the fetch. The result arrives asynchronously.
func (c *RefreshMetricsCommand) Execute(ctx context.Context, msg RefreshMetricsInput) error {
	if c.service == nil {
		return errors.New("refresh command requires service")
	}
	if err := c.service.Refresh(ctx, msg.DashboardID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.metrics.refresh", dashboardPayload(msg.DashboardID))
	return nil
}

package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-flowboard/components/dashboard"
)

// ApplyLayoutEditInput carries a drag/resize result for one dashboard.
type ApplyLayoutEditInput struct {
	DashboardID string                     `json:"dashboardId"`
	Positions   []dashboard.LayoutPosition `json:"positions"`
}

type layoutEditor interface {
	ApplyEdit(ctx context.Context, dashboardID string, positions []dashboard.LayoutPosition) (bool, error)
}

// ApplyLayoutEditCommand forwards layout edits to the mounted session, which
// schedules the save.
type ApplyLayoutEditCommand struct {
	service   layoutEditor
	telemetry Telemetry
}

// NewApplyLayoutEditCommand creates the command.
func NewApplyLayoutEditCommand(service layoutEditor, telemetry Telemetry) *ApplyLayoutEditCommand {
	return &ApplyLayoutEditCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ApplyLayoutEditInput] = (*ApplyLayoutEditCommand)(nil)

// Execute applies the edit. Edits ignored in view mode are not errors.
func (c *ApplyLayoutEditCommand) Execute(ctx context.Context, msg ApplyLayoutEditInput) error {
	if c.service == nil {
		return errors.New("apply layout command requires service")
	}
	applied, err := c.service.ApplyEdit(ctx, msg.DashboardID, msg.Positions)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.layout.edit", dashboardPayload(msg.DashboardID,
		"widgets", len(msg.Positions),
		"applied", applied,
	))
	return nil
}

// SetEditModeInput toggles edit mode.
type SetEditModeInput struct {
	DashboardID string `json:"dashboardId"`
	Edit        bool   `json:"edit"`
}

type editModeSetter interface {
	SetEditMode(ctx context.Context, dashboardID string, edit bool) error
}

// SetEditModeCommand switches a dashboard between view and edit mode.
type SetEditModeCommand struct {
	service   editModeSetter
	telemetry Telemetry
}

// NewSetEditModeCommand creates the command.
func NewSetEditModeCommand(service editModeSetter, telemetry Telemetry) *SetEditModeCommand {
	return &SetEditModeCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetEditModeInput] = (*SetEditModeCommand)(nil)

// Execute toggles the mode.
func (c *SetEditModeCommand) Execute(ctx context.Context, msg SetEditModeInput) error {
	if c.service == nil {
		return errors.New("edit mode command requires service")
	}
	if err := c.service.SetEditMode(ctx, msg.DashboardID, msg.Edit); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.layout.mode", dashboardPayload(msg.DashboardID, "edit", msg.Edit))
	return nil
}

// RetrySaveInput identifies the dashboard whose last save failed.
type RetrySaveInput struct {
	DashboardID string `json:"dashboardId"`
}

type saveRetrier interface {
	Retry(ctx context.Context, dashboardID string) error
}

// RetrySaveCommand re-sends the last layout of a dashboard.
type RetrySaveCommand struct {
	service   saveRetrier
	telemetry Telemetry
}

// NewRetrySaveCommand creates the command.
func NewRetrySaveCommand(service saveRetrier, telemetry Telemetry) *RetrySaveCommand {
	return &RetrySaveCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RetrySaveInput] = (*RetrySaveCommand)(nil)

// Execute retries the save.
func (c *RetrySaveCommand) Execute(ctx context.Context, msg RetrySaveInput) error {
	if c.service == nil {
		return errors.New("retry command requires service")
	}
	if err := c.service.Retry(ctx, msg.DashboardID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.layout.retry", dashboardPayload(msg.DashboardID))
	return nil
}

package commands

import (
	"context"
	"errors"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-flowboard/components/dashboard"
)

// CreateWidgetCommand submits a wizard request after schema validation.
// Rejected payloads never reach the catalog.
type CreateWidgetCommand struct {
	catalog   dashboard.WidgetCatalog
	validator *dashboard.SchemaValidator
	telemetry Telemetry
}

// NewCreateWidgetCommand creates the command. A nil validator uses the
// built-in schemas.
func NewCreateWidgetCommand(catalog dashboard.WidgetCatalog, validator *dashboard.SchemaValidator, telemetry Telemetry) *CreateWidgetCommand {
	if validator == nil {
		validator = dashboard.NewSchemaValidator()
	}
	return &CreateWidgetCommand{catalog: catalog, validator: validator, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.CreateWidgetRequest] = (*CreateWidgetCommand)(nil)

// Execute validates and forwards the request. A result with success=false is
// reported as an error carrying the backend message.
func (c *CreateWidgetCommand) Execute(ctx context.Context, msg dashboard.CreateWidgetRequest) error {
	if c.catalog == nil {
		return errors.New("create widget command requires catalog")
	}
	res, err := dashboard.SubmitWidget(ctx, c.catalog, c.validator, msg)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("create widget rejected: %s", res.Message)
	}
	c.telemetry.Record(ctx, "dashboard.widget.create", map[string]any{
		"device_type_id": msg.DeviceTypeID.String(),
		"widget_type_id": msg.WidgetTypeID.String(),
		"properties":     len(msg.PropertyIDs),
	})
	return nil
}

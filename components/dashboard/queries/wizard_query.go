package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-flowboard/components/dashboard"
)

// DeviceTypeInput scopes wizard lookups to a device type.
type DeviceTypeInput struct {
	DeviceTypeID dashboard.ID `json:"deviceTypeId"`
}

// DeviceTypesQuery lists the wizard's first-step options.
type DeviceTypesQuery struct {
	catalog dashboard.WidgetCatalog
}

// NewDeviceTypesQuery builds the query.
func NewDeviceTypesQuery(catalog dashboard.WidgetCatalog) *DeviceTypesQuery {
	return &DeviceTypesQuery{catalog: catalog}
}

var _ gocommand.Querier[struct{}, []dashboard.DeviceType] = (*DeviceTypesQuery)(nil)

// Query lists device types.
func (q *DeviceTypesQuery) Query(ctx context.Context, _ struct{}) ([]dashboard.DeviceType, error) {
	return q.catalog.DeviceTypes(ctx)
}

// AvailableWidgetsQuery lists the widget types and properties of a device type.
type AvailableWidgetsQuery struct {
	catalog dashboard.WidgetCatalog
}

// NewAvailableWidgetsQuery builds the query.
func NewAvailableWidgetsQuery(catalog dashboard.WidgetCatalog) *AvailableWidgetsQuery {
	return &AvailableWidgetsQuery{catalog: catalog}
}

var _ gocommand.Querier[DeviceTypeInput, dashboard.AvailableWidgets] = (*AvailableWidgetsQuery)(nil)

// Query lists available widgets.
func (q *AvailableWidgetsQuery) Query(ctx context.Context, input DeviceTypeInput) (dashboard.AvailableWidgets, error) {
	return q.catalog.AvailableWidgets(ctx, input.DeviceTypeID)
}

// DevicesQuery lists devices of a device type.
type DevicesQuery struct {
	catalog dashboard.WidgetCatalog
}

// NewDevicesQuery builds the query.
func NewDevicesQuery(catalog dashboard.WidgetCatalog) *DevicesQuery {
	return &DevicesQuery{catalog: catalog}
}

var _ gocommand.Querier[DeviceTypeInput, []dashboard.Device] = (*DevicesQuery)(nil)

// Query lists devices.
func (q *DevicesQuery) Query(ctx context.Context, input DeviceTypeInput) ([]dashboard.Device, error) {
	return q.catalog.Devices(ctx, input.DeviceTypeID)
}

package backend

import (
	"context"
	"fmt"
	"slices"
	"sync"

	dashboard "github.com/goliatone/go-flowboard/components/dashboard"
)

// MockData seeds deterministic backend responses for tests or local demos.
type MockData struct {
	DeviceTypes      []dashboard.DeviceType
	AvailableWidgets map[dashboard.ID]dashboard.AvailableWidgets
	Devices          map[dashboard.ID][]dashboard.Device
	Device           map[string]dashboard.DeviceTelemetry
	Hierarchy        map[string]dashboard.HierarchyTelemetry
}

// MockClient implements Client using in-memory fixtures. Saved layouts and
// created widgets are recorded for inspection.
type MockClient struct {
	mu      sync.RWMutex
	data    MockData
	layouts map[string][]dashboard.LayoutItem
	created []dashboard.CreateWidgetRequest
}

// NewMockClient builds a mock client from the provided fixtures.
func NewMockClient(data MockData) *MockClient {
	return &MockClient{data: data, layouts: map[string][]dashboard.LayoutItem{}}
}

// SaveLayout records the layout.
func (c *MockClient) SaveLayout(_ context.Context, dashboardID string, items []dashboard.LayoutItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layouts[dashboardID] = slices.Clone(items)
	return nil
}

// Layout returns the last layout saved for dashboardID.
func (c *MockClient) Layout(dashboardID string) ([]dashboard.LayoutItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items, ok := c.layouts[dashboardID]
	return slices.Clone(items), ok
}

// DeviceTypes returns the configured device types.
func (c *MockClient) DeviceTypes(context.Context) ([]dashboard.DeviceType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.data.DeviceTypes), nil
}

// AvailableWidgets returns the fixture for deviceTypeID.
func (c *MockClient) AvailableWidgets(_ context.Context, deviceTypeID dashboard.ID) (dashboard.AvailableWidgets, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w := c.data.AvailableWidgets[deviceTypeID]
	return dashboard.AvailableWidgets{
		WidgetTypes: slices.Clone(w.WidgetTypes),
		Properties:  slices.Clone(w.Properties),
	}, nil
}

// Devices returns the fixture for deviceTypeID.
func (c *MockClient) Devices(_ context.Context, deviceTypeID dashboard.ID) ([]dashboard.Device, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.data.Devices[deviceTypeID]), nil
}

// CreateWidget records the request.
func (c *MockClient) CreateWidget(_ context.Context, req dashboard.CreateWidgetRequest) (dashboard.CreateWidgetResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, req)
	return dashboard.CreateWidgetResult{Success: true}, nil
}

// Created returns the recorded create requests.
func (c *MockClient) Created() []dashboard.CreateWidgetRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.created)
}

// DeviceTelemetry returns the configured series.
func (c *MockClient) DeviceTelemetry(_ context.Context, deviceID string) (*dashboard.DeviceTelemetry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	series, ok := c.data.Device[deviceID]
	if !ok {
		return nil, fmt.Errorf("backend: no telemetry for device %s", deviceID)
	}
	return &dashboard.DeviceTelemetry{DeviceID: deviceID, Samples: slices.Clone(series.Samples)}, nil
}

// HierarchyTelemetry returns the configured series, or an empty one.
func (c *MockClient) HierarchyTelemetry(_ context.Context, hierarchyID string) (*dashboard.HierarchyTelemetry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	series := c.data.Hierarchy[hierarchyID]
	return &dashboard.HierarchyTelemetry{HierarchyID: hierarchyID, Samples: slices.Clone(series.Samples)}, nil
}

// SetDeviceTelemetry replaces a device series.
func (c *MockClient) SetDeviceTelemetry(deviceID string, samples []dashboard.DeviceSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data.Device == nil {
		c.data.Device = map[string]dashboard.DeviceTelemetry{}
	}
	c.data.Device[deviceID] = dashboard.DeviceTelemetry{DeviceID: deviceID, Samples: slices.Clone(samples)}
}

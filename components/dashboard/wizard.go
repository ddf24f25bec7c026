package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is a backend identifier that may arrive as a JSON number or string.
type ID string

// UnmarshalJSON accepts numbers and strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("dashboard: id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits integers as numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// IsNumeric reports whether the id is a plain integer.
func (id ID) IsNumeric() bool {
	if id == "" {
		return false
	}
	n, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == string(id)
}

func (id ID) String() string { return string(id) }

// DeviceType is an option of the widget wizard's first step.
type DeviceType struct {
	ID       ID     `json:"id"`
	TypeName string `json:"typeName"`
	Logo     string `json:"logo,omitempty"`
}

// WidgetType is a chart or card kind offered for a device type.
type WidgetType struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Component   string `json:"component,omitempty"`
	Description string `json:"description,omitempty"`
}

// Property is a telemetry property that can feed a widget.
type Property struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key,omitempty"`
	Unit string `json:"unit,omitempty"`
}

// AvailableWidgets lists the widget types and properties of a device type.
type AvailableWidgets struct {
	WidgetTypes []WidgetType `json:"widgetTypes"`
	Properties  []Property   `json:"properties"`
}

// Device is a concrete device of a device type.
type Device struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	SerialNumber string `json:"serialNumber,omitempty"`
	DeviceTypeID ID     `json:"deviceTypeId,omitempty"`
}

// CreateWidgetRequest is the wizard submission payload.
type CreateWidgetRequest struct {
	DeviceTypeID ID     `json:"deviceTypeId"`
	WidgetTypeID ID     `json:"widgetTypeId"`
	PropertyIDs  []ID   `json:"propertyIds"`
	DisplayName  string `json:"displayName,omitempty"`
}

// Normalize trims the display name and drops empty or repeated properties.
func (r *CreateWidgetRequest) Normalize() {
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	seen := make(map[ID]struct{}, len(r.PropertyIDs))
	props := r.PropertyIDs[:0]
	for _, id := range r.PropertyIDs {
		id = ID(strings.TrimSpace(string(id)))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		props = append(props, id)
	}
	r.PropertyIDs = props
}

// CreateWidgetResult is the backend acknowledgement.
type CreateWidgetResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// WidgetCatalog is the backend surface behind the widget wizard.
type WidgetCatalog interface {
	DeviceTypes(ctx context.Context) ([]DeviceType, error)
	AvailableWidgets(ctx context.Context, deviceTypeID ID) (AvailableWidgets, error)
	Devices(ctx context.Context, deviceTypeID ID) ([]Device, error)
	CreateWidget(ctx context.Context, req CreateWidgetRequest) (CreateWidgetResult, error)
}

// SubmitWidget validates req and only then forwards it to the catalog.
func SubmitWidget(ctx context.Context, catalog WidgetCatalog, validator *SchemaValidator, req CreateWidgetRequest) (CreateWidgetResult, error) {
	req.Normalize()
	if validator == nil {
		validator = NewSchemaValidator()
	}
	if err := validator.ValidateCreateWidget(req); err != nil {
		return CreateWidgetResult{}, err
	}
	return catalog.CreateWidget(ctx, req)
}

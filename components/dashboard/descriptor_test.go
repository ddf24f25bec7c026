package dashboard

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDescriptor = `
dashboardId: well-12
title: Well 12
deviceId: "8812"
refreshInterval: 10s
widgets:
  - layoutId: flow
    type: metric
    component: MetricCard
    displayOrder: 1
    dataSourceConfig:
      metrics: [ofr, wfr]
  - layoutId: trend
    type: chart
    displayOrder: 0
    layoutConfig:
      x: 4
      w: 8
      static: true
`

func TestDecodeDescriptor(t *testing.T) {
	doc, err := DecodeDescriptor(strings.NewReader(sampleDescriptor))
	require.NoError(t, err)

	assert.Equal(t, DescriptorVersion, doc.Version)
	assert.Equal(t, DefaultColumns, doc.Columns)
	assert.Equal(t, 10*time.Second, doc.RefreshInterval)
	require.Len(t, doc.Widgets, 2)
	assert.Equal(t, []string{"ofr", "wfr"}, MetricKeys(doc.Widgets[0]))
	require.NotNil(t, doc.Widgets[1].LayoutConfig.Static)
	assert.True(t, *doc.Widgets[1].LayoutConfig.Static)

	opts := doc.SessionOptions()
	assert.Equal(t, "well-12", opts.DashboardID)
	assert.Equal(t, "8812", opts.DeviceID)
}

func TestDecodeDescriptorAcceptsJSON(t *testing.T) {
	doc, err := DecodeDescriptor(strings.NewReader(`{"dashboardId":"d","widgets":[{"layoutId":"a","layoutConfig":{"w":3}}]}`))
	require.NoError(t, err)
	assert.Equal(t, 3, *doc.Widgets[0].LayoutConfig.W)
}

func TestDecodeDescriptorRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"duplicate":      "dashboardId: d\nwidgets:\n  - layoutId: a\n  - layoutId: a\n",
		"missing id":     "dashboardId: d\nwidgets:\n  - type: chart\n",
		"version":        "version: \"9\"\ndashboardId: d\nwidgets: []\n",
		"negative x":     "dashboardId: d\nwidgets:\n  - layoutId: a\n    layoutConfig: {x: -1}\n",
		"zero width":     "dashboardId: d\nwidgets:\n  - layoutId: a\n    layoutConfig: {w: 0}\n",
		"no dashboardId": "widgets:\n  - layoutId: a\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDescriptor(strings.NewReader(body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation), "expected validation error, got %v", err)
		})
	}

	_, err := DecodeDescriptor(strings.NewReader("dashboardId: d\nunknown: 1\n"))
	assert.Error(t, err)
	_, err = DecodeDescriptor(strings.NewReader(""))
	assert.EqualError(t, err, "dashboard: descriptor is empty")
}

func TestReadDescriptorRecordsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDescriptor), 0o600))

	doc, err := ReadDescriptor(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)

	_, err = ReadDescriptor(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSchemaValidatorCreateWidget(t *testing.T) {
	v := NewSchemaValidator()
	valid := CreateWidgetRequest{DeviceTypeID: "3", WidgetTypeID: "line", PropertyIDs: []ID{"10", "11"}, DisplayName: "Flow"}
	require.NoError(t, v.ValidateCreateWidget(valid))

	invalid := []CreateWidgetRequest{
		{WidgetTypeID: "1", PropertyIDs: []ID{"1"}},
		{DeviceTypeID: "1", WidgetTypeID: "1"},
		{DeviceTypeID: "1", WidgetTypeID: "1", PropertyIDs: []ID{"1", "1"}},
		{DeviceTypeID: "1", WidgetTypeID: "1", PropertyIDs: []ID{"1"}, DisplayName: strings.Repeat("x", 101)},
	}
	for i, req := range invalid {
		err := v.ValidateCreateWidget(req)
		assert.ErrorIs(t, err, ErrValidation, "case %d", i)
	}
}

func TestSchemaValidatorCachesAndRegisters(t *testing.T) {
	v := NewSchemaValidator()
	require.NoError(t, v.Validate(SchemaCreateWidget, CreateWidgetRequest{DeviceTypeID: "1", WidgetTypeID: "2", PropertyIDs: []ID{"3"}}))
	assert.Len(t, v.compiled, 1)

	v.Register("custom", `{"type":"object","required":["name"]}`)
	assert.ErrorIs(t, v.Validate("custom", map[string]any{}), ErrValidation)
	assert.NoError(t, v.Validate("custom", map[string]any{"name": "x"}))

	assert.Error(t, v.Validate("nope", nil))
}

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var payload struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 42, "b": "abc", "c": null}`), &payload))
	assert.Equal(t, ID("42"), payload.A)
	assert.Equal(t, ID("abc"), payload.B)
	assert.Equal(t, ID(""), payload.C)

	out, err := json.Marshal(CreateWidgetRequest{DeviceTypeID: "7", WidgetTypeID: "007", PropertyIDs: []ID{"1"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"deviceTypeId":7,"widgetTypeId":"007","propertyIds":[1]}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a": true}`), &payload))
}

func TestCreateWidgetRequestNormalize(t *testing.T) {
	req := CreateWidgetRequest{PropertyIDs: []ID{"1", " ", "2", "1"}, DisplayName: "  Flow  "}
	req.Normalize()
	assert.Equal(t, []ID{"1", "2"}, req.PropertyIDs)
	assert.Equal(t, "Flow", req.DisplayName)
}

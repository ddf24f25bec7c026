package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboard "github.com/goliatone/go-flowboard/components/dashboard"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL + "/", Credentials: dashboard.StaticCredentials(token)})
	require.NoError(t, err)
	return client
}

func TestHTTPClientSaveLayout(t *testing.T) {
	var body []map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/dashboards/dash-1/layouts", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"success":true}`)
	}, "secret")

	err := client.SaveLayout(context.Background(), "dash-1", []dashboard.LayoutItem{
		{LayoutID: "a", LayoutConfig: dashboard.GridRect{X: 1, W: 4, H: 2, MinW: 1, MinH: 1}},
	})
	require.NoError(t, err)
	require.Len(t, body, 1)
	assert.Equal(t, "a", body[0]["layoutId"])
	cfg := body[0]["layoutConfig"].(map[string]any)
	assert.Equal(t, float64(4), cfg["w"])
	assert.Equal(t, false, cfg["static"])
}

func TestHTTPClientMissingCredentialSendsNothing(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}, "")

	err := client.SaveLayout(context.Background(), "dash-1", nil)
	assert.ErrorIs(t, err, dashboard.ErrMissingCredential)
	_, err = client.DeviceTypes(context.Background())
	assert.ErrorIs(t, err, dashboard.ErrMissingCredential)
	assert.Zero(t, hits.Load())
}

func TestHTTPClientEnvelopeFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"name taken"}`)
	}, "secret")

	res, err := client.CreateWidget(context.Background(), dashboard.CreateWidgetRequest{DeviceTypeID: "1", WidgetTypeID: "2", PropertyIDs: []dashboard.ID{"3"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.False(t, res.Success)
	assert.Equal(t, "name taken", res.Message)
}

func TestHTTPClientRemoteError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}, "secret")
	err := client.SaveLayout(context.Background(), "dash-1", nil)
	assert.EqualError(t, err, "backend: remote error 502: boom")
}

func TestHTTPClientDeviceTypesAreCached(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/widgets/device-types", r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"data":[{"id":3,"typeName":"Multiphase meter","logo":"mpm.png"}]}`)
	}, "secret")

	for range 3 {
		types, err := client.DeviceTypes(context.Background())
		require.NoError(t, err)
		require.Len(t, types, 1)
		assert.Equal(t, dashboard.ID("3"), types[0].ID)
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, client.lookups.size())
}

func TestHTTPClientWizardLookups(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("deviceTypeId"))
		switch r.URL.Path {
		case "/widgets/available-widgets":
			_, _ = io.WriteString(w, `{"success":true,"data":{"widgetTypes":[{"id":"line","name":"Line"}],"properties":[{"id":11,"name":"Oil rate"}]}}`)
		case "/widgets/devices":
			_, _ = io.WriteString(w, `{"success":true,"data":[{"id":91,"name":"Well 91"}]}`)
		default:
			http.NotFound(w, r)
		}
	}, "secret")

	available, err := client.AvailableWidgets(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, dashboard.ID("line"), available.WidgetTypes[0].ID)
	assert.Equal(t, dashboard.ID("11"), available.Properties[0].ID)

	devices, err := client.Devices(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Well 91", devices[0].Name)
}

func TestHTTPClientTelemetry(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/telemetry/devices/dev-1":
			_, _ = io.WriteString(w, `{"success":true,"data":[{"timestamp":"2026-01-02T03:04:05Z","ofr":10.5,"wfr":2,"gfr":1,"gvf":40,"wlr":16}]}`)
		case "/telemetry/hierarchies/h-1":
			_, _ = io.WriteString(w, `{"success":true,"data":[]}`)
		}
	}, "secret")

	device, err := client.DeviceTelemetry(context.Background(), "dev-1")
	require.NoError(t, err)
	require.Len(t, device.Samples, 1)
	assert.Equal(t, 10.5, device.Samples[0].OFR)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), device.Samples[0].Timestamp)

	hierarchy, err := client.HierarchyTelemetry(context.Background(), "h-1")
	require.NoError(t, err)
	assert.Empty(t, hierarchy.Samples)

	snapshot := dashboard.Aggregate(device, hierarchy)
	assert.Equal(t, dashboard.MetricSourceDevice, snapshot.Source)
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	_, err := NewHTTPClient(HTTPConfig{})
	assert.Error(t, err)
}

func TestLookupCacheExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := newLookupCache(time.Minute, func() time.Time { return now })
	cache.set("/widgets/devices?deviceTypeId=1", []byte("[]"))
	_, ok := cache.get("/widgets/devices?deviceTypeId=1")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = cache.get("/widgets/devices?deviceTypeId=1")
	assert.False(t, ok)

	cache.set("/widgets/available-widgets?deviceTypeId=1", []byte("{}"))
	cache.set("/widgets/device-types", []byte("[]"))
	cache.invalidate("/widgets/available-widgets")
	assert.Equal(t, 1, cache.size())
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	dashboard "github.com/goliatone/go-flowboard/components/dashboard"
)

// ErrRejected is returned when the backend answers with success=false.
var ErrRejected = errors.New("backend: request rejected")

const defaultLookupTTL = 5 * time.Minute

// HTTPConfig configures the REST client.
type HTTPConfig struct {
	BaseURL     string
	Credentials dashboard.CredentialSource
	HTTPClient  *http.Client
	// LookupTTL bounds how long wizard lookups are reused. Negative disables
	// caching.
	LookupTTL time.Duration
	Logger    *slog.Logger
}

// HTTPClient talks to the dashboard backend over REST.
type HTTPClient struct {
	baseURL     string
	credentials dashboard.CredentialSource
	client      *http.Client
	lookups     *lookupCache
	logger      *slog.Logger
}

// NewHTTPClient builds a client. Requests fail with
// dashboard.ErrMissingCredential until the credential source yields a token.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	credentials := cfg.Credentials
	if credentials == nil {
		credentials = dashboard.StaticCredentials("")
	}
	ttl := cfg.LookupTTL
	if ttl == 0 {
		ttl = defaultLookupTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		credentials: credentials,
		client:      httpClient,
		lookups:     newLookupCache(ttl, time.Now),
		logger:      logger,
	}, nil
}

// SaveLayout implements dashboard.LayoutSaver.
func (c *HTTPClient) SaveLayout(ctx context.Context, dashboardID string, items []dashboard.LayoutItem) error {
	path := "/dashboards/" + url.PathEscape(dashboardID) + "/layouts"
	return c.do(ctx, http.MethodPatch, path, items, nil)
}

// DeviceTypes lists device types. Results are cached for the lookup TTL.
func (c *HTTPClient) DeviceTypes(ctx context.Context) ([]dashboard.DeviceType, error) {
	var out []dashboard.DeviceType
	err := c.cachedGet(ctx, "/widgets/device-types", &out)
	return out, err
}

// AvailableWidgets lists widget types and properties of a device type.
func (c *HTTPClient) AvailableWidgets(ctx context.Context, deviceTypeID dashboard.ID) (dashboard.AvailableWidgets, error) {
	var out dashboard.AvailableWidgets
	err := c.cachedGet(ctx, "/widgets/available-widgets?deviceTypeId="+url.QueryEscape(deviceTypeID.String()), &out)
	return out, err
}

// Devices lists devices of a device type.
func (c *HTTPClient) Devices(ctx context.Context, deviceTypeID dashboard.ID) ([]dashboard.Device, error) {
	var out []dashboard.Device
	err := c.cachedGet(ctx, "/widgets/devices?deviceTypeId="+url.QueryEscape(deviceTypeID.String()), &out)
	return out, err
}

// CreateWidget submits a wizard request. Callers are expected to validate
// first; see dashboard.SubmitWidget.
func (c *HTTPClient) CreateWidget(ctx context.Context, req dashboard.CreateWidgetRequest) (dashboard.CreateWidgetResult, error) {
	if err := c.do(ctx, http.MethodPost, "/widgets/create-widget", req, nil); err != nil {
		var rejected *rejectedError
		if errors.As(err, &rejected) {
			return dashboard.CreateWidgetResult{Success: false, Message: rejected.message}, err
		}
		return dashboard.CreateWidgetResult{}, err
	}
	c.lookups.invalidate("/widgets/available-widgets")
	return dashboard.CreateWidgetResult{Success: true}, nil
}

// DeviceTelemetry implements dashboard.MetricsSource.
func (c *HTTPClient) DeviceTelemetry(ctx context.Context, deviceID string) (*dashboard.DeviceTelemetry, error) {
	var samples []dashboard.DeviceSample
	if err := c.do(ctx, http.MethodGet, "/telemetry/devices/"+url.PathEscape(deviceID), nil, &samples); err != nil {
		return nil, err
	}
	return &dashboard.DeviceTelemetry{DeviceID: deviceID, Samples: samples}, nil
}

// HierarchyTelemetry implements dashboard.MetricsSource.
func (c *HTTPClient) HierarchyTelemetry(ctx context.Context, hierarchyID string) (*dashboard.HierarchyTelemetry, error) {
	var samples []dashboard.HierarchySample
	if err := c.do(ctx, http.MethodGet, "/telemetry/hierarchies/"+url.PathEscape(hierarchyID), nil, &samples); err != nil {
		return nil, err
	}
	return &dashboard.HierarchyTelemetry{HierarchyID: hierarchyID, Samples: samples}, nil
}

func (c *HTTPClient) cachedGet(ctx context.Context, path string, target any) error {
	if raw, ok := c.lookups.get(path); ok {
		return json.Unmarshal(raw, target)
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("backend: decode %s: %w", path, err)
	}
	c.lookups.set(path, raw)
	return nil
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type rejectedError struct {
	path    string
	message string
}

func (e *rejectedError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("%s: %s", ErrRejected, e.path)
	}
	return fmt.Sprintf("%s: %s: %s", ErrRejected, e.path, e.message)
}

func (e *rejectedError) Unwrap() error { return ErrRejected }

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any, target any) error {
	token, err := c.credentials.BearerToken(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return dashboard.ErrMissingCredential
	}
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("backend: encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", requestID)

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend: http request: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("backend request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", requestID),
		slog.Duration("took", time.Since(started)),
	)
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("backend: %s %s: %w", method, path, dashboard.ErrMissingCredential)
	}
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("backend: remote error %d: %s", resp.StatusCode, strings.TrimSpace(buf.String()))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if errors.Is(err, io.EOF) && target == nil {
			return nil
		}
		return fmt.Errorf("backend: decode response: %w", err)
	}
	if env.Success != nil && !*env.Success {
		return &rejectedError{path: path, message: env.Message}
	}
	if target == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("backend: decode data: %w", err)
	}
	return nil
}

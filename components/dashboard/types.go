package dashboard

import (
	"context"
	"time"
)

// DefaultColumns is the grid column count used when none is configured.
const DefaultColumns = 12

// WidgetConfig is a single entry of a dashboard descriptor.
type WidgetConfig struct {
	LayoutID         string         `json:"layoutId" yaml:"layoutId"`
	WidgetID         string         `json:"widgetId" yaml:"widgetId"`
	Type             string         `json:"type" yaml:"type"`
	Component        string         `json:"component" yaml:"component"`
	LayoutConfig     LayoutConfig   `json:"layoutConfig" yaml:"layoutConfig"`
	DataSourceConfig map[string]any `json:"dataSourceConfig,omitempty" yaml:"dataSourceConfig,omitempty"`
	DisplayOrder     int            `json:"displayOrder" yaml:"displayOrder"`
}

// LayoutConfig is the stored (possibly partial) grid placement of a widget.
// Nil fields fall back to resolver defaults.
type LayoutConfig struct {
	X      *int  `json:"x,omitempty" yaml:"x,omitempty"`
	Y      *int  `json:"y,omitempty" yaml:"y,omitempty"`
	W      *int  `json:"w,omitempty" yaml:"w,omitempty"`
	H      *int  `json:"h,omitempty" yaml:"h,omitempty"`
	MinW   *int  `json:"minW,omitempty" yaml:"minW,omitempty"`
	MinH   *int  `json:"minH,omitempty" yaml:"minH,omitempty"`
	Static *bool `json:"static,omitempty" yaml:"static,omitempty"`
}

// LayoutPosition is a resolved grid placement in cell coordinates.
type LayoutPosition struct {
	LayoutID string `json:"layoutId"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	W        int    `json:"w"`
	H        int    `json:"h"`
	MinW     int    `json:"minW"`
	MinH     int    `json:"minH"`
	Static   bool   `json:"static"`
}

// GridRect is the wire shape of a layout config sent to the backend.
type GridRect struct {
	X      int  `json:"x"`
	Y      int  `json:"y"`
	W      int  `json:"w"`
	H      int  `json:"h"`
	MinW   int  `json:"minW"`
	MinH   int  `json:"minH"`
	Static bool `json:"static"`
}

// LayoutItem is one element of the layout save payload.
type LayoutItem struct {
	LayoutID     string   `json:"layoutId"`
	LayoutConfig GridRect `json:"layoutConfig"`
}

// LayoutItems converts positions into the save payload shape.
func LayoutItems(positions []LayoutPosition) []LayoutItem {
	items := make([]LayoutItem, len(positions))
	for i, p := range positions {
		items[i] = LayoutItem{
			LayoutID: p.LayoutID,
			LayoutConfig: GridRect{
				X: p.X, Y: p.Y, W: p.W, H: p.H,
				MinW: p.MinW, MinH: p.MinH, Static: p.Static,
			},
		}
	}
	return items
}

// LayoutSnapshot is a point-in-time copy of a dashboard's layout state.
type LayoutSnapshot struct {
	DashboardID string           `json:"dashboardId"`
	Revision    uint64           `json:"revision"`
	Dirty       bool             `json:"dirty"`
	EditMode    bool             `json:"editMode"`
	Positions   []LayoutPosition `json:"positions"`
}

// LayoutSaver persists a full dashboard layout.
type LayoutSaver interface {
	SaveLayout(ctx context.Context, dashboardID string, items []LayoutItem) error
}

// LayoutSaverFunc adapts a function into a LayoutSaver.
type LayoutSaverFunc func(ctx context.Context, dashboardID string, items []LayoutItem) error

// SaveLayout calls f.
func (f LayoutSaverFunc) SaveLayout(ctx context.Context, dashboardID string, items []LayoutItem) error {
	return f(ctx, dashboardID, items)
}

// LayoutListener is notified after every applied edit.
type LayoutListener interface {
	LayoutChanged(snapshot LayoutSnapshot)
}

// CredentialSource supplies the bearer credential for backend requests.
type CredentialSource interface {
	BearerToken(ctx context.Context) (string, error)
}

// StaticCredentials is a CredentialSource returning a fixed token.
type StaticCredentials string

// BearerToken returns the token, or ErrMissingCredential when empty.
func (c StaticCredentials) BearerToken(context.Context) (string, error) {
	if c == "" {
		return "", ErrMissingCredential
	}
	return string(c), nil
}

// ThemeSource reports the active light/dark preference.
type ThemeSource interface {
	DarkMode(ctx context.Context) bool
}

// StaticTheme is a ThemeSource with a fixed preference.
type StaticTheme bool

// DarkMode reports the fixed value.
func (t StaticTheme) DarkMode(context.Context) bool { return bool(t) }

// EventHook receives dashboard state changes (layout edits, save state,
// metric refreshes) so transports can re-render.
type EventHook interface {
	Publish(ctx context.Context, event Event) error
}

// Event types emitted by a Session.
const (
	EventLayoutChanged   = "layout.changed"
	EventLayoutSaving    = "layout.saving"
	EventLayoutSaved     = "layout.saved"
	EventLayoutSaveError = "layout.save_failed"
	EventMetricsUpdated  = "metrics.updated"
	EventRefreshPulse    = "refresh.pulse"
	EventEditModeChanged = "layout.mode"
)

// Event describes a change transports might care about.
type Event struct {
	Type        string    `json:"type"`
	DashboardID string    `json:"dashboardId"`
	Revision    uint64    `json:"revision,omitempty"`
	At          time.Time `json:"at"`
	Payload     any       `json:"payload,omitempty"`
}

type noopEventHook struct{}

func (noopEventHook) Publish(context.Context, Event) error { return nil }

func normalizeEventHook(h EventHook) EventHook {
	if h == nil {
		return noopEventHook{}
	}
	return h
}

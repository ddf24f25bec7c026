package dashboard

import (
	"context"
	"log/slog"
)

// ControllerOptions wires the render-side collaborators.
type ControllerOptions struct {
	Charts ChartRenderer
	Theme  ThemeSource
	Logger *slog.Logger
}

// Controller turns session state into a render model.
type Controller struct {
	session *Session
	opts    ControllerOptions
}

// NewController wires a session into a controller. A nil chart renderer
// falls back to go-echarts.
func NewController(session *Session, opts ControllerOptions) *Controller {
	if opts.Charts == nil {
		opts.Charts = NewEChartsRenderer(WithChartMetrics(session.Metrics()))
	}
	if opts.Theme == nil {
		opts.Theme = StaticTheme(false)
	}
	opts.Logger = normalizeLogger(opts.Logger)
	return &Controller{session: session, opts: opts}
}

// View is everything a host needs to draw the dashboard.
type View struct {
	DashboardID string         `json:"dashboardId"`
	Revision    uint64         `json:"revision"`
	EditMode    bool           `json:"editMode"`
	Dirty       bool           `json:"dirty"`
	Saving      bool           `json:"saving"`
	SaveError   string         `json:"saveError,omitempty"`
	Dark        bool           `json:"dark"`
	Columns     int            `json:"columns"`
	Container   Size           `json:"container"`
	Refresh     RefreshState   `json:"refresh"`
	Metrics     MetricSnapshot `json:"metrics"`
	Widgets     []WidgetView   `json:"widgets"`
}

// WidgetView pairs a widget with its position and rendered content.
type WidgetView struct {
	Widget     WidgetConfig   `json:"widget"`
	Position   LayoutPosition `json:"position"`
	Size       Size           `json:"size"`
	Cards      []CardView     `json:"cards,omitempty"`
	Chart      string         `json:"chart,omitempty"`
	ChartError string         `json:"chartError,omitempty"`
}

// CardView is a metric card with its responsive font sizes.
type CardView struct {
	MetricCard
	ValueFontSize float64 `json:"valueFontSize"`
	UnitFontSize  float64 `json:"unitFontSize"`
}

// View builds the current render model. Chart failures are reported per
// widget rather than failing the whole view.
func (c *Controller) View(ctx context.Context) (View, error) {
	if c.session == nil {
		return View{}, errSessionClosed
	}
	s := c.session
	layout := s.Layout()
	save := s.SaveState()
	refresh := s.RefreshState()
	snapshot := s.MetricSnapshot()
	device, hierarchy := s.TelemetryPayloads()
	container := s.ContainerSize()
	dark := c.opts.Theme.DarkMode(ctx)

	view := View{
		DashboardID: layout.DashboardID,
		Revision:    layout.Revision,
		EditMode:    layout.EditMode,
		Dirty:       layout.Dirty,
		Saving:      save.Saving,
		Dark:        dark,
		Columns:     s.opts.Columns,
		Container:   container,
		Refresh:     refresh,
		Metrics:     snapshot,
		Widgets:     make([]WidgetView, 0, len(layout.Positions)),
	}
	if save.Err != nil {
		view.SaveError = save.Err.Error()
	}

	for _, pos := range layout.Positions {
		widget, ok := s.store.Widget(pos.LayoutID)
		if !ok {
			continue
		}
		wv := WidgetView{Widget: widget, Position: pos}
		if size, ok := s.CardSize(pos.LayoutID); ok {
			wv.Size = size
		} else {
			wv.Size = estimateSize(container, pos, view.Columns)
		}
		switch widget.Type {
		case WidgetTypeMetric:
			wv.Cards = cardViews(s.Metrics().Cards(MetricKeys(widget), snapshot, refresh.LastRefresh), wv.Size.Width)
		case WidgetTypeChart:
			chart, err := c.opts.Charts.RenderChart(ctx, ChartRequest{
				Widget:    widget,
				Device:    device,
				Hierarchy: hierarchy,
				Dark:      dark,
			})
			if err != nil {
				wv.ChartError = err.Error()
				c.opts.Logger.Debug("chart render skipped",
					slog.String("layout_id", widget.LayoutID),
					slog.String("error", err.Error()),
				)
			} else {
				wv.Chart = chart
			}
		}
		view.Widgets = append(view.Widgets, wv)
	}
	return view, nil
}

func cardViews(cards []MetricCard, width float64) []CardView {
	out := make([]CardView, len(cards))
	for i, card := range cards {
		out[i] = CardView{
			MetricCard:    card,
			ValueFontSize: ValueFontSize(width, card.Value),
			UnitFontSize:  UnitFontSize(width),
		}
	}
	return out
}

// estimateSize derives a card width from the container when the card itself
// has not been measured yet.
func estimateSize(container Size, pos LayoutPosition, columns int) Size {
	if container.Width <= 0 || columns <= 0 {
		return Size{}
	}
	return Size{Width: container.Width * float64(pos.W) / float64(columns)}
}

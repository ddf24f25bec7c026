package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// Widget types the controller knows how to render.
const (
	WidgetTypeMetric = "metric"
	WidgetTypeChart  = "chart"
)

const defaultChartHeight = "320px"

var errNoChartData = errors.New("dashboard: no telemetry to chart")

// ChartRequest carries what a renderer needs to draw one chart widget.
type ChartRequest struct {
	Widget    WidgetConfig
	Device    *DeviceTelemetry
	Hierarchy *HierarchyTelemetry
	Dark      bool
}

// ChartRenderer draws chart widgets into an opaque render target.
type ChartRenderer interface {
	RenderChart(ctx context.Context, req ChartRequest) (string, error)
}

// EChartsRenderer renders telemetry series as go-echarts markup.
type EChartsRenderer struct {
	cache      RenderCache
	metrics    *MetricRegistry
	assetsHost string
	height     string
}

// EChartsOption customizes an EChartsRenderer.
type EChartsOption func(*EChartsRenderer)

// WithChartCache injects a render cache; nil disables caching.
func WithChartCache(cache RenderCache) EChartsOption {
	return func(r *EChartsRenderer) {
		r.cache = cache
	}
}

// WithChartAssetsHost rewrites the host the ECharts script loads from.
func WithChartAssetsHost(host string) EChartsOption {
	return func(r *EChartsRenderer) {
		r.assetsHost = host
	}
}

// WithChartHeight sets the chart container height.
func WithChartHeight(height string) EChartsOption {
	return func(r *EChartsRenderer) {
		r.height = height
	}
}

// WithChartMetrics sets the registry used to label and read series.
func WithChartMetrics(reg *MetricRegistry) EChartsOption {
	return func(r *EChartsRenderer) {
		r.metrics = reg
	}
}

// NewEChartsRenderer builds a renderer with a one minute cache.
func NewEChartsRenderer(options ...EChartsOption) *EChartsRenderer {
	r := &EChartsRenderer{
		cache:   NewChartCache(time.Minute),
		metrics: NewMetricRegistry(),
		height:  defaultChartHeight,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// RenderChart plots the configured metrics of the preferred telemetry payload.
func (r *EChartsRenderer) RenderChart(ctx context.Context, req ChartRequest) (string, error) {
	series := Series(req.Device, req.Hierarchy)
	if len(series) == 0 {
		return "", errNoChartData
	}
	kind := chartKind(req.Widget)
	theme := types.ThemeWesteros
	if req.Dark {
		theme = types.ThemeChalk
	}
	keys := MetricKeys(req.Widget)
	if len(keys) == 0 {
		keys = []string{MetricOFR, MetricWFR, MetricGFR}
	}
	defs := make([]MetricDefinition, 0, len(keys))
	for _, key := range keys {
		if def, ok := r.metrics.Definition(key); ok {
			defs = append(defs, def)
		}
	}
	if len(defs) == 0 {
		return "", fmt.Errorf("dashboard: chart %s has no known metrics", req.Widget.LayoutID)
	}
	title := stringValue(req.Widget.DataSourceConfig["title"], req.Widget.LayoutID)

	render := func() (string, error) {
		switch kind {
		case "bar":
			return r.renderBar(title, theme, series, defs)
		case "gauge":
			return r.renderGauge(title, theme, series[len(series)-1], defs)
		default:
			return r.renderLine(title, theme, series, defs)
		}
	}
	if r.cache == nil {
		return render()
	}
	last := series[len(series)-1]
	key := fmt.Sprintf("%s:%s:%s:%s:%d:%d",
		req.Widget.LayoutID, kind, theme,
		fingerprint(req.Widget.DataSourceConfig),
		len(series), last.SampledAt.UnixNano(),
	)
	return r.cache.GetOrRender(key, render)
}

func chartKind(w WidgetConfig) string {
	if kind := strings.ToLower(stringValue(w.DataSourceConfig["chartType"], "")); kind != "" {
		return kind
	}
	switch t := strings.ToLower(w.Type); t {
	case "bar", "line", "gauge":
		return t
	}
	return "line"
}

func (r *EChartsRenderer) renderLine(title, theme string, series []MetricSnapshot, defs []MetricDefinition) (string, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(r.globalOptions(title, theme)...)
	line.SetXAxis(axisLabels(series))
	for _, def := range defs {
		data := make([]opts.LineData, len(series))
		for i, snap := range series {
			data[i] = opts.LineData{Value: def.Value(snap)}
		}
		line.AddSeries(def.Label, data)
	}
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return renderMarkup(line)
}

func (r *EChartsRenderer) renderBar(title, theme string, series []MetricSnapshot, defs []MetricDefinition) (string, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(r.globalOptions(title, theme)...)
	bar.SetXAxis(axisLabels(series))
	for _, def := range defs {
		data := make([]opts.BarData, len(series))
		for i, snap := range series {
			data[i] = opts.BarData{Value: def.Value(snap)}
		}
		bar.AddSeries(def.Label, data)
	}
	return renderMarkup(bar)
}

func (r *EChartsRenderer) renderGauge(title, theme string, last MetricSnapshot, defs []MetricDefinition) (string, error) {
	gauge := charts.NewGauge()
	gauge.SetGlobalOptions(r.globalOptions(title, theme)...)
	for _, def := range defs {
		gauge.AddSeries(def.Label, []opts.GaugeData{{Name: def.Label, Value: def.Value(last)}})
	}
	return renderMarkup(gauge)
}

func (r *EChartsRenderer) globalOptions(title, theme string) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  theme,
		Width:  "100%",
		Height: r.height,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func axisLabels(series []MetricSnapshot) []string {
	labels := make([]string, len(series))
	for i, snap := range series {
		if snap.SampledAt.IsZero() {
			labels[i] = fmt.Sprintf("#%d", i+1)
			continue
		}
		labels[i] = snap.SampledAt.Format(lastRefreshLayout)
	}
	return labels
}

func renderMarkup(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func stringValue(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

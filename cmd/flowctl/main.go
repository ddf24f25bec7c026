package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ettle/strcase"

	"github.com/goliatone/go-flowboard/components/dashboard"
	"github.com/goliatone/go-flowboard/pkg/backend"
	"github.com/goliatone/go-flowboard/pkg/config"
	flowboard "github.com/goliatone/go-flowboard/pkg/dashboard"
)

type globals struct {
	Config string `type:"path" short:"c" help:"Path to a flowboard config file (YAML/JSON/TOML)."`
	Mock   bool   `help:"Serve demo fixtures instead of calling the backend."`
	Debug  bool   `help:"Enable debug logging."`
}

type cli struct {
	globals

	Validate     validateCmd     `cmd:"" help:"Validate a dashboard descriptor."`
	Resolve      resolveCmd      `cmd:"" help:"Print the resolved grid layout of a descriptor."`
	Save         saveCmd         `cmd:"" help:"Save the descriptor layout to the backend."`
	Watch        watchCmd        `cmd:"" help:"Mount a dashboard and print metric cards on every refresh."`
	Chart        chartCmd        `cmd:"" help:"Render a chart widget to a standalone HTML file."`
	DeviceTypes  deviceTypesCmd  `cmd:"" name:"device-types" help:"List device types offered by the widget wizard."`
	Widgets      widgetsCmd      `cmd:"" help:"List widget types and properties of a device type."`
	Devices      devicesCmd      `cmd:"" help:"List devices of a device type."`
	CreateWidget createWidgetCmd `cmd:"" name:"create-widget" help:"Validate and submit a new widget."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var app cli
	kctx := kong.Parse(&app,
		kong.Name("flowctl"),
		kong.Description("Inspect, save and watch flowboard dashboards."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Bind(&app.globals),
	)
	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}

func (g *globals) load() (*config.Config, error) {
	var overrides []config.Override
	if g.Mock {
		overrides = append(overrides, config.Override{Key: "backend.mock", Value: true})
	}
	if g.Debug {
		overrides = append(overrides, config.Override{Key: "log.level", Value: "debug"})
	}
	return config.Load(g.Config, overrides...)
}

func (g *globals) host(ctx context.Context) (*flowboard.Host, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	return flowboard.NewHost(ctx, flowboard.HostOptions{Config: cfg, Logger: cfg.Logger(os.Stderr)})
}

func (g *globals) client() (backend.Client, *slog.Logger, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.Logger(os.Stderr)
	if cfg.Backend.Mock {
		return backend.NewMockClient(backend.DemoData(time.Now())), logger, nil
	}
	client, err := backend.NewHTTPClient(backend.HTTPConfig{
		BaseURL:     cfg.Backend.BaseURL,
		Credentials: dashboard.StaticCredentials(cfg.Backend.Token),
		LookupTTL:   cfg.Backend.LookupTTL,
		Logger:      logger,
	})
	return client, logger, err
}

type validateCmd struct {
	Descriptor string `arg:"" type:"existingfile" help:"Descriptor file."`
}

func (cmd *validateCmd) Run() error {
	doc, err := dashboard.ReadDescriptor(cmd.Descriptor)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ %s: dashboard %s with %d widgets\n", cmd.Descriptor, doc.DashboardID, len(doc.Widgets))
	return nil
}

type resolveCmd struct {
	Descriptor string `arg:"" type:"existingfile" help:"Descriptor file."`
	Edit       bool   `help:"Resolve as in edit mode (nothing static)."`
	JSON       bool   `name:"json" help:"Print JSON instead of a table."`
}

func (cmd *resolveCmd) Run() error {
	doc, err := dashboard.ReadDescriptor(cmd.Descriptor)
	if err != nil {
		return err
	}
	resolved := dashboard.ResolveWidgets(doc.Widgets, dashboard.ResolveOptions{EditMode: cmd.Edit, Columns: doc.Columns})
	if cmd.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(dashboard.LayoutItems(resolved.Positions))
	}
	writeLayoutTable(os.Stdout, resolved)
	return nil
}

func writeLayoutTable(w io.Writer, resolved dashboard.ResolvedLayout) {
	fmt.Fprintf(w, "%-20s %-14s %3s %3s %3s %3s %s\n", "LAYOUT", "COMPONENT", "X", "Y", "W", "H", "STATIC")
	for i, p := range resolved.Positions {
		component := resolved.Widgets[i].Component
		if component == "" {
			component = strcase.ToKebab(resolved.Widgets[i].Type)
		}
		fmt.Fprintf(w, "%-20s %-14s %3d %3d %3d %3d %t\n", p.LayoutID, component, p.X, p.Y, p.W, p.H, p.Static)
	}
}

type saveCmd struct {
	Descriptor string `arg:"" type:"existingfile" help:"Descriptor file."`
}

func (cmd *saveCmd) Run(ctx context.Context, g *globals) error {
	doc, err := dashboard.ReadDescriptor(cmd.Descriptor)
	if err != nil {
		return err
	}
	client, _, err := g.client()
	if err != nil {
		return err
	}
	resolved := dashboard.ResolveWidgets(doc.Widgets, dashboard.ResolveOptions{EditMode: true, Columns: doc.Columns})
	if err := client.SaveLayout(ctx, doc.DashboardID, dashboard.LayoutItems(resolved.Positions)); err != nil {
		return fmt.Errorf("flowctl: save %s: %w", doc.DashboardID, err)
	}
	fmt.Fprintf(os.Stdout, "✓ saved %d widgets for %s\n", len(resolved.Positions), doc.DashboardID)
	return nil
}

type watchCmd struct {
	Descriptor string        `arg:"" type:"existingfile" help:"Descriptor file."`
	Interval   time.Duration `help:"Override the refresh interval."`
	Once       bool          `help:"Print the first refresh and exit."`
	Width      int           `default:"18" help:"Card width in cells."`
}

func (cmd *watchCmd) Run(ctx context.Context, g *globals) error {
	h, err := g.host(ctx)
	if err != nil {
		return err
	}
	defer h.Close()

	doc, err := dashboard.ReadDescriptor(cmd.Descriptor)
	if err != nil {
		return err
	}
	if cmd.Interval > 0 {
		doc.RefreshInterval = cmd.Interval
	}
	events, cancel := h.Broadcast.Subscribe(doc.DashboardID)
	defer cancel()
	session, err := h.Mount(ctx, doc)
	if err != nil {
		return err
	}

	keys := watchKeys(doc.Widgets)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Type != dashboard.EventMetricsUpdated {
				continue
			}
			last := session.RefreshState().LastRefresh
			cards := session.Metrics().Cards(keys, session.MetricSnapshot(), last)
			if len(keys) > 0 {
				cards = append(cards, lastRefreshCard(last))
			}
			fmt.Fprintln(os.Stdout, renderCards(doc.Title, cards, cmd.Width))
			if cmd.Once {
				return nil
			}
		}
	}
}

// watchKeys collects the metric keys of every metric widget, in order.
func watchKeys(widgets []dashboard.WidgetConfig) []string {
	var keys []string
	seen := map[string]bool{}
	for _, w := range widgets {
		if w.Type != dashboard.WidgetTypeMetric {
			continue
		}
		for _, k := range dashboard.MetricKeys(w) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

type chartCmd struct {
	Descriptor string `arg:"" type:"existingfile" help:"Descriptor file."`
	LayoutID   string `arg:"" help:"Layout id of the chart widget."`
	Out        string `short:"o" type:"path" default:"chart.html" help:"Output HTML file."`
	Dark       bool   `help:"Use the dark theme."`
}

func (cmd *chartCmd) Run(ctx context.Context, g *globals) error {
	doc, err := dashboard.ReadDescriptor(cmd.Descriptor)
	if err != nil {
		return err
	}
	var widget *dashboard.WidgetConfig
	for i := range doc.Widgets {
		if doc.Widgets[i].LayoutID == cmd.LayoutID {
			widget = &doc.Widgets[i]
		}
	}
	if widget == nil {
		return fmt.Errorf("flowctl: %s has no widget %s", doc.DashboardID, cmd.LayoutID)
	}
	client, _, err := g.client()
	if err != nil {
		return err
	}
	req := dashboard.ChartRequest{Widget: *widget, Dark: cmd.Dark}
	if doc.HierarchyID != "" {
		if req.Hierarchy, err = client.HierarchyTelemetry(ctx, doc.HierarchyID); err != nil {
			return err
		}
	}
	if doc.DeviceID != "" {
		if req.Device, err = client.DeviceTelemetry(ctx, doc.DeviceID); err != nil {
			return err
		}
	}
	markup, err := dashboard.NewEChartsRenderer().RenderChart(ctx, req)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cmd.Out, []byte(markup), 0o644); err != nil {
		return fmt.Errorf("flowctl: write chart: %w", err)
	}
	fmt.Fprintf(os.Stdout, "✓ wrote %s\n", cmd.Out)
	return nil
}

type deviceTypesCmd struct{}

func (cmd *deviceTypesCmd) Run(ctx context.Context, g *globals) error {
	client, _, err := g.client()
	if err != nil {
		return err
	}
	types, err := client.DeviceTypes(ctx)
	if err != nil {
		return err
	}
	for _, t := range types {
		fmt.Fprintf(os.Stdout, "%-8s %s\n", t.ID, t.TypeName)
	}
	return nil
}

type widgetsCmd struct {
	DeviceType string `required:"" name:"device-type" help:"Device type id."`
}

func (cmd *widgetsCmd) Run(ctx context.Context, g *globals) error {
	client, _, err := g.client()
	if err != nil {
		return err
	}
	available, err := client.AvailableWidgets(ctx, dashboard.ID(cmd.DeviceType))
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "WIDGET TYPES")
	for _, w := range available.WidgetTypes {
		fmt.Fprintf(os.Stdout, "  %-8s %s\n", w.ID, w.Name)
	}
	fmt.Fprintln(os.Stdout, "PROPERTIES")
	for _, p := range available.Properties {
		fmt.Fprintf(os.Stdout, "  %-8s %s %s\n", p.ID, p.Name, p.Unit)
	}
	return nil
}

type devicesCmd struct {
	DeviceType string `required:"" name:"device-type" help:"Device type id."`
}

func (cmd *devicesCmd) Run(ctx context.Context, g *globals) error {
	client, _, err := g.client()
	if err != nil {
		return err
	}
	devices, err := client.Devices(ctx, dashboard.ID(cmd.DeviceType))
	if err != nil {
		return err
	}
	for _, d := range devices {
		fmt.Fprintf(os.Stdout, "%-8s %-24s %s\n", d.ID, d.Name, d.SerialNumber)
	}
	return nil
}

type createWidgetCmd struct {
	DeviceType string   `required:"" name:"device-type" help:"Device type id."`
	WidgetType string   `required:"" name:"widget-type" help:"Widget type id."`
	Property   []string `required:"" help:"Property ids (repeat or comma separate)."`
	Name       string   `help:"Display name."`
}

func (cmd *createWidgetCmd) request() dashboard.CreateWidgetRequest {
	req := dashboard.CreateWidgetRequest{
		DeviceTypeID: dashboard.ID(cmd.DeviceType),
		WidgetTypeID: dashboard.ID(cmd.WidgetType),
		DisplayName:  cmd.Name,
	}
	for _, p := range cmd.Property {
		for _, id := range strings.Split(p, ",") {
			req.PropertyIDs = append(req.PropertyIDs, dashboard.ID(id))
		}
	}
	return req
}

func (cmd *createWidgetCmd) Run(ctx context.Context, g *globals) error {
	client, logger, err := g.client()
	if err != nil {
		return err
	}
	res, err := dashboard.SubmitWidget(ctx, client, nil, cmd.request())
	if err != nil {
		return err
	}
	logger.Debug("widget created", slog.String("message", res.Message))
	fmt.Fprintln(os.Stdout, "✓ widget created")
	return nil
}

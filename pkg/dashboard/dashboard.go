// Package dashboard assembles the flowboard components into a host: backend
// client, layout storage, event fan-out, telemetry and the mounted sessions.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	core "github.com/goliatone/go-flowboard/components/dashboard"
	"github.com/goliatone/go-flowboard/components/dashboard/httpapi"
	"github.com/goliatone/go-flowboard/pkg/backend"
	"github.com/goliatone/go-flowboard/pkg/config"
	"github.com/goliatone/go-flowboard/pkg/layoutdb"
	"github.com/goliatone/go-flowboard/pkg/natsbus"
	"github.com/goliatone/go-flowboard/pkg/promtelemetry"
)

// Re-exports for hosts that only import this package.
type (
	Session    = core.Session
	Options    = core.Options
	Descriptor = core.DashboardDescriptor
	View       = core.View
)

// NewSession proxies to the core constructor.
func NewSession(opts Options) (*Session, error) {
	return core.NewSession(opts)
}

// HostOptions configures NewHost. Client and Layouts override what Config
// would build.
type HostOptions struct {
	Config   *config.Config
	Logger   *slog.Logger
	Client   backend.Client
	Layouts  core.LayoutRepository
	Registry *prometheus.Registry
	Clock    core.Clock
}

// Host owns the shared collaborators of every mounted dashboard.
type Host struct {
	Config    *config.Config
	Logger    *slog.Logger
	Client    backend.Client
	Layouts   core.LayoutRepository
	Broadcast *core.BroadcastHook
	Telemetry *promtelemetry.Telemetry
	Sessions  *core.Sessions
	Validator *core.SchemaValidator

	events  core.EventHook
	clock   core.Clock
	closers []func()
}

// NewHost connects the configured backends. Postgres and NATS are optional
// and only dialed when configured.
func NewHost(ctx context.Context, opts HostOptions) (*Host, error) {
	if opts.Config == nil {
		return nil, errors.New("dashboard: host config is required")
	}
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Host{
		Config:    cfg,
		Logger:    logger,
		Broadcast: core.NewBroadcastHook(),
		Telemetry: promtelemetry.New(opts.Registry),
		Validator: core.NewSchemaValidator(),
		clock:     opts.Clock,
	}
	h.Sessions = core.NewSessions(core.ControllerOptions{Logger: logger})

	client, err := h.buildClient(opts.Client)
	if err != nil {
		return nil, err
	}
	h.Client = client

	h.Layouts = opts.Layouts
	if h.Layouts == nil && cfg.Postgres.DSN != "" {
		store, err := layoutdb.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		h.Layouts = store
		h.closers = append(h.closers, store.Close)
	}

	hooks := core.MultiHook{h.Broadcast}
	if cfg.NATS.URL != "" {
		pub, err := natsbus.Connect(cfg.NATS.URL)
		if err != nil {
			h.Close()
			return nil, err
		}
		hooks = append(hooks, &core.NotificationsHook{Client: pub, Channel: cfg.NATS.Channel})
		h.closers = append(h.closers, pub.Close)
	}
	h.events = hooks
	return h, nil
}

func (h *Host) buildClient(override backend.Client) (backend.Client, error) {
	if override != nil {
		return override, nil
	}
	if h.Config.Backend.Mock {
		return backend.NewMockClient(backend.DemoData(time.Now())), nil
	}
	return backend.NewHTTPClient(backend.HTTPConfig{
		BaseURL:     h.Config.Backend.BaseURL,
		Credentials: core.StaticCredentials(h.Config.Backend.Token),
		LookupTTL:   h.Config.Backend.LookupTTL,
		Logger:      h.Logger,
	})
}

// Mount builds, starts and registers a session for the descriptor. A saved
// layout in Layouts takes precedence over descriptor positions.
func (h *Host) Mount(ctx context.Context, doc *Descriptor) (*Session, error) {
	opts := doc.SessionOptions()
	widgets, err := core.LoadWidgets(ctx, h.Layouts, doc.DashboardID, opts.Widgets)
	if err != nil {
		return nil, err
	}
	opts.Widgets = widgets
	opts.Saver = h.Client
	if h.Layouts != nil {
		opts.Saver = h.Layouts
	}
	opts.Source = h.Client
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = h.Config.Refresh.Interval
	}
	opts.FetchTimeout = h.Config.Refresh.FetchTimeout
	opts.SaveTimeout = h.Config.Refresh.SaveTimeout
	opts.Clock = h.clock
	opts.Events = h.events
	opts.Telemetry = h.Telemetry
	opts.Logger = h.Logger.With(slog.String("dashboard_id", doc.DashboardID))

	session, err := core.NewSession(opts)
	if err != nil {
		return nil, err
	}
	if err := h.Sessions.Add(session); err != nil {
		session.Close()
		return nil, err
	}
	if err := session.Start(); err != nil {
		h.Sessions.Remove(doc.DashboardID)
		return nil, err
	}
	h.Logger.Info("dashboard mounted",
		slog.String("dashboard_id", doc.DashboardID),
		slog.Int("widgets", len(widgets)),
		slog.Duration("refresh", opts.RefreshInterval),
	)
	return session, nil
}

// MountFile reads a descriptor from disk and mounts it.
func (h *Host) MountFile(ctx context.Context, path string) (*Session, error) {
	doc, err := core.ReadDescriptor(path)
	if err != nil {
		return nil, err
	}
	return h.Mount(ctx, doc)
}

// MountConfigured mounts every descriptor listed in the config.
func (h *Host) MountConfigured(ctx context.Context) error {
	var errs []error
	for _, path := range h.Config.Descriptors {
		if _, err := h.MountFile(ctx, path); err != nil {
			errs = append(errs, fmt.Errorf("mount %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

// Handlers returns HTTP handlers bound to the mounted sessions.
func (h *Host) Handlers() *httpapi.Handlers {
	return httpapi.NewHandlers(httpapi.Dependencies{
		Sessions:  h.Sessions,
		Catalog:   h.Client,
		Validator: h.Validator,
		Telemetry: h.Telemetry,
	})
}

// Close unmounts every session and releases connections.
func (h *Host) Close() {
	if h.Sessions != nil {
		h.Sessions.Close()
	}
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i]()
	}
	h.closers = nil
}

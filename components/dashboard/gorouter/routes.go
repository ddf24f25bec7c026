package gorouter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-flowboard/components/dashboard"
	"github.com/goliatone/go-flowboard/components/dashboard/commands"
	"github.com/goliatone/go-flowboard/components/dashboard/httpapi"
	"github.com/goliatone/go-flowboard/components/dashboard/queries"
)

// Config wires go-router with dashboard commands, queries and event hooks.
type Config[T any] struct {
	Router    router.Router[T]
	API       *httpapi.Handlers
	Broadcast *dashboard.BroadcastHook
	BasePath  string
	Routes    RouteConfig
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
// Paths containing :id receive the dashboard id.
type RouteConfig struct {
	Layout    string
	View      string
	Metrics   string
	Mode      string
	Retry     string
	Refresh   string
	Widgets   string
	WebSocket string
}

// Register mounts dashboard routes (JSON, REST, WebSocket) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.API == nil {
		return errors.New("gorouter: api handlers are required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/api"
	}
	group := cfg.Router.Group(base)
	api := cfg.API

	if api.Layout != nil {
		group.Get(routes.Layout, router.WrapHandler(func(ctx router.Context) error {
			snapshot, err := api.Layout.Query(ctx.Context(), queries.DashboardInput{DashboardID: dashboardID(ctx)})
			if err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, snapshot)
		}))
	}
	if api.View != nil {
		group.Get(routes.View, router.WrapHandler(func(ctx router.Context) error {
			view, err := api.View.Query(ctx.Context(), queries.DashboardInput{DashboardID: dashboardID(ctx)})
			if err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, view)
		}))
	}
	if api.Metrics != nil {
		group.Get(routes.Metrics, router.WrapHandler(func(ctx router.Context) error {
			snapshot, err := api.Metrics.Query(ctx.Context(), queries.DashboardInput{DashboardID: dashboardID(ctx)})
			if err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, snapshot)
		}))
	}
	registerCommands(group, api, routes)

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}
	return nil
}

func registerCommands[T any](r router.Router[T], api *httpapi.Handlers, routes RouteConfig) {
	if api.ApplyEdit != nil {
		r.Post(routes.Layout, router.WrapHandler(func(ctx router.Context) error {
			var payload struct {
				Positions []dashboard.LayoutPosition `json:"positions"`
			}
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
				return badRequest(ctx, err)
			}
			input := commands.ApplyLayoutEditInput{DashboardID: dashboardID(ctx), Positions: payload.Positions}
			if err := api.ApplyEdit.Execute(ctx.Context(), input); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
		}))
	}

	if api.SetEditMode != nil {
		r.Post(routes.Mode, router.WrapHandler(func(ctx router.Context) error {
			var payload struct {
				Edit bool `json:"edit"`
			}
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
				return badRequest(ctx, err)
			}
			input := commands.SetEditModeInput{DashboardID: dashboardID(ctx), Edit: payload.Edit}
			if err := api.SetEditMode.Execute(ctx.Context(), input); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, map[string]any{"editMode": payload.Edit})
		}))
	}

	if api.Retry != nil {
		r.Post(routes.Retry, router.WrapHandler(func(ctx router.Context) error {
			if err := api.Retry.Execute(ctx.Context(), commands.RetrySaveInput{DashboardID: dashboardID(ctx)}); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusAccepted, map[string]string{"status": "retrying"})
		}))
	}

	if api.Refresh != nil {
		r.Post(routes.Refresh, router.WrapHandler(func(ctx router.Context) error {
			if err := api.Refresh.Execute(ctx.Context(), commands.RefreshMetricsInput{DashboardID: dashboardID(ctx)}); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
		}))
	}

	if api.CreateWidget != nil {
		r.Post(routes.Widgets, router.WrapHandler(func(ctx router.Context) error {
			var payload dashboard.CreateWidgetRequest
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
				return badRequest(ctx, err)
			}
			if err := api.CreateWidget.Execute(ctx.Context(), payload); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusCreated, map[string]string{"status": "created"})
		}))
	}
}

func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe(strings.TrimSpace(ws.Param("id")))
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func dashboardID(ctx router.Context) string {
	return strings.TrimSpace(ctx.Param("id"))
}

func badRequest(ctx router.Context, err error) error {
	return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func respondError(ctx router.Context, err error) error {
	return ctx.JSON(httpapi.StatusFor(err), map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Layout == "" {
		routes.Layout = "/dashboards/:id/layout"
	}
	if routes.View == "" {
		routes.View = "/dashboards/:id/view"
	}
	if routes.Metrics == "" {
		routes.Metrics = "/dashboards/:id/metrics"
	}
	if routes.Mode == "" {
		routes.Mode = "/dashboards/:id/mode"
	}
	if routes.Retry == "" {
		routes.Retry = "/dashboards/:id/retry"
	}
	if routes.Refresh == "" {
		routes.Refresh = "/dashboards/:id/refresh"
	}
	if routes.Widgets == "" {
		routes.Widgets = "/widgets"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/dashboards/:id/ws"
	}
	return routes
}

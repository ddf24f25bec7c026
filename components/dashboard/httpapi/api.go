package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-flowboard/components/dashboard"
	"github.com/goliatone/go-flowboard/components/dashboard/commands"
	"github.com/goliatone/go-flowboard/components/dashboard/queries"
)

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	ApplyEdit    gocommand.Commander[commands.ApplyLayoutEditInput]
	SetEditMode  gocommand.Commander[commands.SetEditModeInput]
	Retry        gocommand.Commander[commands.RetrySaveInput]
	Refresh      gocommand.Commander[commands.RefreshMetricsInput]
	CreateWidget gocommand.Commander[dashboard.CreateWidgetRequest]

	Layout  gocommand.Querier[queries.DashboardInput, dashboard.LayoutSnapshot]
	View    gocommand.Querier[queries.DashboardInput, dashboard.View]
	Metrics gocommand.Querier[queries.DashboardInput, dashboard.MetricSnapshot]
}

type editPayload struct {
	Positions []dashboard.LayoutPosition `json:"positions"`
}

type modePayload struct {
	Edit bool `json:"edit"`
}

func (h *Handlers) HandleLayout(w http.ResponseWriter, r *http.Request, dashboardID string) {
	snapshot, err := h.Layout.Query(r.Context(), queries.DashboardInput{DashboardID: dashboardID})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handlers) HandleView(w http.ResponseWriter, r *http.Request, dashboardID string) {
	view, err := h.View.Query(r.Context(), queries.DashboardInput{DashboardID: dashboardID})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) HandleMetrics(w http.ResponseWriter, r *http.Request, dashboardID string) {
	snapshot, err := h.Metrics.Query(r.Context(), queries.DashboardInput{DashboardID: dashboardID})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handlers) HandleApplyEdit(w http.ResponseWriter, r *http.Request, dashboardID string) {
	var payload editPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input := commands.ApplyLayoutEditInput{DashboardID: dashboardID, Positions: payload.Positions}
	if err := h.ApplyEdit.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) HandleSetEditMode(w http.ResponseWriter, r *http.Request, dashboardID string) {
	var payload modePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input := commands.SetEditModeInput{DashboardID: dashboardID, Edit: payload.Edit}
	if err := h.SetEditMode.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleRetry(w http.ResponseWriter, r *http.Request, dashboardID string) {
	if err := h.Retry.Execute(r.Context(), commands.RetrySaveInput{DashboardID: dashboardID}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request, dashboardID string) {
	if err := h.Refresh.Execute(r.Context(), commands.RefreshMetricsInput{DashboardID: dashboardID}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) HandleCreateWidget(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.CreateWidgetRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.CreateWidget.Execute(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// StatusFor maps dashboard errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrUnknownDashboard):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrMissingCredential):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), StatusFor(err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Dependencies wires default handlers onto mounted sessions.
type Dependencies struct {
	Sessions  *dashboard.Sessions
	Catalog   dashboard.WidgetCatalog
	Validator *dashboard.SchemaValidator
	Telemetry commands.Telemetry
}

// NewHandlers builds handlers backed by the standard commands and queries.
// CreateWidget stays nil when no catalog is configured.
func NewHandlers(deps Dependencies) *Handlers {
	h := &Handlers{
		ApplyEdit:   commands.NewApplyLayoutEditCommand(deps.Sessions, deps.Telemetry),
		SetEditMode: commands.NewSetEditModeCommand(deps.Sessions, deps.Telemetry),
		Retry:       commands.NewRetrySaveCommand(deps.Sessions, deps.Telemetry),
		Refresh:     commands.NewRefreshMetricsCommand(deps.Sessions, deps.Telemetry),
		Layout:      queries.NewLayoutQuery(deps.Sessions),
		View:        queries.NewViewQuery(deps.Sessions),
		Metrics:     queries.NewMetricsQuery(deps.Sessions),
	}
	if deps.Catalog != nil {
		h.CreateWidget = commands.NewCreateWidgetCommand(deps.Catalog, deps.Validator, deps.Telemetry)
	}
	return h
}

package dashboard

import (
	"context"
	"errors"
	"testing"
)

func TestSessionsRoutesByDashboard(t *testing.T) {
	sessions := NewSessions(ControllerOptions{Charts: &stubChartRenderer{}})
	defer sessions.Close()

	saver := &recordingSaver{}
	for _, id := range []string{"b", "a"} {
		s, err := NewSession(Options{DashboardID: id, Widgets: sessionWidgets(), Saver: saver, Clock: newManualClock()})
		if err != nil {
			t.Fatalf("NewSession returned error: %v", err)
		}
		if err := sessions.Add(s); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}
	if ids := sessions.IDs(); len(ids) != 2 || ids[0] != "a" {
		t.Fatalf("unexpected ids %v", ids)
	}

	ctx := context.Background()
	if err := sessions.SetEditMode(ctx, "a", true); err != nil {
		t.Fatalf("SetEditMode returned error: %v", err)
	}
	layout, err := sessions.Layout(ctx, "a")
	if err != nil {
		t.Fatalf("Layout returned error: %v", err)
	}
	layout.Positions[0].H = 5
	applied, err := sessions.ApplyEdit(ctx, "a", layout.Positions)
	if err != nil || !applied {
		t.Fatalf("expected edit applied, got %v %v", applied, err)
	}
	other, _ := sessions.Layout(ctx, "b")
	if other.Revision != 0 || other.EditMode {
		t.Fatalf("edits must not leak across dashboards: %#v", other)
	}

	view, err := sessions.View(ctx, "a")
	if err != nil {
		t.Fatalf("View returned error: %v", err)
	}
	if !view.EditMode || view.DashboardID != "a" {
		t.Fatalf("unexpected view %#v", view)
	}
}

func TestSessionsUnknownAndDuplicate(t *testing.T) {
	sessions := NewSessions(ControllerOptions{})
	ctx := context.Background()
	if err := sessions.Retry(ctx, "missing"); !errors.Is(err, ErrUnknownDashboard) {
		t.Fatalf("expected unknown dashboard, got %v", err)
	}
	if _, err := sessions.MetricSnapshot(ctx, ""); !errors.Is(err, errMissingDashboardID) {
		t.Fatalf("expected missing id, got %v", err)
	}

	s, _ := NewSession(Options{DashboardID: "a", Clock: newManualClock()})
	dup, _ := NewSession(Options{DashboardID: "a", Clock: newManualClock()})
	defer dup.Close()
	if err := sessions.Add(s); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := sessions.Add(dup); !errors.Is(err, errDuplicateSession) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if !sessions.Remove("a") {
		t.Fatalf("expected removal")
	}
	if err := s.SetEditMode(true); !errors.Is(err, errSessionClosed) {
		t.Fatalf("removed sessions must be closed, got %v", err)
	}
	if sessions.Remove("a") {
		t.Fatalf("second removal must report false")
	}
}

package dashboard

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Sessions tracks the mounted dashboards of a host and routes transport
// calls to the right session.
type Sessions struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	controllers map[string]*Controller
	opts        ControllerOptions
}

// NewSessions creates an empty set. opts is used for every controller it
// builds.
func NewSessions(opts ControllerOptions) *Sessions {
	return &Sessions{
		sessions:    make(map[string]*Session),
		controllers: make(map[string]*Controller),
		opts:        opts,
	}
}

// Add mounts a session.
func (m *Sessions) Add(session *Session) error {
	if session == nil {
		return errMissingDashboardID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID()]; ok {
		return fmt.Errorf("%w: %s", errDuplicateSession, session.ID())
	}
	m.sessions[session.ID()] = session
	m.controllers[session.ID()] = NewController(session, m.opts)
	return nil
}

// Session returns the mounted session for dashboardID.
func (m *Sessions) Session(dashboardID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[dashboardID]
	return s, ok
}

// Remove unmounts and closes a session.
func (m *Sessions) Remove(dashboardID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[dashboardID]
	delete(m.sessions, dashboardID)
	delete(m.controllers, dashboardID)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// IDs lists mounted dashboards in sorted order.
func (m *Sessions) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Close unmounts every session.
func (m *Sessions) Close() {
	for _, id := range m.IDs() {
		m.Remove(id)
	}
}

func (m *Sessions) lookup(dashboardID string) (*Session, error) {
	if dashboardID == "" {
		return nil, errMissingDashboardID
	}
	s, ok := m.Session(dashboardID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDashboard, dashboardID)
	}
	return s, nil
}

// ApplyEdit routes a layout edit.
func (m *Sessions) ApplyEdit(_ context.Context, dashboardID string, positions []LayoutPosition) (bool, error) {
	s, err := m.lookup(dashboardID)
	if err != nil {
		return false, err
	}
	return s.ApplyEdit(positions)
}

// SetEditMode routes an edit mode toggle.
func (m *Sessions) SetEditMode(_ context.Context, dashboardID string, edit bool) error {
	s, err := m.lookup(dashboardID)
	if err != nil {
		return err
	}
	return s.SetEditMode(edit)
}

// Retry routes a manual save retry.
func (m *Sessions) Retry(_ context.Context, dashboardID string) error {
	s, err := m.lookup(dashboardID)
	if err != nil {
		return err
	}
	return s.Retry()
}

// Refresh requests a telemetry fetch outside the regular cycle.
func (m *Sessions) Refresh(_ context.Context, dashboardID string) error {
	s, err := m.lookup(dashboardID)
	if err != nil {
		return err
	}
	if s.isClosed() {
		return errSessionClosed
	}
	s.RequestRefresh()
	return nil
}

// Layout returns the layout snapshot of a dashboard.
func (m *Sessions) Layout(_ context.Context, dashboardID string) (LayoutSnapshot, error) {
	s, err := m.lookup(dashboardID)
	if err != nil {
		return LayoutSnapshot{}, err
	}
	return s.Layout(), nil
}

// MetricSnapshot returns the aggregated metrics of a dashboard.
func (m *Sessions) MetricSnapshot(_ context.Context, dashboardID string) (MetricSnapshot, error) {
	s, err := m.lookup(dashboardID)
	if err != nil {
		return MetricSnapshot{}, err
	}
	return s.MetricSnapshot(), nil
}

// View builds the render model of a dashboard.
func (m *Sessions) View(ctx context.Context, dashboardID string) (View, error) {
	if _, err := m.lookup(dashboardID); err != nil {
		return View{}, err
	}
	m.mu.RLock()
	c := m.controllers[dashboardID]
	m.mu.RUnlock()
	if c == nil {
		return View{}, fmt.Errorf("%w: %s", ErrUnknownDashboard, dashboardID)
	}
	return c.View(ctx)
}

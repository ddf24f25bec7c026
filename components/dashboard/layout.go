package dashboard

import (
	"sync"
)

// LayoutStore holds the grid layout of one dashboard. Edits are accepted only
// in edit mode; view mode keeps the layout immutable.
type LayoutStore struct {
	mu          sync.RWMutex
	dashboardID string
	columns     int
	widgets     map[string]WidgetConfig
	positions   []LayoutPosition
	revision    uint64
	dirty       bool
	editMode    bool
	listeners   []LayoutListener
}

// NewLayoutStore builds a store from resolver output.
func NewLayoutStore(dashboardID string, resolved ResolvedLayout, columns int) *LayoutStore {
	widgets := make(map[string]WidgetConfig, len(resolved.Index))
	for id, w := range resolved.Index {
		widgets[id] = w
	}
	positions := make([]LayoutPosition, len(resolved.Positions))
	copy(positions, resolved.Positions)
	return &LayoutStore{
		dashboardID: dashboardID,
		columns:     normalizeColumns(columns),
		widgets:     widgets,
		positions:   positions,
	}
}

// Subscribe registers a listener for applied edits.
func (s *LayoutStore) Subscribe(l LayoutListener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// SetEditMode switches between view and edit mode.
func (s *LayoutStore) SetEditMode(edit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editMode = edit
}

// EditMode reports the current mode.
func (s *LayoutStore) EditMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editMode
}

// ApplyEdit replaces the full position set. It is silently ignored in view
// mode; the returned bool reports whether the edit was applied. Positions
// whose layout id has no matching widget are dropped.
func (s *LayoutStore) ApplyEdit(positions []LayoutPosition) bool {
	s.mu.Lock()
	if !s.editMode {
		s.mu.Unlock()
		return false
	}
	current := make(map[string]LayoutPosition, len(s.positions))
	for _, p := range s.positions {
		current[p.LayoutID] = p
	}
	next := make([]LayoutPosition, 0, len(positions))
	seen := make(map[string]struct{}, len(positions))
	for _, p := range positions {
		if _, ok := s.widgets[p.LayoutID]; !ok {
			continue
		}
		if _, dup := seen[p.LayoutID]; dup {
			continue
		}
		seen[p.LayoutID] = struct{}{}
		// minimums belong to the widget, not to the gesture
		if prev, ok := current[p.LayoutID]; ok {
			p.MinW, p.MinH = prev.MinW, prev.MinH
		}
		p.Static = false
		next = append(next, clampPosition(p, s.columns))
	}
	next = appendMissing(next, s.positions, seen)
	s.positions = next
	s.revision++
	s.dirty = true
	snapshot := s.snapshotLocked()
	listeners := append([]LayoutListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l.LayoutChanged(snapshot)
	}
	return true
}

// appendMissing keeps widgets the edit did not mention at their last position
// so a partial gesture payload never removes a widget from the grid.
func appendMissing(next, previous []LayoutPosition, seen map[string]struct{}) []LayoutPosition {
	for _, p := range previous {
		if _, ok := seen[p.LayoutID]; !ok {
			next = append(next, p)
		}
	}
	return next
}

// CurrentLayout returns the positions from the last applied edit, or the
// resolver defaults when no edit happened.
func (s *LayoutStore) CurrentLayout() []LayoutPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLocked()
}

// Snapshot returns the full layout state.
func (s *LayoutStore) Snapshot() LayoutSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Widget looks up the descriptor entry for a layout id.
func (s *LayoutStore) Widget(layoutID string) (WidgetConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.widgets[layoutID]
	return w, ok
}

// MarkSaved clears the dirty flag when revision is still the latest one.
func (s *LayoutStore) MarkSaved(revision uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if revision == s.revision {
		s.dirty = false
	}
}

func (s *LayoutStore) snapshotLocked() LayoutSnapshot {
	return LayoutSnapshot{
		DashboardID: s.dashboardID,
		Revision:    s.revision,
		Dirty:       s.dirty,
		EditMode:    s.editMode,
		Positions:   s.currentLocked(),
	}
}

func (s *LayoutStore) currentLocked() []LayoutPosition {
	out := make([]LayoutPosition, 0, len(s.positions))
	for _, p := range s.positions {
		w, ok := s.widgets[p.LayoutID]
		if !ok {
			continue
		}
		if s.editMode {
			p.Static = false
		} else if w.LayoutConfig.Static != nil {
			p.Static = *w.LayoutConfig.Static
		}
		out = append(out, p)
	}
	return out
}

package dashboard

import (
	"context"
	"fmt"
	"sync"
)

// LayoutRepository stores saved layouts so they can be merged back into a
// descriptor on the next load.
type LayoutRepository interface {
	LayoutSaver
	LoadLayout(ctx context.Context, dashboardID string) ([]LayoutItem, error)
}

// InMemoryLayoutRepository is a concurrency-safe repository for tests and
// single-process hosts.
type InMemoryLayoutRepository struct {
	mu    sync.RWMutex
	data  map[string][]LayoutItem
	saves int
}

// NewInMemoryLayoutRepository creates an empty repository.
func NewInMemoryLayoutRepository() *InMemoryLayoutRepository {
	return &InMemoryLayoutRepository{data: make(map[string][]LayoutItem)}
}

// SaveLayout replaces the stored layout. Last write wins.
func (r *InMemoryLayoutRepository) SaveLayout(_ context.Context, dashboardID string, items []LayoutItem) error {
	if dashboardID == "" {
		return errMissingDashboardID
	}
	stored := make([]LayoutItem, len(items))
	copy(stored, items)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[dashboardID] = stored
	r.saves++
	return nil
}

// LoadLayout returns the stored layout, or nil when none was saved.
func (r *InMemoryLayoutRepository) LoadLayout(_ context.Context, dashboardID string) ([]LayoutItem, error) {
	if dashboardID == "" {
		return nil, errMissingDashboardID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	items, ok := r.data[dashboardID]
	if !ok {
		return nil, nil
	}
	out := make([]LayoutItem, len(items))
	copy(out, items)
	return out, nil
}

// Saves counts successful saves.
func (r *InMemoryLayoutRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

// ApplyLayoutItems overlays saved layout configs onto descriptor widgets.
// Items for unknown layout ids are ignored.
func ApplyLayoutItems(widgets []WidgetConfig, items []LayoutItem) []WidgetConfig {
	out := make([]WidgetConfig, len(widgets))
	copy(out, widgets)
	if len(items) == 0 {
		return out
	}
	byID := make(map[string]GridRect, len(items))
	for _, item := range items {
		byID[item.LayoutID] = item.LayoutConfig
	}
	for i, w := range out {
		rect, ok := byID[w.LayoutID]
		if !ok {
			continue
		}
		out[i].LayoutConfig = rect.layoutConfig(w.LayoutConfig.Static)
	}
	return out
}

// layoutConfig keeps the descriptor's static flag since saved layouts are
// always captured in edit mode.
func (g GridRect) layoutConfig(static *bool) LayoutConfig {
	x, y, w, h, minW, minH := g.X, g.Y, g.W, g.H, g.MinW, g.MinH
	return LayoutConfig{X: &x, Y: &y, W: &w, H: &h, MinW: &minW, MinH: &minH, Static: static}
}

// LoadWidgets merges the saved layout of dashboardID into widgets.
func LoadWidgets(ctx context.Context, repo LayoutRepository, dashboardID string, widgets []WidgetConfig) ([]WidgetConfig, error) {
	if repo == nil {
		return widgets, nil
	}
	items, err := repo.LoadLayout(ctx, dashboardID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: load layout %s: %w", dashboardID, err)
	}
	return ApplyLayoutItems(widgets, items), nil
}

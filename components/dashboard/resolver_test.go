package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestResolveWidgetsFillsDefaults(t *testing.T) {
	resolved := ResolveWidgets([]WidgetConfig{
		{LayoutID: "l1", WidgetID: "w1", Component: "MetricCard"},
	}, ResolveOptions{})

	require.Len(t, resolved.Positions, 1)
	assert.Equal(t, LayoutPosition{LayoutID: "l1", X: 0, Y: 0, W: 4, H: 2, MinW: 2, MinH: 1}, resolved.Positions[0])
	assert.Equal(t, "metric-card", resolved.Widgets[0].Component)
}

func TestResolveWidgetsKeepsStoredFields(t *testing.T) {
	resolved := ResolveWidgets([]WidgetConfig{
		{LayoutID: "l1", LayoutConfig: LayoutConfig{X: intPtr(3), Y: intPtr(5), W: intPtr(6), H: intPtr(4), MinW: intPtr(3), MinH: intPtr(2), Static: boolPtr(true)}},
	}, ResolveOptions{})

	assert.Equal(t, LayoutPosition{LayoutID: "l1", X: 3, Y: 5, W: 6, H: 4, MinW: 3, MinH: 2, Static: true}, resolved.Positions[0])
}

func TestResolveWidgetsEditModeForcesMovable(t *testing.T) {
	configs := []WidgetConfig{
		{LayoutID: "a", LayoutConfig: LayoutConfig{Static: boolPtr(true)}},
		{LayoutID: "b", LayoutConfig: LayoutConfig{Static: boolPtr(false)}},
		{LayoutID: "c"},
	}
	resolved := ResolveWidgets(configs, ResolveOptions{EditMode: true})
	for _, pos := range resolved.Positions {
		assert.Falsef(t, pos.Static, "position %s should be movable in edit mode", pos.LayoutID)
	}

	view := ResolveWidgets(configs, ResolveOptions{})
	assert.True(t, view.Positions[0].Static)
}

func TestResolveWidgetsOrderAndIndex(t *testing.T) {
	resolved := ResolveWidgets([]WidgetConfig{
		{LayoutID: "late", DisplayOrder: 2},
		{LayoutID: "first", DisplayOrder: 1},
		{LayoutID: "second", DisplayOrder: 1},
		{LayoutID: ""},
		{LayoutID: "first", DisplayOrder: 9},
	}, ResolveOptions{})

	ids := make([]string, 0, len(resolved.Positions))
	for _, p := range resolved.Positions {
		ids = append(ids, p.LayoutID)
	}
	assert.Equal(t, []string{"first", "second", "late"}, ids)

	w, ok := resolved.Lookup("second")
	require.True(t, ok)
	assert.Equal(t, 1, w.DisplayOrder)
	_, ok = resolved.Lookup("missing")
	assert.False(t, ok)
}

func TestResolveWidgetsClampsToGrid(t *testing.T) {
	resolved := ResolveWidgets([]WidgetConfig{
		{LayoutID: "wide", LayoutConfig: LayoutConfig{X: intPtr(10), W: intPtr(6)}},
		{LayoutID: "tiny", LayoutConfig: LayoutConfig{X: intPtr(-2), Y: intPtr(-1), W: intPtr(1), H: intPtr(0), MinW: intPtr(3)}},
		{LayoutID: "huge", LayoutConfig: LayoutConfig{W: intPtr(40)}},
	}, ResolveOptions{Columns: 12})

	assert.Equal(t, 6, resolved.Positions[0].X)
	assert.Equal(t, 6, resolved.Positions[0].W)

	tiny := resolved.Positions[1]
	assert.Equal(t, 0, tiny.X)
	assert.Equal(t, 0, tiny.Y)
	assert.Equal(t, 3, tiny.W)
	assert.Equal(t, 1, tiny.H)

	assert.Equal(t, 12, resolved.Positions[2].W)
	assert.Equal(t, 0, resolved.Positions[2].X)
}

package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	snapshots []LayoutSnapshot
}

func (l *recordingListener) LayoutChanged(s LayoutSnapshot) {
	l.snapshots = append(l.snapshots, s)
}

func sampleStore(t *testing.T) *LayoutStore {
	t.Helper()
	resolved := ResolveWidgets([]WidgetConfig{
		{LayoutID: "a", LayoutConfig: LayoutConfig{Static: boolPtr(true)}},
		{LayoutID: "b", LayoutConfig: LayoutConfig{X: intPtr(4)}},
	}, ResolveOptions{})
	return NewLayoutStore("dash-1", resolved, 12)
}

func TestApplyEditIgnoredInViewMode(t *testing.T) {
	store := sampleStore(t)
	listener := &recordingListener{}
	store.Subscribe(listener)
	before := store.CurrentLayout()

	applied := store.ApplyEdit([]LayoutPosition{{LayoutID: "a", X: 8, W: 4, H: 2, MinW: 2, MinH: 1}})

	assert.False(t, applied)
	assert.Equal(t, before, store.CurrentLayout())
	assert.Empty(t, listener.snapshots)
	assert.Zero(t, store.Snapshot().Revision)
}

func TestApplyEditInEditMode(t *testing.T) {
	store := sampleStore(t)
	listener := &recordingListener{}
	store.Subscribe(listener)
	store.SetEditMode(true)

	applied := store.ApplyEdit([]LayoutPosition{
		{LayoutID: "b", X: 0, Y: 0, W: 6, H: 3, MinW: 2, MinH: 1},
		{LayoutID: "a", X: 6, Y: 0, W: 6, H: 3, MinW: 2, MinH: 1},
	})
	require.True(t, applied)

	snap := store.Snapshot()
	assert.Equal(t, uint64(1), snap.Revision)
	assert.True(t, snap.Dirty)
	require.Len(t, listener.snapshots, 1)
	assert.Equal(t, snap, listener.snapshots[0])

	layout := store.CurrentLayout()
	require.Len(t, layout, 2)
	assert.Equal(t, "b", layout[0].LayoutID)
	assert.Equal(t, 6, layout[1].X)
	for _, p := range layout {
		assert.False(t, p.Static)
	}
}

func TestApplyEditDropsUnknownLayoutIDs(t *testing.T) {
	store := sampleStore(t)
	store.SetEditMode(true)

	store.ApplyEdit([]LayoutPosition{
		{LayoutID: "ghost", X: 0, W: 4, H: 2},
		{LayoutID: "a", X: 2, W: 4, H: 2, MinW: 2, MinH: 1},
	})

	layout := store.CurrentLayout()
	ids := []string{}
	for _, p := range layout {
		ids = append(ids, p.LayoutID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestViewModeRestoresDescriptorStatic(t *testing.T) {
	store := sampleStore(t)
	store.SetEditMode(true)
	store.ApplyEdit(store.CurrentLayout())
	store.SetEditMode(false)

	layout := store.CurrentLayout()
	assert.True(t, layout[0].Static)
	assert.False(t, layout[1].Static)
}

func TestMarkSavedOnlyClearsCurrentRevision(t *testing.T) {
	store := sampleStore(t)
	store.SetEditMode(true)
	store.ApplyEdit(store.CurrentLayout())
	store.ApplyEdit(store.CurrentLayout())

	store.MarkSaved(1)
	assert.True(t, store.Snapshot().Dirty)
	store.MarkSaved(2)
	assert.False(t, store.Snapshot().Dirty)
}

func TestApplyEditKeepsStoredMinimums(t *testing.T) {
	resolved := ResolveWidgets([]WidgetConfig{
		{LayoutID: "a", LayoutConfig: LayoutConfig{W: intPtr(4), H: intPtr(3), MinW: intPtr(3), MinH: intPtr(2)}},
	}, ResolveOptions{})
	store := NewLayoutStore("dash-1", resolved, 12)
	store.SetEditMode(true)

	require.True(t, store.ApplyEdit([]LayoutPosition{{LayoutID: "a", X: 1, W: 1, H: 1, MinW: 1, MinH: 1}}))

	got := store.CurrentLayout()[0]
	assert.Equal(t, 3, got.MinW)
	assert.Equal(t, 2, got.MinH)
	assert.Equal(t, 3, got.W, "width raised back to the stored minimum")
	assert.Equal(t, 2, got.H)
	assert.Equal(t, 1, got.X)
}

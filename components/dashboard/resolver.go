package dashboard

import (
	"sort"
	"strings"

	"github.com/ettle/strcase"
)

const (
	defaultW    = 4
	defaultH    = 2
	defaultMinW = 2
	defaultMinH = 1
)

// ResolveOptions controls widget resolution.
type ResolveOptions struct {
	EditMode bool
	Columns  int
}

// ResolvedLayout is the output of ResolveWidgets.
type ResolvedLayout struct {
	Widgets   []WidgetConfig
	Positions []LayoutPosition
	Index     map[string]WidgetConfig
}

// Lookup returns the widget that owns layoutID.
func (r ResolvedLayout) Lookup(layoutID string) (WidgetConfig, bool) {
	w, ok := r.Index[layoutID]
	return w, ok
}

// ResolveWidgets turns descriptor entries into grid positions, filling missing
// layout fields with defaults. Entries are ordered by DisplayOrder, ties keep
// input order. In edit mode every position is movable.
func ResolveWidgets(configs []WidgetConfig, opts ResolveOptions) ResolvedLayout {
	columns := normalizeColumns(opts.Columns)
	ordered := make([]WidgetConfig, 0, len(configs))
	for _, cfg := range configs {
		if strings.TrimSpace(cfg.LayoutID) == "" {
			continue
		}
		cfg.Component = normalizeComponent(cfg.Component)
		ordered = append(ordered, cfg)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DisplayOrder < ordered[j].DisplayOrder
	})

	out := ResolvedLayout{
		Widgets:   make([]WidgetConfig, 0, len(ordered)),
		Positions: make([]LayoutPosition, 0, len(ordered)),
		Index:     make(map[string]WidgetConfig, len(ordered)),
	}
	for _, cfg := range ordered {
		if _, dup := out.Index[cfg.LayoutID]; dup {
			continue
		}
		pos := resolvePosition(cfg, opts.EditMode)
		out.Widgets = append(out.Widgets, cfg)
		out.Positions = append(out.Positions, clampPosition(pos, columns))
		out.Index[cfg.LayoutID] = cfg
	}
	return out
}

func resolvePosition(cfg WidgetConfig, editMode bool) LayoutPosition {
	lc := cfg.LayoutConfig
	pos := LayoutPosition{
		LayoutID: cfg.LayoutID,
		X:        intOr(lc.X, 0),
		Y:        intOr(lc.Y, 0),
		W:        intOr(lc.W, defaultW),
		H:        intOr(lc.H, defaultH),
		MinW:     intOr(lc.MinW, defaultMinW),
		MinH:     intOr(lc.MinH, defaultMinH),
	}
	if lc.Static != nil && !editMode {
		pos.Static = *lc.Static
	}
	return pos
}

// clampPosition enforces w>=minW, h>=minH, x+w<=columns and non-negative
// coordinates.
func clampPosition(p LayoutPosition, columns int) LayoutPosition {
	p.X = max(p.X, 0)
	p.Y = max(p.Y, 0)
	p.MinW = min(max(p.MinW, 0), columns)
	p.MinH = max(p.MinH, 0)
	p.W = min(max(p.W, p.MinW), columns)
	p.H = max(p.H, p.MinH)
	if p.X+p.W > columns {
		p.X = columns - p.W
	}
	return p
}

func normalizeColumns(columns int) int {
	if columns <= 0 {
		return DefaultColumns
	}
	return columns
}

func normalizeComponent(component string) string {
	component = strings.TrimSpace(component)
	if component == "" {
		return ""
	}
	return strcase.ToKebab(component)
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MetricsSource fetches telemetry series for the metrics pipeline.
type MetricsSource interface {
	DeviceTelemetry(ctx context.Context, deviceID string) (*DeviceTelemetry, error)
	HierarchyTelemetry(ctx context.Context, hierarchyID string) (*HierarchyTelemetry, error)
}

// Options configures a dashboard Session. Every collaborator is an interface
// so hosts can swap implementations.
type Options struct {
	DashboardID string
	Widgets     []WidgetConfig
	Columns     int

	Saver       LayoutSaver
	SaveTimeout time.Duration

	Source          MetricsSource
	DeviceID        string
	HierarchyID     string
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	Clock           Clock

	Measurer     Measurer
	SizeObserver SizeObserver
	Resize       ResizeSignal

	Events    EventHook
	Telemetry Telemetry
	Logger    *slog.Logger
	Metrics   *MetricRegistry
}

// Session owns the live state of one mounted dashboard.
type Session struct {
	opts Options

	store       *LayoutStore
	persistence *PersistenceService
	aggregator  *MetricsAggregator
	scheduler   *RefreshScheduler
	sizes       *SizeTracker

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.RWMutex
	closed      bool
	started     bool
	fetchSeq    uint64
	appliedSeq  uint64
	fetchErr    error
	container   Size
	cardSizes   map[string]Size
	releases    []func()
	inflight    sync.WaitGroup
	lastSaveErr error
	savedRev    uint64
}

// NewSession resolves the descriptor and wires the layout, persistence and
// metrics pipeline. Call Start to begin refreshing.
func NewSession(opts Options) (*Session, error) {
	if opts.DashboardID == "" {
		return nil, errMissingDashboardID
	}
	opts.Columns = normalizeColumns(opts.Columns)
	opts.Events = normalizeEventHook(opts.Events)
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	opts.Logger = normalizeLogger(opts.Logger)
	opts.Clock = normalizeClock(opts.Clock)
	if opts.Metrics == nil {
		opts.Metrics = NewMetricRegistry()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		opts:       opts,
		aggregator: NewMetricsAggregator(),
		ctx:        ctx,
		cancel:     cancel,
		cardSizes:  map[string]Size{},
	}
	resolved := ResolveWidgets(opts.Widgets, ResolveOptions{Columns: opts.Columns})
	s.store = NewLayoutStore(opts.DashboardID, resolved, opts.Columns)
	s.persistence = NewPersistenceService(PersistenceOptions{
		Saver:     opts.Saver,
		Observer:  s,
		Telemetry: opts.Telemetry,
		Logger:    opts.Logger,
		Timeout:   opts.SaveTimeout,
	})
	s.store.Subscribe(s.persistence)
	s.store.Subscribe(layoutListenerFunc(s.layoutChanged))
	s.scheduler = NewRefreshScheduler(RefreshOptions{
		Clock:   opts.Clock,
		OnPulse: s.pulse,
	})
	s.sizes = NewSizeTracker(SizeTrackerOptions{
		Measurer: opts.Measurer,
		Observer: opts.SizeObserver,
		Resize:   opts.Resize,
	})
	opts.Telemetry.Record(ctx, "dashboard.session.open", map[string]any{
		"dashboard_id": opts.DashboardID,
		"widgets":      len(resolved.Widgets),
	})
	return s, nil
}

type layoutListenerFunc func(LayoutSnapshot)

func (f layoutListenerFunc) LayoutChanged(s LayoutSnapshot) { f(s) }

// ID returns the dashboard id.
func (s *Session) ID() string { return s.opts.DashboardID }

// Store exposes the layout store.
func (s *Session) Store() *LayoutStore { return s.store }

// Metrics exposes the metric registry used for cards.
func (s *Session) Metrics() *MetricRegistry { return s.opts.Metrics }

// Start fetches telemetry once and arms the refresh cycle.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errSessionClosed
	}
	already := s.started
	s.started = true
	s.mu.Unlock()
	if already {
		return nil
	}
	s.RequestRefresh()
	s.scheduler.Start(s.opts.RefreshInterval, s.RequestRefresh)
	return nil
}

// SetRefreshInterval restarts the cycle with a new period.
func (s *Session) SetRefreshInterval(interval time.Duration) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errSessionClosed
	}
	s.opts.RefreshInterval = interval
	s.mu.Unlock()
	s.scheduler.Restart(interval, s.RequestRefresh)
	return nil
}

// ApplyEdit forwards a drag/resize result to the layout store.
func (s *Session) ApplyEdit(positions []LayoutPosition) (bool, error) {
	if s.isClosed() {
		return false, errSessionClosed
	}
	return s.store.ApplyEdit(positions), nil
}

// SetEditMode switches the layout between view and edit mode.
func (s *Session) SetEditMode(edit bool) error {
	if s.isClosed() {
		return errSessionClosed
	}
	s.store.SetEditMode(edit)
	s.publish(Event{Type: EventEditModeChanged, Payload: map[string]any{"editMode": edit}})
	return nil
}

// Retry re-sends the last layout after a failed save.
func (s *Session) Retry() error {
	if s.isClosed() {
		return errSessionClosed
	}
	return s.persistence.Retry(s.opts.DashboardID)
}

// RequestRefresh asks the metrics source for fresh telemetry without waiting
// for the result. Overlapping requests are allowed; a response older than the
// one already applied is dropped.
func (s *Session) RequestRefresh() {
	if s.opts.Source == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.fetchSeq++
	seq := s.fetchSeq
	s.inflight.Add(1)
	s.mu.Unlock()
	go s.fetch(seq)
}

func (s *Session) fetch(seq uint64) {
	defer s.inflight.Done()
	// Close drops the result through the closed guard; it never aborts the
	// request itself.
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.FetchTimeout)
	defer cancel()

	var (
		device    *DeviceTelemetry
		hierarchy *HierarchyTelemetry
		errs      []error
		sources   int
	)
	if s.opts.HierarchyID != "" {
		sources++
		h, err := s.opts.Source.HierarchyTelemetry(ctx, s.opts.HierarchyID)
		if err != nil {
			errs = append(errs, fmt.Errorf("hierarchy %s: %w", s.opts.HierarchyID, err))
		} else {
			hierarchy = h
		}
	}
	if s.opts.DeviceID != "" {
		sources++
		d, err := s.opts.Source.DeviceTelemetry(ctx, s.opts.DeviceID)
		if err != nil {
			errs = append(errs, fmt.Errorf("device %s: %w", s.opts.DeviceID, err))
		} else {
			device = d
		}
	}
	var err error
	if sources > 0 && len(errs) == sources {
		err = errors.Join(errs...)
	} else if len(errs) > 0 {
		s.opts.Logger.Warn("telemetry source unavailable, using the remaining one",
			slog.String("dashboard_id", s.opts.DashboardID),
			slog.String("error", errors.Join(errs...).Error()),
		)
	}

	s.mu.Lock()
	if s.closed || seq < s.appliedSeq {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.fetchErr = err
		s.mu.Unlock()
		s.opts.Logger.Warn("telemetry fetch failed",
			slog.String("dashboard_id", s.opts.DashboardID),
			slog.String("error", err.Error()),
		)
		s.opts.Telemetry.Record(ctx, "dashboard.metrics.fetch_failed", map[string]any{
			"dashboard_id": s.opts.DashboardID,
			"error":        err.Error(),
		})
		return
	}
	s.appliedSeq = seq
	s.fetchErr = nil
	snapshot, changed := s.aggregator.Update(device, hierarchy)
	s.mu.Unlock()

	s.opts.Telemetry.Record(ctx, "dashboard.metrics.fetched", map[string]any{
		"dashboard_id": s.opts.DashboardID,
		"source":       snapshot.Source,
		"changed":      changed,
	})
	if changed {
		s.publish(Event{Type: EventMetricsUpdated, Payload: snapshot})
	}
}

// UpdateContainerSize records the grid container size reported by a host.
func (s *Session) UpdateContainerSize(size Size) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.container = size
}

// UpdateCardSize records the rendered size of a metric card.
func (s *Session) UpdateCardSize(layoutID string, size Size) {
	if _, ok := s.store.Widget(layoutID); !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cardSizes[layoutID] = size
}

// ObserveContainer tracks region as the grid container until Close.
func (s *Session) ObserveContainer(region string) error {
	return s.observe(region, s.UpdateContainerSize)
}

// ObserveCard tracks region as the card of layoutID until Close.
func (s *Session) ObserveCard(layoutID, region string) error {
	return s.observe(region, func(size Size) { s.UpdateCardSize(layoutID, size) })
}

func (s *Session) observe(region string, fn func(Size)) error {
	if s.isClosed() {
		return errSessionClosed
	}
	release, err := s.sizes.Observe(region, fn)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		release()
		return errSessionClosed
	}
	s.releases = append(s.releases, release)
	return nil
}

// ContainerSize returns the last known grid container size.
func (s *Session) ContainerSize() Size {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.container
}

// CardSize returns the last known size of a card.
func (s *Session) CardSize(layoutID string) (Size, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	size, ok := s.cardSizes[layoutID]
	return size, ok
}

// Layout returns the current layout snapshot.
func (s *Session) Layout() LayoutSnapshot { return s.store.Snapshot() }

// MetricSnapshot returns the latest derived metrics.
func (s *Session) MetricSnapshot() MetricSnapshot { return s.aggregator.Snapshot() }

// TelemetryPayloads returns the payloads behind the current snapshot.
func (s *Session) TelemetryPayloads() (*DeviceTelemetry, *HierarchyTelemetry) {
	return s.aggregator.Payloads()
}

// RefreshState returns the refresh indicator state.
func (s *Session) RefreshState() RefreshState { return s.scheduler.State() }

// SaveState reports the persistence status of the dashboard.
func (s *Session) SaveState() SaveState {
	id := s.opts.DashboardID
	s.mu.RLock()
	state := SaveState{DashboardID: id, SavedRevision: s.savedRev, Err: s.lastSaveErr}
	s.mu.RUnlock()
	state.Saving = s.persistence.Saving(id)
	return state
}

// FetchError returns the error of the last failed telemetry fetch.
func (s *Session) FetchError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchErr
}

// WaitIdle blocks until saves and telemetry fetches have settled.
func (s *Session) WaitIdle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.persistence.WaitIdle(ctx, s.opts.DashboardID)
}

// Close stops refreshing, releases size observers and drops the results of
// outstanding requests.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	releases := s.releases
	s.releases = nil
	s.mu.Unlock()

	s.scheduler.Stop()
	for _, release := range releases {
		release()
	}
	s.sizes.Close()
	s.persistence.Close()
	s.cancel()
	s.opts.Telemetry.Record(context.Background(), "dashboard.session.close", map[string]any{
		"dashboard_id": s.opts.DashboardID,
	})
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Session) layoutChanged(snapshot LayoutSnapshot) {
	s.publish(Event{Type: EventLayoutChanged, Revision: snapshot.Revision, Payload: snapshot.Positions})
}

// SaveStateChanged satisfies SaveObserver.
func (s *Session) SaveStateChanged(state SaveState) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !state.Saving {
		s.lastSaveErr = state.Err
	}
	if state.SavedRevision > s.savedRev {
		s.savedRev = state.SavedRevision
	}
	s.mu.Unlock()

	switch {
	case state.Saving:
		s.publish(Event{Type: EventLayoutSaving, Revision: state.SavedRevision})
	case state.Err != nil:
		s.publish(Event{Type: EventLayoutSaveError, Payload: map[string]any{"error": state.Err.Error()}})
	default:
		s.store.MarkSaved(state.SavedRevision)
		s.publish(Event{Type: EventLayoutSaved, Revision: state.SavedRevision})
	}
}

func (s *Session) pulse(refreshing bool) {
	s.publish(Event{Type: EventRefreshPulse, Payload: map[string]any{"refreshing": refreshing}})
}

func (s *Session) publish(event Event) {
	if s.isClosed() {
		return
	}
	event.DashboardID = s.opts.DashboardID
	if event.At.IsZero() {
		event.At = s.opts.Clock.Now()
	}
	if err := s.opts.Events.Publish(s.ctx, event); err != nil {
		s.opts.Logger.Warn("dashboard event publish failed",
			slog.String("dashboard_id", s.opts.DashboardID),
			slog.String("event", event.Type),
			slog.String("error", err.Error()),
		)
	}
}

package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultSaveTimeout = 15 * time.Second

// SaveObserver is told about save lifecycle changes for a dashboard.
type SaveObserver interface {
	SaveStateChanged(state SaveState)
}

// SaveState describes the persistence status of one dashboard.
type SaveState struct {
	DashboardID   string `json:"dashboardId"`
	Saving        bool   `json:"saving"`
	SavedRevision uint64 `json:"savedRevision"`
	Err           error  `json:"-"`
}

// PersistenceOptions configures a PersistenceService.
type PersistenceOptions struct {
	Saver     LayoutSaver
	Observer  SaveObserver
	Telemetry Telemetry
	Logger    *slog.Logger
	Timeout   time.Duration
}

// PersistenceService saves layouts with at most one request in flight per
// dashboard. Edits that arrive during a save collapse into a single pending
// slot that is sent once the in-flight save completes.
type PersistenceService struct {
	opts PersistenceOptions

	mu     sync.Mutex
	slots  map[string]*saveSlot
	closed bool
}

type saveRequest struct {
	revision uint64
	items    []LayoutItem
}

type saveSlot struct {
	inFlight  bool
	pending   *saveRequest
	last      *saveRequest
	saved     uint64
	lastErr   error
	idle      chan struct{}
	sendCount int
}

// NewPersistenceService builds the service. A nil saver makes every save
// fail with a transient error.
func NewPersistenceService(opts PersistenceOptions) *PersistenceService {
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	opts.Logger = normalizeLogger(opts.Logger)
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSaveTimeout
	}
	return &PersistenceService{
		opts:  opts,
		slots: make(map[string]*saveSlot),
	}
}

// LayoutChanged satisfies LayoutListener.
func (s *PersistenceService) LayoutChanged(snapshot LayoutSnapshot) {
	s.Schedule(snapshot.DashboardID, snapshot.Revision, snapshot.Positions)
}

// Schedule queues a save of the full layout.
func (s *PersistenceService) Schedule(dashboardID string, revision uint64, positions []LayoutPosition) {
	s.enqueue(dashboardID, &saveRequest{revision: revision, items: LayoutItems(positions)})
}

// Retry re-sends the most recent layout for dashboardID.
func (s *PersistenceService) Retry(dashboardID string) error {
	s.mu.Lock()
	slot, ok := s.slots[dashboardID]
	var last *saveRequest
	if ok {
		last = slot.last
	}
	s.mu.Unlock()
	if last == nil {
		return errNothingToRetry
	}
	s.enqueue(dashboardID, last)
	return nil
}

func (s *PersistenceService) enqueue(dashboardID string, req *saveRequest) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	slot := s.slotLocked(dashboardID)
	slot.last = req
	if slot.inFlight {
		slot.pending = req
		s.mu.Unlock()
		return
	}
	s.startLocked(slot)
	state := SaveState{DashboardID: dashboardID, Saving: true, SavedRevision: slot.saved, Err: slot.lastErr}
	s.mu.Unlock()
	s.notify(state)
	go s.run(dashboardID, req)
}

func (s *PersistenceService) slotLocked(dashboardID string) *saveSlot {
	slot, ok := s.slots[dashboardID]
	if !ok {
		idle := make(chan struct{})
		close(idle)
		slot = &saveSlot{idle: idle}
		s.slots[dashboardID] = slot
	}
	return slot
}

func (s *PersistenceService) startLocked(slot *saveSlot) {
	if !slot.inFlight {
		slot.idle = make(chan struct{})
	}
	slot.inFlight = true
	slot.sendCount++
}

func (s *PersistenceService) run(dashboardID string, req *saveRequest) {
	saveID := uuid.NewString()
	started := time.Now()
	// Close never cancels a request already on the wire; only the timeout does.
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	err := s.save(ctx, dashboardID, req.items)
	cancel()
	s.complete(dashboardID, saveID, req, err, time.Since(started))
}

func (s *PersistenceService) save(ctx context.Context, dashboardID string, items []LayoutItem) error {
	if s.opts.Saver == nil {
		return errMissingSaver
	}
	return s.opts.Saver.SaveLayout(ctx, dashboardID, items)
}

func (s *PersistenceService) complete(dashboardID, saveID string, req *saveRequest, err error, took time.Duration) {
	s.mu.Lock()
	if s.closed {
		// The result is dropped, but a pending edit is still flushed once.
		slot := s.slotLocked(dashboardID)
		next := slot.pending
		slot.pending = nil
		s.mu.Unlock()
		if next != nil {
			s.opts.Logger.Debug("flushing pending layout after close",
				slog.String("dashboard_id", dashboardID),
				slog.Uint64("revision", next.revision),
			)
			go s.run(dashboardID, next)
		}
		return
	}
	slot := s.slotLocked(dashboardID)
	if err != nil {
		slot.lastErr = err
	} else {
		slot.lastErr = nil
		if req.revision > slot.saved {
			slot.saved = req.revision
		}
	}
	next := slot.pending
	var idle chan struct{}
	if next != nil {
		slot.pending = nil
		s.startLocked(slot)
	} else {
		slot.inFlight = false
		idle = slot.idle
	}
	state := SaveState{
		DashboardID:   dashboardID,
		Saving:        slot.inFlight,
		SavedRevision: slot.saved,
		Err:           slot.lastErr,
	}
	s.mu.Unlock()

	ctx := context.Background()
	payload := map[string]any{
		"dashboard_id": dashboardID,
		"save_id":      saveID,
		"revision":     req.revision,
		"items":        len(req.items),
		"duration_ms":  took.Milliseconds(),
	}
	if err != nil {
		s.opts.Logger.Error("layout save failed",
			slog.String("dashboard_id", dashboardID),
			slog.String("save_id", saveID),
			slog.Uint64("revision", req.revision),
			slog.String("error", err.Error()),
		)
		payload["error"] = err.Error()
		s.opts.Telemetry.Record(ctx, "dashboard.layout.save_failed", payload)
	} else {
		s.opts.Logger.Debug("layout saved",
			slog.String("dashboard_id", dashboardID),
			slog.String("save_id", saveID),
			slog.Uint64("revision", req.revision),
		)
		s.opts.Telemetry.Record(ctx, "dashboard.layout.saved", payload)
	}
	s.notify(state)
	// waiters wake only after observers have seen the result
	if idle != nil {
		close(idle)
	}
	if next != nil {
		go s.run(dashboardID, next)
	}
}

func (s *PersistenceService) notify(state SaveState) {
	if s.opts.Observer != nil {
		s.opts.Observer.SaveStateChanged(state)
	}
}

// Saving reports whether a save is in flight or pending for dashboardID.
func (s *PersistenceService) Saving(dashboardID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[dashboardID]
	return ok && (slot.inFlight || slot.pending != nil)
}

// LastError returns the error of the most recent completed save, if it failed.
func (s *PersistenceService) LastError(dashboardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[dashboardID]; ok {
		return slot.lastErr
	}
	return nil
}

// Sends returns how many save requests have been issued for dashboardID.
func (s *PersistenceService) Sends(dashboardID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[dashboardID]; ok {
		return slot.sendCount
	}
	return 0
}

// WaitIdle blocks until no save is outstanding for dashboardID.
func (s *PersistenceService) WaitIdle(ctx context.Context, dashboardID string) error {
	for {
		s.mu.Lock()
		slot, ok := s.slots[dashboardID]
		if !ok || s.closed {
			s.mu.Unlock()
			return nil
		}
		idle := slot.idle
		s.mu.Unlock()
		select {
		case <-idle:
			if !s.Saving(dashboardID) {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops accepting edits and drops the results of outstanding saves.
// In-flight requests run to completion and a pending edit is still sent
// after them.
func (s *PersistenceService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, slot := range s.slots {
		if slot.inFlight {
			slot.inFlight = false
			close(slot.idle)
		}
	}
}

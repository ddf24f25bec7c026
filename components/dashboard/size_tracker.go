package dashboard

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var errMissingMeasurer = errors.New("dashboard: size measurer not configured")

// Size is the rendered dimension of a region.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Measurer reads the current rendered size of a region.
type Measurer interface {
	Measure(region string) (Size, error)
}

// MeasurerFunc adapts a function into a Measurer.
type MeasurerFunc func(region string) (Size, error)

// Measure calls f.
func (f MeasurerFunc) Measure(region string) (Size, error) { return f(region) }

// SizeObserver is the native per-region observation mechanism. It calls
// notify whenever the region may have changed size; stop ends observation.
type SizeObserver interface {
	ObserveSize(region string, notify func()) (stop func())
}

// ResizeSignal is the window-level resize notification.
type ResizeSignal interface {
	OnResize(notify func()) (stop func())
}

// SizeTrackerOptions wires the tracker capabilities. Observer and Resize are
// optional; without them only the initial measurement is emitted.
type SizeTrackerOptions struct {
	Measurer Measurer
	Observer SizeObserver
	Resize   ResizeSignal
}

// SizeTracker emits size changes for observed regions.
type SizeTracker struct {
	opts SizeTrackerOptions

	mu      sync.Mutex
	nextID  uint64
	regions map[uint64]*trackedRegion
	closed  bool
}

type trackedRegion struct {
	region  string
	emit    func(Size)
	emitMu  sync.Mutex
	mu      sync.Mutex
	last    Size
	done    bool
	cancels []func()
}

// NewSizeTracker builds a tracker.
func NewSizeTracker(opts SizeTrackerOptions) *SizeTracker {
	return &SizeTracker{opts: opts, regions: map[uint64]*trackedRegion{}}
}

// Observe measures region, emits the size synchronously, then emits again on
// every observed change. The returned release func is idempotent; after it
// returns fn is never called again. fn must not call release itself.
func (t *SizeTracker) Observe(region string, fn func(Size)) (func(), error) {
	if t.opts.Measurer == nil {
		return nil, errMissingMeasurer
	}
	if fn == nil {
		return nil, fmt.Errorf("size callback required for region %q", region)
	}
	initial, err := t.opts.Measurer.Measure(region)
	if err != nil {
		return nil, fmt.Errorf("measure %s: %w", region, err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, errSessionClosed
	}
	t.nextID++
	id := t.nextID
	tr := &trackedRegion{region: region, emit: fn, last: initial}
	t.regions[id] = tr
	t.mu.Unlock()

	fn(initial)

	check := func() { t.remeasure(tr) }
	var cancels []func()
	if t.opts.Resize != nil {
		cancels = append(cancels, t.opts.Resize.OnResize(check))
	}
	if t.opts.Observer != nil {
		cancels = append(cancels, t.opts.Observer.ObserveSize(region, check))
	}
	tr.mu.Lock()
	if tr.done {
		tr.mu.Unlock()
		runCancels(cancels)
	} else {
		tr.cancels = cancels
		tr.mu.Unlock()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.regions, id)
			t.mu.Unlock()
			tr.release()
		})
	}
	return release, nil
}

func (t *SizeTracker) remeasure(tr *trackedRegion) {
	size, err := t.opts.Measurer.Measure(tr.region)
	if err != nil {
		return
	}
	tr.emitMu.Lock()
	defer tr.emitMu.Unlock()
	tr.mu.Lock()
	if tr.done || size == tr.last {
		tr.mu.Unlock()
		return
	}
	tr.last = size
	tr.mu.Unlock()
	tr.emit(size)
}

func (tr *trackedRegion) release() {
	tr.mu.Lock()
	if tr.done {
		tr.mu.Unlock()
		return
	}
	tr.done = true
	cancels := tr.cancels
	tr.cancels = nil
	tr.mu.Unlock()

	runCancels(cancels)
	// wait for an emission already past the done check
	tr.emitMu.Lock()
	tr.emitMu.Unlock()
}

func runCancels(cancels []func()) {
	for _, c := range cancels {
		if c != nil {
			c()
		}
	}
}

// Close releases every observed region.
func (t *SizeTracker) Close() {
	t.mu.Lock()
	t.closed = true
	regions := make([]*trackedRegion, 0, len(t.regions))
	for id, tr := range t.regions {
		regions = append(regions, tr)
		delete(t.regions, id)
	}
	t.mu.Unlock()
	for _, tr := range regions {
		tr.release()
	}
}

// Observed returns how many regions are currently tracked.
func (t *SizeTracker) Observed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.regions)
}

// ResizeNotifier is a ResizeSignal driven by calling Notify, for hosts that
// learn about window resizes from their own event source.
type ResizeNotifier struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func()
}

// OnResize registers notify until stop is called.
func (n *ResizeNotifier) OnResize(notify func()) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = map[uint64]func(){}
	}
	n.nextID++
	id := n.nextID
	n.subs[id] = notify
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Notify fans a resize out to every subscriber.
func (n *ResizeNotifier) Notify() {
	n.mu.Lock()
	subs := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Subscribers reports the number of live subscriptions.
func (n *ResizeNotifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// PollingObserver is a SizeObserver that asks for a re-measure on a fixed
// interval. The tracker drops polls that report an unchanged size.
type PollingObserver struct {
	Interval time.Duration
}

// ObserveSize starts a polling goroutine for region.
func (p PollingObserver) ObserveSize(region string, notify func()) func() {
	interval := p.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				notify()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

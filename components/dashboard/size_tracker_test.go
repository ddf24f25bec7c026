package dashboard

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMeasurer struct {
	mu    sync.Mutex
	sizes map[string]Size
	err   error
}

func (m *fakeMeasurer) Measure(region string) (Size, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Size{}, m.err
	}
	return m.sizes[region], nil
}

func (m *fakeMeasurer) set(region string, s Size) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizes[region] = s
}

// manualObserver lets tests trigger native size notifications per region.
type manualObserver struct {
	mu   sync.Mutex
	subs map[string][]func()
	live int
}

func (o *manualObserver) ObserveSize(region string, notify func()) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subs == nil {
		o.subs = map[string][]func(){}
	}
	o.subs[region] = append(o.subs[region], notify)
	o.live++
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.live--
		delete(o.subs, region)
	}
}

func (o *manualObserver) trigger(region string) {
	o.mu.Lock()
	subs := append([]func(){}, o.subs[region]...)
	o.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func TestSizeTrackerEmitsInitialSizeSynchronously(t *testing.T) {
	measurer := &fakeMeasurer{sizes: map[string]Size{"card-1": {Width: 300, Height: 120}}}
	tracker := NewSizeTracker(SizeTrackerOptions{Measurer: measurer})

	var got []Size
	release, err := tracker.Observe("card-1", func(s Size) { got = append(got, s) })
	require.NoError(t, err)
	defer release()

	assert.Equal(t, []Size{{Width: 300, Height: 120}}, got)
}

func TestSizeTrackerEmitsOnlyOnChange(t *testing.T) {
	measurer := &fakeMeasurer{sizes: map[string]Size{"grid": {Width: 1200, Height: 800}}}
	resize := &ResizeNotifier{}
	observer := &manualObserver{}
	tracker := NewSizeTracker(SizeTrackerOptions{Measurer: measurer, Observer: observer, Resize: resize})

	var got []Size
	release, err := tracker.Observe("grid", func(s Size) { got = append(got, s) })
	require.NoError(t, err)

	resize.Notify()
	assert.Len(t, got, 1)

	measurer.set("grid", Size{Width: 900, Height: 800})
	resize.Notify()
	require.Len(t, got, 2)
	assert.Equal(t, 900.0, got[1].Width)

	// sidebar collapse: no window resize, only native observation
	measurer.set("grid", Size{Width: 1100, Height: 800})
	observer.trigger("grid")
	require.Len(t, got, 3)
	assert.Equal(t, 1100.0, got[2].Width)

	release()
	release()
	measurer.set("grid", Size{Width: 10, Height: 10})
	resize.Notify()
	observer.trigger("grid")
	assert.Len(t, got, 3)
	assert.Zero(t, resize.Subscribers())
	assert.Zero(t, observer.live)
	assert.Zero(t, tracker.Observed())
}

func TestSizeTrackerCloseReleasesAllRegions(t *testing.T) {
	measurer := &fakeMeasurer{sizes: map[string]Size{"a": {Width: 1}, "b": {Width: 2}}}
	resize := &ResizeNotifier{}
	tracker := NewSizeTracker(SizeTrackerOptions{Measurer: measurer, Resize: resize})

	_, err := tracker.Observe("a", func(Size) {})
	require.NoError(t, err)
	_, err = tracker.Observe("b", func(Size) {})
	require.NoError(t, err)
	assert.Equal(t, 2, tracker.Observed())
	assert.Equal(t, 2, resize.Subscribers())

	tracker.Close()
	assert.Zero(t, tracker.Observed())
	assert.Zero(t, resize.Subscribers())

	_, err = tracker.Observe("c", func(Size) {})
	assert.ErrorIs(t, err, errSessionClosed)
}

func TestSizeTrackerErrors(t *testing.T) {
	_, err := NewSizeTracker(SizeTrackerOptions{}).Observe("x", func(Size) {})
	assert.ErrorIs(t, err, errMissingMeasurer)

	boom := errors.New("detached")
	tracker := NewSizeTracker(SizeTrackerOptions{Measurer: &fakeMeasurer{err: boom}})
	_, err = tracker.Observe("x", func(Size) {})
	assert.ErrorIs(t, err, boom)
}

func TestPollingObserverNotifiesUntilStopped(t *testing.T) {
	ticks := make(chan struct{}, 8)
	stop := PollingObserver{Interval: 5 * time.Millisecond}.ObserveSize("x", func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("expected a poll")
	}
	stop()
	stop()
}

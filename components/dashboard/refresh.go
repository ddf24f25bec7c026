package dashboard

import (
	"sync"
	"time"
)

const (
	// DefaultRefreshInterval is the tick period when none is configured.
	DefaultRefreshInterval = 5 * time.Second
	// RefreshPulseDuration is how long the refreshing flag stays raised.
	RefreshPulseDuration = 800 * time.Millisecond
)

// RefreshState is the transient refresh indicator state.
type RefreshState struct {
	Refreshing  bool          `json:"refreshing"`
	LastRefresh time.Time     `json:"lastRefresh,omitzero"`
	Interval    time.Duration `json:"interval"`
	Ticks       int           `json:"ticks"`
}

// RefreshOptions configures a RefreshScheduler.
type RefreshOptions struct {
	Clock Clock
	Pulse time.Duration
	// OnPulse observes the refreshing flag as it rises and falls.
	OnPulse func(refreshing bool)
}

// RefreshScheduler fires a data callback on a fixed period and raises a short
// refreshing flag on every tick. The tick and the pulse are separate timers
// so stopping cancels both.
//
// Callbacks must not call Stop or Restart synchronously.
type RefreshScheduler struct {
	clock   Clock
	pulse   time.Duration
	onPulse func(bool)

	fireMu sync.Mutex

	mu         sync.Mutex
	gen        uint64
	running    bool
	interval   time.Duration
	onTick     func()
	tickTimer  Timer
	pulseTimer Timer
	state      RefreshState
}

// NewRefreshScheduler builds an idle scheduler.
func NewRefreshScheduler(opts RefreshOptions) *RefreshScheduler {
	pulse := opts.Pulse
	if pulse <= 0 {
		pulse = RefreshPulseDuration
	}
	return &RefreshScheduler{
		clock:   normalizeClock(opts.Clock),
		pulse:   pulse,
		onPulse: opts.OnPulse,
	}
}

// Start is Restart under a friendlier name for first use.
func (s *RefreshScheduler) Start(interval time.Duration, onTick func()) {
	s.Restart(interval, onTick)
}

// Restart cancels any running cycle, resets the refresh state and arms a new
// tick interval from now.
func (s *RefreshScheduler) Restart(interval time.Duration, onTick func()) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if onTick == nil {
		onTick = func() {}
	}
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	gen := s.gen
	s.running = true
	s.interval = interval
	s.onTick = onTick
	s.state = RefreshState{Interval: interval}
	s.tickTimer = s.clock.AfterFunc(interval, func() { s.fire(gen) })
}

// Stop cancels both timers. Once it returns no further callbacks run. It is
// safe to call repeatedly.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	s.gen++
	s.running = false
	s.stopTimersLocked()
	pulsing := s.state.Refreshing
	s.state.Refreshing = false
	s.mu.Unlock()

	// wait out a callback that passed the generation check
	s.fireMu.Lock()
	s.fireMu.Unlock()

	if pulsing && s.onPulse != nil {
		s.onPulse(false)
	}
}

func (s *RefreshScheduler) stopTimersLocked() {
	if s.tickTimer != nil {
		s.tickTimer.Stop()
		s.tickTimer = nil
	}
	if s.pulseTimer != nil {
		s.pulseTimer.Stop()
		s.pulseTimer = nil
	}
}

func (s *RefreshScheduler) fire(gen uint64) {
	s.fireMu.Lock()
	defer s.fireMu.Unlock()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.state.Refreshing = true
	s.state.LastRefresh = s.clock.Now()
	s.state.Ticks++
	if s.pulseTimer != nil {
		s.pulseTimer.Stop()
	}
	s.pulseTimer = s.clock.AfterFunc(s.pulse, func() { s.endPulse(gen) })
	s.tickTimer = s.clock.AfterFunc(s.interval, func() { s.fire(gen) })
	onTick := s.onTick
	s.mu.Unlock()

	if s.onPulse != nil {
		s.onPulse(true)
	}
	onTick()
}

func (s *RefreshScheduler) endPulse(gen uint64) {
	s.fireMu.Lock()
	defer s.fireMu.Unlock()

	s.mu.Lock()
	if gen != s.gen || !s.state.Refreshing {
		s.mu.Unlock()
		return
	}
	s.state.Refreshing = false
	s.pulseTimer = nil
	s.mu.Unlock()

	if s.onPulse != nil {
		s.onPulse(false)
	}
}

// State returns a copy of the refresh state.
func (s *RefreshScheduler) State() RefreshState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Refreshing reports whether the visual pulse is active.
func (s *RefreshScheduler) Refreshing() bool {
	return s.State().Refreshing
}

// LastRefresh returns the fire time of the most recent tick.
func (s *RefreshScheduler) LastRefresh() time.Time {
	return s.State().LastRefresh
}

// Running reports whether a cycle is armed.
func (s *RefreshScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

package dashboard

import "time"

// Timer is a cancellable scheduled task.
type Timer interface {
	Stop() bool
}

// Clock schedules work. Tests swap in a manual implementation.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

func normalizeClock(c Clock) Clock {
	if c == nil {
		return systemClock{}
	}
	return c
}

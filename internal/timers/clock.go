// Package timers schedules cancellable callbacks, keeping at most one live
// timer per key.
package timers

import (
	"time"

	"github.com/raulk/clock"
)

// Stopper cancels a scheduled callback.
type Stopper interface {
	Stop() bool
}

// Clock is the time source used by the connection manager and trackers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

type clockAdapter struct {
	c clock.Clock
}

// Real returns a Clock backed by the wall clock.
func Real() Clock {
	return FromClock(clock.New())
}

// FromClock adapts a raulk/clock Clock, including its mock.
func FromClock(c clock.Clock) Clock {
	return clockAdapter{c: c}
}

func (a clockAdapter) Now() time.Time {
	return a.c.Now()
}

func (a clockAdapter) AfterFunc(d time.Duration, f func()) Stopper {
	return a.c.AfterFunc(d, f)
}

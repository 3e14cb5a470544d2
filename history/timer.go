package history

import (
	"sync"
	"time"
)

// Timer is a pending callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d on its own goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// WallClock schedules with time.AfterFunc.
var WallClock Scheduler = wallClock{}

// debouncer holds at most one pending callback. Every schedule or cancel
// bumps the generation, so a callback that already fired but is still waiting
// for the lock sees a stale token and returns without running. All fields are
// guarded by the lock the callbacks acquire.
type debouncer struct {
	sched Scheduler
	delay time.Duration
	lock  sync.Locker
	timer Timer
	gen   uint64
}

func (d *debouncer) schedule(fn func()) {
	d.cancel()
	gen := d.gen
	d.timer = d.sched.AfterFunc(d.delay, func() {
		d.lock.Lock()
		defer d.lock.Unlock()
		if d.gen != gen {
			return
		}
		d.timer = nil
		d.gen++
		fn()
	})
}

func (d *debouncer) cancel() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

func (d *debouncer) pending() bool { return d.timer != nil }

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually driven Clock. Time moves only through Advance,
// which fires every pending timer and ticker whose deadline has been
// reached, in deadline order. Safe for concurrent use.
type Fake struct {
	mu      sync.Mutex
	cond    *sync.Cond
	now     time.Time
	pending []*waiter
}

type waiter struct {
	at      time.Time
	ch      chan time.Time
	every   time.Duration // non-zero for tickers
	stopped bool
	done    bool
}

// NewFake returns a Fake clock set to start.
func NewFake(start time.Time) *Fake {
	f := &Fake{now: start}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	return f.NewTimer(d).C
}

func (f *Fake) NewTimer(d time.Duration) *Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- f.now
		return &Timer{C: ch, stop: func() bool { return false }}
	}

	w := &waiter{at: f.now.Add(d), ch: ch}
	f.pending = append(f.pending, w)
	f.cond.Broadcast()

	return &Timer{C: ch, stop: func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if w.stopped || w.done {
			return false
		}
		w.stopped = true
		return true
	}}
}

func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: ticker interval must be positive")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	w := &waiter{at: f.now.Add(d), ch: ch, every: d}
	f.pending = append(f.pending, w)
	f.cond.Broadcast()

	return &Ticker{C: ch, stop: func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.stopped = true
	}}
}

// Advance moves the clock forward by d. Expired waiters fire in
// deadline order; tickers reschedule and fire once per elapsed
// interval. Sends never block: a full channel drops the tick.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	target := f.now
	f.mu.Unlock()

	for {
		due := f.takeDue(target)
		if len(due) == 0 {
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
		for _, w := range due {
			select {
			case w.ch <- target:
			default:
			}
		}
	}
}

// takeDue removes waiters due at or before target, rescheduling
// tickers for their next interval.
func (f *Fake) takeDue(target time.Time) []*waiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	var due, keep []*waiter
	for _, w := range f.pending {
		if w.stopped {
			continue
		}
		if w.at.After(target) {
			keep = append(keep, w)
			continue
		}
		due = append(due, w)
	}
	for _, w := range due {
		if w.every > 0 {
			w.at = w.at.Add(w.every)
			keep = append(keep, w)
		} else {
			w.done = true
		}
	}
	f.pending = keep
	return due
}

// WaitForTimers blocks until at least n timers or tickers are pending.
// Use it before Advance to avoid racing a goroutine that is still
// registering its timer.
func (f *Fake) WaitForTimers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.livePending() < n {
		f.cond.Wait()
	}
}

// Pending reports how many timers and tickers are armed.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.livePending()
}

func (f *Fake) livePending() int {
	n := 0
	for _, w := range f.pending {
		if !w.stopped && !w.done {
			n++
		}
	}
	return n
}

package clock

import "time"

// Clock abstracts the time source so schedule-heavy code (reconnect
// backoff, keepalive tickers, step timers) can be tested with a fake.
type Clock interface {
	Now() time.Time

	// After returns a channel that receives once d has elapsed.
	After(d time.Duration) <-chan time.Time

	// NewTimer returns a one-shot timer firing on C after d.
	NewTimer(d time.Duration) *Timer

	// NewTicker returns a ticker firing on C every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Timer is a stoppable one-shot timer.
type Timer struct {
	C <-chan time.Time

	stop func() bool
}

// Stop cancels the timer. It reports whether the timer was still pending.
func (t *Timer) Stop() bool { return t.stop() }

// Ticker delivers periodic ticks on C until stopped. C has capacity 1;
// ticks are dropped, not queued, when the consumer falls behind.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop turns the ticker off. It does not close C.
func (t *Ticker) Stop() { t.stop() }

// New returns the wall Clock backed by the time package.
func New() Clock { return sysClock{} }

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now() }

func (sysClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (sysClock) NewTimer(d time.Duration) *Timer {
	t := time.NewTimer(d)
	return &Timer{C: t.C, stop: t.Stop}
}

func (sysClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stop: t.Stop}
}

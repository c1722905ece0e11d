// Package clock abstracts time so polling loops can run against virtual
// time in tests.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time and blocking sleeps.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time        { return time.Now() }
func (Real) Sleep(d time.Duration) { time.Sleep(d) }

// Fake is a manually driven clock. Sleep advances virtual time instantly.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	slept   time.Duration
	onSleep []func(time.Time)
}

// NewFake returns a Fake starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Sleep advances the clock by d and runs any registered hooks with the new
// time.
func (f *Fake) Sleep(d time.Duration) {
	if d < 0 {
		d = 0
	}
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.slept += d
	now := f.now
	hooks := append([]func(time.Time){}, f.onSleep...)
	f.mu.Unlock()

	for _, h := range hooks {
		h(now)
	}
}

// Advance moves the clock forward without counting it as sleep.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Slept returns the total duration passed to Sleep.
func (f *Fake) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slept
}

// OnSleep registers a hook called after every Sleep.
func (f *Fake) OnSleep(fn func(time.Time)) {
	f.mu.Lock()
	f.onSleep = append(f.onSleep, fn)
	f.mu.Unlock()
}

// Deadline returns c.Now()+d.
func Deadline(c Clock, d time.Duration) time.Time {
	return c.Now().Add(d)
}

// PollUntil calls cond every interval until it returns true or timeout has
// elapsed on c. cond is always evaluated at least once.
func PollUntil(c Clock, timeout, interval time.Duration, cond func() bool) bool {
	deadline := Deadline(c, timeout)
	for {
		if cond() {
			return true
		}
		if !c.Now().Before(deadline) {
			return false
		}
		c.Sleep(interval)
	}
}

package core

import (
	"sync"
	"time"
)

// Clock provides time operations that can be mocked for testing.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	// After returns a channel that receives the current time once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// RealClock uses the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration        { return time.Since(t) }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type waiter struct {
	deadline time.Time
	ch       chan time.Time
}

// FakeClock is a test clock that only moves when advanced.
// Channels returned by After fire once Advance or Set moves the clock past
// their deadline. Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []waiter
	waiting chan struct{}
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{
		current: start,
		waiting: make(chan struct{}, 1),
	}
}

func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *FakeClock) Since(t time.Time) time.Duration {
	return f.Now().Sub(t)
}

func (f *FakeClock) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- f.current
		return ch
	}
	f.waiters = append(f.waiters, waiter{deadline: f.current.Add(d), ch: ch})

	select {
	case f.waiting <- struct{}{}:
	default:
	}
	return ch
}

// Waiting is signalled whenever a goroutine starts waiting on After.
// Tests use it to know when it is safe to Advance.
func (f *FakeClock) Waiting() <-chan struct{} {
	return f.waiting
}

// Pending returns the number of unfired After channels.
func (f *FakeClock) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waiters)
}

func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
	f.fire()
}

// AdvanceToNext moves the clock to the earliest pending After deadline.
// It reports false when nothing is waiting.
func (f *FakeClock) AdvanceToNext() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.waiters) == 0 {
		return false
	}
	next := f.waiters[0].deadline
	for _, w := range f.waiters[1:] {
		if w.deadline.Before(next) {
			next = w.deadline
		}
	}
	f.current = next
	f.fire()
	return true
}

func (f *FakeClock) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = t
	f.fire()
}

// fire releases due waiters. Callers hold f.mu.
func (f *FakeClock) fire() {
	remaining := f.waiters[:0]
	for _, w := range f.waiters {
		if !w.deadline.After(f.current) {
			w.ch <- f.current
			continue
		}
		remaining = append(remaining, w)
	}
	f.waiters = remaining
}

// Package collector aggregates send events into a session summary.
package collector

import (
	"sync"
	"sync/atomic"
	"time"

	"barrage/internal/core"
)

const defaultBuffer = 1000

// Collector buffers events reported by a scheduler or the trigger path and
// hands them to ComputeMetrics when the session ends.
type Collector struct {
	clock     core.Clock
	events    []core.Event
	ch        chan core.Event
	done      chan struct{}
	dropped   atomic.Int64
	mu        sync.Mutex
	startTime time.Time
	endTime   time.Time
	closeOnce sync.Once
}

func NewCollector() *Collector {
	return NewCollectorWithClock(core.RealClock{})
}

// NewCollectorWithClock starts a collector whose session duration is
// measured on clock.
func NewCollectorWithClock(clock core.Clock) *Collector {
	c := &Collector{
		clock:     clock,
		events:    make([]core.Event, 0),
		ch:        make(chan core.Event, defaultBuffer),
		done:      make(chan struct{}),
		startTime: clock.Now(),
	}
	go c.collect()
	return c
}

func (c *Collector) collect() {
	for event := range c.ch {
		c.mu.Lock()
		c.events = append(c.events, event)
		c.mu.Unlock()
	}
	close(c.done)
}

// Report queues an event without blocking. Events arriving while the buffer
// is full are counted as dropped.
func (c *Collector) Report(event core.Event) {
	select {
	case c.ch <- event:
	default:
		c.dropped.Add(1)
	}
}

// Close stops accepting events and waits until the buffer is drained.
// It is safe to call more than once.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.endTime = c.clock.Now()
		c.mu.Unlock()
		close(c.ch)
		<-c.done
	})
}

// Events returns a copy of the collected events.
func (c *Collector) Events() []core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]core.Event, len(c.events))
	copy(result, c.events)
	return result
}

func (c *Collector) DroppedEvents() int64 {
	return c.dropped.Load()
}

// Duration returns the session length: start to Close, or start to now while
// the collector is still open.
func (c *Collector) Duration() time.Duration {
	c.mu.Lock()
	end := c.endTime
	c.mu.Unlock()
	if !end.IsZero() {
		return end.Sub(c.startTime)
	}
	return c.clock.Since(c.startTime)
}

// Compute summarizes the events collected so far.
func (c *Collector) Compute() *Metrics {
	return ComputeMetrics(c.Events(), c.Duration())
}

// Package core defines the types shared by the dispatch engine: the clock,
// send events, reporters and the fatal error classes.
package core

import "time"

// Event records the outcome of a single send attempt.
type Event struct {
	Task       string
	Tick       int // -1 for ad-hoc sends
	Timestamp  time.Time
	Transport  string // "http", "kafka"
	Duration   time.Duration
	Success    bool
	Error      string
	StatusCode int   // HTTP status, 0 for broker sends
	BytesSent  int64 // payload size
}

// Reporter receives send events. Implementations must be safe for
// concurrent use.
type Reporter interface {
	Report(Event)
}

// NullReporter discards all events.
var NullReporter Reporter = nullReporter{}

type nullReporter struct{}

func (nullReporter) Report(Event) {}

// MultiReporter fans an event out to every reporter in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(e Event) {
	for _, r := range m {
		if r != nil {
			r.Report(e)
		}
	}
}

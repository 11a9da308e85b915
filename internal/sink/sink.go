// Package sink implements the transports a task can send traffic to.
//
// A Sink is built once per run by a Factory and is owned by exactly one
// caller: the scheduler for periodic sessions, or a single ad-hoc send.
// Sends are never issued concurrently on the same Sink.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"barrage/internal/config"
)

// Sink forwards one payload per call to an external destination.
type Sink interface {
	Send(ctx context.Context, payload json.RawMessage) error
	Close() error
}

// SendError is a recoverable failure of a single send attempt.
type SendError struct {
	Transport  config.Transport
	Target     string
	StatusCode int // non-zero when an HTTP response was received
	Err        error
}

func (e *SendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: send to %s failed, status: %d %s",
			e.Transport, e.Target, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: send to %s failed: %v", e.Transport, e.Target, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Func adapts a plain function to the Sink interface.
type Func func(ctx context.Context, payload json.RawMessage) error

func (f Func) Send(ctx context.Context, payload json.RawMessage) error { return f(ctx, payload) }
func (f Func) Close() error                                            { return nil }

// Package trigger implements the ad-hoc send path: a single payload sent
// through a freshly built sink, either from the command line or from the
// HTTP trigger listener.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"barrage/internal/config"
	"barrage/internal/core"
	"barrage/internal/sink"

	"go.uber.org/zap"
)

// Dispatcher performs one-off sends. Each call builds and closes its own
// sink, so concurrent calls never share a transport.
type Dispatcher struct {
	Builder  sink.Builder
	Reporter core.Reporter // nil discards events
	Clock    core.Clock    // nil uses the real clock
	Logger   *zap.Logger
}

// Dispatch sends payload to task. Construction failures are returned as is
// (wrapping core.ErrConfiguration or core.ErrConstruction); send failures
// are returned as *sink.SendError.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, task config.Task, payload json.RawMessage) error {
	log := d.logger().With(zap.String("task", name))
	clock := d.clock()

	s, err := d.Builder.New(ctx, task)
	if err != nil {
		log.Error("building sink failed", zap.Error(err))
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			log.Debug("closing sink failed", zap.Error(cerr))
		}
	}()

	at := clock.Now()
	err = s.Send(ctx, payload)

	event := core.Event{
		Task:      name,
		Tick:      -1,
		Timestamp: at,
		Transport: string(task.Type),
		Duration:  clock.Since(at),
		Success:   err == nil,
		BytesSent: int64(len(payload)),
	}
	if err != nil {
		event.Error = err.Error()
		var sendErr *sink.SendError
		if errors.As(err, &sendErr) {
			event.StatusCode = sendErr.StatusCode
		}
	}
	d.reporter().Report(event)

	if err != nil {
		log.Warn("ad-hoc send failed", zap.Error(err))
		return err
	}
	log.Info("ad-hoc send succeeded", zap.Duration("lat", event.Duration))
	return nil
}

// WrapMessage returns data unchanged when it is valid JSON, and otherwise
// wraps it as {"message": data}.
func WrapMessage(data string) (json.RawMessage, error) {
	if json.Valid([]byte(data)) {
		return json.RawMessage(data), nil
	}
	b, err := json.Marshal(map[string]string{"message": data})
	if err != nil {
		return nil, fmt.Errorf("wrapping message: %w", err)
	}
	return b, nil
}

func (d *Dispatcher) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d *Dispatcher) clock() core.Clock {
	if d.Clock == nil {
		return core.RealClock{}
	}
	return d.Clock
}

func (d *Dispatcher) reporter() core.Reporter {
	if d.Reporter == nil {
		return core.NullReporter
	}
	return d.Reporter
}

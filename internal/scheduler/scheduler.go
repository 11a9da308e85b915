// Package scheduler drives a sink through a bounded, fixed-cadence sequence
// of sends.
//
// Ticks are scheduled at start + k*interval. Sends are serialized, so a slow
// send delays the next one; boundaries missed while a send was in flight are
// collapsed into a single late tick rather than replayed. Before every send,
// including the immediate first one, the elapsed time is compared with the
// session duration: a zero duration therefore performs no sends. The wait
// for a tick is cut short at the end of the duration, so a session never
// outlives its budget by more than an in-flight send.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"barrage/internal/core"
	"barrage/internal/sink"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAlreadyStarted is returned when Run is called on a scheduler that has
// left the Idle state.
var ErrAlreadyStarted = errors.New("scheduler already started")

const millisPerMinute = 60_000

// PeriodicMessage is the marker carried by every scheduled payload.
const PeriodicMessage = "periodic trigger"

// State is the scheduler lifecycle: Idle -> Running -> Stopped.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// StopReason records why a session ended.
type StopReason string

const (
	ReasonDurationElapsed StopReason = "duration elapsed"
	ReasonCancelled       StopReason = "cancelled"
)

// PayloadFunc builds the body for one tick.
type PayloadFunc func(task string, tick int, at time.Time) (json.RawMessage, error)

// Config describes one session. Zero-valued dependencies fall back to the
// real clock, a no-op logger, the null reporter and TickPayload.
type Config struct {
	Task      string
	Transport string
	Frequency uint64 // sends per minute
	Duration  time.Duration

	Clock    core.Clock
	Logger   *zap.Logger
	Reporter core.Reporter
	Payload  PayloadFunc
}

// Summary is returned when a session stops.
type Summary struct {
	Ticks    int // send attempts
	Failures int
	Reason   StopReason
	Elapsed  time.Duration
}

// Scheduler runs exactly one bounded session against one sink. It is the
// sink's only caller for the lifetime of the session.
type Scheduler struct {
	sink  sink.Sink
	cfg   Config
	state atomic.Int32
}

func New(s sink.Sink, cfg Config) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = core.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Reporter == nil {
		cfg.Reporter = core.NullReporter
	}
	if cfg.Payload == nil {
		cfg.Payload = TickPayload
	}
	return &Scheduler{sink: s, cfg: cfg}
}

// Interval converts sends per minute into the tick spacing using integer
// milliseconds. Frequencies above 60000 yield a zero interval, meaning
// sends run back to back until the duration is spent.
func Interval(frequency uint64) (time.Duration, error) {
	if frequency == 0 {
		return 0, fmt.Errorf("%w: frequency must be greater than 0", core.ErrConfiguration)
	}
	return time.Duration(millisPerMinute/frequency) * time.Millisecond, nil
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run executes the session. It returns an error only for precondition
// failures; send failures are logged, reported and counted.
func (s *Scheduler) Run(ctx context.Context) (Summary, error) {
	if s.State() != StateIdle {
		return Summary{}, ErrAlreadyStarted
	}
	interval, err := Interval(s.cfg.Frequency)
	if err != nil {
		return Summary{}, err
	}
	if s.cfg.Duration < 0 {
		return Summary{}, fmt.Errorf("%w: duration must not be negative, got %v", core.ErrConfiguration, s.cfg.Duration)
	}
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return Summary{}, ErrAlreadyStarted
	}
	defer s.state.Store(int32(StateStopped))

	clock := s.cfg.Clock
	log := s.cfg.Logger.With(zap.String("task", s.cfg.Task))
	log.Info("session starting",
		zap.Uint64("frequency", s.cfg.Frequency),
		zap.Duration("interval", interval),
		zap.Duration("duration", s.cfg.Duration),
	)

	var sum Summary
	start := clock.Now()
	deadline := start.Add(s.cfg.Duration)
	next := start

	finish := func(reason StopReason) (Summary, error) {
		sum.Reason = reason
		sum.Elapsed = clock.Since(start)
		log.Info("session stopped",
			zap.String("reason", string(reason)),
			zap.Int("ticks", sum.Ticks),
			zap.Int("failures", sum.Failures),
			zap.Duration("elapsed", sum.Elapsed),
		)
		return sum, nil
	}

	for tick := 0; ; tick++ {
		// Never sleep past the budget: a tick beyond it would not send.
		wake := next
		if deadline.Before(wake) {
			wake = deadline
		}
		if wait := wake.Sub(clock.Now()); wait > 0 {
			select {
			case <-ctx.Done():
				return finish(ReasonCancelled)
			case <-clock.After(wait):
			}
		}
		if ctx.Err() != nil {
			return finish(ReasonCancelled)
		}
		if clock.Since(start) >= s.cfg.Duration {
			return finish(ReasonDurationElapsed)
		}

		sum.Ticks++
		if !s.dispatch(ctx, log, tick) {
			sum.Failures++
		}

		next = next.Add(interval)
		if now := clock.Now(); interval > 0 && next.Before(now) {
			missed := now.Sub(next) / interval
			next = next.Add(missed * interval)
			if missed > 0 {
				log.Debug("send overran its interval, skipping ticks", zap.Int64("skipped", int64(missed)))
			}
		}
	}
}

// dispatch performs one send and reports whether it succeeded. A send cut
// short by cancellation is not counted as a failure.
func (s *Scheduler) dispatch(ctx context.Context, log *zap.Logger, tick int) bool {
	at := s.cfg.Clock.Now()
	event := core.Event{
		Task:      s.cfg.Task,
		Tick:      tick,
		Timestamp: at,
		Transport: s.cfg.Transport,
	}

	payload, err := s.cfg.Payload(s.cfg.Task, tick, at)
	if err != nil {
		log.Error("building payload failed", zap.Int("tick", tick), zap.Error(err))
		event.Error = err.Error()
		s.cfg.Reporter.Report(event)
		return false
	}
	event.BytesSent = int64(len(payload))

	err = s.sink.Send(ctx, payload)
	event.Duration = s.cfg.Clock.Since(at)

	if err != nil && ctx.Err() != nil {
		log.Debug("send interrupted by shutdown", zap.Int("tick", tick), zap.Error(err))
		return true
	}
	if err != nil {
		var sendErr *sink.SendError
		if errors.As(err, &sendErr) {
			event.StatusCode = sendErr.StatusCode
		}
		event.Error = err.Error()
		s.cfg.Reporter.Report(event)
		log.Warn("send failed",
			zap.Int("tick", tick),
			zap.Time("timestamp", at),
			zap.Error(err),
		)
		return false
	}

	event.Success = true
	s.cfg.Reporter.Report(event)
	log.Debug("send succeeded", zap.Int("tick", tick), zap.Duration("lat", event.Duration))
	return true
}

// TickPayload is the default body: the tick timestamp and a fixed marker,
// plus the task name, tick index and a unique id.
func TickPayload(task string, tick int, at time.Time) (json.RawMessage, error) {
	return json.Marshal(struct {
		Timestamp string `json:"timestamp"`
		Message   string `json:"message"`
		Task      string `json:"task"`
		Tick      int    `json:"tick"`
		ID        string `json:"id"`
	}{
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Message:   PeriodicMessage,
		Task:      task,
		Tick:      tick,
		ID:        uuid.NewString(),
	})
}

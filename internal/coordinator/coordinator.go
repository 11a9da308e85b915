// Package coordinator runs several task sessions side by side in one
// process. Each task keeps its own sink and cadence; nothing is shared
// between them except the reporter.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"barrage/internal/config"
	"barrage/internal/core"
	"barrage/internal/data"
	"barrage/internal/scheduler"
	"barrage/internal/sink"
	"barrage/internal/template"

	"go.uber.org/zap"
)

// Result is the outcome of one task's session.
type Result struct {
	Index   int
	Task    string
	Summary scheduler.Summary
	Err     error
}

// Coordinator starts one scheduler per task and waits for all of them.
type Coordinator struct {
	builder  sink.Builder
	reporter core.Reporter
	clock    core.Clock
	log      *zap.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	results []Result
}

func NewCoordinator(builder sink.Builder, reporter core.Reporter, log *zap.Logger) *Coordinator {
	if reporter == nil {
		reporter = core.NullReporter
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{builder: builder, reporter: reporter, clock: core.RealClock{}, log: log}
}

// Spawn starts a session for task in its own goroutine. Construction and
// configuration failures are recorded in the task's Result.
func (c *Coordinator) Spawn(ctx context.Context, index int, task config.Task) {
	name := task.DisplayName(index)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res := Result{Index: index, Task: name}
		defer func() {
			if r := recover(); r != nil {
				res.Err = fmt.Errorf("task %s panicked: %v", name, r)
				c.reporter.Report(core.Event{
					Task:      name,
					Tick:      -1,
					Timestamp: c.clock.Now(),
					Transport: string(task.Type),
					Error:     res.Err.Error(),
				})
			}
			c.record(res)
		}()
		res.Summary, res.Err = c.run(ctx, name, task)
	}()
}

// SpawnAll starts every task in the list.
func (c *Coordinator) SpawnAll(ctx context.Context, tasks []config.Task) {
	for i, task := range tasks {
		c.Spawn(ctx, i, task)
	}
}

func (c *Coordinator) run(ctx context.Context, name string, task config.Task) (scheduler.Summary, error) {
	cfg, err := SessionConfig(name, task)
	if err != nil {
		return scheduler.Summary{}, err
	}
	cfg.Clock = c.clock
	cfg.Logger = c.log
	cfg.Reporter = c.reporter

	s, err := c.builder.New(ctx, task)
	if err != nil {
		c.log.Error("sink construction failed", zap.String("task", name), zap.Error(err))
		return scheduler.Summary{}, err
	}
	defer s.Close()

	return scheduler.New(s, cfg).Run(ctx)
}

// SessionConfig validates task and turns it into a scheduler config. The
// caller fills in the clock, logger and reporter.
func SessionConfig(name string, task config.Task) (scheduler.Config, error) {
	if err := task.Validate(); err != nil {
		return scheduler.Config{}, err
	}
	duration, err := task.ParsedDuration()
	if err != nil {
		return scheduler.Config{}, err
	}

	cfg := scheduler.Config{
		Task:      name,
		Transport: string(task.Type),
		Frequency: task.Frequency,
		Duration:  duration,
	}
	if task.Payload != "" {
		tmpl, err := template.Parse(task.Payload)
		if err != nil {
			return scheduler.Config{}, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
		}
		if task.Data != "" {
			mode, _ := data.ParseMode(task.DataMode) // checked by Validate
			rows, err := data.LoadFile(task.Data, mode)
			if err != nil {
				return scheduler.Config{}, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
			}
			tmpl = tmpl.WithRows(rows)
		}
		cfg.Payload = tmpl.Render
	}
	return cfg, nil
}

func (c *Coordinator) record(res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, res)
}

// Wait blocks until every spawned session has stopped and returns their
// results ordered by task index, plus all session errors joined.
func (c *Coordinator) Wait() ([]Result, error) {
	c.wg.Wait()

	c.mu.Lock()
	results := append([]Result(nil), c.results...)
	c.mu.Unlock()

	slices.SortFunc(results, func(a, b Result) int { return a.Index - b.Index })
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", r.Task, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

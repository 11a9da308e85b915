// Package progress logs a running tally of a session while it is active.
package progress

import (
	"sync"
	"sync/atomic"
	"time"

	"barrage/internal/collector"

	"go.uber.org/zap"
)

// Progress emits one "progress" log entry per interval summarizing the
// events gathered by a collector. A non-positive interval disables it.
type Progress struct {
	collector *collector.Collector
	log       *zap.Logger
	interval  time.Duration
	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	started   atomic.Bool
	stopped   atomic.Bool
}

func NewProgress(c *collector.Collector, interval time.Duration, log *zap.Logger) *Progress {
	if log == nil {
		log = zap.NewNop()
	}
	return &Progress{
		collector: c,
		log:       log,
		interval:  interval,
	}
}

func (p *Progress) Start() {
	if p.interval <= 0 || p.started.Swap(true) {
		return
	}
	p.stopCh = make(chan struct{})
	p.ticker = time.NewTicker(p.interval)
	p.wg.Add(1)
	go p.run()
}

func (p *Progress) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.ticker.C:
			p.Report()
		}
	}
}

// Report logs the current tally immediately.
func (p *Progress) Report() {
	m := p.collector.Compute()
	errorRate := 0.0
	if m.TotalSends > 0 {
		errorRate = float64(m.FailureCount) / float64(m.TotalSends) * 100
	}
	p.log.Info("progress",
		zap.Duration("elapsed", m.TestDuration.Round(time.Second)),
		zap.Int("sends", m.TotalSends),
		zap.Int("failures", m.FailureCount),
		zap.Float64("errorRate", errorRate),
		zap.Float64("sendsPerMin", m.SendsPerMin),
	)
}

// Stop halts the ticker and waits for the reporting goroutine. Safe to call
// more than once, and without Start.
func (p *Progress) Stop() {
	if !p.started.Load() || p.stopped.Swap(true) {
		return
	}
	p.ticker.Stop()
	close(p.stopCh)
	p.wg.Wait()
}

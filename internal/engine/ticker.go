package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teamprincipal/paddock/internal/platform/logger"
	"github.com/teamprincipal/paddock/internal/platform/metrics"
)

// DefaultTickRate is one race weekend per real minute.
const DefaultTickRate = 1 * time.Minute

// StepFunc advances the game by one tick.
type StepFunc func(ctx context.Context) error

// Ticker drives a StepFunc on a wall-clock interval.
// It does NOT know about teams or research, only time progression.
type Ticker struct {
	interval time.Duration
	step     StepFunc
	logger   *logger.Logger
	metrics  *metrics.Collector

	ticks    int64
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTicker creates a ticker. A non-positive interval uses DefaultTickRate.
func NewTicker(interval time.Duration, step StepFunc, log *logger.Logger, m *metrics.Collector) *Ticker {
	if interval <= 0 {
		interval = DefaultTickRate
	}
	if log == nil {
		log = logger.Discard()
	}
	if m == nil {
		m = metrics.Get()
	}
	return &Ticker{
		interval: interval,
		step:     step,
		logger:   log,
		metrics:  m,
		stopChan: make(chan struct{}),
	}
}

// Start begins the loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("ticker started", "interval", t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("ticker stopped by context")
			return
		case <-t.stopChan:
			t.logger.Info("ticker stopped manually")
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// Stop gracefully stops the ticker. It is safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// Ticks returns the number of completed ticks.
func (t *Ticker) Ticks() int64 {
	return atomic.LoadInt64(&t.ticks)
}

func (t *Ticker) tick(ctx context.Context) {
	start := time.Now()
	err := t.step(ctx)
	t.metrics.RecordTick(time.Since(start))
	n := atomic.AddInt64(&t.ticks, 1)

	if err != nil {
		t.logger.Warn("tick failed", "tick", n, "error", err)
	}
}

package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teamprincipal/paddock/internal/platform/metrics"
)

func TestTickerDrivesStep(t *testing.T) {
	var calls int64
	m := metrics.New()
	tk := NewTicker(5*time.Millisecond, func(ctx context.Context) error {
		if atomic.AddInt64(&calls, 1)%2 == 0 {
			return errors.New("boom")
		}
		return nil
	}, nil, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		tk.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return tk.Ticks() >= 3 }, time.Second, time.Millisecond)
	tk.Stop()
	tk.Stop()
	<-done

	assert.GreaterOrEqual(t, atomic.LoadInt64(&m.TickCount), int64(3), "failed steps are still timed")
}

func TestTickerStopsOnContext(t *testing.T) {
	tk := NewTicker(time.Hour, func(context.Context) error { return nil }, nil, metrics.New())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tk.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop")
	}
	assert.Zero(t, tk.Ticks())
}

func TestSeasonTickAdvancesCalendar(t *testing.T) {
	s := newTestSeason(t, 2, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NoError(t, s.Tick(ctx))
	}
	total, run := s.Calendar()
	assert.Equal(t, 2, total)
	assert.Equal(t, 0, run, "third tick closed the season")
	assert.Equal(t, 2, s.State().Season)
}

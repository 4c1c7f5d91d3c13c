// Package metrics provides observability for the paddock server.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Timing accumulates durations of one kind of operation.
type Timing struct {
	count int64
	sum   int64 // nanoseconds
	max   int64
}

// Observe adds one sample.
func (t *Timing) Observe(d time.Duration) {
	atomic.AddInt64(&t.count, 1)
	atomic.AddInt64(&t.sum, int64(d))
	for {
		cur := atomic.LoadInt64(&t.max)
		if int64(d) <= cur || atomic.CompareAndSwapInt64(&t.max, cur, int64(d)) {
			return
		}
	}
}

// AvgMillis is the mean sample in milliseconds, 0 when empty.
func (t *Timing) AvgMillis() float64 {
	n := atomic.LoadInt64(&t.count)
	if n == 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&t.sum)) / float64(n) / 1e6
}

// MaxMillis is the slowest sample in milliseconds.
func (t *Timing) MaxMillis() float64 {
	return float64(atomic.LoadInt64(&t.max)) / 1e6
}

// Collector gathers performance metrics. Counter fields are read with
// sync/atomic.
type Collector struct {
	TickCount  int64
	TickTiming Timing
	lastTick   atomic.Value // time.Time

	RacesSimulated    int64
	LapsSimulated     int64
	PitStops          int64
	RaceTiming        Timing
	ResearchStarted   int64
	ResearchCompleted int64

	EventsWritten    int64
	EventWriteErrors int64
	EventWriteTiming Timing

	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	CacheHits   int64
	CacheMisses int64

	started time.Time
}

var (
	collector     *Collector
	collectorOnce sync.Once
)

// New returns an empty collector. Tests use their own.
func New() *Collector {
	return &Collector{started: time.Now()}
}

// Get returns the process-wide collector.
func Get() *Collector {
	collectorOnce.Do(func() { collector = New() })
	return collector
}

// RecordTick records a completed ticker step.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	c.TickTiming.Observe(latency)
	c.lastTick.Store(time.Now())
}

// RecordRace records one simulated race.
func (c *Collector) RecordRace(laps, pitStops int, latency time.Duration) {
	atomic.AddInt64(&c.RacesSimulated, 1)
	atomic.AddInt64(&c.LapsSimulated, int64(laps))
	atomic.AddInt64(&c.PitStops, int64(pitStops))
	c.RaceTiming.Observe(latency)
}

// RecordResearch records research projects started and completed.
func (c *Collector) RecordResearch(started, completed int) {
	atomic.AddInt64(&c.ResearchStarted, int64(started))
	atomic.AddInt64(&c.ResearchCompleted, int64(completed))
}

// RecordEventWrite records one ledger write, failed or not.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	c.EventWriteTiming.Observe(latency)
	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection adds delta to the open spectator count.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
		return
	}
	atomic.AddInt64(&c.WSMessagesOut, 1)
}

func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordCache records a result cache lookup.
func (c *Collector) RecordCache(hit bool) {
	if hit {
		atomic.AddInt64(&c.CacheHits, 1)
		return
	}
	atomic.AddInt64(&c.CacheMisses, 1)
}

func (c *Collector) lastTickTime() string {
	if t, ok := c.lastTick.Load().(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return ""
}

// Snapshot groups the current values by subsystem.
func (c *Collector) Snapshot() map[string]interface{} {
	load := atomic.LoadInt64
	return map[string]interface{}{
		"uptime_seconds": time.Since(c.started).Seconds(),
		"tick": map[string]interface{}{
			"count":          load(&c.TickCount),
			"avg_latency_ms": c.TickTiming.AvgMillis(),
			"max_latency_ms": c.TickTiming.MaxMillis(),
			"last_tick":      c.lastTickTime(),
		},
		"race": map[string]interface{}{
			"simulated":      load(&c.RacesSimulated),
			"laps":           load(&c.LapsSimulated),
			"pit_stops":      load(&c.PitStops),
			"avg_latency_ms": c.RaceTiming.AvgMillis(),
		},
		"research": map[string]interface{}{
			"started":   load(&c.ResearchStarted),
			"completed": load(&c.ResearchCompleted),
		},
		"events": map[string]interface{}{
			"written":          load(&c.EventsWritten),
			"errors":           load(&c.EventWriteErrors),
			"avg_write_lat_ms": c.EventWriteTiming.AvgMillis(),
			"max_write_lat_ms": c.EventWriteTiming.MaxMillis(),
		},
		"websocket": map[string]interface{}{
			"active_connections": load(&c.WSConnectionsActive),
			"messages_in":        load(&c.WSMessagesIn),
			"messages_out":       load(&c.WSMessagesOut),
			"errors":             load(&c.WSErrors),
		},
		"cache": map[string]interface{}{
			"hits":   load(&c.CacheHits),
			"misses": load(&c.CacheMisses),
		},
	}
}

// Handler returns the JSON endpoint for the process-wide collector.
func Handler() http.HandlerFunc {
	return Get().Handler()
}

// Handler serves this collector's snapshot as JSON.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns the text endpoint for the process-wide collector.
func PrometheusHandler() http.HandlerFunc {
	return Get().PrometheusHandler()
}

// promWriter writes the text exposition format.
type promWriter struct{ w io.Writer }

func (p promWriter) header(name, kind, help string) {
	fmt.Fprintf(p.w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

func (p promWriter) single(name, kind, help string, v interface{}) {
	p.header(name, kind, help)
	fmt.Fprintf(p.w, "%s %v\n\n", name, v)
}

// labelled writes one sample per label value, in the given order.
func (p promWriter) labelled(name, help, label string, values []string, counts ...int64) {
	p.header(name, "counter", help)
	for i, v := range values {
		fmt.Fprintf(p.w, "%s{%s=%q} %d\n", name, label, v, counts[i])
	}
	fmt.Fprintln(p.w)
}

// PrometheusHandler serves this collector in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		load := atomic.LoadInt64
		p := promWriter{w}

		p.single("paddock_week_ticks", "counter", "Total ticker steps", load(&c.TickCount))
		p.single("paddock_tick_latency_max_ms", "gauge", "Slowest ticker step",
			fmt.Sprintf("%.2f", c.TickTiming.MaxMillis()))
		p.single("paddock_races_simulated", "counter", "Total races simulated", load(&c.RacesSimulated))
		p.single("paddock_laps_simulated", "counter", "Total laps simulated", load(&c.LapsSimulated))
		p.single("paddock_pit_stops", "counter", "Total pit stops", load(&c.PitStops))
		p.labelled("paddock_research_total", "Research projects by stage", "stage",
			[]string{"started", "completed"}, load(&c.ResearchStarted), load(&c.ResearchCompleted))
		p.single("paddock_events_written", "counter", "Total ledger writes", load(&c.EventsWritten))
		p.single("paddock_event_write_errors", "counter", "Failed ledger writes", load(&c.EventWriteErrors))
		p.single("paddock_ws_connections", "gauge", "Open spectator connections", load(&c.WSConnectionsActive))
		p.labelled("paddock_ws_messages_total", "Websocket frames", "direction",
			[]string{"in", "out"}, load(&c.WSMessagesIn), load(&c.WSMessagesOut))
		p.labelled("paddock_result_cache_total", "Result cache lookups", "result",
			[]string{"hit", "miss"}, load(&c.CacheHits), load(&c.CacheMisses))
	}
}

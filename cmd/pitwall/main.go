// Package main - pitwall
// Tails the paddock server's live event feed. With --clients it opens many
// spectators at once and reports delivery stats, as a load test for the hub.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/teamprincipal/paddock/internal/events"
	"github.com/teamprincipal/paddock/internal/network"
	"github.com/teamprincipal/paddock/internal/platform/config"
)

// Config for the pitwall
type Config struct {
	ServerURL string
	Clients   int
	Duration  time.Duration
	Filter    network.Subscription
}

// Stats tracks delivery across all spectators.
type Stats struct {
	Connected int64
	Frames    int64
	Events    int64
	Errors    int64

	mu     sync.Mutex
	byType map[events.EventType]int64
}

func (s *Stats) count(t events.EventType) {
	s.mu.Lock()
	s.byType[t]++
	s.mu.Unlock()
}

func main() {
	if err := run(); err != nil {
		config.Exitf("pitwall: %v", err)
	}
}

func run() error {
	var cfg Config
	var types []string

	flagSet := pflag.NewFlagSet("pitwall", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.ServerURL, "url", "ws://localhost:8080/ws", "websocket feed URL")
	flagSet.StringSliceVar(&cfg.Filter.Teams, "team", nil, "only show these teams (repeatable)")
	flagSet.StringSliceVar(&types, "type", nil, "only show these event types (repeatable)")
	flagSet.IntVar(&cfg.Clients, "clients", 1, "concurrent spectators; more than one switches to load-test output")
	flagSet.DurationVar(&cfg.Duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	for _, t := range types {
		cfg.Filter.Types = append(cfg.Filter.Types, events.EventType(t))
	}
	if cfg.Clients < 1 {
		return fmt.Errorf("--clients must be at least 1")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if cfg.Duration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, cfg.Duration)
		defer stop()
	}

	stats := &Stats{byType: make(map[events.EventType]int64)}
	if cfg.Clients == 1 {
		return spectate(ctx, cfg, stats, printEvent)
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < cfg.Clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := spectate(ctx, cfg, stats, nil); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
			}
		}()
		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()
	printResults(stats, cfg, time.Since(start))
	return nil
}

// spectate holds one connection open until ctx ends, handing every event to
// onEvent.
func spectate(ctx context.Context, cfg Config, stats *Stats, onEvent func(events.GameEvent)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.ServerURL, err)
	}
	defer conn.Close()
	atomic.AddInt64(&stats.Connected, 1)

	if err := conn.WriteJSON(cfg.Filter); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		atomic.AddInt64(&stats.Frames, 1)

		// the hub coalesces queued events into one newline separated frame
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			var e events.GameEvent
			if err := json.Unmarshal(line, &e); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				continue
			}
			atomic.AddInt64(&stats.Events, 1)
			stats.count(e.Type)
			if onEvent != nil {
				onEvent(e)
			}
		}
	}
}

func printEvent(e events.GameEvent) {
	payload, _ := json.Marshal(e.Payload)
	fmt.Printf("S%d W%-2d %-20s %-16s %-20s %s\n", e.Season, e.Week, e.Type, e.ActorID, e.TargetID, payload)
}

func printResults(stats *Stats, cfg Config, elapsed time.Duration) {
	fmt.Println("=========================================")
	fmt.Println("PITWALL LOAD RESULTS")
	fmt.Println("=========================================")
	fmt.Printf("Spectators:   %d of %d connected\n", atomic.LoadInt64(&stats.Connected), cfg.Clients)
	fmt.Printf("Frames:       %s\n", humanize.Comma(atomic.LoadInt64(&stats.Frames)))
	fmt.Printf("Events:       %s\n", humanize.Comma(atomic.LoadInt64(&stats.Events)))
	fmt.Printf("Errors:       %d\n", atomic.LoadInt64(&stats.Errors))
	if secs := elapsed.Seconds(); secs > 0 {
		fmt.Printf("Throughput:   %.1f events/sec\n", float64(atomic.LoadInt64(&stats.Events))/secs)
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()
	for t, n := range stats.byType {
		fmt.Printf("  %-22s %s\n", t, humanize.Comma(n))
	}
}

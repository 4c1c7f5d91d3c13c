// Package network serves the live event feed and the player's HTTP API.
package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teamprincipal/paddock/internal/events"
	"github.com/teamprincipal/paddock/internal/platform/config"
	"github.com/teamprincipal/paddock/internal/platform/logger"
	"github.com/teamprincipal/paddock/internal/platform/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from other origins in development
	},
}

// outbound is one serialized event on its way to the clients.
type outbound struct {
	event events.GameEvent
	data  []byte
}

// Hub maintains the set of active clients and broadcasts events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	logger     *logger.Logger
	metrics    *metrics.Collector
	tuning     config.TuningConfig
}

// NewHub initializes a new WebSocket Hub.
func NewHub(log *logger.Logger, tuning config.TuningConfig, m *metrics.Collector) *Hub {
	if m == nil {
		m = metrics.Get()
	}
	defaults := config.DefaultTuning()
	if tuning.PollInterval <= 0 {
		tuning.PollInterval = defaults.PollInterval
	}
	if tuning.ClientSendBuffer <= 0 {
		tuning.ClientSendBuffer = defaults.ClientSendBuffer
	}
	return &Hub{
		broadcast:  make(chan outbound, tuning.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     log,
		metrics:    m,
		tuning:     tuning,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("websocket hub shutting down")
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
				h.metrics.RecordWSConnection(-1)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("websocket client connected", "remote", client.remote())
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.RecordWSConnection(-1)
				h.logger.Info("websocket client disconnected", "remote", client.remote())
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(msg.event) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// slow consumer
					close(client.send)
					delete(h.clients, client)
					h.metrics.RecordWSConnection(-1)
					h.metrics.RecordWSError()
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastEvent serializes a GameEvent to JSON and queues it for every
// subscribed client. It is a no-op once the hub has stopped.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to serialize event for broadcast", "event", event.ID, "error", err)
		return
	}
	select {
	case h.broadcast <- outbound{event: event, data: payload}:
	case <-h.done:
	}
}

// StartEventPoller spawns a goroutine that polls the EventLog and pushes new
// events to the Hub. The hub keeps its own cursor, so the engine never
// blocks on slow spectators.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog) {
	go func() {
		poll := time.NewTicker(h.tuning.PollInterval)
		defer poll.Stop()

		cursor := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.done:
				return
			case <-poll.C:
				fresh := eventLog.Since(cursor)
				for _, event := range fresh {
					h.BroadcastEvent(event)
				}
				cursor += len(fresh)
			}
		}
	}()
}

// ServeWS upgrades the request and attaches a new client to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Warn("failed to upgrade websocket connection", "error", err)
		return
	}

	client := NewClient(h, conn)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// All work happens in new goroutines so the handler can return.
	go client.WritePump()
	go client.ReadPump()
}

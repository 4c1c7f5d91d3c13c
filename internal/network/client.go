package network

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teamprincipal/paddock/internal/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Subscription narrows the feed a client receives. Empty lists match
// everything. Race results and season ends reach every team filter.
type Subscription struct {
	Teams []string           `json:"teams,omitempty"`
	Types []events.EventType `json:"types,omitempty"`
}

// Matches reports whether e passes the filter.
func (s Subscription) Matches(e events.GameEvent) bool {
	if len(s.Types) > 0 && !slices.Contains(s.Types, e.Type) {
		return false
	}
	if len(s.Teams) == 0 {
		return true
	}
	switch e.Type {
	case events.EventTypeRaceFinished, events.EventTypeSeasonEnded:
		return true
	}
	return slices.Contains(s.Teams, e.ActorID)
}

// Client is one websocket spectator.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	filter Subscription
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.tuning.ClientSendBuffer),
	}
}

func (c *Client) remote() string {
	return c.conn.RemoteAddr().String()
}

func (c *Client) wants(e events.GameEvent) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter.Matches(e)
}

func (c *Client) subscribe(s Subscription) {
	c.mu.Lock()
	c.filter = s
	c.mu.Unlock()
}

// ReadPump reads subscription updates until the connection closes.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Warn("websocket read failed", "remote", c.remote(), "error", err)
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var sub Subscription
		if err := json.Unmarshal(message, &sub); err != nil {
			c.hub.metrics.RecordWSError()
			c.hub.logger.Warn("ignoring malformed subscription", "remote", c.remote(), "error", err)
			continue
		}
		c.subscribe(sub)
		c.hub.logger.Debug("subscription updated", "remote", c.remote(), "teams", sub.Teams, "types", sub.Types)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// Queued events are coalesced into one frame, newline separated.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			c.hub.metrics.RecordWSMessage(false)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
				c.hub.metrics.RecordWSMessage(false)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

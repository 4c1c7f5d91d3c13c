// Package events provides the append-only log of everything that happens in
// a session: research decisions, pit stops, race results and week ticks.
// The live feed and the event ledger in storage are both fed from here.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeResearchStarted    EventType = "RESEARCH_STARTED"
	EventTypeResearchCompleted  EventType = "RESEARCH_COMPLETED"
	EventTypeResearchLocked     EventType = "RESEARCH_LOCKED"
	EventTypeEngineersAllocated EventType = "ENGINEERS_ALLOCATED"
	EventTypePitStop            EventType = "PIT_STOP"
	EventTypeRaceFinished       EventType = "RACE_FINISHED"
	EventTypePointsAwarded      EventType = "POINTS_AWARDED"
	EventTypeWeekAdvanced       EventType = "WEEK_ADVANCED"
	EventTypeSeasonEnded        EventType = "SEASON_ENDED"
)

// ResearchPayload describes a research node transition.
type ResearchPayload struct {
	NodeID    string         `json:"node_id"`
	Name      string         `json:"name,omitempty"`
	Engineers int            `json:"engineers,omitempty"`
	Effects   map[string]int `json:"effects,omitempty"` // applied deltas, bonuses included
	LockedBy  string         `json:"locked_by,omitempty"`
}

// PitStopPayload describes one stop during a race.
type PitStopPayload struct {
	Track     string  `json:"track"`
	Lap       int     `json:"lap"`
	Compound  string  `json:"compound"`
	Wear      float64 `json:"wear"` // before the stop
	Emergency bool    `json:"emergency"`
}

// RaceFinishedPayload summarizes a completed race.
type RaceFinishedPayload struct {
	Round      int     `json:"round"`
	Track      string  `json:"track"`
	Winner     string  `json:"winner"`
	WinnerTeam string  `json:"winner_team"`
	TotalTime  float64 `json:"total_time"`
}

// PointsPayload records championship points awarded for one result.
type PointsPayload struct {
	Position int    `json:"position"`
	Team     string `json:"team"`
	Points   int    `json:"points"`
}

// WeekPayload records the outcome of a weekly tick for one team.
type WeekPayload struct {
	ResourcePoints int `json:"resource_points"` // income this week
	Balance        int `json:"balance"`         // after income
}

// GameEvent represents an immutable record of an action in the game.
type GameEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`  // team that acted
	TargetID  string      `json:"target_id"` // node or driver affected (optional)
	Payload   interface{} `json:"payload"`
	Season    int         `json:"season"`
	Week      int         `json:"week"`
}

// NewEvent stamps a fresh event with an ID and the current time.
func NewEvent(t EventType, actor, target string, payload interface{}) GameEvent {
	return GameEvent{
		ID:        GenerateEventID(),
		Timestamp: time.Now().UTC(),
		Type:      t,
		ActorID:   actor,
		TargetID:  target,
		Payload:   payload,
	}
}

// Appender is anything that accepts events. Both engines write through it.
type Appender interface {
	Append(event GameEvent)
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log of game events, optionally
// written through to a persister.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	persister EventPersister
	onError   func(GameEvent, error)
	season    int
	week      int
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
		season:    1,
	}
}

// OnPersistError registers a callback for write-through failures. The
// event stays in the in-memory log either way.
func (el *EventLog) OnPersistError(fn func(GameEvent, error)) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.onError = fn
}

// SetGameTime sets the season and week stamped on events that carry none.
func (el *EventLog) SetGameTime(season, week int) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.season = season
	el.week = week
}

// Append adds a new event to the log. Events are immutable once appended.
// Persistence is synchronous so the ledger order matches the log order.
func (el *EventLog) Append(event GameEvent) {
	el.mu.Lock()
	defer el.mu.Unlock()

	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Season == 0 {
		event.Season = el.season
		event.Week = el.week
	}
	el.events = append(el.events, event)

	if el.persister != nil {
		if err := el.persister.Append(event); err != nil && el.onError != nil {
			el.onError(event, err)
		}
	}
}

// Len returns the number of events in the log.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// Since returns a copy of the events after the first n. Pollers keep n as a
// cursor.
func (el *EventLog) Since(n int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	if n < 0 {
		n = 0
	}
	if n >= len(el.events) {
		return nil
	}
	out := make([]GameEvent, len(el.events)-n)
	copy(out, el.events[n:])
	return out
}

// GetByActor returns all events performed by a specific team.
func (el *EventLog) GetByActor(actorID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.ActorID == actorID {
			result = append(result, e)
		}
	}
	return result
}

// GetByType returns all events of one type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// GetByWeek returns all events stamped with a season and week.
func (el *EventLog) GetByWeek(season, week int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Season == season && e.Week == week {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of the full history.
func (el *EventLog) Replay() []GameEvent {
	return el.Since(0)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}

// Package storage provides the persistence layer for the paddock server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/teamprincipal/paddock/internal/engine"
)

// ErrSlotNotFound is returned when loading a save slot that does not exist.
var ErrSlotNotFound = errors.New("storage: save slot not found")

// StoredEvent is a game event as read back from the ledger. Payloads come
// back as generic JSON objects.
type StoredEvent struct {
	ID        string                 `json:"id" db:"id"`
	Session   string                 `json:"session" db:"session"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	TargetID  string                 `json:"target_id" db:"target_id"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
	Season    int                    `json:"season" db:"season"`
	Week      int                    `json:"week" db:"week"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event StoredEvent) error

	// GetBySession retrieves all events of a session in write order.
	GetBySession(ctx context.Context, session string) ([]StoredEvent, error)

	// GetByActorID retrieves all events performed by one team.
	GetByActorID(ctx context.Context, session, actorID string) ([]StoredEvent, error)

	// GetByType retrieves all events of a specific type.
	GetByType(ctx context.Context, session, eventType string) ([]StoredEvent, error)

	// GetSince retrieves the events from a game week onwards.
	GetSince(ctx context.Context, session string, season, week int) ([]StoredEvent, error)
}

// SlotInfo describes a save slot without loading it.
type SlotInfo struct {
	Slot      string    `json:"slot" db:"slot"`
	Team      string    `json:"team" db:"team"`
	Season    int       `json:"season" db:"season"`
	Week      int       `json:"week" db:"week"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SessionRepository stores whole sessions in named slots.
type SessionRepository interface {
	// Save replaces the slot's contents with snap.
	Save(ctx context.Context, slot string, snap engine.Snapshot) error

	// Load reads a slot back. Unknown slots return ErrSlotNotFound.
	Load(ctx context.Context, slot string) (engine.Snapshot, error)

	// ListSlots lists every slot, most recently saved first.
	ListSlots(ctx context.Context) ([]SlotInfo, error)

	// Delete removes a slot. Deleting a missing slot is not an error.
	Delete(ctx context.Context, slot string) error
}

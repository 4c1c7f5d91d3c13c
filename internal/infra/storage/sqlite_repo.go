package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/teamprincipal/paddock/internal/events"
	"github.com/teamprincipal/paddock/internal/platform/metrics"
)

const eventColumns = `id, session, timestamp, event_type, actor_id, target_id, payload, season, week`

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event StoredEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return r.insert(ctx, event, payloadBytes)
}

func (r *SQLiteEventRepository) insert(ctx context.Context, event StoredEvent, payload []byte) error {
	query := `INSERT INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.Session, event.Timestamp, event.EventType, event.ActorID,
		event.TargetID, string(payload), event.Season, event.Week,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]StoredEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var e StoredEvent
		var payloadStr string
		err := rows.Scan(
			&e.ID, &e.Session, &e.Timestamp, &e.EventType, &e.ActorID,
			&e.TargetID, &payloadStr, &e.Season, &e.Week,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, fmt.Errorf("event %s payload: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteEventRepository) GetBySession(ctx context.Context, session string) ([]StoredEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE session = ? ORDER BY rowid ASC`
	return r.getMany(ctx, query, session)
}

func (r *SQLiteEventRepository) GetByActorID(ctx context.Context, session, actorID string) ([]StoredEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE session = ? AND actor_id = ? ORDER BY rowid ASC`
	return r.getMany(ctx, query, session, actorID)
}

func (r *SQLiteEventRepository) GetByType(ctx context.Context, session, eventType string) ([]StoredEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE session = ? AND event_type = ? ORDER BY rowid ASC`
	return r.getMany(ctx, query, session, eventType)
}

func (r *SQLiteEventRepository) GetSince(ctx context.Context, session string, season, week int) ([]StoredEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE session = ? AND (season > ? OR (season = ? AND week >= ?))
		ORDER BY rowid ASC`
	return r.getMany(ctx, query, session, season, season, week)
}

// Persister binds the repository to one session so it can back an
// events.EventLog. Writes are timed into m.
func (r *SQLiteEventRepository) Persister(session string, timeout time.Duration, m *metrics.Collector) *SessionPersister {
	if m == nil {
		m = metrics.Get()
	}
	return &SessionPersister{repo: r, session: session, timeout: timeout, metrics: m}
}

// SessionPersister writes one session's events to the ledger.
type SessionPersister struct {
	repo    *SQLiteEventRepository
	session string
	timeout time.Duration
	metrics *metrics.Collector
}

// Append implements events.EventPersister.
func (p *SessionPersister) Append(e events.GameEvent) error {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	payload, err := json.Marshal(e.Payload)
	if err == nil {
		err = p.repo.insert(ctx, StoredEvent{
			ID:        e.ID,
			Session:   p.session,
			Timestamp: e.Timestamp,
			EventType: string(e.Type),
			ActorID:   e.ActorID,
			TargetID:  e.TargetID,
			Season:    e.Season,
			Week:      e.Week,
		}, payload)
	}
	p.metrics.RecordEventWrite(time.Since(start), err)
	return err
}

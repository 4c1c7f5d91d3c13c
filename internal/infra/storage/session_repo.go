package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/teamprincipal/paddock/internal/domain/rules"
	"github.com/teamprincipal/paddock/internal/engine"
	"github.com/teamprincipal/paddock/internal/research"
)

// SQLiteSessionRepository implements SessionRepository for SQLite.
//
// Research state is normalised into the research_* tables so it can be
// inspected with plain SQL. Everything else in the session is one CBOR blob
// in the saves table.
type SQLiteSessionRepository struct {
	db *sql.DB
}

func NewSQLiteSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

func (r *SQLiteSessionRepository) Save(ctx context.Context, slot string, snap engine.Snapshot) error {
	if slot == "" {
		return errors.New("save: empty slot name")
	}
	player := ""
	for _, t := range snap.Teams {
		if t.Player {
			player = t.Name
		}
	}

	blob, err := marshal(snap)
	if err != nil {
		return fmt.Errorf("save %s: encode: %w", slot, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO saves (slot, team, season, week, seed, state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			team=excluded.team,
			season=excluded.season,
			week=excluded.week,
			seed=excluded.seed,
			state=excluded.state,
			updated_at=excluded.updated_at
	`, slot, player, snap.Season, snap.Week, snap.Seed, blob, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}

	if err := clearResearch(ctx, tx, slot); err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	for _, t := range snap.Teams {
		if err := insertResearch(ctx, tx, slot, t.Name, t.Research); err != nil {
			return fmt.Errorf("save %s: %s research: %w", slot, t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save %s: commit: %w", slot, err)
	}
	return nil
}

func clearResearch(ctx context.Context, tx *sql.Tx, slot string) error {
	for _, table := range []string{"research_active", "research_nodes", "research_graphs"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE slot = ?`, slot); err != nil {
			return err
		}
	}
	return nil
}

func insertResearch(ctx context.Context, tx *sql.Tx, slot, team string, s research.Snapshot) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO research_graphs (slot, team, resource_points, total_engineers, difficulty, autonomous)
		VALUES (?, ?, ?, ?, ?, ?)
	`, slot, team, s.ResourcePoints, s.TotalEngineers, string(s.Difficulty), s.Autonomous)
	if err != nil {
		return err
	}

	for i, n := range s.Nodes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO research_nodes (slot, team, node_id, position, state, invested_work)
			VALUES (?, ?, ?, ?, ?, ?)
		`, slot, team, n.ID, i, string(n.State), n.InvestedWork)
		if err != nil {
			return err
		}
	}
	for id, engineers := range s.Active {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO research_active (slot, team, node_id, engineers)
			VALUES (?, ?, ?, ?)
		`, slot, team, id, engineers)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteSessionRepository) Load(ctx context.Context, slot string) (engine.Snapshot, error) {
	var snap engine.Snapshot
	var blob []byte
	err := r.db.QueryRowContext(ctx, `SELECT state FROM saves WHERE slot = ?`, slot).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	if err != nil {
		return snap, fmt.Errorf("load %s: %w", slot, err)
	}
	if err := unmarshal(blob, &snap); err != nil {
		return snap, fmt.Errorf("load %s: decode: %w", slot, err)
	}

	graphs, err := r.loadResearch(ctx, slot)
	if err != nil {
		return snap, fmt.Errorf("load %s: %w", slot, err)
	}
	for i := range snap.Teams {
		if g, ok := graphs[snap.Teams[i].Name]; ok {
			snap.Teams[i].Research = g
		}
	}
	return snap, nil
}

func (r *SQLiteSessionRepository) loadResearch(ctx context.Context, slot string) (map[string]research.Snapshot, error) {
	out := make(map[string]research.Snapshot)

	rows, err := r.db.QueryContext(ctx, `
		SELECT team, resource_points, total_engineers, difficulty, autonomous
		FROM research_graphs WHERE slot = ?
	`, slot)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var team, difficulty string
		var s research.Snapshot
		if err := rows.Scan(&team, &s.ResourcePoints, &s.TotalEngineers, &difficulty, &s.Autonomous); err != nil {
			rows.Close()
			return nil, err
		}
		s.Difficulty = rules.Difficulty(difficulty)
		s.Active = make(map[string]int)
		out[team] = s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT team, node_id, state, invested_work
		FROM research_nodes WHERE slot = ? ORDER BY team, position
	`, slot)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var team, state string
		var n research.NodeState
		if err := rows.Scan(&team, &n.ID, &state, &n.InvestedWork); err != nil {
			rows.Close()
			return nil, err
		}
		n.State = research.State(state)
		s := out[team]
		s.Nodes = append(s.Nodes, n)
		out[team] = s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT team, node_id, engineers FROM research_active WHERE slot = ?
	`, slot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var team, id string
		var engineers int
		if err := rows.Scan(&team, &id, &engineers); err != nil {
			return nil, err
		}
		if s, ok := out[team]; ok {
			s.Active[id] = engineers
		}
	}
	return out, rows.Err()
}

func (r *SQLiteSessionRepository) ListSlots(ctx context.Context) ([]SlotInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT slot, team, season, week, updated_at FROM saves ORDER BY updated_at DESC, slot ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SlotInfo
	for rows.Next() {
		var s SlotInfo
		if err := rows.Scan(&s.Slot, &s.Team, &s.Season, &s.Week, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteSessionRepository) Delete(ctx context.Context, slot string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := clearResearch(ctx, tx, slot); err != nil {
		return fmt.Errorf("delete %s: %w", slot, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("delete %s: %w", slot, err)
	}
	return tx.Commit()
}

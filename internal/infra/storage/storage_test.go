package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamprincipal/paddock/internal/domain/rules"
	"github.com/teamprincipal/paddock/internal/domain/team"
	"github.com/teamprincipal/paddock/internal/domain/track"
	"github.com/teamprincipal/paddock/internal/engine"
	"github.com/teamprincipal/paddock/internal/events"
	"github.com/teamprincipal/paddock/internal/platform/metrics"
)

const testSession = "slot1"

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "saves", "paddock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newSeason(t *testing.T, log *events.EventLog) *engine.Season {
	t.Helper()
	s, err := engine.NewSeason(engine.Options{
		Seed:           11,
		TotalEngineers: rules.StandardEngineers,
		Team:           "Player Racing",
		Tier:           team.TierMidfield,
		Drivers:        []string{"Liam Lawson", "Oliver Bearman"},
		Calendar:       track.Calendar()[:3],
		EventLog:       log,
		Metrics:        metrics.New(),
	})
	require.NoError(t, err)
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteSessionRepository(openTestDB(t))

	s := newSeason(t, nil)
	require.NoError(t, s.AdvanceWeek(ctx))
	require.NoError(t, s.StartResearch("aero_b1"))
	require.NoError(t, s.AllocateEngineers("aero_b1", 20))
	_, err := s.RunRound(ctx, nil)
	require.NoError(t, err)

	snap := s.Snapshot()
	require.NoError(t, repo.Save(ctx, testSession, snap))

	loaded, err := repo.Load(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, snap.Seed, loaded.Seed)
	assert.Equal(t, snap.Week, loaded.Week)
	assert.Equal(t, snap.Round, loaded.Round)
	assert.Equal(t, snap.Championship.Drivers, loaded.Championship.Drivers)
	assert.Equal(t, snap.Finance.Balance, loaded.Finance.Balance)
	require.Len(t, loaded.Teams, len(snap.Teams))

	for i, want := range snap.Teams {
		got := loaded.Teams[i]
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Car, got.Car, want.Name)
		assert.Equal(t, want.Research.ResourcePoints, got.Research.ResourcePoints, want.Name)
		assert.Equal(t, want.Research.Autonomous, got.Research.Autonomous, want.Name)
		assert.Equal(t, want.Research.Nodes, got.Research.Nodes, want.Name)
		assert.Len(t, got.Research.Active, len(want.Research.Active), want.Name)
		for id, n := range want.Research.Active {
			assert.Equal(t, n, got.Research.Active[id], want.Name)
		}
	}
	assert.Equal(t, 20, loaded.Teams[0].Research.Active["aero_b1"])

	resumed, err := engine.Resume(loaded, engine.Options{Calendar: track.Calendar()[:3], Metrics: metrics.New()})
	require.NoError(t, err)

	want, err := s.RunRound(ctx, nil)
	require.NoError(t, err)
	got, err := resumed.RunRound(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, want.Result.Standings, got.Result.Standings, "a loaded save replays like the original")
	assert.Equal(t, s.State().ResourcePoints, resumed.State().ResourcePoints)
}

func TestSaveOverwritesSlot(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteSessionRepository(openTestDB(t))
	s := newSeason(t, nil)

	require.NoError(t, repo.Save(ctx, testSession, s.Snapshot()))
	require.NoError(t, s.AdvanceWeek(ctx))
	require.NoError(t, repo.Save(ctx, testSession, s.Snapshot()))

	loaded, err := repo.Load(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Week)

	slots, err := repo.ListSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "Player Racing", slots[0].Team)
	assert.Equal(t, 2, slots[0].Week)
}

func TestSlotsListAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteSessionRepository(openTestDB(t))
	s := newSeason(t, nil)

	require.NoError(t, repo.Save(ctx, "career", s.Snapshot()))
	require.NoError(t, repo.Save(ctx, "sandbox", s.Snapshot()))

	slots, err := repo.ListSlots(ctx)
	require.NoError(t, err)
	assert.Len(t, slots, 2)

	require.NoError(t, repo.Delete(ctx, "sandbox"))
	require.NoError(t, repo.Delete(ctx, "sandbox"), "deleting twice is fine")

	_, err = repo.Load(ctx, "sandbox")
	assert.ErrorIs(t, err, ErrSlotNotFound)

	slots, err = repo.ListSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "career", slots[0].Slot)

	assert.Error(t, repo.Save(ctx, "", s.Snapshot()))
}

func TestEventRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteEventRepository(openTestDB(t))

	for i, typ := range []string{"WEEK_ADVANCED", "PIT_STOP", "WEEK_ADVANCED"} {
		err := repo.Append(ctx, StoredEvent{
			ID:        events.GenerateEventID(),
			Session:   testSession,
			EventType: typ,
			ActorID:   "Williams",
			Payload:   map[string]interface{}{"n": float64(i)},
			Season:    1,
			Week:      i + 1,
		})
		require.NoError(t, err)
	}
	require.NoError(t, repo.Append(ctx, StoredEvent{
		ID: events.GenerateEventID(), Session: "other", EventType: "PIT_STOP", Season: 1, Week: 1,
	}))

	all, err := repo.GetBySession(ctx, testSession)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, e := range all {
		assert.Equal(t, float64(i), e.Payload["n"], "ledger keeps write order")
	}

	weeks, err := repo.GetByType(ctx, testSession, "WEEK_ADVANCED")
	require.NoError(t, err)
	assert.Len(t, weeks, 2)

	since, err := repo.GetSince(ctx, testSession, 1, 2)
	require.NoError(t, err)
	assert.Len(t, since, 2)

	none, err := repo.GetByActorID(ctx, testSession, "Ferrari")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPersisterBacksEventLog(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteEventRepository(openTestDB(t))
	m := metrics.New()

	log := events.NewEventLog(repo.Persister(testSession, 0, m))
	var failed int
	log.OnPersistError(func(events.GameEvent, error) { failed++ })

	s := newSeason(t, log)
	_, err := s.RunRound(ctx, nil)
	require.NoError(t, err)

	stored, err := repo.GetBySession(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, log.Len(), len(stored))
	assert.Zero(t, failed)

	inMemory := log.Since(0)
	for i := range stored {
		assert.Equal(t, inMemory[i].ID, stored[i].ID)
		assert.Equal(t, string(inMemory[i].Type), stored[i].EventType)
	}

	finished, err := repo.GetByType(ctx, testSession, string(events.EventTypeRaceFinished))
	require.NoError(t, err)
	require.Len(t, finished, 1)
	assert.Equal(t, "Bahrain International Circuit", finished[0].Payload["track"])

	assert.Equal(t, int64(len(stored)), atomic.LoadInt64(&m.EventsWritten))
}

func TestReconstructor(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteEventRepository(openTestDB(t))
	log := events.NewEventLog(repo.Persister(testSession, 0, nil))
	s := newSeason(t, log)

	require.NoError(t, s.AdvanceWeek(ctx))
	require.NoError(t, s.StartResearch("aero_b1"))
	require.NoError(t, s.AllocateEngineers("aero_b1", 50))
	require.NoError(t, s.AdvanceWeek(ctx))
	require.NoError(t, s.AdvanceWeek(ctx))

	r := NewReconstructor(repo)
	tally, err := r.TallyResearch(ctx, testSession, "Player Racing")
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Started)
	assert.Equal(t, 1, tally.Completed)
	assert.Equal(t, 5, tally.Effects["aero.downforce"])

	recap, err := r.GenerateRecap(ctx, testSession, "Player Racing", 1, 2)
	require.NoError(t, err)
	require.NotEmpty(t, recap)

	var sawCompletion bool
	for _, e := range recap {
		assert.GreaterOrEqual(t, e.Week, 2)
		if e.Type == string(events.EventTypeResearchCompleted) {
			sawCompletion = true
			assert.Equal(t, "POSITIVE", e.Impact)
			assert.Contains(t, e.Summary, "Completed")
		}
	}
	assert.True(t, sawCompletion)
}

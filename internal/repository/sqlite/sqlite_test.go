package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/workhours"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, path string) *database.SQLiteDB {
	t.Helper()
	db, err := database.NewSQLiteDB(path)
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return db
}

func newSample(id string, capturedAt time.Time) tracking.LocationSample {
	return tracking.LocationSample{
		ID:           id,
		Latitude:     -6.2088,
		Longitude:    106.8456,
		Accuracy:     12.5,
		CapturedAt:   capturedAt,
		Email:        "staff@example.com",
		Role:         tracking.RoleStaff,
		Device:       tracking.Device{Manufacturer: "Acme", Model: "Tracker", OSVersion: "6.1"},
		BatteryLevel: 0.8,
		Window:       workhours.Snapshot{IsWorkingDay: true, StartTime: "09:00", EndTime: "17:00"},
		Source:       tracking.SourceScheduler,
	}
}

func TestOfflineQueue_PushPeekFIFO(t *testing.T) {
	ctx := context.Background()
	repo := NewOfflineQueueRepository(openTestDB(t, filepath.Join(t.TempDir(), "agent.db")))
	base := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		evicted, err := repo.Push(ctx, newSample(id, base.Add(time.Duration(i)*time.Minute)), base, 50)
		require.NoError(t, err)
		assert.Zero(t, evicted)
	}

	entries, err := repo.Peek(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Sample.ID)
	assert.Equal(t, "b", entries[1].Sample.ID)
	assert.Equal(t, "c", entries[2].Sample.ID)
	assert.Equal(t, "staff@example.com", entries[0].Sample.Email)
	assert.Equal(t, "09:00", entries[0].Sample.Window.StartTime)
	assert.True(t, entries[1].Sample.CapturedAt.Equal(base.Add(time.Minute)))

	limited, err := repo.Peek(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestOfflineQueue_EvictsOldestBeyondCapacity(t *testing.T) {
	ctx := context.Background()
	repo := NewOfflineQueueRepository(openTestDB(t, filepath.Join(t.TempDir(), "agent.db")))
	now := time.Now()

	total := 0
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		evicted, err := repo.Push(ctx, newSample(id, now), now, 3)
		require.NoError(t, err)
		total += evicted
	}
	assert.Equal(t, 2, total)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	entries, err := repo.Peek(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "3", entries[0].Sample.ID)
	assert.Equal(t, "5", entries[2].Sample.ID)
}

func TestOfflineQueue_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewOfflineQueueRepository(openTestDB(t, filepath.Join(t.TempDir(), "agent.db")))
	now := time.Now()

	_, err := repo.Push(ctx, newSample("a", now), now, 50)
	require.NoError(t, err)
	_, err = repo.Push(ctx, newSample("b", now), now, 50)
	require.NoError(t, err)

	entries, err := repo.Peek(ctx, 10)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, entries[0].ID))

	remaining, err := repo.Peek(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "b", remaining[0].Sample.ID)
}

func TestOfflineQueue_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agent.db")

	db, err := database.NewSQLiteDB(path)
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, db))
	_, err = NewOfflineQueueRepository(db).Push(ctx, newSample("persisted", time.Now()), time.Now(), 50)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	entries, err := NewOfflineQueueRepository(openTestDB(t, path)).Peek(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "persisted", entries[0].Sample.ID)
}

func TestOfflineQueue_DropsCorruptPayload(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, filepath.Join(t.TempDir(), "agent.db"))
	repo := NewOfflineQueueRepository(db)

	_, err := db.ExecContext(ctx, `
		INSERT INTO offline_queue (sample_id, payload, captured_at, enqueued_at)
		VALUES ('bad', x'ff0013', '', '')`)
	require.NoError(t, err)
	_, err = repo.Push(ctx, newSample("good", time.Now()), time.Now(), 50)
	require.NoError(t, err)

	entries, err := repo.Peek(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "good", entries[0].Sample.ID)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIdentity_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	repo := NewIdentityRepository(openTestDB(t, filepath.Join(t.TempDir(), "agent.db")))

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, tracking.ErrIdentityMissing)

	cachedAt := time.Date(2026, 10, 12, 8, 30, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, tracking.Identity{Email: "a@example.com", Role: tracking.RoleAdmin, CachedAt: cachedAt}))
	require.NoError(t, repo.Save(ctx, tracking.Identity{Email: "b@example.com", Role: tracking.RoleStaff, CachedAt: cachedAt}))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", got.Email)
	assert.Equal(t, tracking.RoleStaff, got.Role)
	assert.True(t, got.CachedAt.Equal(cachedAt))

	require.NoError(t, repo.Clear(ctx))
	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, tracking.ErrIdentityMissing)
}

func TestIdentity_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agent.db")

	db, err := database.NewSQLiteDB(path)
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, NewIdentityRepository(db).Save(ctx, tracking.Identity{
		Email: "staff@example.com", Role: tracking.RoleStaff, CachedAt: time.Now(),
	}))
	require.NoError(t, db.Close())

	got, err := NewIdentityRepository(openTestDB(t, path)).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", got.Email)
}

func TestAgentState_ShouldTrack(t *testing.T) {
	ctx := context.Background()
	repo := NewAgentStateRepository(openTestDB(t, filepath.Join(t.TempDir(), "agent.db")))

	should, err := repo.ShouldTrack(ctx)
	require.NoError(t, err)
	assert.False(t, should)

	require.NoError(t, repo.SetTracking(ctx, true))
	should, err = repo.ShouldTrack(ctx)
	require.NoError(t, err)
	assert.True(t, should)

	require.NoError(t, repo.SetTracking(ctx, false))
	should, err = repo.ShouldTrack(ctx)
	require.NoError(t, err)
	assert.False(t, should)
}

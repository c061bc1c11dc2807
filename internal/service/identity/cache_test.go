package identity

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/database"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/repository/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu       sync.Mutex
	identity *tracking.Identity
	saveErr  error
	loads    int
}

func (r *memoryRepo) Save(ctx context.Context, identity tracking.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.identity = &identity
	return nil
}

func (r *memoryRepo) Load(ctx context.Context) (tracking.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.identity == nil {
		return tracking.Identity{}, tracking.ErrIdentityMissing
	}
	return *r.identity, nil
}

func (r *memoryRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identity = nil
	return nil
}

func TestCache_EmptyIsMissing(t *testing.T) {
	c := NewCache(&memoryRepo{}, time.Hour, nil)

	_, err := c.Current(context.Background())
	assert.ErrorIs(t, err, tracking.ErrIdentityMissing)
}

func TestCache_RememberNormalizesEmail(t *testing.T) {
	c := NewCache(&memoryRepo{}, time.Hour, nil)

	got, err := c.Remember(context.Background(), "  Staff@Example.com ", tracking.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", got.Email)

	current, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, got, current)
}

func TestCache_RememberRejectsInvalid(t *testing.T) {
	c := NewCache(&memoryRepo{}, time.Hour, nil)

	_, err := c.Remember(context.Background(), "not-an-email", tracking.RoleStaff)
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))

	_, err = c.Remember(context.Background(), "staff@example.com", "")
	assert.True(t, errors.As(err, &verrs))
}

func TestCache_Expires(t *testing.T) {
	now := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)
	c := NewCache(&memoryRepo{}, 24*time.Hour, func() time.Time { return now })

	_, err := c.Remember(context.Background(), "staff@example.com", tracking.RoleStaff)
	require.NoError(t, err)

	now = now.Add(24 * time.Hour)
	_, err = c.Current(context.Background())
	assert.NoError(t, err)

	now = now.Add(time.Second)
	_, err = c.Current(context.Background())
	assert.ErrorIs(t, err, tracking.ErrIdentityExpired)
}

func TestCache_PersistFailureKeepsPreviousIdentity(t *testing.T) {
	repo := &memoryRepo{}
	c := NewCache(repo, 0, nil)

	_, err := c.Remember(context.Background(), "first@example.com", tracking.RoleAdmin)
	require.NoError(t, err)

	repo.saveErr = errors.New("disk full")
	_, err = c.Remember(context.Background(), "second@example.com", tracking.RoleStaff)
	require.Error(t, err)

	current, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first@example.com", current.Email)
}

func TestCache_Forget(t *testing.T) {
	repo := &memoryRepo{}
	c := NewCache(repo, time.Hour, nil)

	_, err := c.Remember(context.Background(), "staff@example.com", tracking.RoleStaff)
	require.NoError(t, err)
	require.NoError(t, c.Forget(context.Background()))

	_, err = c.Current(context.Background())
	assert.ErrorIs(t, err, tracking.ErrIdentityMissing)
	assert.Nil(t, repo.identity)
}

func TestCache_LoadsDurableIdentityOnce(t *testing.T) {
	repo := &memoryRepo{identity: &tracking.Identity{Email: "staff@example.com", Role: tracking.RoleStaff, CachedAt: time.Now()}}
	c := NewCache(repo, time.Hour, nil)

	for i := 0; i < 3; i++ {
		got, err := c.Current(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "staff@example.com", got.Email)
	}
	assert.Equal(t, 1, repo.loads)
}

func TestCache_SurvivesProcessRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agent.db")

	open := func() *database.SQLiteDB {
		db, err := database.NewSQLiteDB(path)
		require.NoError(t, err)
		require.NoError(t, sqlite.Migrate(ctx, db))
		return db
	}

	db := open()
	_, err := NewCache(sqlite.NewIdentityRepository(db), time.Hour, nil).Remember(ctx, "staff@example.com", tracking.RoleStaff)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db = open()
	defer db.Close()
	got, err := NewCache(sqlite.NewIdentityRepository(db), time.Hour, nil).Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", got.Email)
	assert.Equal(t, tracking.RoleStaff, got.Role)
}

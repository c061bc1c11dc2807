package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/database"
)

type identityRepository struct {
	db *database.SQLiteDB
}

// Save implements tracking.IdentityRepository.
func (r *identityRepository) Save(ctx context.Context, identity tracking.Identity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO operator_identity (id, email, role, cached_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			role = excluded.role,
			cached_at = excluded.cached_at`,
		identity.Email, string(identity.Role), identity.CachedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	return nil
}

// Load implements tracking.IdentityRepository.
func (r *identityRepository) Load(ctx context.Context) (tracking.Identity, error) {
	var (
		identity tracking.Identity
		role     string
		cachedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT email, role, cached_at FROM operator_identity WHERE id = 1`,
	).Scan(&identity.Email, &role, &cachedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tracking.Identity{}, tracking.ErrIdentityMissing
		}
		return tracking.Identity{}, fmt.Errorf("failed to load identity: %w", err)
	}

	identity.Role = tracking.Role(role)
	identity.CachedAt, err = time.Parse(time.RFC3339Nano, cachedAt)
	if err != nil {
		return tracking.Identity{}, fmt.Errorf("failed to parse identity timestamp: %w", err)
	}
	return identity, nil
}

// Clear implements tracking.IdentityRepository.
func (r *identityRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM operator_identity`); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	return nil
}

func NewIdentityRepository(db *database.SQLiteDB) tracking.IdentityRepository {
	return &identityRepository{db: db}
}

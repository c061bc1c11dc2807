package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/validator"
)

// Cache owns the operator identity used to attribute samples. Writes go to
// the durable repository first so that a process started later (including
// the background delivery entry point) sees the last committed identity.
type Cache struct {
	repo tracking.IdentityRepository
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	current tracking.Identity
	loaded  bool
}

// NewCache returns a cache whose entries expire after ttl. A zero ttl means
// the identity never expires.
func NewCache(repo tracking.IdentityRepository, ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{repo: repo, ttl: ttl, now: now}
}

// Remember stores a live identity, refreshing its cachedAt.
func (c *Cache) Remember(ctx context.Context, email string, role tracking.Role) (tracking.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validator.IsValidEmail(email) {
		return tracking.Identity{}, validator.ValidationErrors{{Field: "email", Message: "email must be a valid email"}}
	}
	if validator.IsEmpty(string(role)) {
		return tracking.Identity{}, validator.ValidationErrors{{Field: "role", Message: "role is required"}}
	}

	identity := tracking.Identity{Email: email, Role: role, CachedAt: c.now()}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.repo.Save(ctx, identity); err != nil {
		return tracking.Identity{}, fmt.Errorf("failed to persist identity: %w", err)
	}
	c.current = identity
	c.loaded = true

	slog.Info("Operator identity cached", "email", email, "role", role)
	return identity, nil
}

// Current returns the cached identity. It returns ErrIdentityMissing when
// nothing is cached and ErrIdentityExpired when the entry is older than the
// TTL.
func (c *Cache) Current(ctx context.Context) (tracking.Identity, error) {
	c.mu.RLock()
	identity, loaded := c.current, c.loaded
	c.mu.RUnlock()

	if !loaded {
		var err error
		identity, err = c.load(ctx)
		if err != nil {
			return tracking.Identity{}, err
		}
	}

	if identity.IsZero() {
		return tracking.Identity{}, tracking.ErrIdentityMissing
	}
	if c.ttl > 0 && c.now().Sub(identity.CachedAt) > c.ttl {
		return tracking.Identity{}, tracking.ErrIdentityExpired
	}
	return identity, nil
}

func (c *Cache) load(ctx context.Context) (tracking.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.current, nil
	}

	identity, err := c.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, tracking.ErrIdentityMissing) {
			c.current = tracking.Identity{}
			c.loaded = true
			return tracking.Identity{}, tracking.ErrIdentityMissing
		}
		return tracking.Identity{}, fmt.Errorf("failed to load identity: %w", err)
	}

	c.current = identity
	c.loaded = true
	return identity, nil
}

// Forget clears the identity in memory and on disk.
func (c *Cache) Forget(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = tracking.Identity{}
	c.loaded = true

	if err := c.repo.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	slog.Info("Operator identity cleared")
	return nil
}

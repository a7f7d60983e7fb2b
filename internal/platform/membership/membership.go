// Package membership provides a cached organization-membership checker.
// Membership is consulted on every creation request, changes rarely, and is
// the hot read on the request path, so positive and negative answers are
// both cached with a short TTL.
package membership

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/mailfoundry/mailfoundry/internal/store"
)

const (
	// DefaultExpiration bounds how stale a cached membership answer can be.
	DefaultExpiration = 5 * time.Minute

	// DefaultCleanupInterval is how often expired entries are purged.
	DefaultCleanupInterval = 15 * time.Minute
)

// CachedChecker wraps a store.MembershipStore with an in-memory TTL cache.
// It implements store.MembershipStore itself, so callers cannot tell the
// difference.
type CachedChecker struct {
	inner  store.MembershipStore
	cache  *gocache.Cache
	logger *slog.Logger
}

// Ensure CachedChecker implements store.MembershipStore
var _ store.MembershipStore = (*CachedChecker)(nil)

// NewCachedChecker creates a checker caching answers from inner for the
// given TTL. Zero durations fall back to the package defaults.
// If logger is nil, a default logger will be used.
func NewCachedChecker(inner store.MembershipStore, expiration, cleanupInterval time.Duration, logger *slog.Logger) *CachedChecker {
	if inner == nil {
		panic("inner membership store cannot be nil")
	}

	if expiration == 0 {
		expiration = DefaultExpiration
	}
	if cleanupInterval == 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CachedChecker{
		inner:  inner,
		cache:  gocache.New(expiration, cleanupInterval),
		logger: logger.With(slog.String("component", "membership_cache")),
	}
}

// IsMember implements store.MembershipStore.IsMember. Store errors are
// never cached.
func (c *CachedChecker) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	key := cacheKey(orgID, userID)

	if cached, found := c.cache.Get(key); found {
		if isMember, ok := cached.(bool); ok {
			c.logger.Debug("membership cache hit",
				slog.String("org_id", orgID.String()),
				slog.String("user_id", userID.String()))
			return isMember, nil
		}
	}

	isMember, err := c.inner.IsMember(ctx, orgID, userID)
	if err != nil {
		return false, err
	}

	c.cache.SetDefault(key, isMember)
	return isMember, nil
}

// Invalidate drops the cached answer for one org/user pair. Collaborators
// changing memberships call this to avoid serving the stale answer for a
// full TTL.
func (c *CachedChecker) Invalidate(orgID, userID uuid.UUID) {
	c.cache.Delete(cacheKey(orgID, userID))
}

func cacheKey(orgID, userID uuid.UUID) string {
	return fmt.Sprintf("%s|%s", orgID, userID)
}

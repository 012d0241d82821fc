package authflowrepo

import (
	"errors"
	"time"

	apperrors "github.com/jrsteele09/boxer-login/internal/errors"
	"github.com/patrickmn/go-cache"
)

// CacheRepo keeps redeemed states in an expiring in-memory cache.
type CacheRepo struct {
	cache *cache.Cache
}

var _ Repo = (*CacheRepo)(nil)

// NewCacheRepo creates a repo whose entries live for ttl unless they carry
// their own expiry. Expired entries are swept every cleanupInterval.
func NewCacheRepo(ttl, cleanupInterval time.Duration) *CacheRepo {
	return &CacheRepo{
		cache: cache.New(ttl, cleanupInterval),
	}
}

// Redeem stores the state until the token itself would expire. cache.Add is
// atomic, so concurrent redemptions of one id succeed exactly once.
func (r *CacheRepo) Redeem(id string, authState *AuthFlowState) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}

	expiry := cache.DefaultExpiration
	if !authState.ExpiresAt.IsZero() {
		expiry = time.Until(authState.ExpiresAt)
		if expiry <= 0 {
			return apperrors.ErrStateExpired
		}
	}

	stored := *authState
	if stored.RedeemedAt.IsZero() {
		stored.RedeemedAt = time.Now()
	}
	if err := r.cache.Add(id, &stored, expiry); err != nil {
		return apperrors.ErrStateRedeemed
	}
	return nil
}

// Count returns the number of redeemed states, including expired ones not yet swept.
func (r *CacheRepo) Count() int {
	return r.cache.ItemCount()
}

package services

import (
	"fmt"
	"time"

	"github.com/lborres/rota/core"
	"github.com/lborres/rota/pkg/crypto"
)

// AdminKeyGuard checks a presented admin key against a stored argon2id
// hash. Keys that verified once are remembered by their SHA-256 in the
// optional cache, so the expensive hash only runs on a miss.
type AdminKeyGuard struct {
	hash   string
	hasher crypto.PasswordHandler
	cache  core.Cache // optional, can be nil if caching is disabled
}

var _ core.AdminGuard = (*AdminKeyGuard)(nil)

func NewAdminKeyGuard(hash string, hasher crypto.PasswordHandler, cache core.Cache) *AdminKeyGuard {
	if hasher == nil {
		hasher = crypto.NewArgon2()
	}
	return &AdminKeyGuard{hash: hash, hasher: hasher, cache: cache}
}

func (g *AdminKeyGuard) VerifyAdminKey(key string) error {
	if key == "" {
		return core.ErrMissingAuthHeader
	}

	keyHash := crypto.HashToken(key)

	if g.cache != nil {
		if _, err := g.cache.Get(keyHash); err == nil {
			return nil
		}
	}

	valid, err := g.hasher.Verify(key, g.hash)
	if err != nil {
		return fmt.Errorf("failed to verify admin key: %w", err)
	}
	if !valid {
		return core.ErrAdminKeyInvalid
	}

	if g.cache != nil {
		// We don't fail the request if caching fails
		_ = g.cache.Set(keyHash, time.Now())
	}

	return nil
}

package services

import (
	"errors"
	"testing"
	"time"

	"github.com/lborres/rota/core"
	"github.com/lborres/rota/pkg/cache"
	"github.com/lborres/rota/pkg/crypto"
)

// countingHasher wraps a PasswordHandler and counts Verify calls.
type countingHasher struct {
	crypto.PasswordHandler
	verifies int
}

func (c *countingHasher) Verify(password, hash string) (bool, error) {
	c.verifies++
	return c.PasswordHandler.Verify(password, hash)
}

func cheapArgon2() *crypto.Argon2 {
	return &crypto.Argon2{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

// Requirement: VerifyAdminKey accepts the hashed key and rejects others.
func TestAdminKeyGuard_VerifyAdminKey(t *testing.T) {
	hash, err := cheapArgon2().Hash("admin-key")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name    string
		key     string
		hash    string
		wantErr error
	}{
		{name: "valid key", key: "admin-key", hash: hash},
		{name: "wrong key", key: "other", hash: hash, wantErr: core.ErrAdminKeyInvalid},
		{name: "empty key", key: "", hash: hash, wantErr: core.ErrMissingAuthHeader},
		{name: "malformed hash", key: "admin-key", hash: "not-a-hash", wantErr: crypto.ErrInvalidHashFormat},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			guard := NewAdminKeyGuard(test.hash, cheapArgon2(), nil)

			// Act
			err := guard.VerifyAdminKey(test.key)

			// Assert
			if test.wantErr == nil && err != nil {
				t.Fatalf("VerifyAdminKey() error = %v", err)
			}
			if test.wantErr != nil && !errors.Is(err, test.wantErr) {
				t.Fatalf("VerifyAdminKey() error = %v, want %v", err, test.wantErr)
			}
		})
	}
}

// Requirement: A verified key is cached so the hash only runs once.
func TestAdminKeyGuard_Cache(t *testing.T) {
	// Arrange
	hash, _ := cheapArgon2().Hash("admin-key")
	hasher := &countingHasher{PasswordHandler: cheapArgon2()}
	c := cache.NewInMemoryCache[time.Time](core.CacheConfig{TTL: time.Minute, MaxSize: 10})
	guard := NewAdminKeyGuard(hash, hasher, c)

	// Act
	for range 3 {
		if err := guard.VerifyAdminKey("admin-key"); err != nil {
			t.Fatalf("VerifyAdminKey() error = %v", err)
		}
	}
	wrongErr := guard.VerifyAdminKey("wrong")

	// Assert
	if hasher.verifies != 2 {
		t.Errorf("Verify called %d times, want 2", hasher.verifies)
	}
	if !errors.Is(wrongErr, core.ErrAdminKeyInvalid) {
		t.Errorf("wrong key error = %v", wrongErr)
	}
	if stats := c.Stats(); stats.Hits != 2 || stats.Size != 1 {
		t.Errorf("cache stats = %+v", stats)
	}
}

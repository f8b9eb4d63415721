package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// LOGIN PORT (provider specific client)
// ============================================

// LoginClient exchanges account credentials for a provider token.
// Implementations must honor ctx cancellation.
type LoginClient interface {
	Login(ctx context.Context, identifier, password string) (string, error)
}

// ============================================
// STORAGE PORT (persisted configuration)
// ============================================

// ConfigStorage loads and saves the authoritative account document
type ConfigStorage interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

// ============================================
// CACHE PORT
// ============================================

// Cache remembers admin key hashes that already passed verification
type Cache interface {
	Get(keyHash string) (time.Time, error)
	Set(keyHash string, verifiedAt time.Time) error
	Delete(keyHash string) error
	Clear() error
}

// CacheWithStats extends Cache with statistics tracking
type CacheWithStats interface {
	Cache
	Stats() CacheStats
}

// CacheConfig configures cache behavior
type CacheConfig struct {
	TTL     time.Duration
	MaxSize int
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Sets      int64         `json:"sets"`
	Deletes   int64         `json:"deletes"`
	Evictions int64         `json:"evictions"`
	Size      int           `json:"size"`
	TTL       time.Duration `json:"ttl"`
}

// ============================================
// ADMIN HANDLER (for HTTP adapters)
// ============================================

// AdminHandler provides the account administration operations for HTTP adapters
type AdminHandler interface {
	GetConfig() ConfigView
	UpdateConfig(ctx context.Context, update ConfigUpdate) error

	AddKey(ctx context.Context, key string) (int, error)
	DeleteKey(ctx context.Context, key string) (int, error)

	ListAccounts(page, pageSize int) AccountPage
	AddAccount(ctx context.Context, account Account) (int, error)
	DeleteAccount(ctx context.Context, identifier string) (int, error)

	QueueStatus() QueueStatus
}

// AdminGuard verifies the shared admin key presented by a client
type AdminGuard interface {
	VerifyAdminKey(key string) error
}

// ============================================
// HTTP PORT
// ============================================

// HTTPAdapter mounts the admin endpoints. guard may be nil, in which
// case the routes are left open.
type HTTPAdapter interface {
	RegisterRoutes(handler AdminHandler, guard AdminGuard, basePath string) error
}

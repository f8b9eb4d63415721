package rota

import (
	"context"
	"log/slog"
	"time"

	"github.com/lborres/rota/core"
	"github.com/lborres/rota/pkg/cache"
	"github.com/lborres/rota/pkg/crypto"
	"github.com/lborres/rota/services"
)

// interfaces
type (
	ConfigStorage = core.ConfigStorage
	LoginClient   = core.LoginClient
	Cache         = core.Cache

	HTTPAdapter  = core.HTTPAdapter
	AdminHandler = core.AdminHandler
	AdminGuard   = core.AdminGuard

	PasswordHandler = crypto.PasswordHandler
)

// structs
type (
	Config      = core.Config
	QueueConfig = core.QueueConfig
	TokenConfig = core.TokenConfig
	CacheConfig = core.CacheConfig
)

type (
	Account       = core.Account
	Document      = core.Document
	QueueStatus   = core.QueueStatus
	AccountStatus = core.AccountStatus
	TokenStats    = core.TokenStats
	CacheStats    = core.CacheStats
)

const (
	defaultBasePath = "/admin"
)

// Constructors & helpers (convenience re-exports)
var (
	NewArgon2          = crypto.NewArgon2
	DefaultQueueConfig = core.DefaultQueueConfig
	DefaultTokenConfig = core.DefaultTokenConfig
)

var (
	ErrInvalidAccount      = core.ErrInvalidAccount
	ErrDuplicateIdentifier = core.ErrDuplicateIdentifier
	ErrNotFound            = core.ErrNotFound
)

var (
	ErrUnauthenticated = core.ErrUnauthenticated
	ErrLoginFailed     = core.ErrLoginFailed
	ErrNoUsableAccount = core.ErrNoUsableAccount
)

var (
	ErrMissingAuthHeader = core.ErrMissingAuthHeader
	ErrInvalidAuthHeader = core.ErrInvalidAuthHeader
	ErrAdminKeyInvalid   = core.ErrAdminKeyInvalid
)

var (
	ErrStorageRequired     = core.ErrStorageRequired
	ErrLoginClientRequired = core.ErrLoginClientRequired
)

// Rota wires the account store, token manager, rotation queue and admin
// layer around one shared account pool.
type Rota struct {
	Store  *services.AccountStore
	Tokens *services.TokenManager
	Queue  *services.RotationQueue
	Admin  *services.AdminService
	Guard  core.AdminGuard

	BasePath string
	logger   *slog.Logger
}

// New loads the persisted document, builds the rotation queue from it and
// mounts the admin routes when an HTTP adapter is configured.
func New(ctx context.Context, config Config) (*Rota, error) {
	if config.Storage == nil {
		return nil, ErrStorageRequired
	}
	if config.Login == nil {
		return nil, ErrLoginClientRequired
	}

	// Set Defaults

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	queueConfig := DefaultQueueConfig()
	if config.QueueConfig != nil {
		queueConfig = *config.QueueConfig
	}

	tokenConfig := DefaultTokenConfig()
	if config.TokenConfig != nil {
		tokenConfig = *config.TokenConfig
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	store := services.NewAccountStore(logger)
	tokens := services.NewTokenManager(tokenConfig, store, config.Login, logger)
	queue := services.NewRotationQueue(queueConfig, store, tokens, logger)
	admin := services.NewAdminService(store, queue, config.Storage, logger)

	if err := admin.Load(ctx); err != nil {
		return nil, err
	}

	r := &Rota{
		Store:    store,
		Tokens:   tokens,
		Queue:    queue,
		Admin:    admin,
		BasePath: basePath,
		logger:   logger,
	}

	if config.AdminKeyHash != "" {
		cacheAdapter := config.CacheAdapter
		if cacheAdapter == nil {
			cacheAdapter = cache.NewInMemoryCache[time.Time](CacheConfig{
				TTL:     5 * time.Minute,
				MaxSize: 500,
			})
		}
		r.Guard = services.NewAdminKeyGuard(config.AdminKeyHash, crypto.NewArgon2(), cacheAdapter)
	} else {
		logger.Warn("no admin key hash configured, admin routes are unauthenticated")
	}

	if config.HTTP != nil {
		if err := config.HTTP.RegisterRoutes(admin, r.Guard, basePath); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Next returns the next account with a usable token.
func (r *Rota) Next(ctx context.Context) (Account, error) {
	return r.Queue.Next(ctx)
}

// ReportSuccess clears any cooldown on the account.
func (r *Rota) ReportSuccess(identifier string) error {
	return r.Queue.ReportSuccess(identifier)
}

// ReportFailure cools the account down and forces a fresh login on its
// next selection.
func (r *Rota) ReportFailure(identifier, reason string) error {
	return r.Queue.ReportFailure(identifier, reason)
}

// IsValidKey reports whether key is one of the client API keys managed
// through the admin routes.
func (r *Rota) IsValidKey(key string) bool {
	return r.Admin.IsValidKey(key)
}

func (r *Rota) Status() QueueStatus {
	return r.Queue.Status()
}

// Rebuild recomputes the rotation order from the store. Store mutations
// already trigger it.
func (r *Rota) Rebuild() {
	r.Queue.Rebuild()
}

func (r *Rota) TokenStats() TokenStats {
	return r.Tokens.Stats()
}

// Persist saves the current document, including tokens obtained since the
// last admin change.
func (r *Rota) Persist(ctx context.Context) error {
	return r.Admin.Persist(ctx)
}

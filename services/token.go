package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/lborres/rota/core"
)

// TokenManager guarantees that an account carries a usable token before it
// is handed to an outbound caller.
type TokenManager struct {
	config core.TokenConfig
	store  *AccountStore
	login  core.LoginClient
	logger *slog.Logger

	// concurrent logins for one identifier share a single exchange
	flight singleflight.Group

	// counters
	cacheHits     int64
	loginAttempts int64
	loginFailures int64
	invalidations int64
}

func NewTokenManager(config core.TokenConfig, store *AccountStore, login core.LoginClient, logger *slog.Logger) *TokenManager {
	if config.LoginTimeout <= 0 {
		config.LoginTimeout = core.DefaultTokenConfig().LoginTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenManager{
		config: config,
		store:  store,
		login:  login,
		logger: logger,
	}
}

// EnsureToken returns the account's cached token, or logs in with the
// stored password when there is none or it was invalidated.
//
// No lock is held while the login exchange runs. A caller whose ctx ends
// returns ctx.Err() while a shared exchange keeps running for the others.
func (tm *TokenManager) EnsureToken(ctx context.Context, identifier string) (string, error) {
	account, usable, err := tm.store.credentials(identifier)
	if err != nil {
		return "", err
	}

	if usable {
		atomic.AddInt64(&tm.cacheHits, 1)
		return account.Token, nil
	}

	if account.Password == "" {
		return "", fmt.Errorf("%w: %s", core.ErrUnauthenticated, identifier)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	// The exchange is shared, so it runs detached from any one caller's
	// cancellation and is bounded by LoginTimeout alone.
	flight := tm.flight.DoChan(identifier, func() (interface{}, error) {
		return tm.exchange(context.WithoutCancel(ctx), identifier, account.Password)
	})

	select {
	case result := <-flight:
		if result.Err != nil {
			return "", result.Err
		}
		return result.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (tm *TokenManager) exchange(ctx context.Context, identifier, password string) (string, error) {
	atomic.AddInt64(&tm.loginAttempts, 1)

	loginCtx, cancel := context.WithTimeout(ctx, tm.config.LoginTimeout)
	defer cancel()

	token, err := tm.login.Login(loginCtx, identifier, password)
	if err == nil && token == "" {
		err = errors.New("empty token in login response")
	}
	if err != nil {
		atomic.AddInt64(&tm.loginFailures, 1)
		tm.logger.Warn("login failed", "identifier", identifier, "error", err)
		return "", fmt.Errorf("%w: %s: %v", core.ErrLoginFailed, identifier, err)
	}

	// The account may have been removed while the exchange was running.
	if err := tm.store.SetToken(identifier, token); err != nil {
		return "", err
	}

	tm.logger.Info("login succeeded", "identifier", identifier, "token", core.TokenPreview(token))
	return token, nil
}

// Invalidate forces the next EnsureToken call to log in again.
func (tm *TokenManager) Invalidate(identifier string) error {
	if err := tm.store.Invalidate(identifier); err != nil {
		return err
	}
	atomic.AddInt64(&tm.invalidations, 1)
	return nil
}

func (tm *TokenManager) Stats() core.TokenStats {
	return core.TokenStats{
		CacheHits:     atomic.LoadInt64(&tm.cacheHits),
		LoginAttempts: atomic.LoadInt64(&tm.loginAttempts),
		LoginFailures: atomic.LoadInt64(&tm.loginFailures),
		Invalidations: atomic.LoadInt64(&tm.invalidations),
	}
}

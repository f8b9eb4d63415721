package core

import (
	"log/slog"
	"time"
)

type Config struct {
	Storage ConfigStorage

	Login LoginClient

	// Optional config
	HTTP         HTTPAdapter
	QueueConfig  *QueueConfig
	TokenConfig  *TokenConfig
	AdminKeyHash string
	CacheAdapter Cache
	Logger       *slog.Logger
	BasePath     string
}

type QueueConfig struct {
	// LoginFailureCooldown applies when an account cannot produce a token
	// during selection.
	LoginFailureCooldown time.Duration

	// RejectionCooldown applies when a caller reports that the provider
	// rejected the account's token.
	RejectionCooldown time.Duration

	// Now is the time source. Defaults to time.Now.
	Now func() time.Time
}

type TokenConfig struct {
	LoginTimeout time.Duration
}

func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		LoginFailureCooldown: 30 * time.Second,
		RejectionCooldown:    60 * time.Second,
		Now:                  time.Now,
	}
}

func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		LoginTimeout: 15 * time.Second,
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lborres/rota/core"
)

// RotationQueue hands out accounts in circular insertion order, skipping
// accounts that are cooling down after a failure.
//
// Bookkeeping (cursor, cooldowns, snapshot swaps) happens under mu. Token
// acquisition happens outside of it so a slow login never blocks other
// selections.
type RotationQueue struct {
	config core.QueueConfig
	store  *AccountStore
	tokens *TokenManager
	logger *slog.Logger

	mu        sync.Mutex
	state     *queueState
	cursor    int
	cooldowns map[string]time.Time
}

// queueState is never mutated after construction; Rebuild swaps it whole.
type queueState struct {
	ids     []string
	index   map[string]int
	version uint64
}

func newQueueState(ids []string, version uint64) *queueState {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	return &queueState{ids: ids, index: index, version: version}
}

// NewRotationQueue builds the queue from the store's current contents and
// subscribes it to every later structural change of the store.
func NewRotationQueue(config core.QueueConfig, store *AccountStore, tokens *TokenManager, logger *slog.Logger) *RotationQueue {
	defaults := core.DefaultQueueConfig()
	if config.LoginFailureCooldown <= 0 {
		config.LoginFailureCooldown = defaults.LoginFailureCooldown
	}
	if config.RejectionCooldown <= 0 {
		config.RejectionCooldown = defaults.RejectionCooldown
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	q := &RotationQueue{
		config:    config,
		store:     store,
		tokens:    tokens,
		logger:    logger,
		state:     newQueueState(nil, 0),
		cooldowns: make(map[string]time.Time),
	}
	q.Rebuild()
	store.OnChange(q.Rebuild)
	return q
}

// Rebuild recomputes the rotation order from the store. Identifiers that
// survive keep their cooldown and relative order, and the cursor stays on
// the identifier that was due next (or the first survivor after it).
// A snapshot older than the one already applied is discarded.
func (q *RotationQueue) Rebuild() {
	ids, version := q.store.snapshot()
	next := newQueueState(ids, version)

	q.mu.Lock()
	defer q.mu.Unlock()

	if version < q.state.version {
		return
	}

	q.cursor = carryCursor(q.state, next, q.cursor)
	for id := range q.cooldowns {
		if _, ok := next.index[id]; !ok {
			delete(q.cooldowns, id)
		}
	}
	q.state = next

	q.logger.Debug("rotation queue rebuilt", "total", len(ids), "version", version, "cursor", q.cursor)
}

func carryCursor(prev, next *queueState, cursor int) int {
	if len(next.ids) == 0 || len(prev.ids) == 0 {
		return 0
	}
	for i := range prev.ids {
		id := prev.ids[(cursor+i)%len(prev.ids)]
		if pos, ok := next.index[id]; ok {
			return pos
		}
	}
	return 0
}

// Next returns the next account with a usable token. Each identifier is
// tried at most once per call; accounts that cannot produce a token are
// put on cooldown and the following candidate is tried.
func (q *RotationQueue) Next(ctx context.Context) (core.Account, error) {
	tried := make(map[string]struct{})

	for {
		id, ok := q.pick(tried)
		if !ok {
			return core.Account{}, fmt.Errorf("%w: %d accounts tried", core.ErrNoUsableAccount, len(tried))
		}
		tried[id] = struct{}{}

		token, err := q.tokens.EnsureToken(ctx, id)
		if err == nil {
			account, err := q.store.Get(id)
			if err != nil {
				continue
			}
			account.Token = token
			q.logger.Debug("account selected", "identifier", id)
			return account, nil
		}

		if errors.Is(err, core.ErrNotFound) {
			continue
		}

		// A caller that gave up says nothing about the account and must
		// not drain the rest of the pool.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.Account{}, ctxErr
		}

		q.cool(id, q.config.LoginFailureCooldown, err.Error())
	}
}

// pick advances the cursor past the next eligible identifier. Cooling
// entries whose cooldown has elapsed are promoted on the way.
func (q *RotationQueue) pick(tried map[string]struct{}) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := q.state.ids
	n := len(ids)
	now := q.config.Now()

	for i := 0; i < n; i++ {
		pos := (q.cursor + i) % n
		id := ids[pos]
		if _, done := tried[id]; done {
			continue
		}
		if until, cooling := q.cooldowns[id]; cooling {
			if now.Before(until) {
				continue
			}
			delete(q.cooldowns, id)
		}
		q.cursor = (pos + 1) % n
		return id, true
	}
	return "", false
}

func (q *RotationQueue) cool(identifier string, d time.Duration, reason string) {
	q.mu.Lock()
	_, ok := q.state.index[identifier]
	if ok {
		q.cooldowns[identifier] = q.config.Now().Add(d)
	}
	q.mu.Unlock()

	if ok {
		q.logger.Warn("account cooling down", "identifier", identifier, "cooldown", d, "reason", reason)
	}
}

// ReportFailure records that the provider rejected the account's token.
// The account cools down and its token is invalidated so the next
// selection logs in again.
func (q *RotationQueue) ReportFailure(identifier, reason string) error {
	q.mu.Lock()
	if _, ok := q.state.index[identifier]; !ok {
		q.mu.Unlock()
		return fmt.Errorf("%w: %s", core.ErrNotFound, identifier)
	}
	q.cooldowns[identifier] = q.config.Now().Add(q.config.RejectionCooldown)
	q.mu.Unlock()

	q.logger.Warn("account rejected by provider", "identifier", identifier, "cooldown", q.config.RejectionCooldown, "reason", reason)

	if err := q.tokens.Invalidate(identifier); err != nil && !errors.Is(err, core.ErrNotFound) {
		return err
	}
	return nil
}

// ReportSuccess clears any cooldown on the account.
func (q *RotationQueue) ReportSuccess(identifier string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.state.index[identifier]; !ok {
		return fmt.Errorf("%w: %s", core.ErrNotFound, identifier)
	}
	delete(q.cooldowns, identifier)
	return nil
}

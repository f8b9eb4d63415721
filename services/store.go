package services

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/lborres/rota/core"
)

// AccountStore is the in-memory mirror of the persisted account list.
//
// It owns identifier uniqueness and the per-record token state. Structural
// changes (membership or order) bump the version and call the change hook
// synchronously, after the store lock has been released.
type AccountStore struct {
	mu       sync.RWMutex
	order    []string
	records  map[string]*record
	version  uint64
	onChange func()
	logger   *slog.Logger
}

type record struct {
	account core.Account
	// stale is set when the provider rejected the current token
	stale bool
}

func NewAccountStore(logger *slog.Logger) *AccountStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountStore{
		records: make(map[string]*record),
		logger:  logger,
	}
}

// OnChange registers the hook that runs after every structural mutation.
func (s *AccountStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *AccountStore) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()

	if fn != nil {
		fn()
	}
}

// Upsert merges the account into the record with the same identifier,
// keeping the stored password and token when the incoming ones are empty,
// or appends it when the identifier is new.
func (s *AccountStore) Upsert(account core.Account) error {
	account = account.Normalize()
	if err := account.Validate(); err != nil {
		return err
	}
	id := account.Identifier()

	s.mu.Lock()
	if other, ok := s.mobileOwnerLocked(account.Mobile); ok && other != id {
		s.mu.Unlock()
		return fmt.Errorf("%w: mobile %s belongs to %s", core.ErrDuplicateIdentifier, account.Mobile, other)
	}

	if rec, exists := s.records[id]; exists {
		merged := account.MergeCredentials(rec.account)
		if merged.Token != rec.account.Token {
			rec.stale = false
		}
		rec.account = merged
		s.mu.Unlock()
		return nil
	}

	s.records[id] = &record{account: account}
	s.order = append(s.order, id)
	s.version++
	s.mu.Unlock()

	s.logger.Info("account added", "identifier", id)
	s.notify()
	return nil
}

// Add inserts a new account. Unlike Upsert it refuses to touch an existing
// record, and both email and mobile must be unused.
func (s *AccountStore) Add(account core.Account) error {
	account = account.Normalize()
	if err := account.Validate(); err != nil {
		return err
	}
	id := account.Identifier()

	s.mu.Lock()
	if _, exists := s.records[id]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", core.ErrDuplicateIdentifier, id)
	}
	for _, rec := range s.records {
		if account.Email != "" && rec.account.Email == account.Email {
			s.mu.Unlock()
			return fmt.Errorf("%w: email %s", core.ErrDuplicateIdentifier, account.Email)
		}
		if account.Mobile != "" && rec.account.Mobile == account.Mobile {
			s.mu.Unlock()
			return fmt.Errorf("%w: mobile %s", core.ErrDuplicateIdentifier, account.Mobile)
		}
	}

	s.records[id] = &record{account: account}
	s.order = append(s.order, id)
	s.version++
	s.mu.Unlock()

	s.logger.Info("account added", "identifier", id)
	s.notify()
	return nil
}

// Replace swaps the whole account set. Records that keep their identifier
// keep their password and token unless the incoming record sets new ones.
// Nothing changes if any incoming record is invalid or duplicated.
func (s *AccountStore) Replace(accounts []core.Account) error {
	incoming := make([]core.Account, 0, len(accounts))
	seen := make(map[string]struct{}, len(accounts))
	for i, account := range accounts {
		account = account.Normalize()
		if err := account.Validate(); err != nil {
			return fmt.Errorf("account %d: %w", i, err)
		}
		id := account.Identifier()
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", core.ErrDuplicateIdentifier, id)
		}
		seen[id] = struct{}{}
		incoming = append(incoming, account)
	}

	s.mu.Lock()
	records := make(map[string]*record, len(incoming))
	order := make([]string, 0, len(incoming))
	for _, account := range incoming {
		id := account.Identifier()
		rec := &record{account: account}
		if prev, ok := s.records[id]; ok {
			rec.account = account.MergeCredentials(prev.account)
			rec.stale = prev.stale && rec.account.Token == prev.account.Token
		}
		records[id] = rec
		order = append(order, id)
	}
	s.records = records
	s.order = order
	s.version++
	s.mu.Unlock()

	s.logger.Info("accounts replaced", "total", len(order))
	s.notify()
	return nil
}

// Remove deletes the account whose identifier, or failing that whose
// mobile, equals identifier.
func (s *AccountStore) Remove(identifier string) error {
	s.mu.Lock()
	id, ok := s.resolveLocked(identifier)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", core.ErrNotFound, identifier)
	}

	delete(s.records, id)
	s.order = slices.DeleteFunc(slices.Clone(s.order), func(other string) bool { return other == id })
	s.version++
	s.mu.Unlock()

	s.logger.Info("account removed", "identifier", id)
	s.notify()
	return nil
}

// List yields copies of the accounts in insertion order. The snapshot is
// taken when iteration starts, so the sequence can be ranged over again.
func (s *AccountStore) List() iter.Seq[core.Account] {
	return func(yield func(core.Account) bool) {
		for _, account := range s.Accounts() {
			if !yield(account) {
				return
			}
		}
	}
}

// Accounts returns a copy of every account in insertion order.
func (s *AccountStore) Accounts() []core.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Account, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].account)
	}
	return out
}

func (s *AccountStore) Get(identifier string) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[identifier]
	if !ok {
		return core.Account{}, fmt.Errorf("%w: %s", core.ErrNotFound, identifier)
	}
	return rec.account, nil
}

func (s *AccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// SetToken stores a freshly obtained token and clears the stale mark.
func (s *AccountStore) SetToken(identifier, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identifier]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrNotFound, identifier)
	}
	rec.account.Token = token
	rec.stale = false
	return nil
}

// Invalidate marks the current token as rejected. The token value is kept
// for display but will not be handed out again.
func (s *AccountStore) Invalidate(identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identifier]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrNotFound, identifier)
	}
	rec.stale = true
	return nil
}

// credentials returns the account and whether its token is usable.
func (s *AccountStore) credentials(identifier string) (core.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[identifier]
	if !ok {
		return core.Account{}, false, fmt.Errorf("%w: %s", core.ErrNotFound, identifier)
	}
	return rec.account, rec.account.Token != "" && !rec.stale, nil
}

// snapshot returns the identifier order together with the version it
// belongs to.
func (s *AccountStore) snapshot() ([]string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order), s.version
}

func (s *AccountStore) resolveLocked(identifier string) (string, bool) {
	if _, ok := s.records[identifier]; ok {
		return identifier, true
	}
	return s.mobileOwnerLocked(identifier)
}

func (s *AccountStore) mobileOwnerLocked(mobile string) (string, bool) {
	if mobile == "" {
		return "", false
	}
	for _, id := range s.order {
		if s.records[id].account.Mobile == mobile {
			return id, true
		}
	}
	return "", false
}

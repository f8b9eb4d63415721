package services

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/lborres/rota/core"
)

const maxPageSize = 100

// AdminService implements the account administration operations on top of
// the store and persists the full document after every change.
//
// A mutation is applied in memory before it is saved. When the save fails
// the caller gets the error but the change stays live, and the next
// successful save (any later mutation or Persist) writes it out.
type AdminService struct {
	store   *AccountStore
	queue   *RotationQueue
	storage core.ConfigStorage
	logger  *slog.Logger

	mu            sync.RWMutex
	keys          []string
	claudeMapping map[string]string

	// serialises document writes so saves land in mutation order
	persistMu sync.Mutex
}

// Ensure AdminService implements AdminHandler
var _ core.AdminHandler = (*AdminService)(nil)

func NewAdminService(store *AccountStore, queue *RotationQueue, storage core.ConfigStorage, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{
		store:         store,
		queue:         queue,
		storage:       storage,
		logger:        logger,
		claudeMapping: make(map[string]string),
	}
}

// Load replaces the in-memory state with the persisted document.
func (s *AdminService) Load(ctx context.Context) error {
	doc, err := s.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := s.store.Replace(doc.Accounts); err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	s.mu.Lock()
	s.keys = slices.Clone(doc.Keys)
	s.claudeMapping = maps.Clone(doc.ClaudeMapping)
	if s.claudeMapping == nil {
		s.claudeMapping = make(map[string]string)
	}
	s.mu.Unlock()

	s.logger.Info("config loaded", "accounts", s.store.Len(), "keys", len(doc.Keys))
	return nil
}

func (s *AdminService) GetConfig() core.ConfigView {
	s.mu.RLock()
	view := core.ConfigView{
		Keys:          slices.Clone(s.keys),
		ClaudeMapping: maps.Clone(s.claudeMapping),
	}
	s.mu.RUnlock()

	if view.Keys == nil {
		view.Keys = []string{}
	}
	view.Accounts = make([]core.RedactedAccount, 0, s.store.Len())
	for account := range s.store.List() {
		view.Accounts = append(view.Accounts, account.Redact())
	}
	return view
}

// UpdateConfig replaces each section present in update. Accounts go through
// the credential-preserving bulk replace.
func (s *AdminService) UpdateConfig(ctx context.Context, update core.ConfigUpdate) error {
	if update.Accounts != nil {
		if err := s.store.Replace(update.Accounts); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if update.Keys != nil {
		s.keys = slices.Clone(update.Keys)
	}
	if update.ClaudeMapping != nil {
		s.claudeMapping = maps.Clone(update.ClaudeMapping)
	}
	s.mu.Unlock()

	return s.persist(ctx)
}

func (s *AdminService) AddKey(ctx context.Context, key string) (int, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, core.ErrKeyRequired
	}

	s.mu.Lock()
	if slices.Contains(s.keys, key) {
		s.mu.Unlock()
		return 0, core.ErrKeyExists
	}
	s.keys = append(s.keys, key)
	total := len(s.keys)
	s.mu.Unlock()

	return total, s.persist(ctx)
}

func (s *AdminService) DeleteKey(ctx context.Context, key string) (int, error) {
	s.mu.Lock()
	i := slices.Index(s.keys, key)
	if i < 0 {
		s.mu.Unlock()
		return 0, core.ErrKeyNotFound
	}
	s.keys = slices.Delete(slices.Clone(s.keys), i, i+1)
	total := len(s.keys)
	s.mu.Unlock()

	return total, s.persist(ctx)
}

// IsValidKey reports whether key is one of the configured API keys.
func (s *AdminService) IsValidKey(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return key != "" && slices.Contains(s.keys, key)
}

// ListAccounts pages through the accounts newest first. pageSize is clamped
// to [1, 100]; pages past the end are empty.
func (s *AdminService) ListAccounts(page, pageSize int) core.AccountPage {
	accounts := s.store.Accounts()
	slices.Reverse(accounts)

	page = max(1, page)
	pageSize = max(1, min(maxPageSize, pageSize))

	total := len(accounts)
	totalPages := 1
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	// page is unbounded input; only multiply once it is known to be small
	start := total
	if page <= totalPages {
		start = (page - 1) * pageSize
	}
	end := min(start+pageSize, total)

	items := make([]core.RedactedAccount, 0, end-start)
	for _, account := range accounts[start:end] {
		items = append(items, account.Redact())
	}

	return core.AccountPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

func (s *AdminService) AddAccount(ctx context.Context, account core.Account) (int, error) {
	if err := s.store.Add(account); err != nil {
		return 0, err
	}
	return s.store.Len(), s.persist(ctx)
}

func (s *AdminService) DeleteAccount(ctx context.Context, identifier string) (int, error) {
	if err := s.store.Remove(identifier); err != nil {
		return 0, err
	}
	return s.store.Len(), s.persist(ctx)
}

func (s *AdminService) QueueStatus() core.QueueStatus {
	return s.queue.Status()
}

// Document assembles the current state in its persisted shape.
func (s *AdminService) Document() *core.Document {
	s.mu.RLock()
	doc := &core.Document{
		Keys:          slices.Clone(s.keys),
		ClaudeMapping: maps.Clone(s.claudeMapping),
	}
	s.mu.RUnlock()

	doc.Accounts = s.store.Accounts()
	return doc
}

// Persist writes the current document. Tokens obtained by logins since the
// last admin change are included.
func (s *AdminService) Persist(ctx context.Context) error {
	return s.persist(ctx)
}

func (s *AdminService) persist(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	doc := s.Document()
	if err := s.storage.Save(ctx, doc); err != nil {
		s.logger.Error("failed to save config, changes are kept in memory until the next save", "error", err)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

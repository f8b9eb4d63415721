package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lborres/rota/core"
)

// FakeLoginClient is a test-only fake implementing core.LoginClient.
// It returns a fixed token per identifier and exposes error fields for
// behavior injection.
type FakeLoginClient struct {
	mu     sync.Mutex
	tokens map[string]string
	errs   map[string]error
	calls  map[string]int

	// gate, when set, blocks every Login until it is closed
	gate chan struct{}

	total int64
}

func NewFakeLoginClient() *FakeLoginClient {
	return &FakeLoginClient{
		tokens: make(map[string]string),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// WithToken makes logins for identifier succeed with token.
func (f *FakeLoginClient) WithToken(identifier, token string) *FakeLoginClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[identifier] = token
	return f
}

// WithError makes logins for identifier fail with err.
func (f *FakeLoginClient) WithError(identifier string, err error) *FakeLoginClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[identifier] = err
	return f
}

func (f *FakeLoginClient) Login(ctx context.Context, identifier, password string) (string, error) {
	atomic.AddInt64(&f.total, 1)

	f.mu.Lock()
	f.calls[identifier]++
	gate := f.gate
	token, hasToken := f.tokens[identifier]
	err := f.errs[identifier]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if err != nil {
		return "", err
	}
	if !hasToken {
		return "", errors.New("invalid credentials")
	}
	return token, nil
}

// Calls returns how many logins were attempted for identifier.
func (f *FakeLoginClient) Calls(identifier string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[identifier]
}

// Total returns the number of logins attempted across all identifiers.
func (f *FakeLoginClient) Total() int {
	return int(atomic.LoadInt64(&f.total))
}

// FakeConfigStorage is a test-only fake implementing core.ConfigStorage.
type FakeConfigStorage struct {
	mu      sync.Mutex
	doc     *core.Document
	saves   int
	loadErr error
	saveErr error
}

func NewFakeConfigStorage(doc *core.Document) *FakeConfigStorage {
	if doc == nil {
		doc = &core.Document{}
	}
	return &FakeConfigStorage{doc: doc.Clone()}
}

func (f *FakeConfigStorage) Load(ctx context.Context) (*core.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.doc.Clone(), nil
}

func (f *FakeConfigStorage) Save(ctx context.Context, doc *core.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.doc = doc.Clone()
	f.saves++
	return nil
}

// Saved returns the last saved document and the number of saves.
func (f *FakeConfigStorage) Saved() (*core.Document, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc.Clone(), f.saves
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

package services

import (
	"errors"
	"slices"
	"testing"

	"github.com/lborres/rota/core"
)

func identifiers(store *AccountStore) []string {
	var ids []string
	for account := range store.List() {
		ids = append(ids, account.Identifier())
	}
	return ids
}

// Requirement: Upsert rejects accounts without an identifier.
func TestAccountStore_Upsert_InvalidAccount(t *testing.T) {
	tests := []struct {
		name    string
		account core.Account
	}{
		{name: "empty", account: core.Account{}},
		{name: "password only", account: core.Account{Password: "p"}},
		{name: "whitespace identifier", account: core.Account{Email: "  ", Mobile: "\t"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			store := NewAccountStore(nil)

			// Act
			err := store.Upsert(test.account)

			// Assert
			if !errors.Is(err, core.ErrInvalidAccount) {
				t.Fatalf("Upsert() error = %v, want ErrInvalidAccount", err)
			}
			if store.Len() != 0 {
				t.Errorf("store should stay empty, has %d", store.Len())
			}
		})
	}
}

// Requirement: Upsert keeps the stored password and token when the
// incoming record omits them.
func TestAccountStore_Upsert_PreservesCredentials(t *testing.T) {
	// Arrange
	store := NewAccountStore(nil)
	if err := store.Upsert(core.Account{Email: "a@x", Password: "p1", Token: "t1"}); err != nil {
		t.Fatalf("seed Upsert failed: %v", err)
	}

	// Act
	err := store.Upsert(core.Account{Email: "a@x", Mobile: "555"})

	// Assert
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	got, _ := store.Get("a@x")
	if got.Password != "p1" || got.Token != "t1" || got.Mobile != "555" {
		t.Errorf("merged account = %+v", got)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

// Requirement: No two accounts ever share an identifier, and a conflicting
// upsert leaves the store unchanged.
func TestAccountStore_Upsert_Uniqueness(t *testing.T) {
	// Arrange
	store := NewAccountStore(nil)
	_ = store.Upsert(core.Account{Email: "a@x", Mobile: "555"})
	_ = store.Upsert(core.Account{Email: "b@x"})
	before := store.Accounts()

	// Act
	err := store.Upsert(core.Account{Mobile: "555", Password: "p"})

	// Assert
	if !errors.Is(err, core.ErrDuplicateIdentifier) {
		t.Fatalf("Upsert() error = %v, want ErrDuplicateIdentifier", err)
	}
	if !slices.Equal(before, store.Accounts()) {
		t.Errorf("store changed after conflicting upsert: %+v", store.Accounts())
	}

	seen := map[string]bool{}
	for _, id := range identifiers(store) {
		if seen[id] {
			t.Fatalf("identifier %q appears twice", id)
		}
		seen[id] = true
	}
}

// Requirement: Structural changes notify the change hook; credential
// updates do not.
func TestAccountStore_OnChange(t *testing.T) {
	// Arrange
	store := NewAccountStore(nil)
	calls := 0
	store.OnChange(func() { calls++ })

	// Act
	_ = store.Upsert(core.Account{Email: "a@x"})
	_ = store.Upsert(core.Account{Email: "a@x", Password: "p"})
	_ = store.SetToken("a@x", "t")
	_ = store.Invalidate("a@x")
	_ = store.Remove("a@x")

	// Assert
	if calls != 2 {
		t.Errorf("OnChange called %d times, want 2", calls)
	}
}

// Requirement: Add refuses existing identifiers, emails and mobiles.
func TestAccountStore_Add(t *testing.T) {
	tests := []struct {
		name    string
		account core.Account
		wantErr error
	}{
		{name: "new email", account: core.Account{Email: "c@x"}},
		{name: "existing identifier", account: core.Account{Email: "a@x"}, wantErr: core.ErrDuplicateIdentifier},
		{name: "existing mobile", account: core.Account{Email: "c@x", Mobile: "555"}, wantErr: core.ErrDuplicateIdentifier},
		{name: "mobile only", account: core.Account{Mobile: "777"}},
		{name: "trimmed duplicate", account: core.Account{Email: " a@x "}, wantErr: core.ErrDuplicateIdentifier},
		{name: "no identifier", account: core.Account{Password: "p"}, wantErr: core.ErrInvalidAccount},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			store := NewAccountStore(nil)
			_ = store.Add(core.Account{Email: "a@x", Mobile: "555"})

			// Act
			err := store.Add(test.account)

			// Assert
			if test.wantErr == nil && err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			if test.wantErr != nil && !errors.Is(err, test.wantErr) {
				t.Fatalf("Add() error = %v, want %v", err, test.wantErr)
			}
		})
	}
}

// Requirement: Replace merges credentials for surviving identifiers and is
// atomic on invalid input.
func TestAccountStore_Replace(t *testing.T) {
	// Arrange
	store := NewAccountStore(nil)
	_ = store.Upsert(core.Account{Email: "a@x", Password: "pa", Token: "ta"})
	_ = store.Upsert(core.Account{Email: "b@x", Password: "pb"})

	// Act
	err := store.Replace([]core.Account{
		{Email: "c@x"},
		{Email: "a@x"},
	})

	// Assert
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if got := identifiers(store); !slices.Equal(got, []string{"c@x", "a@x"}) {
		t.Errorf("order = %v", got)
	}
	a, _ := store.Get("a@x")
	if a.Password != "pa" || a.Token != "ta" {
		t.Errorf("credentials not preserved: %+v", a)
	}
	if _, err := store.Get("b@x"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("b@x should be gone, got %v", err)
	}

	// Act
	err = store.Replace([]core.Account{{Email: "d@x"}, {Email: "d@x"}})

	// Assert
	if !errors.Is(err, core.ErrDuplicateIdentifier) {
		t.Fatalf("Replace() error = %v, want ErrDuplicateIdentifier", err)
	}
	if got := identifiers(store); !slices.Equal(got, []string{"c@x", "a@x"}) {
		t.Errorf("failed replace changed the store: %v", got)
	}
}

// Requirement: Remove resolves by identifier, then by mobile.
func TestAccountStore_Remove(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantErr   error
		wantAfter []string
	}{
		{name: "by email", target: "a@x", wantAfter: []string{"b@x"}},
		{name: "by mobile", target: "555", wantAfter: []string{"b@x"}},
		{name: "unknown", target: "zzz", wantErr: core.ErrNotFound, wantAfter: []string{"a@x", "b@x"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			store := NewAccountStore(nil)
			_ = store.Upsert(core.Account{Email: "a@x", Mobile: "555"})
			_ = store.Upsert(core.Account{Email: "b@x"})

			// Act
			err := store.Remove(test.target)

			// Assert
			if test.wantErr == nil && err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
			if test.wantErr != nil && !errors.Is(err, test.wantErr) {
				t.Fatalf("Remove() error = %v, want %v", err, test.wantErr)
			}
			if got := identifiers(store); !slices.Equal(got, test.wantAfter) {
				t.Errorf("after Remove() = %v, want %v", got, test.wantAfter)
			}
		})
	}
}

// Requirement: List is lazy, restartable and stops early when asked.
func TestAccountStore_List(t *testing.T) {
	// Arrange
	store := NewAccountStore(nil)
	for _, email := range []string{"a@x", "b@x", "c@x"} {
		_ = store.Upsert(core.Account{Email: email})
	}
	seq := store.List()

	// Act
	first := []string{}
	for account := range seq {
		first = append(first, account.Identifier())
		if len(first) == 2 {
			break
		}
	}
	second := []string{}
	for account := range seq {
		second = append(second, account.Identifier())
	}

	// Assert
	if !slices.Equal(first, []string{"a@x", "b@x"}) {
		t.Errorf("first pass = %v", first)
	}
	if !slices.Equal(second, []string{"a@x", "b@x", "c@x"}) {
		t.Errorf("second pass = %v", second)
	}
}

// Requirement: Invalidate makes the token unusable until a new one is set.
func TestAccountStore_TokenState(t *testing.T) {
	// Arrange
	store := NewAccountStore(nil)
	_ = store.Upsert(core.Account{Email: "a@x", Token: "t1"})

	// Act / Assert
	if _, usable, _ := store.credentials("a@x"); !usable {
		t.Fatal("fresh token should be usable")
	}

	_ = store.Invalidate("a@x")
	account, usable, _ := store.credentials("a@x")
	if usable {
		t.Fatal("invalidated token should not be usable")
	}
	if account.Token != "t1" {
		t.Errorf("invalidated token value should be kept, got %q", account.Token)
	}

	_ = store.SetToken("a@x", "t2")
	if _, usable, _ := store.credentials("a@x"); !usable {
		t.Error("new token should be usable")
	}

	if err := store.SetToken("ghost", "t"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("SetToken() on unknown id error = %v, want ErrNotFound", err)
	}
}

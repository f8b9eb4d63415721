package core

import "time"

// Document is the persisted configuration owned by the admin layer.
type Document struct {
	Keys          []string          `json:"keys" yaml:"keys"`
	Accounts      []Account         `json:"accounts" yaml:"accounts"`
	ClaudeMapping map[string]string `json:"claude_mapping,omitempty" yaml:"claude_mapping,omitempty"`
}

// Clone returns a deep copy so callers can persist it outside any lock.
func (d *Document) Clone() *Document {
	if d == nil {
		return &Document{}
	}
	out := &Document{
		Keys:     append([]string(nil), d.Keys...),
		Accounts: append([]Account(nil), d.Accounts...),
	}
	if d.ClaudeMapping != nil {
		out.ClaudeMapping = make(map[string]string, len(d.ClaudeMapping))
		for k, v := range d.ClaudeMapping {
			out.ClaudeMapping[k] = v
		}
	}
	return out
}

// RedactedAccount is an account with secrets replaced by presence flags.
type RedactedAccount struct {
	Email        string `json:"email"`
	Mobile       string `json:"mobile"`
	HasPassword  bool   `json:"has_password"`
	HasToken     bool   `json:"has_token"`
	TokenPreview string `json:"token_preview"`
}

// AccountState is the rotation state of one identifier.
type AccountState string

const (
	StateAvailable AccountState = "available"
	StateCooling   AccountState = "cooling"
)

// AccountStatus is the per-identifier line of a queue snapshot.
type AccountStatus struct {
	Identifier        string        `json:"identifier"`
	State             AccountState  `json:"state"`
	CooldownRemaining time.Duration `json:"cooldown_remaining"`
	HasPassword       bool          `json:"has_password"`
	HasToken          bool          `json:"has_token"`
	TokenPreview      string        `json:"token_preview"`
}

// QueueStatus is a point-in-time snapshot of the rotation queue
type QueueStatus struct {
	Total          int             `json:"total"`
	AvailableCount int             `json:"available_count"`
	CoolingCount   int             `json:"cooling_count"`
	CursorPosition int             `json:"cursor_position"`
	Accounts       []AccountStatus `json:"accounts"`
}

// TokenStats are counters for the token lifecycle.
type TokenStats struct {
	CacheHits     int64 `json:"cache_hits"`
	LoginAttempts int64 `json:"login_attempts"`
	LoginFailures int64 `json:"login_failures"`
	Invalidations int64 `json:"invalidations"`
}

// ConfigView is the redacted document returned to admin clients.
type ConfigView struct {
	Keys          []string          `json:"keys"`
	Accounts      []RedactedAccount `json:"accounts"`
	ClaudeMapping map[string]string `json:"claude_mapping"`
}

// ConfigUpdate replaces the sections that are non-nil.
type ConfigUpdate struct {
	Keys          []string          `json:"keys,omitempty"`
	Accounts      []Account         `json:"accounts,omitempty"`
	ClaudeMapping map[string]string `json:"claude_mapping,omitempty"`
}

// AccountPage is one page of the admin account listing.
type AccountPage struct {
	Items      []RedactedAccount `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

package core

import "strings"

// Account represents one provider credential in the pool
//
// Empty fields are treated as absent. The identifier (email, else mobile)
// is the dedup key across the pool.
type Account struct {
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Mobile   string `json:"mobile,omitempty" yaml:"mobile,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Token    string `json:"token,omitempty" yaml:"token,omitempty"`
}

// Identifier returns the email if present, else the mobile.
func (a Account) Identifier() string {
	if a.Email != "" {
		return a.Email
	}
	return a.Mobile
}

// Validate rejects accounts without an identifier.
func (a Account) Validate() error {
	if a.Identifier() == "" {
		return ErrInvalidAccount
	}
	return nil
}

// Normalize trims surrounding whitespace from every field.
func (a Account) Normalize() Account {
	return Account{
		Email:    strings.TrimSpace(a.Email),
		Mobile:   strings.TrimSpace(a.Mobile),
		Password: strings.TrimSpace(a.Password),
		Token:    strings.TrimSpace(a.Token),
	}
}

// MergeCredentials fills an empty password or token from prev.
// Absent and explicitly cleared fields are the same signal here.
func (a Account) MergeCredentials(prev Account) Account {
	if a.Password == "" {
		a.Password = prev.Password
	}
	if a.Token == "" {
		a.Token = prev.Token
	}
	return a
}

// Redact returns the view that is safe to hand to admin clients.
func (a Account) Redact() RedactedAccount {
	return RedactedAccount{
		Email:        a.Email,
		Mobile:       a.Mobile,
		HasPassword:  a.Password != "",
		HasToken:     a.Token != "",
		TokenPreview: TokenPreview(a.Token),
	}
}

const tokenPreviewLen = 20

// TokenPreview truncates a token for display. The preview never covers
// more than half of the token.
func TokenPreview(token string) string {
	if token == "" {
		return ""
	}
	n := min(tokenPreviewLen, len(token)/2)
	return token[:n] + "..."
}

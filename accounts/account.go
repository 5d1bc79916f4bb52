// Package accounts holds the launcher's stored account profiles: one record
// per provider account a user has signed in with. Profiles carry display
// metadata and the last known character count; tokens live in the secrets
// store, never here.
package accounts

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID             string    `json:"id,omitempty"`              // Unique identifier for the account record
	Subject        string    `json:"subject,omitempty"`         // Provider subject claim, stable across logins
	DisplayName    string    `json:"display_name,omitempty"`    // Name shown in the launcher account list
	LoginEmail     string    `json:"login_email,omitempty"`     // Email the account signs in with
	CreatedAt      time.Time `json:"created_at,omitempty"`      // When the launcher first saw this account
	LastLoginAt    time.Time `json:"last_login_at,omitempty"`   // Last successful login through the launcher
	CharacterCount int       `json:"character_count,omitempty"` // Last observed character slot count
}

// NewAccount creates a profile for a subject seen for the first time.
func NewAccount(subject, displayName string) *Account {
	return &Account{
		ID:          uuid.New().String(),
		Subject:     subject,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
}

// RemainingSlots returns how many character slots the account can still
// create under the capacity, never negative.
func (a *Account) RemainingSlots(capacity int) int {
	remaining := capacity - a.CharacterCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AtCapacity reports whether the account has no character slots left.
func (a *Account) AtCapacity(capacity int) bool {
	return a.RemainingSlots(capacity) == 0
}

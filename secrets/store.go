// Package secrets stores the launcher's sensitive per-account material,
// refresh tokens and site session tokens, sealed at rest. Account profiles
// stay in the accounts store; anything that grants access lives here.
package secrets

import "errors"

var InvalidPassphraseErr = errors.New("invalid passphrase")

// Store is a small sealed key-value store. Read reports absence rather than
// erroring so callers can treat a missing secret as "log in again".
type Store interface {
	Write(key, secret string) error
	Read(key string) (string, bool)
	Delete(key string) error
}

// RefreshTokenKey is the store key for an account's OAuth refresh token.
func RefreshTokenKey(accountID string) string {
	return "refresh-token/" + accountID
}

// SessionTokenKey is the store key for an account's site session token.
func SessionTokenKey(accountID string) string {
	return "session-token/" + accountID
}

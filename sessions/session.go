// Package sessions holds the derived launcher session: the OAuth token set
// plus the game session id and site session cookie layered on top of it
// during the capture flow.
package sessions

import "time"

// ExpirySkew is subtracted from the stored expiry when checking whether a
// session is still usable, so a token is refreshed before it actually lapses.
const ExpirySkew = 60 * time.Second

// Session is the complete derived session for one account. Sessions are
// values: a refresh produces a replacement Session rather than mutating the
// prior one, so a half-applied refresh can never be observed.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	IDToken      string    `json:"id_token,omitempty"`
	Subject      string    `json:"subject,omitempty"`

	// GameSessionID is derived from the id token via the session endpoint.
	GameSessionID string `json:"game_session_id,omitempty"`

	// SecondarySessionToken is the site session cookie captured on the
	// secondary domain. Optional: absence only gates the provisioning queue.
	SecondarySessionToken string `json:"secondary_session_token,omitempty"`
}

// Expired reports whether the session's access token has lapsed, judged
// against now minus the clock-skew margin. ExpiresAt is authoritative.
func (s Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return true
	}
	return !now.Add(ExpirySkew).Before(s.ExpiresAt)
}

// Merged layers a freshly issued token set over the prior session, carrying
// forward every field the token response does not speak for. A refresh
// response never carries the game session id or the site session cookie, and
// may omit the id token and therefore the subject; naively replacing the
// whole session would silently destroy them.
func (s Session) Merged(next Session) Session {
	if next.RefreshToken == "" {
		next.RefreshToken = s.RefreshToken
	}
	if next.IDToken == "" {
		next.IDToken = s.IDToken
	}
	if next.Subject == "" {
		next.Subject = s.Subject
	}
	if next.GameSessionID == "" {
		next.GameSessionID = s.GameSessionID
	}
	if next.SecondarySessionToken == "" {
		next.SecondarySessionToken = s.SecondarySessionToken
	}
	return next
}

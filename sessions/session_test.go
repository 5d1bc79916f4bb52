package sessions_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-launcher-auth/sessions"
	"github.com/stretchr/testify/require"
)

func TestSessionExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("well before expiry", func(t *testing.T) {
		s := sessions.Session{ExpiresAt: now.Add(10 * time.Minute)}
		require.False(t, s.Expired(now))
	})

	t.Run("inside the skew margin", func(t *testing.T) {
		s := sessions.Session{ExpiresAt: now.Add(30 * time.Second)}
		require.True(t, s.Expired(now))
	})

	t.Run("past expiry", func(t *testing.T) {
		s := sessions.Session{ExpiresAt: now.Add(-time.Minute)}
		require.True(t, s.Expired(now))
	})

	t.Run("zero expiry counts as expired", func(t *testing.T) {
		require.True(t, sessions.Session{}.Expired(now))
	})
}

func TestSessionMerged(t *testing.T) {
	prior := sessions.Session{
		AccessToken:           "old-access",
		RefreshToken:          "old-refresh",
		IDToken:               "old-id",
		Subject:               "sub-1",
		GameSessionID:         "game-1",
		SecondarySessionToken: "X",
	}

	t.Run("carries forward omitted fields", func(t *testing.T) {
		next := prior.Merged(sessions.Session{
			AccessToken: "new-access",
			TokenType:   "Bearer",
		})
		require.Equal(t, "new-access", next.AccessToken)
		require.Equal(t, "old-refresh", next.RefreshToken)
		require.Equal(t, "old-id", next.IDToken)
		require.Equal(t, "sub-1", next.Subject)
		require.Equal(t, "game-1", next.GameSessionID)
		require.Equal(t, "X", next.SecondarySessionToken)
	})

	t.Run("response fields win when present", func(t *testing.T) {
		next := prior.Merged(sessions.Session{
			AccessToken:  "new-access",
			RefreshToken: "rotated",
			IDToken:      "new-id",
			Subject:      "sub-1",
		})
		require.Equal(t, "rotated", next.RefreshToken)
		require.Equal(t, "new-id", next.IDToken)
		require.Equal(t, "X", next.SecondarySessionToken)
	})

	t.Run("prior session is not mutated", func(t *testing.T) {
		_ = prior.Merged(sessions.Session{AccessToken: "new"})
		require.Equal(t, "old-access", prior.AccessToken)
		require.Equal(t, "X", prior.SecondarySessionToken)
	})
}

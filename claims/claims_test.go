package claims_test

import (
	"encoding/base64"
	"testing"

	"github.com/jrsteele09/go-launcher-auth/claims"
	"github.com/stretchr/testify/require"
)

func payloadSegment(t *testing.T, jsonPayload string) string {
	t.Helper()
	return base64.RawURLEncoding.EncodeToString([]byte(jsonPayload))
}

func TestExtract(t *testing.T) {
	t.Run("sub from three part token", func(t *testing.T) {
		token := "eyJhbGciOiJub25lIn0." + payloadSegment(t, `{"sub":"abc123"}`) + ".sig"
		sub, ok := claims.Extract(token, "sub")
		require.True(t, ok)
		require.Equal(t, "abc123", sub)
	})

	t.Run("sub from two part token", func(t *testing.T) {
		token := "header." + payloadSegment(t, `{"sub":"abc123"}`)
		sub, ok := claims.Extract(token, "sub")
		require.True(t, ok)
		require.Equal(t, "abc123", sub)
	})

	t.Run("padded payload segment", func(t *testing.T) {
		padded := base64.URLEncoding.EncodeToString([]byte(`{"nonce":"n-1"}`))
		nonce, ok := claims.Extract("h."+padded+".s", "nonce")
		require.True(t, ok)
		require.Equal(t, "n-1", nonce)
	})

	t.Run("empty token is absent", func(t *testing.T) {
		_, ok := claims.Extract("", "sub")
		require.False(t, ok)
	})

	t.Run("single segment is absent", func(t *testing.T) {
		_, ok := claims.Extract("notatoken", "sub")
		require.False(t, ok)
	})

	t.Run("undecodable payload is absent", func(t *testing.T) {
		_, ok := claims.Extract("h.!!!not-base64url!!!.s", "sub")
		require.False(t, ok)
	})

	t.Run("non JSON payload is absent", func(t *testing.T) {
		token := "h." + payloadSegment(t, "plain text") + ".s"
		_, ok := claims.Extract(token, "sub")
		require.False(t, ok)
	})

	t.Run("missing claim is absent", func(t *testing.T) {
		token := "h." + payloadSegment(t, `{"sub":"abc123"}`) + ".s"
		_, ok := claims.Extract(token, "nonce")
		require.False(t, ok)
	})

	t.Run("non string claim is absent", func(t *testing.T) {
		token := "h." + payloadSegment(t, `{"exp":1700000000}`) + ".s"
		_, ok := claims.Extract(token, "exp")
		require.False(t, ok)
	})
}

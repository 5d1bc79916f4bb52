package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-launcher-auth/internal/config"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)

	require.Equal(t, "com_jagex_auth_desktop_launcher", cfg.GetClientID())
	require.Equal(t, "jagex:", cfg.GetCustomRedirectScheme())
	require.Contains(t, cfg.GetScopes(), "gamesso.token.create")
	require.Equal(t, []string{"account.jagex.com", "secure.runescape.com", "www.runescape.com"}, cfg.GetSessionCookieDomains())
	require.Equal(t, 12*time.Second, cfg.GetSessionCookieTimeout())
	require.Equal(t, 20, cfg.GetCharacterCapacity())
	require.Equal(t, 5, cfg.GetMaxCreateAttempts())
	require.Equal(t, 3, cfg.GetDefaultBatchSize())
	require.Equal(t, 7*time.Minute, cfg.GetDefaultBatchWindow())
	require.Empty(t, cfg.GetSecretsPassphrase())
}

func TestNew_EnvironmentOverrides(t *testing.T) {
	t.Setenv("OAUTH_CLIENT_ID", "test-client")
	t.Setenv("QUEUE_CHARACTER_CAPACITY", "5")
	t.Setenv("QUEUE_DEFAULT_BATCH_WINDOW", "90s")
	t.Setenv("CAPTURE_COOKIE_DOMAINS", "a.example.com,b.example.com")
	t.Setenv("SECRETS_PASSPHRASE", "hunter2hunter2")

	cfg, err := config.New()
	require.NoError(t, err)

	require.Equal(t, "test-client", cfg.GetClientID())
	require.Equal(t, 5, cfg.GetCharacterCapacity())
	require.Equal(t, 90*time.Second, cfg.GetDefaultBatchWindow())
	require.Equal(t, []string{"a.example.com", "b.example.com"}, cfg.GetSessionCookieDomains())
	require.Equal(t, "hunter2hunter2", cfg.GetSecretsPassphrase())
}

package config

import "time"

// Config aggregates the per-concern configuration interfaces consumed by the
// individual packages. Components depend on the narrow interface they need,
// not on the whole bundle.
type Config interface {
	EnvConfig
	OAuthConfig
	CaptureConfig
	ProvisionConfig
	QueueConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetDataFolder() string

	// GetSecretsPassphrase unlocks the sealed token store. Empty disables
	// secret-dependent operations.
	GetSecretsPassphrase() string
}

// OAuthConfig carries the provider-specific OAuth settings for both legs of
// the login flow. Endpoint URLs and client ids are configuration, not code:
// the engine composes requests from whatever is set here.
type OAuthConfig interface {
	GetClientID() string
	GetRedirectURI() string
	GetAuthorizationURL() string
	GetTokenURL() string
	GetScopes() []string

	// Consent leg: a second OAuth-style request with its own client and
	// scopes, redirecting to a localhost listener.
	GetConsentClientID() string
	GetConsentRedirectURI() string
	GetConsentScopes() []string

	// GetCustomRedirectScheme is the non-HTTP scheme the provider may use
	// for the authorization redirect (e.g. "jagex:").
	GetCustomRedirectScheme() string

	// GetSessionEndpoint exchanges an id token for a game session id.
	GetSessionEndpoint() string
}

type CaptureConfig interface {
	// GetSessionCookieDomains is the fixed set of related domains probed for
	// the site session cookie.
	GetSessionCookieDomains() []string

	// GetSessionCookieSeedURL is a first-party page expected to set the
	// session cookie when probing comes up empty.
	GetSessionCookieSeedURL() string

	// GetSessionCookieTimeout bounds the wait for the seed navigation.
	GetSessionCookieTimeout() time.Duration
}

type ProvisionConfig interface {
	GetCharacterListEndpoint() string
	GetCharacterCreateEndpoint() string
}

type QueueConfig interface {
	GetCharacterCapacity() int
	GetMaxCreateAttempts() int
	GetCreateRetryDelay() time.Duration
	GetDefaultBatchSize() int
	GetDefaultBatchWindow() time.Duration
}

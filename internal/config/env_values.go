package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envValues is the env-var backed implementation of every config interface.
// Defaults target the public RuneScape launcher provider; deployments
// override individual values through the environment.
type envValues struct {
	AppName           string `env:"APP_NAME" envDefault:"Launcher Auth"`
	Env               string `env:"ENV" envDefault:"DEV"`
	DataFolder        string `env:"DATA_FOLDER" envDefault:"./data"`
	SecretsPassphrase string `env:"SECRETS_PASSPHRASE"`

	ClientID         string   `env:"OAUTH_CLIENT_ID" envDefault:"com_jagex_auth_desktop_launcher"`
	RedirectURI      string   `env:"OAUTH_REDIRECT_URI" envDefault:"https://secure.runescape.com/m=weblogin/launcher-redirect"`
	AuthorizationURL string   `env:"OAUTH_AUTHORIZATION_URL" envDefault:"https://account.jagex.com/oauth2/auth"`
	TokenURL         string   `env:"OAUTH_TOKEN_URL" envDefault:"https://account.jagex.com/oauth2/token"`
	Scopes           []string `env:"OAUTH_SCOPES" envSeparator:" " envDefault:"openid offline gamesso.token.create user.profile.read"`

	ConsentClientID    string   `env:"OAUTH_CONSENT_CLIENT_ID" envDefault:"1fddee4e-b100-4f4e-b2b0-097f9088f9d2"`
	ConsentRedirectURI string   `env:"OAUTH_CONSENT_REDIRECT_URI" envDefault:"http://localhost"`
	ConsentScopes      []string `env:"OAUTH_CONSENT_SCOPES" envSeparator:" " envDefault:"openid offline"`

	CustomRedirectScheme string `env:"OAUTH_CUSTOM_REDIRECT_SCHEME" envDefault:"jagex:"`
	SessionEndpoint      string `env:"GAME_SESSION_ENDPOINT" envDefault:"https://auth.jagex.com/game-session/v1/sessions"`

	SessionCookieDomains []string      `env:"CAPTURE_COOKIE_DOMAINS" envSeparator:"," envDefault:"account.jagex.com,secure.runescape.com,www.runescape.com"`
	SessionCookieSeedURL string        `env:"CAPTURE_COOKIE_SEED_URL" envDefault:"https://account.runescape.com/"`
	SessionCookieTimeout time.Duration `env:"CAPTURE_COOKIE_TIMEOUT" envDefault:"12s"`

	CharacterListEndpoint   string `env:"PROVISION_LIST_ENDPOINT" envDefault:"https://accountcreation.runescape.com/v1/characters"`
	CharacterCreateEndpoint string `env:"PROVISION_CREATE_ENDPOINT" envDefault:"https://accountcreation.runescape.com/v1/characters/create"`

	CharacterCapacity  int           `env:"QUEUE_CHARACTER_CAPACITY" envDefault:"20"`
	MaxCreateAttempts  int           `env:"QUEUE_MAX_CREATE_ATTEMPTS" envDefault:"5"`
	CreateRetryDelay   time.Duration `env:"QUEUE_CREATE_RETRY_DELAY" envDefault:"5s"`
	DefaultBatchSize   int           `env:"QUEUE_DEFAULT_BATCH_SIZE" envDefault:"3"`
	DefaultBatchWindow time.Duration `env:"QUEUE_DEFAULT_BATCH_WINDOW" envDefault:"7m"`
}

var _ Config = envValues{}

// New parses configuration from the environment, falling back to the
// defaults above for anything unset.
func New() (Config, error) {
	values, err := env.ParseAs[envValues]()
	if err != nil {
		return nil, fmt.Errorf("[config.New] parsing environment: %w", err)
	}
	return values, nil
}

func (v envValues) GetAppName() string    { return v.AppName }
func (v envValues) GetEnv() string        { return v.Env }
func (v envValues) GetDataFolder() string { return v.DataFolder }

func (v envValues) GetSecretsPassphrase() string { return v.SecretsPassphrase }

func (v envValues) GetClientID() string         { return v.ClientID }
func (v envValues) GetRedirectURI() string      { return v.RedirectURI }
func (v envValues) GetAuthorizationURL() string { return v.AuthorizationURL }
func (v envValues) GetTokenURL() string         { return v.TokenURL }
func (v envValues) GetScopes() []string         { return v.Scopes }

func (v envValues) GetConsentClientID() string    { return v.ConsentClientID }
func (v envValues) GetConsentRedirectURI() string { return v.ConsentRedirectURI }
func (v envValues) GetConsentScopes() []string    { return v.ConsentScopes }

func (v envValues) GetCustomRedirectScheme() string { return v.CustomRedirectScheme }
func (v envValues) GetSessionEndpoint() string      { return v.SessionEndpoint }

func (v envValues) GetSessionCookieDomains() []string      { return v.SessionCookieDomains }
func (v envValues) GetSessionCookieSeedURL() string        { return v.SessionCookieSeedURL }
func (v envValues) GetSessionCookieTimeout() time.Duration { return v.SessionCookieTimeout }

func (v envValues) GetCharacterListEndpoint() string   { return v.CharacterListEndpoint }
func (v envValues) GetCharacterCreateEndpoint() string { return v.CharacterCreateEndpoint }

func (v envValues) GetCharacterCapacity() int            { return v.CharacterCapacity }
func (v envValues) GetMaxCreateAttempts() int            { return v.MaxCreateAttempts }
func (v envValues) GetCreateRetryDelay() time.Duration   { return v.CreateRetryDelay }
func (v envValues) GetDefaultBatchSize() int             { return v.DefaultBatchSize }
func (v envValues) GetDefaultBatchWindow() time.Duration { return v.DefaultBatchWindow }

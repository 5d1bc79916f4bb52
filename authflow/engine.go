// Package authflow drives the provider-facing side of the login pipeline:
// building the authorization and consent URLs, exchanging authorization
// codes, refreshing tokens, and deriving the game session id.
//
// Every network operation here is a single attempt. The login flow is
// interactive, so failures surface immediately and the human re-initiates;
// retry policy lives with the provisioning queue, not here.
package authflow

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-launcher-auth/claims"
	"github.com/jrsteele09/go-launcher-auth/internal/config"
	errorsx "github.com/jrsteele09/go-launcher-auth/internal/errors"
	"github.com/jrsteele09/go-launcher-auth/sessions"
)

const (
	stateGenerationLength = 32
	nonceGenerationLength = 32

	// defaultTokenExpiry applies when the provider omits expires_in.
	defaultTokenExpiry = 900 * time.Second
)

// LoginAttempt is the result of BeginLogin: everything the capture surface
// needs to start one authorization attempt. State and Verifier must not be
// reused across attempts.
type LoginAttempt struct {
	State    string
	Verifier string
	URL      string
}

// Engine performs the OAuth legs of the launcher login flow.
type Engine struct {
	cfg        config.OAuthConfig
	httpClient *http.Client
	nowTime    func() time.Time
}

// Option modifies an Engine instance.
type Option func(*Engine)

// WithHTTPClient sets the HTTP client used for token and session requests.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = client
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(e *Engine) {
		e.nowTime = nowFunc
	}
}

// New validates the required OAuth settings and returns an Engine.
func New(cfg config.OAuthConfig, options ...Option) (*Engine, error) {
	for field, value := range map[string]string{
		"client id":         cfg.GetClientID(),
		"redirect URI":      cfg.GetRedirectURI(),
		"authorization URL": cfg.GetAuthorizationURL(),
		"token URL":         cfg.GetTokenURL(),
	} {
		if value == "" {
			return nil, errorsx.Wrapf(errorsx.ErrMissingConfiguration, "[authflow.New] %s", field)
		}
	}

	engine := &Engine{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(engine)
	}
	return engine, nil
}

// BeginLogin generates a fresh state and PKCE verifier and composes the
// authorization URL with the S256 challenge embedded.
func (e *Engine) BeginLogin() (*LoginAttempt, error) {
	state, err := randomURLString(stateGenerationLength)
	if err != nil {
		return nil, errorsx.Wrapf(err, "[BeginLogin] generating state")
	}
	verifier := oauth2.GenerateVerifier()

	loginURL := e.oauthConfig().AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	log.Debug().Str("component", "authflow").Msg("composed authorization URL")
	return &LoginAttempt{State: state, Verifier: verifier, URL: loginURL}, nil
}

// NewNonce generates the nonce that keys one consent leg. The same value
// must round-trip through the id token returned by that leg.
func NewNonce() (string, error) {
	return randomURLString(nonceGenerationLength)
}

// ConsentURL composes the second, consent-prompting OAuth request: a
// different client and scope set, hinting with the id token from the first
// leg, keyed by the caller-supplied nonce.
func (e *Engine) ConsentURL(idToken, nonce string) (string, error) {
	if e.cfg.GetConsentClientID() == "" || e.cfg.GetConsentRedirectURI() == "" {
		return "", errorsx.Wrapf(errorsx.ErrMissingConfiguration, "[ConsentURL] consent client")
	}

	consentConfig := &oauth2.Config{
		ClientID:    e.cfg.GetConsentClientID(),
		RedirectURL: e.cfg.GetConsentRedirectURI(),
		Scopes:      e.cfg.GetConsentScopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL: e.cfg.GetAuthorizationURL(),
		},
	}

	return consentConfig.AuthCodeURL("",
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("id_token_hint", idToken),
		oauth2.SetAuthURLParam("response_type", "id_token code"),
	), nil
}

// ExchangeCode swaps an authorization code for a Session. The provider does
// not always rotate the refresh token, so previousRefreshToken fills the gap
// when the response omits one.
func (e *Engine) ExchangeCode(ctx context.Context, code, verifier, previousRefreshToken string) (sessions.Session, error) {
	token, err := e.oauthConfig().Exchange(e.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return sessions.Session{}, exchangeError("authflow.ExchangeCode", err)
	}
	if token.AccessToken == "" {
		return sessions.Session{}, errorsx.Wrapf(errorsx.ErrMissingAccessToken, "[ExchangeCode]")
	}

	session := e.sessionFromToken(token)
	if session.RefreshToken == "" {
		session.RefreshToken = previousRefreshToken
	}

	log.Info().Str("component", "authflow").Str("subject", session.Subject).Msg("exchanged authorization code")
	return session, nil
}

// Refresh obtains a new token set with the session's refresh token and
// layers it over the prior session, carrying forward the game session id,
// site session cookie, and subject identity the refresh response does not
// carry.
func (e *Engine) Refresh(ctx context.Context, prior sessions.Session) (sessions.Session, error) {
	if prior.RefreshToken == "" {
		return sessions.Session{}, MissingRefreshTokenErr
	}

	source := e.oauthConfig().TokenSource(e.clientContext(ctx), &oauth2.Token{RefreshToken: prior.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return sessions.Session{}, exchangeError("authflow.Refresh", err)
	}
	if token.AccessToken == "" {
		return sessions.Session{}, errorsx.Wrapf(errorsx.ErrMissingAccessToken, "[Refresh]")
	}

	refreshed := prior.Merged(e.sessionFromToken(token))
	log.Info().Str("component", "authflow").Str("subject", refreshed.Subject).Msg("refreshed session")
	return refreshed, nil
}

// sessionIDRequest and sessionIDResponse are the wire shapes of the game
// session endpoint.
type sessionIDRequest struct {
	IDToken string `json:"idToken"`
}

type sessionIDResponse struct {
	SessionID string `json:"sessionId"`
}

// SessionID posts the id token to the session-creation endpoint and returns
// the derived game session id.
func (e *Engine) SessionID(ctx context.Context, idToken string) (string, error) {
	endpoint := e.cfg.GetSessionEndpoint()
	if endpoint == "" {
		return "", errorsx.Wrapf(errorsx.ErrMissingConfiguration, "[SessionID] session endpoint")
	}

	body, err := json.Marshal(sessionIDRequest{IDToken: idToken})
	if err != nil {
		return "", errorsx.Wrapf(err, "[SessionID] encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errorsx.Wrapf(err, "[SessionID] building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", errorsx.Wrapf(err, "[SessionID] posting id token")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errorsx.Wrapf(err, "[SessionID] reading response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errorsx.NewProtocolError("authflow.SessionID", resp.StatusCode, respBody)
	}

	var parsed sessionIDResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", errorsx.Wrapf(err, "[SessionID] decoding response")
	}
	if parsed.SessionID == "" {
		return "", errorsx.Wrapf(errorsx.ErrMissingSessionID, "[SessionID]")
	}
	return parsed.SessionID, nil
}

func (e *Engine) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    e.cfg.GetClientID(),
		RedirectURL: e.cfg.GetRedirectURI(),
		Scopes:      e.cfg.GetScopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:  e.cfg.GetAuthorizationURL(),
			TokenURL: e.cfg.GetTokenURL(),
		},
	}
}

// clientContext routes the oauth2 library's requests through the engine's
// HTTP client.
func (e *Engine) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
}

// sessionFromToken maps an oauth2 token response onto a Session, defaulting
// the expiry when the provider omits expires_in and deriving the subject
// from the id token's sub claim.
func (e *Engine) sessionFromToken(token *oauth2.Token) sessions.Session {
	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = e.nowTime().Add(defaultTokenExpiry)
	}

	session := sessions.Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		ExpiresAt:    expiresAt,
	}

	if idToken, ok := token.Extra("id_token").(string); ok && idToken != "" {
		session.IDToken = idToken
		if subject, ok := claims.Extract(idToken, "sub"); ok {
			session.Subject = subject
		}
	}
	return session
}

// exchangeError converts oauth2 retrieval failures into the shared protocol
// error shape, preserving the provider's status and body snippet.
func exchangeError(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errorsx.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return errorsx.NewProtocolError(op, retrieveErr.Response.StatusCode, retrieveErr.Body)
	}
	return errorsx.Wrapf(err, "[%s]", op)
}

// randomURLString creates a random base64url string without padding.
func randomURLString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Package capture drives an embedded browser surface through the launcher
// login flow: the authorization redirect, the consent leg, and the secondary
// site-session cookie probe. The controller is a finite state machine fed by
// a navigation-event channel; it holds all flow state explicitly and never
// depends on a specific rendering engine.
package capture

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-launcher-auth/authflow"
	"github.com/jrsteele09/go-launcher-auth/claims"
	"github.com/jrsteele09/go-launcher-auth/internal/config"
	errorsx "github.com/jrsteele09/go-launcher-auth/internal/errors"
	"github.com/jrsteele09/go-launcher-auth/provision"
	"github.com/jrsteele09/go-launcher-auth/sessions"
)

// State is the controller's position in the login flow.
type State int

const (
	StateIdle State = iota
	StateAwaitingAuthorizationRedirect
	StateAwaitingConsentRedirect
	StateCapturingSecondarySession
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingAuthorizationRedirect:
		return "awaiting authorization redirect"
	case StateAwaitingConsentRedirect:
		return "awaiting consent redirect"
	case StateCapturingSecondarySession:
		return "capturing secondary session"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// anchorScrapeScript collects every anchor target on the rendered page, for
// providers that render a passive landing page instead of a hard redirect.
const anchorScrapeScript = `JSON.stringify(Array.from(document.querySelectorAll("a[href]")).map(function(a){return a.href}))`

// FlowEngine is the slice of the auth flow engine the controller drives.
type FlowEngine interface {
	BeginLogin() (*authflow.LoginAttempt, error)
	ConsentURL(idToken, nonce string) (string, error)
	ExchangeCode(ctx context.Context, code, verifier, previousRefreshToken string) (sessions.Session, error)
	SessionID(ctx context.Context, idToken string) (string, error)
}

var _ FlowEngine = (*authflow.Engine)(nil)

// Result is the single outcome of one capture run.
type Result struct {
	Session sessions.Session

	// SecondarySessionCaptured reports whether the site session cookie was
	// found. Its absence only gates the provisioning queue, not login.
	SecondarySessionCaptured bool
}

// Controller runs one login attempt against a browser surface. A Controller
// is single-use: Run resolves exactly once and further navigation events are
// ignored after a terminal state.
type Controller struct {
	oauthCfg   config.OAuthConfig
	captureCfg config.CaptureConfig
	engine     FlowEngine
	navigator  Navigator
	onStatus   func(message string)

	state   State
	flow    *authflow.FlowState
	pending sessions.Session
}

// ControllerOption modifies a Controller instance.
type ControllerOption func(*Controller)

// WithStatus sets a callback for human-readable progress lines.
func WithStatus(onStatus func(message string)) ControllerOption {
	return func(c *Controller) {
		c.onStatus = onStatus
	}
}

// NewController wires a capture run. The navigator is the embedded browser
// surface; the engine performs the provider calls.
func NewController(oauthCfg config.OAuthConfig, captureCfg config.CaptureConfig, engine FlowEngine, navigator Navigator, options ...ControllerOption) *Controller {
	c := &Controller{
		oauthCfg:   oauthCfg,
		captureCfg: captureCfg,
		engine:     engine,
		navigator:  navigator,
		state:      StateIdle,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Run performs the full capture flow and resolves exactly once. Closing the
// surface before completion resolves as user cancellation.
// previousRefreshToken seeds the exchange for providers that do not rotate
// refresh tokens on every login.
func (c *Controller) Run(ctx context.Context, previousRefreshToken string) (*Result, error) {
	attempt, err := c.engine.BeginLogin()
	if err != nil {
		return c.fail(err)
	}
	c.flow = authflow.NewFlowState(attempt)

	c.transition(StateAwaitingAuthorizationRedirect)
	if err := c.navigator.Navigate(attempt.URL); err != nil {
		return c.fail(errorsx.Wrapf(err, "[capture.Run] opening login URL"))
	}

	for {
		select {
		case <-ctx.Done():
			return c.fail(errorsx.Wrapf(errorsx.ErrUserCancelled, "[capture.Run] context done"))
		case event, open := <-c.navigator.Events():
			if !open || event.Kind == SurfaceClosed {
				return c.fail(errorsx.Wrapf(errorsx.ErrUserCancelled, "[capture.Run] surface closed"))
			}

			result, done, err := c.handleEvent(ctx, event, previousRefreshToken)
			if err != nil {
				return c.fail(err)
			}
			if done {
				return result, nil
			}
		}
	}
}

// handleEvent advances the state machine by one navigation event. Events
// that do not belong to the current state are ignored.
func (c *Controller) handleEvent(ctx context.Context, event NavigationEvent, previousRefreshToken string) (*Result, bool, error) {
	switch c.state {
	case StateAwaitingAuthorizationRedirect:
		switch event.Kind {
		case NavigationStarted:
			params, matched := c.redirectParams(event.URL)
			if !matched {
				return nil, false, nil
			}
			// The redirect target is not servable; it exists only to carry
			// the code back.
			c.navigator.CancelNavigation()
			if err := c.completeAuthorization(ctx, params, previousRefreshToken); err != nil {
				return nil, false, err
			}
		case NavigationCompleted:
			// Fallback: the provider rendered a landing page instead of
			// redirecting. Scrape its anchors for the custom-scheme target.
			params, found := c.scrapeAnchors()
			if !found {
				return nil, false, nil
			}
			if err := c.completeAuthorization(ctx, params, previousRefreshToken); err != nil {
				return nil, false, err
			}
		}
		return nil, false, nil

	case StateAwaitingConsentRedirect:
		if event.Kind != NavigationStarted {
			return nil, false, nil
		}
		params, matched := consentParams(event.URL)
		if !matched {
			return nil, false, nil
		}
		c.navigator.CancelNavigation()
		if err := c.completeConsent(ctx, params); err != nil {
			return nil, false, err
		}

		// The consent leg is done; the remaining work is cookie probing
		// rather than event handling.
		result := c.captureSecondarySession(ctx)
		return result, true, nil
	}

	return nil, false, nil
}

// completeAuthorization validates the authorization redirect parameters,
// exchanges the code, and issues the consent navigation.
func (c *Controller) completeAuthorization(ctx context.Context, params url.Values, previousRefreshToken string) error {
	if errCode := params.Get("error"); errCode != "" {
		description := params.Get("error_description")
		return errorsx.NewProtocolError("capture.authorization", 0, []byte(errCode+": "+description))
	}
	if params.Get("state") != c.flow.State || params.Get("code") == "" {
		return errorsx.Wrapf(errorsx.ErrStateMismatch, "[capture.authorization]")
	}

	c.status("exchanging authorization code")
	session, err := c.engine.ExchangeCode(ctx, params.Get("code"), c.flow.Verifier, previousRefreshToken)
	if err != nil {
		return err
	}
	c.pending = session

	nonce, err := authflow.NewNonce()
	if err != nil {
		return errorsx.Wrapf(err, "[capture.authorization] generating nonce")
	}
	c.flow.ExpectedNonce = nonce

	consentURL, err := c.engine.ConsentURL(session.IDToken, nonce)
	if err != nil {
		return err
	}

	c.transition(StateAwaitingConsentRedirect)
	if err := c.navigator.Navigate(consentURL); err != nil {
		return errorsx.Wrapf(err, "[capture.authorization] opening consent URL")
	}
	return nil
}

// completeConsent validates the consent redirect's id token against the
// expected nonce and derives the game session id.
func (c *Controller) completeConsent(ctx context.Context, params url.Values) error {
	idToken := params.Get("id_token")

	nonce, _ := claims.Extract(idToken, "nonce")
	if nonce != c.flow.ExpectedNonce {
		return errorsx.Wrapf(errorsx.ErrNonceMismatch, "[capture.consent]")
	}

	c.status("creating game session")
	sessionID, err := c.engine.SessionID(ctx, idToken)
	if err != nil {
		return err
	}

	c.pending.GameSessionID = sessionID
	if c.pending.Subject == "" {
		if subject, ok := claims.Extract(idToken, "sub"); ok {
			c.pending.Subject = subject
		}
	}
	c.transition(StateCapturingSecondarySession)
	return nil
}

// captureSecondarySession probes cookie storage for the site session cookie,
// seeding it with a first-party navigation when absent. The capture is
// best-effort: a missing cookie degrades the result, it never fails the
// login.
func (c *Controller) captureSecondarySession(ctx context.Context) *Result {
	if token, found := c.probeSessionCookie(); found {
		c.pending.SecondarySessionToken = token
		c.transition(StateComplete)
		return &Result{Session: c.pending, SecondarySessionCaptured: true}
	}

	c.status("waiting for site session cookie")
	if err := c.navigator.Navigate(c.captureCfg.GetSessionCookieSeedURL()); err == nil {
		c.awaitNavigation(ctx, c.captureCfg.GetSessionCookieTimeout())
		if token, found := c.probeSessionCookie(); found {
			c.pending.SecondarySessionToken = token
			c.transition(StateComplete)
			return &Result{Session: c.pending, SecondarySessionCaptured: true}
		}
	}

	log.Warn().Str("component", "capture").Msg("site session cookie not captured, provisioning unavailable")
	c.status("site session cookie not captured")
	c.transition(StateComplete)
	return &Result{Session: c.pending, SecondarySessionCaptured: false}
}

// probeSessionCookie looks for the session cookie across the related-domain
// set.
func (c *Controller) probeSessionCookie() (string, bool) {
	for _, domain := range c.captureCfg.GetSessionCookieDomains() {
		cookies, err := c.navigator.Cookies(domain)
		if err != nil {
			continue
		}
		for _, cookie := range cookies {
			if cookie.Name == provision.SessionCookieName && cookie.Value != "" {
				return cookie.Value, true
			}
		}
	}
	return "", false
}

// awaitNavigation waits for the next completed navigation, bounded by the
// configured timeout. Closure or cancellation simply ends the wait; the
// cookie re-probe decides what happens next.
func (c *Controller) awaitNavigation(ctx context.Context, timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			return
		case event, open := <-c.navigator.Events():
			if !open || event.Kind == SurfaceClosed || event.Kind == NavigationCompleted {
				return
			}
		}
	}
}

// redirectParams matches a navigation target against the authorization
// redirect: either the custom non-HTTP scheme or the configured HTTP
// redirect URI's host and path.
func (c *Controller) redirectParams(target string) (url.Values, bool) {
	scheme := c.oauthCfg.GetCustomRedirectScheme()
	if scheme != "" && strings.HasPrefix(target, scheme) {
		return parseSchemeSuffix(strings.TrimPrefix(target, scheme)), true
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return nil, false
	}
	redirect, err := url.Parse(c.oauthCfg.GetRedirectURI())
	if err != nil {
		return nil, false
	}
	if parsed.Host != redirect.Host || parsed.Path != redirect.Path {
		return nil, false
	}
	return parsed.Query(), true
}

// scrapeAnchors re-applies redirect matching to every anchor on the rendered
// page. This is the fallback extraction path, not a separate protocol.
func (c *Controller) scrapeAnchors() (url.Values, bool) {
	raw, err := c.navigator.EvalScript(anchorScrapeScript)
	if err != nil {
		return nil, false
	}
	var hrefs []string
	if err := json.Unmarshal([]byte(raw), &hrefs); err != nil {
		return nil, false
	}

	scheme := c.oauthCfg.GetCustomRedirectScheme()
	for _, href := range hrefs {
		if scheme == "" || !strings.HasPrefix(href, scheme) {
			continue
		}
		if params, matched := c.redirectParams(href); matched {
			c.status("found redirect link on landing page")
			return params, true
		}
	}
	return nil, false
}

// consentParams matches a navigation to the localhost consent listener and
// merges parameters from both the query and the fragment, since providers
// deliver id_token in either.
func consentParams(target string) (url.Values, bool) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, false
	}
	if parsed.Hostname() != "localhost" {
		return nil, false
	}

	params := parsed.Query()
	if fragment, err := url.ParseQuery(parsed.Fragment); err == nil {
		for key, values := range fragment {
			for _, value := range values {
				params.Add(key, value)
			}
		}
	}
	if params.Get("id_token") == "" {
		return nil, false
	}
	return params, true
}

// parseSchemeSuffix reads the query-like suffix of a custom-scheme redirect.
// The provider separates pairs with commas rather than ampersands.
func parseSchemeSuffix(suffix string) url.Values {
	suffix = strings.TrimPrefix(suffix, "//")
	suffix = strings.ReplaceAll(suffix, ",", "&")
	values, err := url.ParseQuery(suffix)
	if err != nil {
		return url.Values{}
	}
	return values
}

func (c *Controller) status(message string) {
	if c.onStatus != nil {
		c.onStatus(message)
	}
}

func (c *Controller) transition(next State) {
	if c.state == StateComplete || c.state == StateFailed {
		return
	}
	log.Debug().Str("component", "capture").Str("from", c.state.String()).Str("to", next.String()).Msg("state transition")
	c.state = next
	c.status(next.String())
}

func (c *Controller) fail(err error) (*Result, error) {
	c.transition(StateFailed)
	log.Error().Str("component", "capture").Err(err).Msg("capture failed")
	return nil, err
}

// CurrentState exposes the FSM position, mainly for status display.
func (c *Controller) CurrentState() State {
	return c.state
}

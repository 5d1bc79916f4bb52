// Package provision is a thin REST client for the provider's character
// endpoints: listing an account's characters and creating a character slot.
//
// The creation endpoint's response shape is observably unreliable, so every
// ambiguous creation response falls back to a fresh list fetch rather than
// being interpreted. That trades one extra round trip for a canonical
// answer; do not optimise it away.
package provision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-launcher-auth/internal/config"
	errorsx "github.com/jrsteele09/go-launcher-auth/internal/errors"
)

// SessionCookieName is the fixed name of the site session cookie the
// provider expects on character endpoints and sets on its first-party pages.
const SessionCookieName = "runescape-accounts__session-token"

// creationPayload is the fixed body posted to the creation endpoint.
const creationPayload = `{"type":"runescape"}`

// CharacterSlot is one provisioned character on an account. Immutable value
// type, produced only from provider responses.
type CharacterSlot struct {
	ID          string `json:"accountId"`
	DisplayName string `json:"displayName"`
	OwnerHash   string `json:"userHash"`
}

// characterListResponse is the provider's list/creation response shape.
type characterListResponse struct {
	Characters []CharacterSlot `json:"characters"`
}

// Client calls the character endpoints with an account's site session
// cookie. It performs no retries; retry policy belongs to the queue.
type Client struct {
	cfg        config.ProvisionConfig
	httpClient *http.Client
}

// Option modifies a Client instance.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for character requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient validates the endpoint configuration and returns a Client.
func NewClient(cfg config.ProvisionConfig, options ...Option) (*Client, error) {
	if cfg.GetCharacterListEndpoint() == "" || cfg.GetCharacterCreateEndpoint() == "" {
		return nil, errorsx.Wrapf(errorsx.ErrMissingConfiguration, "[provision.NewClient] character endpoints")
	}

	client := &Client{
		cfg:        cfg,
		httpClient: http.DefaultClient,
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

// ListCharacters fetches the account's current character list. An empty body
// is a valid empty list; a non-2xx status is a protocol error carrying the
// status and a truncated body.
func (c *Client) ListCharacters(ctx context.Context, sessionToken string) ([]CharacterSlot, error) {
	body, err := c.do(ctx, http.MethodGet, c.cfg.GetCharacterListEndpoint(), sessionToken, "", "provision.ListCharacters")
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return []CharacterSlot{}, nil
	}

	var parsed characterListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errorsx.Wrapf(err, "[ListCharacters] decoding response")
	}
	if parsed.Characters == nil {
		return []CharacterSlot{}, nil
	}
	return parsed.Characters, nil
}

// CreateCharacterSlot posts the fixed creation payload, then normalizes the
// provider's inconsistent success responses into a canonical character list.
// In order: a non-2xx status fails; an empty body, an unparseable body, or a
// parsed-but-empty character list each trigger a fresh list fetch. Only a
// parsed, non-empty list is returned directly.
func (c *Client) CreateCharacterSlot(ctx context.Context, sessionToken string) ([]CharacterSlot, error) {
	body, err := c.do(ctx, http.MethodPost, c.cfg.GetCharacterCreateEndpoint(), sessionToken, creationPayload, "provision.CreateCharacterSlot")
	if err != nil {
		return nil, err
	}

	if len(body) == 0 {
		log.Debug().Str("component", "provision").Msg("creation returned no content, re-fetching list")
		return c.ListCharacters(ctx, sessionToken)
	}

	var parsed characterListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Debug().Str("component", "provision").Msg("creation response unparseable, re-fetching list")
		return c.ListCharacters(ctx, sessionToken)
	}
	if len(parsed.Characters) == 0 {
		// The creation response sometimes under-reports the current list.
		log.Debug().Str("component", "provision").Msg("creation response listed no characters, re-fetching list")
		return c.ListCharacters(ctx, sessionToken)
	}
	return parsed.Characters, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, sessionToken, payload, op string) ([]byte, error) {
	var reqBody io.Reader
	if payload != "" {
		reqBody = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, errorsx.Wrapf(err, "[%s] building request", op)
	}
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionToken})
	if payload != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errorsx.Wrapf(err, "[%s] request failed", op)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errorsx.Wrapf(err, "[%s] reading response", op)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorsx.NewProtocolError(op, resp.StatusCode, body)
	}
	return body, nil
}

package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultHTTPTimeout bounds every request to the provider.
const DefaultHTTPTimeout = 30 * time.Second

// Endpoints describes the identity provider's OAuth endpoints.
type Endpoints struct {
	// AuthorizationURL is the browser-facing authorization endpoint.
	AuthorizationURL string

	// RegistrationURL is the RFC 7591 dynamic client registration endpoint.
	RegistrationURL string

	// TokenURL is the token endpoint used for exchange and refresh.
	TokenURL string

	// RevocationURL is the token revocation endpoint.
	RevocationURL string
}

// TokenSet is the raw token-endpoint response for exchange and refresh.
// A refresh response may omit the refresh token; the caller decides what an
// absent refresh token means for the stored record.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Client talks to the identity provider's registration, token, and revocation
// endpoints. It holds no per-login state; PKCE material and the registered
// client id are passed in per call.
type Client struct {
	endpoints  Endpoints
	scope      string
	resource   string
	clientName string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client, e.g. for tests or proxies.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithClientName sets the client_name declared during dynamic registration.
func WithClientName(name string) ClientOption {
	return func(c *Client) { c.clientName = name }
}

// NewClient creates a provider client. scope is the space-separated scope
// string requested at registration and authorization; resource identifies the
// target API in authorization, exchange, and refresh requests.
func NewClient(endpoints Endpoints, scope, resource string, opts ...ClientOption) *Client {
	c := &Client{
		endpoints:  endpoints,
		scope:      scope,
		resource:   resource,
		clientName: "memberstack-cli",
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// registrationRequest is the RFC 7591 client metadata declared for one login
// session. The client is public: no secret, PKCE only.
type registrationRequest struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	Scope                   string   `json:"scope"`
}

type registrationResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// RegisterClient registers an ephemeral public client for the exact redirect
// URI the loopback listener will serve. A single attempt is made; a non-2xx
// response aborts the login with a RegistrationError.
func (c *Client) RegisterClient(ctx context.Context, redirectURI string) (string, error) {
	body, err := json.Marshal(registrationRequest{
		ClientName:              c.clientName,
		RedirectURIs:            []string{redirectURI},
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: "none",
		Scope:                   c.scope,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling registration request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.RegistrationURL, strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("building registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("registering client: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading registration response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RegistrationError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var reg registrationResponse
	if err := json.Unmarshal(respBody, &reg); err != nil {
		return "", fmt.Errorf("parsing registration response: %w", err)
	}
	if reg.ClientID == "" {
		return "", fmt.Errorf("registration response is missing client_id")
	}

	slog.DebugContext(ctx, "registered ephemeral oauth client", "client_id", reg.ClientID)
	return reg.ClientID, nil
}

// AuthorizationURL composes the browser-facing authorization request for the
// configured provider. Pure; no I/O.
func (c *Client) AuthorizationURL(clientID, redirectURI string, material *Material) (string, error) {
	u, err := url.Parse(c.endpoints.AuthorizationURL)
	if err != nil {
		return "", fmt.Errorf("parsing authorization endpoint: %w", err)
	}

	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {clientID},
		"redirect_uri":          {redirectURI},
		"code_challenge":        {material.CodeChallenge},
		"code_challenge_method": {"S256"},
		"state":                 {material.State},
		"scope":                 {c.scope},
		"resource":              {c.resource},
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// Exchange trades an authorization code for a token set. The code verifier
// and redirect URI must be the ones used in the authorization request.
func (c *Client) Exchange(ctx context.Context, clientID, code, redirectURI, codeVerifier string) (*TokenSet, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {clientID},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {codeVerifier},
		"resource":      {c.resource},
	}

	set, status, body, err := c.postTokenForm(ctx, form)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &TokenExchangeError{Status: status, Body: body}
	}
	return set, nil
}

// Refresh trades a refresh token for a new token set. The response may lack a
// refresh token; that is returned as-is.
func (c *Client) Refresh(ctx context.Context, clientID, refreshToken string) (*TokenSet, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {clientID},
		"refresh_token": {refreshToken},
		"resource":      {c.resource},
	}

	set, status, body, err := c.postTokenForm(ctx, form)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &TokenRefreshError{Status: status, Body: body}
	}
	return set, nil
}

// Revoke asks the provider to revoke a token. Best effort: the response is
// not inspected and failures never propagate, so logout can always complete
// locally.
func (c *Client) Revoke(ctx context.Context, clientID, token string) {
	form := url.Values{
		"client_id": {clientID},
		"token":     {token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.RevocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		slog.DebugContext(ctx, "building revocation request failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.DebugContext(ctx, "token revocation failed", "error", err)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// postTokenForm posts a form-encoded body to the token endpoint and decodes a
// token set on 2xx. The status and raw body are returned so callers can build
// their operation-specific error.
func (c *Client) postTokenForm(ctx context.Context, form url.Values) (*TokenSet, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("calling token endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, "", fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, string(body), nil
	}

	var set TokenSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, 0, "", fmt.Errorf("parsing token response: %w", err)
	}
	return &set, resp.StatusCode, "", nil
}

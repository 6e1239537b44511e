package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Flash-Brew-Digital/memberstack-cli/internal/oauth"
	"github.com/Flash-Brew-Digital/memberstack-cli/internal/tokenstore"
)

// ErrNotAuthenticated is returned when no usable access token exists and the
// operator must run `memberstack login`.
var ErrNotAuthenticated = errors.New("not authenticated: run `memberstack login`")

// expiryBuffer is the safety margin when judging token validity. A token is
// usable only if it outlives now by at least this much, covering clock skew
// and request latency.
const expiryBuffer = 60 * time.Second

// DefaultCallbackTimeout bounds how long a login waits for the browser
// redirect before giving up.
const DefaultCallbackTimeout = 5 * time.Minute

// State identifies where a login flow currently is.
type State string

const (
	StateLoggedOut        State = "logged_out"
	StateAuthorizing      State = "authorizing"
	StateAwaitingCallback State = "awaiting_callback"
	StateExchanging       State = "exchanging"
	StateLoggedIn         State = "logged_in"
)

// Status is the read-only authentication report produced by Status. It never
// reflects an error condition; invalid stored state reads as "re-login
// required".
type Status struct {
	Authenticated bool
	ExpiresAt     time.Time
	Refreshable   bool
	AppID         string
	ClientID      string
}

// Session is the facade over PKCE material generation, client registration,
// the loopback listener, token-endpoint operations, and credential storage.
// All collaborators are passed in at construction; nothing is read from
// ambient global state.
type Session struct {
	provider *oauth.Client
	store    tokenstore.Store

	callbackPath    string
	callbackTimeout time.Duration
	now             func() time.Time
	openBrowser     func(url string) error

	state State

	// refreshGroup collapses concurrent silent refreshes into one
	// token-endpoint call.
	refreshGroup singleflight.Group
}

// Option configures a Session.
type Option func(*Session)

// WithCallbackPath sets the loopback listener's callback path.
func WithCallbackPath(path string) Option {
	return func(s *Session) { s.callbackPath = path }
}

// WithCallbackTimeout sets how long Login waits for the browser redirect.
func WithCallbackTimeout(d time.Duration) Option {
	return func(s *Session) { s.callbackTimeout = d }
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithBrowserOpener sets the function used to open the authorization URL.
func WithBrowserOpener(open func(url string) error) Option {
	return func(s *Session) { s.openBrowser = open }
}

// New creates a Session over the given provider client and credential store.
func New(provider *oauth.Client, store tokenstore.Store, opts ...Option) (*Session, error) {
	if provider == nil {
		return nil, fmt.Errorf("missing provider client")
	}
	if store == nil {
		return nil, fmt.Errorf("missing credential store")
	}

	s := &Session{
		provider:        provider,
		store:           store,
		callbackPath:    oauth.DefaultCallbackPath,
		callbackTimeout: DefaultCallbackTimeout,
		now:             time.Now,
		openBrowser:     oauth.OpenBrowser,
		state:           StateLoggedOut,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State returns the current login-flow state.
func (s *Session) State() State {
	return s.state
}

// LoginOptions tune a single Login call.
type LoginOptions struct {
	// NoBrowser suppresses spawning a browser; the URL is only reported
	// through OnAuthURL.
	NoBrowser bool

	// OnAuthURL is invoked with the authorization URL once it is known, so
	// the caller can show it to the operator.
	OnAuthURL func(url string)
}

// Login runs the full authorization code flow: register an ephemeral client,
// generate PKCE material, receive the redirect on a loopback listener,
// exchange the code, and persist the resulting credentials. Any step's
// failure aborts back to logged out; the listener is always torn down.
func (s *Session) Login(ctx context.Context, opts LoginOptions) error {
	s.state = StateAuthorizing
	err := s.login(ctx, opts)
	if err != nil {
		s.state = StateLoggedOut
		return err
	}
	s.state = StateLoggedIn
	return nil
}

func (s *Session) login(ctx context.Context, opts LoginOptions) error {
	material, err := oauth.GenerateMaterial()
	if err != nil {
		return err
	}

	// The redirect URI must be known before registration, so the port is
	// probed before the real listener is bound.
	listener, err := oauth.NewCallbackListener(s.callbackPath, material.State)
	if err != nil {
		return err
	}
	defer listener.Close()

	redirectURI := listener.RedirectURI()

	clientID, err := s.provider.RegisterClient(ctx, redirectURI)
	if err != nil {
		return err
	}

	authURL, err := s.provider.AuthorizationURL(clientID, redirectURI, material)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.callbackTimeout)
	defer cancel()

	if err := listener.Start(waitCtx); err != nil {
		return err
	}
	s.state = StateAwaitingCallback

	if opts.OnAuthURL != nil {
		opts.OnAuthURL(authURL)
	}
	if !opts.NoBrowser {
		if err := s.openBrowser(authURL); err != nil {
			// Non-fatal: the operator can open the reported URL manually.
			slog.WarnContext(ctx, "could not open browser", "error", err)
		}
	}

	code, err := listener.Wait(waitCtx)
	if err != nil {
		return err
	}

	s.state = StateExchanging
	set, err := s.provider.Exchange(ctx, clientID, code, redirectURI, material.CodeVerifier)
	if err != nil {
		return err
	}

	creds := tokenstore.NewCredentials(set, clientID, s.now())
	if err := s.store.Save(ctx, creds); err != nil {
		return fmt.Errorf("persisting credentials: %w", err)
	}

	slog.InfoContext(ctx, "login complete",
		"client_id", clientID,
		"app_id", creds.AppID,
		"expires_at", time.Unix(creds.ExpiresAt, 0).Format(time.RFC3339),
	)
	return nil
}

// Logout revokes the stored token best-effort and unconditionally clears the
// credential record. Revocation failures never block logout.
func (s *Session) Logout(ctx context.Context) error {
	creds, err := s.store.Load(ctx)
	if err == nil && creds != nil {
		token := creds.RefreshToken
		if token == "" {
			token = creds.AccessToken
		}
		s.provider.Revoke(ctx, creds.ClientID, token)
	}

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	s.state = StateLoggedOut
	return nil
}

// Status reports presence, expiry, and refreshability of the stored
// credentials. Read-only; performs no network call and never fails on bad
// stored state.
func (s *Session) Status(ctx context.Context) *Status {
	creds, err := s.store.Load(ctx)
	if err != nil || creds == nil {
		return &Status{}
	}

	return &Status{
		Authenticated: s.usable(creds) || creds.RefreshToken != "",
		ExpiresAt:     time.Unix(creds.ExpiresAt, 0),
		Refreshable:   creds.RefreshToken != "",
		AppID:         creds.AppID,
		ClientID:      creds.ClientID,
	}
}

// ValidAccessToken returns an access token usable for an authenticated call.
// A stored token is returned as-is while it outlives now by the safety
// buffer; otherwise a silent refresh is attempted and the new set persisted.
// Absence and refresh failures both surface as ErrNotAuthenticated.
func (s *Session) ValidAccessToken(ctx context.Context) (string, error) {
	creds, err := s.store.Load(ctx)
	if err != nil || creds == nil {
		return "", ErrNotAuthenticated
	}

	if s.usable(creds) {
		return creds.AccessToken, nil
	}

	if creds.RefreshToken == "" {
		return "", ErrNotAuthenticated
	}

	token, err, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		return s.refresh(ctx, creds)
	})
	if err != nil {
		slog.DebugContext(ctx, "silent refresh failed", "error", err)
		return "", ErrNotAuthenticated
	}
	return token.(string), nil
}

// refresh performs the refresh grant and persists the new token set,
// preserving the registered client id.
func (s *Session) refresh(ctx context.Context, creds *tokenstore.Credentials) (string, error) {
	set, err := s.provider.Refresh(ctx, creds.ClientID, creds.RefreshToken)
	if err != nil {
		return "", err
	}

	next := tokenstore.NewCredentials(set, creds.ClientID, s.now())
	if err := s.store.Save(ctx, next); err != nil {
		return "", fmt.Errorf("persisting refreshed credentials: %w", err)
	}

	slog.DebugContext(ctx, "access token refreshed",
		"expires_at", time.Unix(next.ExpiresAt, 0).Format(time.RFC3339),
	)
	return next.AccessToken, nil
}

// AppID returns the persisted best-effort app identifier, or empty when
// absent.
func (s *Session) AppID(ctx context.Context) string {
	creds, err := s.store.Load(ctx)
	if err != nil || creds == nil {
		return ""
	}
	return creds.AppID
}

// usable reports whether the stored access token outlives now by the safety
// buffer.
func (s *Session) usable(creds *tokenstore.Credentials) bool {
	return time.Unix(creds.ExpiresAt, 0).After(s.now().Add(expiryBuffer))
}

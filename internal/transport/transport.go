// Package transport is the generic authenticated HTTP surface consumed by
// the per-resource commands. It decorates requests with the bearer token and
// app identifier produced by internal/session and is otherwise payload-blind:
// it never validates or interprets resource-specific bodies.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Transport is an http.RoundTripper that attaches the session's bearer token
// and a request correlation id to every outgoing request.
type Transport struct {
	base   http.RoundTripper
	source oauth2.TokenSource
}

// Compile-time check that Transport implements http.RoundTripper.
var _ http.RoundTripper = (*Transport)(nil)

// NewTransport creates a Transport over the given token source. If base is
// nil, http.DefaultTransport is used.
func NewTransport(source oauth2.TokenSource, base http.RoundTripper) (*Transport, error) {
	if source == nil {
		return nil, fmt.Errorf("missing token source")
	}
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, source: source}, nil
}

// RoundTrip fetches a valid token and forwards the request with the
// Authorization and X-Request-Id headers set. A token source failure is a
// hard precondition failure for the call.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return nil, err
	}

	authed := req.Clone(req.Context())
	token.SetAuthHeader(authed)
	authed.Header.Set("X-Request-Id", uuid.NewString())

	return t.base.RoundTrip(authed)
}

// Client issues authenticated requests against the Memberstack API. It only
// builds requests and returns raw responses; rendering and payload semantics
// belong to the command layer.
type Client struct {
	baseURL    string
	appID      string
	httpClient *http.Client
}

// NewClient creates a Client for the given API base URL and app id. Both are
// required: absence of the app id means the operator is not authenticated.
func NewClient(baseURL, appID string, source oauth2.TokenSource) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("missing API base URL")
	}
	if appID == "" {
		return nil, fmt.Errorf("no app identifier available: run `memberstack login`")
	}

	rt, err := NewTransport(source, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		appID:      appID,
		httpClient: &http.Client{Transport: rt},
	}, nil
}

// Do issues a single authenticated request for the given method and path.
// path is joined to the base URL; the app id travels in the X-App-Id header.
// The raw response is returned for the caller to render; no retries.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	target, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("building request URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("X-App-Id", c.appID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// Package oauth implements the browser-based login flow used to authenticate
// the CLI against the Memberstack identity provider.
//
// The flow is OAuth 2.0 Authorization Code with PKCE for a public client:
//   - a fresh code verifier, S256 challenge, and CSRF state are generated per attempt
//   - an ephemeral client is registered (RFC 7591) for the exact loopback redirect URI
//   - a one-shot HTTP listener on 127.0.0.1 receives the authorization redirect
//   - the authorization code is exchanged for tokens at the token endpoint
//
// The package also covers the two remaining token-endpoint operations: refresh
// (silent renewal of a near-expiry access token) and revocation (best-effort,
// performed on logout). Persistence of the resulting credentials lives in
// internal/tokenstore; orchestration and validity policy live in internal/session.
package oauth

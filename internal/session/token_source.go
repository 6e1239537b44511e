package session

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource adapts the session to oauth2.TokenSource for transports that
// expect one. Each Token call goes through ValidAccessToken, so near-expiry
// tokens are silently refreshed and persisted.
//
// oauth2.TokenSource has no context parameter, so the context is captured at
// construction time, mirroring how the oauth2 package itself handles this.
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &sessionTokenSource{ctx: ctx, session: s}
}

type sessionTokenSource struct {
	ctx     context.Context
	session *Session
}

// Compile-time check to ensure sessionTokenSource implements oauth2.TokenSource
var _ oauth2.TokenSource = (*sessionTokenSource)(nil)

// Token returns a valid bearer token or ErrNotAuthenticated.
func (ts *sessionTokenSource) Token() (*oauth2.Token, error) {
	access, err := ts.session.ValidAccessToken(ts.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}, nil
}

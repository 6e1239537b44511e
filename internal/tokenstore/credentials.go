package tokenstore

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/Flash-Brew-Digital/memberstack-cli/internal/oauth"
)

// Credentials is the persisted credential record.
//
// ExpiresAt is absolute epoch seconds computed at save time from the token
// endpoint's expires_in. AppID is derived opportunistically from the access
// token and is a best-effort hint, never a verified claim.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
	ClientID     string `json:"client_id"`
	AppID        string `json:"app_id,omitempty"`
}

// NewCredentials composes a record from a raw token set. expires_at is
// issue time plus expires_in; the app id is sniffed from the access token
// and simply absent when that fails.
func NewCredentials(set *oauth.TokenSet, clientID string, now time.Time) *Credentials {
	return &Credentials{
		AccessToken:  set.AccessToken,
		RefreshToken: set.RefreshToken,
		ExpiresAt:    now.Unix() + set.ExpiresIn,
		ClientID:     clientID,
		AppID:        appIDFromToken(set.AccessToken),
	}
}

// appIDFromToken decodes the JWT-like middle segment of the access token as
// base64url JSON and reads the app identifier. The token signature is not
// verified; any decode or parse failure yields an empty id, never an error.
func appIDFromToken(accessToken string) string {
	parts := strings.Split(accessToken, ".")
	if len(parts) != 3 {
		return ""
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}

	var claims struct {
		AppID string `json:"app_id"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	return claims.AppID
}

package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	// verifierBytes is the number of random bytes for the PKCE code verifier.
	// 32 bytes (256 bits) encode to 43 base64url characters, the RFC 7636 minimum.
	verifierBytes = 32

	// stateBytes is the number of random bytes for the CSRF state parameter.
	// The state binds the authorization request to its callback and is
	// unrelated to PKCE.
	stateBytes = 16
)

// GenerateCodeVerifier returns a cryptographically random PKCE code verifier,
// base64url-encoded without padding.
func GenerateCodeVerifier() (string, error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateCodeChallenge returns the S256 challenge for a code verifier: the
// SHA-256 digest of the verifier's bytes, base64url-encoded without padding.
// Deterministic for a fixed verifier.
func GenerateCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateState returns a random hex-encoded state parameter for CSRF
// protection of the authorization redirect.
func GenerateState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Material bundles the per-attempt secrets of one login flow. Generated fresh
// for every attempt and never persisted.
type Material struct {
	CodeVerifier  string
	CodeChallenge string
	State         string
}

// GenerateMaterial produces a complete set of PKCE material plus state for a
// single login attempt.
func GenerateMaterial() (*Material, error) {
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return nil, err
	}
	state, err := GenerateState()
	if err != nil {
		return nil, err
	}
	return &Material{
		CodeVerifier:  verifier,
		CodeChallenge: GenerateCodeChallenge(verifier),
		State:         state,
	}, nil
}

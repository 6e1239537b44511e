package oauth

import (
	"errors"
	"fmt"
)

// ErrCallbackTimeout is returned when the loopback listener gives up waiting
// for the browser redirect.
var ErrCallbackTimeout = errors.New("timed out waiting for authorization callback")

// RegistrationError is returned when the dynamic client registration endpoint
// responds with a non-2xx status.
type RegistrationError struct {
	Status int
	Body   string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("client registration failed with status %d: %s", e.Status, e.Body)
}

// TokenExchangeError is returned when the authorization-code exchange fails.
type TokenExchangeError struct {
	Status int
	Body   string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d: %s", e.Status, e.Body)
}

// TokenRefreshError is returned when a refresh-token grant fails. Callers
// treat it as "not authenticated" rather than a hard failure; the expected
// recovery is a fresh login.
type TokenRefreshError struct {
	Status int
	Body   string
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("token refresh failed with status %d: %s", e.Status, e.Body)
}

// CallbackErrorReason classifies why a callback was rejected.
type CallbackErrorReason string

const (
	// CallbackDenied: the provider redirected back with an error parameter.
	CallbackDenied CallbackErrorReason = "provider_denied"

	// CallbackMissingParameter: the redirect lacked code or state.
	CallbackMissingParameter CallbackErrorReason = "missing_parameter"

	// CallbackStateMismatch: the state parameter did not match the one sent
	// in the authorization request.
	CallbackStateMismatch CallbackErrorReason = "state_mismatch"
)

// CallbackError is returned when the authorization redirect cannot be turned
// into an authorization code.
type CallbackError struct {
	Reason  CallbackErrorReason
	Message string
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("authorization callback failed (%s): %s", e.Reason, e.Message)
}

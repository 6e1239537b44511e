package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func testEndpoints(base string) Endpoints {
	return Endpoints{
		AuthorizationURL: base + "/authorize",
		RegistrationURL:  base + "/register",
		TokenURL:         base + "/token",
		RevocationURL:    base + "/revoke",
	}
}

func TestRegisterClient(t *testing.T) {
	var gotBody registrationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/register" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decoding registration body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"client_id":"c1"}`))
	}))
	defer srv.Close()

	c := NewClient(testEndpoints(srv.URL), "apps:read", "https://api.example.com")

	clientID, err := c.RegisterClient(context.Background(), "http://127.0.0.1:4242/callback")
	if err != nil {
		t.Fatalf("RegisterClient: %v", err)
	}
	if clientID != "c1" {
		t.Errorf("client_id = %q, want c1", clientID)
	}

	if gotBody.TokenEndpointAuthMethod != "none" {
		t.Errorf("token_endpoint_auth_method = %q, want none", gotBody.TokenEndpointAuthMethod)
	}
	if len(gotBody.RedirectURIs) != 1 || gotBody.RedirectURIs[0] != "http://127.0.0.1:4242/callback" {
		t.Errorf("redirect_uris = %v", gotBody.RedirectURIs)
	}
	wantGrants := []string{"authorization_code", "refresh_token"}
	if len(gotBody.GrantTypes) != 2 || gotBody.GrantTypes[0] != wantGrants[0] || gotBody.GrantTypes[1] != wantGrants[1] {
		t.Errorf("grant_types = %v, want %v", gotBody.GrantTypes, wantGrants)
	}
	if len(gotBody.ResponseTypes) != 1 || gotBody.ResponseTypes[0] != "code" {
		t.Errorf("response_types = %v, want [code]", gotBody.ResponseTypes)
	}
	if gotBody.Scope != "apps:read" {
		t.Errorf("scope = %q", gotBody.Scope)
	}
}

func TestRegisterClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("registration closed"))
	}))
	defer srv.Close()

	c := NewClient(testEndpoints(srv.URL), "s", "r")

	_, err := c.RegisterClient(context.Background(), "http://127.0.0.1:1/callback")
	var regErr *RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("error = %v, want *RegistrationError", err)
	}
	if regErr.Status != http.StatusForbidden || regErr.Body != "registration closed" {
		t.Errorf("RegistrationError = %+v", regErr)
	}
}

func TestAuthorizationURL(t *testing.T) {
	c := NewClient(Endpoints{AuthorizationURL: "https://auth.example.com/authorize"},
		"apps:read members:read", "https://api.example.com")

	material := &Material{
		CodeVerifier:  "verifier",
		CodeChallenge: "challenge",
		State:         "state123",
	}

	raw, err := c.AuthorizationURL("c1", "http://127.0.0.1:4242/callback", material)
	if err != nil {
		t.Fatalf("AuthorizationURL: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parsing result: %v", err)
	}

	q := u.Query()
	want := map[string]string{
		"response_type":         "code",
		"client_id":             "c1",
		"redirect_uri":          "http://127.0.0.1:4242/callback",
		"code_challenge":        "challenge",
		"code_challenge_method": "S256",
		"state":                 "state123",
		"scope":                 "apps:read members:read",
		"resource":              "https://api.example.com",
	}
	for key, value := range want {
		if got := q.Get(key); got != value {
			t.Errorf("query %s = %q, want %q", key, got, value)
		}
	}
}

func TestExchange(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		gotForm = r.PostForm
		_, _ = w.Write([]byte(`{"access_token":"at1","refresh_token":"rt1","expires_in":3600,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	c := NewClient(testEndpoints(srv.URL), "s", "https://api.example.com")

	set, err := c.Exchange(context.Background(), "c1", "auth_code", "http://127.0.0.1:4242/callback", "verifier")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}

	if set.AccessToken != "at1" || set.RefreshToken != "rt1" || set.ExpiresIn != 3600 {
		t.Errorf("token set = %+v", set)
	}

	want := map[string]string{
		"grant_type":    "authorization_code",
		"client_id":     "c1",
		"code":          "auth_code",
		"redirect_uri":  "http://127.0.0.1:4242/callback",
		"code_verifier": "verifier",
		"resource":      "https://api.example.com",
	}
	for key, value := range want {
		if got := gotForm.Get(key); got != value {
			t.Errorf("form %s = %q, want %q", key, got, value)
		}
	}
}

func TestExchangeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	c := NewClient(testEndpoints(srv.URL), "s", "r")

	_, err := c.Exchange(context.Background(), "c1", "bad", "uri", "verifier")
	var exErr *TokenExchangeError
	if !errors.As(err, &exErr) {
		t.Fatalf("error = %v, want *TokenExchangeError", err)
	}
	if exErr.Status != http.StatusBadRequest {
		t.Errorf("status = %d", exErr.Status)
	}
}

func TestRefresh(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		gotForm = r.PostForm
		// No refresh_token re-issued: callers deal with its absence.
		_, _ = w.Write([]byte(`{"access_token":"at2","expires_in":1800,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	c := NewClient(testEndpoints(srv.URL), "s", "https://api.example.com")

	set, err := c.Refresh(context.Background(), "c1", "rt1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if set.AccessToken != "at2" || set.RefreshToken != "" {
		t.Errorf("token set = %+v", set)
	}

	if gotForm.Get("grant_type") != "refresh_token" || gotForm.Get("refresh_token") != "rt1" {
		t.Errorf("form = %v", gotForm)
	}
}

func TestRefreshError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	c := NewClient(testEndpoints(srv.URL), "s", "r")

	_, err := c.Refresh(context.Background(), "c1", "stale")
	var refErr *TokenRefreshError
	if !errors.As(err, &refErr) {
		t.Fatalf("error = %v, want *TokenRefreshError", err)
	}
}

func TestRevokeBestEffort(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		gotForm = r.PostForm
		// A failing revocation endpoint must never surface.
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testEndpoints(srv.URL), "s", "r")
	c.Revoke(context.Background(), "c1", "rt1")

	if gotForm.Get("client_id") != "c1" || gotForm.Get("token") != "rt1" {
		t.Errorf("form = %v", gotForm)
	}

	// Unreachable endpoint: still no panic, nothing to assert beyond return.
	dead := NewClient(Endpoints{RevocationURL: "http://127.0.0.1:1/revoke"}, "s", "r")
	dead.Revoke(context.Background(), "c1", "rt1")
}

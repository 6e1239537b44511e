package tokenstore

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Flash-Brew-Digital/memberstack-cli/internal/oauth"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store, path
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	creds := &Credentials{
		AccessToken:  "at1",
		RefreshToken: "rt1",
		ExpiresAt:    time.Now().Unix() + 3600,
		ClientID:     "c1",
		AppID:        "app_123",
	}
	if err := store.Save(ctx, creds); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load returned nil after Save")
	}
	if *loaded != *creds {
		t.Errorf("Load = %+v, want %+v", loaded, creds)
	}
}

func TestFileStoreLoadAbsent(t *testing.T) {
	store, _ := newTestStore(t)

	creds, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if creds != nil {
		t.Errorf("Load of missing file = %+v, want nil", creds)
	}
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	store, path := newTestStore(t)

	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	creds, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if creds != nil {
		t.Errorf("Load of corrupt file = %+v, want nil", creds)
	}
}

func TestFileStoreLoadEmptyAccessToken(t *testing.T) {
	store, path := newTestStore(t)

	if err := os.WriteFile(path, []byte(`{"access_token":""}`), 0600); err != nil {
		t.Fatal(err)
	}

	creds, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if creds != nil {
		t.Errorf("Load of empty record = %+v, want nil", creds)
	}
}

func TestFileStorePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}

	store, path := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &Credentials{AccessToken: "at1", ClientID: "c1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file perm = %o, want 0600", perm)
	}

	dirInfo, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if perm := dirInfo.Mode().Perm(); perm != 0700 {
		t.Errorf("dir perm = %o, want 0700", perm)
	}
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &Credentials{AccessToken: "old", ClientID: "c1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, &Credentials{AccessToken: "new", ClientID: "c1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.AccessToken != "new" {
		t.Errorf("AccessToken = %q, want new", loaded.AccessToken)
	}
}

func TestFileStoreClear(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &Credentials{AccessToken: "at1", ClientID: "c1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after Clear")
	}

	// Clearing again is a no-op.
	if err := store.Clear(ctx); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestNewFileStoreEmptyPath(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestNewCredentials(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	set := &oauth.TokenSet{
		AccessToken:  "at1",
		RefreshToken: "rt1",
		ExpiresIn:    3600,
	}

	creds := NewCredentials(set, "c1", now)
	if creds.ExpiresAt != now.Unix()+3600 {
		t.Errorf("ExpiresAt = %d, want %d", creds.ExpiresAt, now.Unix()+3600)
	}
	if creds.AccessToken != "at1" || creds.RefreshToken != "rt1" || creds.ClientID != "c1" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
}

func jwtWithPayload(t *testing.T, payload string) string {
	t.Helper()
	enc := base64.RawURLEncoding.EncodeToString
	return enc([]byte(`{"alg":"none"}`)) + "." + enc([]byte(payload)) + ".sig"
}

func TestAppIDFromToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"valid claim", "", "app_abc123"},
		{"no claim", "", ""},
		{"opaque token", "not-a-jwt", ""},
		{"two segments", "aaaa.bbbb", ""},
		{"bad base64", "a.!!!.c", ""},
		{"non-json payload", "", ""},
	}
	tests[0].token = jwtWithPayload(t, `{"app_id":"app_abc123"}`)
	tests[1].token = jwtWithPayload(t, `{"sub":"member"}`)
	tests[5].token = jwtWithPayload(t, `not json`)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := appIDFromToken(tt.token); got != tt.want {
				t.Errorf("appIDFromToken(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tabfetch/tabfetch/config"
	"github.com/tabfetch/tabfetch/fetch"
	"github.com/tabfetch/tabfetch/models"
)

func TestInject_NoConfigIsNoop(t *testing.T) {
	m := NewManager(nil)
	req := &fetch.Request{URL: "https://x.example"}
	if err := m.Inject(req, "site", nil); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if len(req.Headers) != 0 || len(req.Cookies) != 0 {
		t.Error("nil auth config must not touch the request")
	}
}

func TestInject_APIKeyInline(t *testing.T) {
	m := NewManager(nil)
	req := &fetch.Request{}
	cfg := &config.AuthConfig{APIKey: &config.APIKeyAuth{Key: "s3cret"}}

	if err := m.Inject(req, "site", cfg); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if got := req.Headers["Authorization"]; got != "Bearer s3cret" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestInject_APIKeyFromEnvWithFormat(t *testing.T) {
	t.Setenv("TEST_SITE_KEY", "envkey")
	m := NewManager(nil)
	req := &fetch.Request{}
	cfg := &config.AuthConfig{APIKey: &config.APIKeyAuth{
		Header: "X-Api-Key",
		Format: "{key}",
		KeyEnv: "TEST_SITE_KEY",
	}}

	if err := m.Inject(req, "site", cfg); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if got := req.Headers["X-Api-Key"]; got != "envkey" {
		t.Errorf("X-Api-Key = %q", got)
	}
}

func TestInject_MissingKeyIsAuthError(t *testing.T) {
	m := NewManager(nil)
	cfg := &config.AuthConfig{APIKey: &config.APIKeyAuth{KeyEnv: "DEFINITELY_UNSET_KEY_VAR"}}

	err := m.Inject(&fetch.Request{}, "quotes", cfg)
	var authErr *models.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthError", err)
	}
	if authErr.SiteID != "quotes" {
		t.Errorf("SiteID = %q", authErr.SiteID)
	}
}

func TestInject_CookieFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	future := time.Now().Add(24 * time.Hour).Unix()
	content := fmt.Sprintf("# Netscape HTTP Cookie File\n"+
		".example.com\tTRUE\t/\tFALSE\t%d\tsession_id\tabc123\n"+
		".example.com\tTRUE\t/\tFALSE\t1\texpired\tgone\n", future)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	m := NewManager(nil)
	req := &fetch.Request{}
	cfg := &config.AuthConfig{Cookies: &config.CookieAuth{File: path}}

	if err := m.Inject(req, "site", cfg); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if len(req.Cookies) != 1 {
		t.Fatalf("got %d cookies, want 1 (expired skipped)", len(req.Cookies))
	}
	if req.Cookies[0].Name != "session_id" || req.Cookies[0].Value != "abc123" {
		t.Errorf("cookie = %+v", req.Cookies[0])
	}
}

func TestInject_CookieFileMissing(t *testing.T) {
	m := NewManager(nil)
	cfg := &config.AuthConfig{Cookies: &config.CookieAuth{File: "/nonexistent/cookies.txt"}}

	err := m.Inject(&fetch.Request{}, "site", cfg)
	var authErr *models.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthError", err)
	}
}

func TestInject_SessionCookies(t *testing.T) {
	m := NewManager(nil)
	req := &fetch.Request{}
	cfg := &config.AuthConfig{Session: &config.SessionAuth{
		Cookies: map[string]string{"sid": "v1"},
		Timeout: 3600,
	}}

	if err := m.Inject(req, "site", cfg); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if len(req.Cookies) != 1 || req.Cookies[0].Name != "sid" {
		t.Errorf("cookies = %+v", req.Cookies)
	}
}

func TestInject_StaleSessionRefreshed(t *testing.T) {
	refreshed := false
	m := NewManager(func(siteID string) (map[string]string, error) {
		refreshed = true
		return map[string]string{"sid": "fresh"}, nil
	})

	now := time.Now()
	m.now = func() time.Time { return now }

	cfg := &config.AuthConfig{Session: &config.SessionAuth{
		Cookies: map[string]string{"sid": "stale"},
		Timeout: 60,
	}}
	if err := m.Inject(&fetch.Request{}, "site", cfg); err != nil {
		t.Fatal(err)
	}
	if refreshed {
		t.Fatal("fresh session must not be refreshed")
	}

	// Jump past the session timeout.
	m.now = func() time.Time { return now.Add(2 * time.Minute) }
	req := &fetch.Request{}
	if err := m.Inject(req, "site", cfg); err != nil {
		t.Fatal(err)
	}
	if !refreshed {
		t.Fatal("stale session was not refreshed")
	}
	if req.Cookies[0].Value != "fresh" {
		t.Errorf("cookie value = %q, want refreshed value", req.Cookies[0].Value)
	}
}

func TestInject_StaleSessionWithoutRefresherStillInjects(t *testing.T) {
	m := NewManager(nil)
	now := time.Now()
	m.now = func() time.Time { return now }

	cfg := &config.AuthConfig{Session: &config.SessionAuth{
		Cookies: map[string]string{"sid": "old"},
		Timeout: 60,
	}}
	if err := m.Inject(&fetch.Request{}, "site", cfg); err != nil {
		t.Fatal(err)
	}

	m.now = func() time.Time { return now.Add(time.Hour) }
	req := &fetch.Request{}
	if err := m.Inject(req, "site", cfg); err != nil {
		t.Fatalf("stale session without refresher must still inject: %v", err)
	}
	if len(req.Cookies) != 1 || req.Cookies[0].Value != "old" {
		t.Errorf("cookies = %+v", req.Cookies)
	}
}

func TestSessionAge(t *testing.T) {
	m := NewManager(nil)
	if _, ok := m.SessionAge("never-seen"); ok {
		t.Error("unknown site should have no session age")
	}

	cfg := &config.AuthConfig{Session: &config.SessionAuth{Cookies: map[string]string{"a": "b"}}}
	if err := m.Inject(&fetch.Request{}, "site", cfg); err != nil {
		t.Fatal(err)
	}
	if age, ok := m.SessionAge("site"); !ok || age < 0 {
		t.Errorf("SessionAge = %v, %v", age, ok)
	}
}

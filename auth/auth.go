// Package auth injects per-site credentials into outgoing requests.
// Exactly one injection mechanism is active per request: an API key
// header, a cookie jar loaded from a browser export, or named session
// cookies with timeout-driven refresh.
package auth

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tabfetch/tabfetch/config"
	"github.com/tabfetch/tabfetch/fetch"
	"github.com/tabfetch/tabfetch/models"
)

const (
	defaultHeader  = "Authorization"
	defaultFormat  = "Bearer {key}"
	defaultTimeout = 3600 * time.Second
)

// RefreshFunc re-authenticates a stale session and returns fresh cookie
// values. It is an external collaborator; nil means no refresh support.
type RefreshFunc func(siteID string) (map[string]string, error)

type sessionState struct {
	cookies     map[string]string
	lastRefresh time.Time
}

// Manager resolves and injects credentials. Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
	refresh  RefreshFunc
	now      func() time.Time
}

// NewManager builds a Manager. refresh may be nil.
func NewManager(refresh RefreshFunc) *Manager {
	return &Manager{
		sessions: make(map[string]*sessionState),
		refresh:  refresh,
		now:      time.Now,
	}
}

// Inject applies the site's single configured credential mechanism to
// the request. A required-but-absent credential is an *models.AuthError,
// which is fatal for the site.
func (m *Manager) Inject(req *fetch.Request, siteID string, cfg *config.AuthConfig) error {
	if cfg == nil {
		return nil
	}
	switch {
	case cfg.APIKey != nil:
		return m.injectAPIKey(req, siteID, cfg.APIKey)
	case cfg.Cookies != nil:
		return m.injectCookieFile(req, siteID, cfg.Cookies)
	case cfg.Session != nil:
		return m.injectSession(req, siteID, cfg.Session)
	}
	return nil
}

func (m *Manager) injectAPIKey(req *fetch.Request, siteID string, cfg *config.APIKeyAuth) error {
	key := cfg.Key
	if key == "" && cfg.KeyEnv != "" {
		key = os.Getenv(cfg.KeyEnv)
	}
	if key == "" {
		return &models.AuthError{
			SiteID: siteID,
			Reason: "api key not configured and " + cfg.KeyEnv + " is unset",
		}
	}

	header := cfg.Header
	if header == "" {
		header = defaultHeader
	}
	format := cfg.Format
	if format == "" {
		format = defaultFormat
	}
	if req.Headers == nil {
		req.Headers = make(map[string]string, 1)
	}
	req.Headers[header] = strings.ReplaceAll(format, "{key}", key)
	return nil
}

func (m *Manager) injectCookieFile(req *fetch.Request, siteID string, cfg *config.CookieAuth) error {
	jar, err := LoadCookieFile(cfg.File)
	if err != nil {
		return &models.AuthError{SiteID: siteID, Reason: "cookie jar unavailable", Err: err}
	}
	req.Cookies = append(req.Cookies, jar...)
	return nil
}

func (m *Manager) injectSession(req *fetch.Request, siteID string, cfg *config.SessionAuth) error {
	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	m.mu.Lock()
	state, ok := m.sessions[siteID]
	if !ok {
		state = &sessionState{cookies: cloneCookies(cfg.Cookies), lastRefresh: m.now()}
		m.sessions[siteID] = state
	}

	if m.now().Sub(state.lastRefresh) > timeout {
		if m.refresh != nil {
			fresh, err := m.refresh(siteID)
			if err != nil {
				m.mu.Unlock()
				return &models.AuthError{SiteID: siteID, Reason: "session refresh failed", Err: err}
			}
			state.cookies = cloneCookies(fresh)
			state.lastRefresh = m.now()
		} else {
			// No refresh collaborator: inject the stale session as-is.
			slog.Warn("session past timeout with no refresher", "site", siteID)
		}
	}
	cookies := cloneCookies(state.cookies)
	m.mu.Unlock()

	if len(cookies) == 0 {
		return &models.AuthError{SiteID: siteID, Reason: "session has no cookies configured"}
	}
	for name, value := range cookies {
		req.Cookies = append(req.Cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	return nil
}

// SessionAge reports how long ago the site's session was refreshed.
func (m *Manager) SessionAge(siteID string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[siteID]
	if !ok {
		return 0, false
	}
	return m.now().Sub(state.lastRefresh), true
}

func cloneCookies(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

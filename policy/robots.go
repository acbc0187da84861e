// Package policy decides whether a fetch may proceed under a site's
// published crawler rules. The decision is advisory-free: Disallowed is
// terminal and can never be overridden; only Unknown may be bypassed,
// and only when the caller explicitly asks.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/tabfetch/tabfetch/fetch"
	"github.com/tabfetch/tabfetch/models"
	"github.com/temoto/robotstxt"
)

// Fetcher is the transport used to retrieve robots.txt. Satisfied by
// *fetch.Client.
type Fetcher interface {
	Do(ctx context.Context, req *fetch.Request) (*fetch.Response, error)
}

// Gate checks and enforces crawl permissions.
type Gate struct {
	fetcher   Fetcher
	userAgent string
}

// NewGate builds a Gate that identifies itself as userAgent when
// matching robots.txt groups.
func NewGate(fetcher Fetcher, userAgent string) *Gate {
	return &Gate{fetcher: fetcher, userAgent: userAgent}
}

// Check fetches and parses the origin's robots.txt for the target URL.
// Unreachable, absent, or unparseable permission files all yield
// Unknown: proceeding then requires the caller's explicit override.
func (g *Gate) Check(ctx context.Context, target string) models.RobotsPolicy {
	now := time.Now().UTC()
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return models.RobotsPolicy{Status: models.RobotsUnknown, LastChecked: now}
	}

	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	resp, err := g.fetcher.Do(ctx, &fetch.Request{URL: robotsURL})
	if err != nil {
		slog.Debug("robots.txt absent or unreachable", "url", robotsURL, "error", err)
		return models.RobotsPolicy{Status: models.RobotsUnknown, LastChecked: now}
	}

	data, err := robotstxt.FromBytes(resp.Body)
	if err != nil {
		return models.RobotsPolicy{Status: models.RobotsUnknown, LastChecked: now}
	}

	group := data.FindGroup(g.userAgent)
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if group.Test(path) {
		return models.RobotsPolicy{Status: models.RobotsAllowed, LastChecked: now}
	}
	return models.RobotsPolicy{Status: models.RobotsDisallowed, LastChecked: now}
}

// Decide is the pure gate decision. It returns a *models.PolicyError
// when the policy forbids the run: Disallowed unconditionally, Unknown
// unless the caller requested an override.
func Decide(target string, policy models.RobotsPolicy, overrideRequested bool) error {
	switch policy.Status {
	case models.RobotsAllowed:
		return nil
	case models.RobotsDisallowed:
		// Never overridable.
		return &models.PolicyError{
			URL:    target,
			Status: policy.Status,
			Reason: "robots.txt disallows this path",
		}
	case models.RobotsUnknown:
		if overrideRequested {
			return nil
		}
		return &models.PolicyError{
			URL:    target,
			Status: policy.Status,
			Reason: "robots.txt status unknown; pass override to proceed",
		}
	}
	return &models.PolicyError{
		URL:    target,
		Status: policy.Status,
		Reason: fmt.Sprintf("unrecognized robots status %q", policy.Status),
	}
}

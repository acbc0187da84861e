package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/tabfetch/tabfetch/fetch"
	"github.com/tabfetch/tabfetch/models"
)

type stubFetcher struct {
	body []byte
	err  error
	url  string
}

func (s *stubFetcher) Do(_ context.Context, req *fetch.Request) (*fetch.Response, error) {
	s.url = req.URL
	if s.err != nil {
		return nil, s.err
	}
	return &fetch.Response{StatusCode: 200, Body: s.body}, nil
}

const robotsBody = "User-agent: *\nDisallow: /private\nAllow: /\n"

func TestCheck_AllowedAndDisallowed(t *testing.T) {
	gate := NewGate(&stubFetcher{body: []byte(robotsBody)}, "tabfetch/1.0")

	policy := gate.Check(context.Background(), "https://site.example/data/table")
	if policy.Status != models.RobotsAllowed {
		t.Errorf("public path = %v, want ALLOWED", policy.Status)
	}

	policy = gate.Check(context.Background(), "https://site.example/private/feed")
	if policy.Status != models.RobotsDisallowed {
		t.Errorf("private path = %v, want DISALLOWED", policy.Status)
	}
}

func TestCheck_FetchesOriginRobots(t *testing.T) {
	fetcher := &stubFetcher{body: []byte(robotsBody)}
	gate := NewGate(fetcher, "tabfetch/1.0")

	gate.Check(context.Background(), "https://site.example/a/b/c?x=1")
	if fetcher.url != "https://site.example/robots.txt" {
		t.Errorf("fetched %q, want the origin robots.txt", fetcher.url)
	}
}

func TestCheck_AbsentRobotsIsUnknown(t *testing.T) {
	// A site without a published robots.txt gives no permission signal,
	// so proceeding needs the caller's explicit override.
	gate := NewGate(&stubFetcher{err: &models.StatusError{StatusCode: 404}}, "tabfetch/1.0")
	policy := gate.Check(context.Background(), "https://site.example/data")
	if policy.Status != models.RobotsUnknown {
		t.Errorf("404 robots.txt = %v, want UNKNOWN", policy.Status)
	}
}

func TestCheck_UnreachableIsUnknown(t *testing.T) {
	gate := NewGate(&stubFetcher{err: errors.New("connection refused")}, "tabfetch/1.0")
	policy := gate.Check(context.Background(), "https://site.example/data")
	if policy.Status != models.RobotsUnknown {
		t.Errorf("unreachable robots.txt = %v, want UNKNOWN", policy.Status)
	}
}

func TestDecide(t *testing.T) {
	target := "https://site.example/data"

	tests := []struct {
		name     string
		status   models.RobotsStatus
		override bool
		wantErr  bool
	}{
		{"allowed", models.RobotsAllowed, false, false},
		{"allowed with override", models.RobotsAllowed, true, false},
		{"unknown blocks by default", models.RobotsUnknown, false, true},
		{"unknown with override proceeds", models.RobotsUnknown, true, false},
		{"disallowed blocks", models.RobotsDisallowed, false, true},
		{"disallowed ignores override", models.RobotsDisallowed, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decide(target, models.RobotsPolicy{Status: tt.status}, tt.override)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decide(%v, override=%v) err = %v, wantErr %v", tt.status, tt.override, err, tt.wantErr)
			}
			if err != nil {
				var policyErr *models.PolicyError
				if !errors.As(err, &policyErr) {
					t.Fatalf("error type = %T, want *models.PolicyError", err)
				}
				if policyErr.Status != tt.status {
					t.Errorf("error status = %v, want %v", policyErr.Status, tt.status)
				}
			}
		})
	}
}

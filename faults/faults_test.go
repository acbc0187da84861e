package faults

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/tabfetch/tabfetch/models"
)

func TestClassify_StatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *models.StatusError
		want models.ErrorKind
	}{
		{"unauthorized", &models.StatusError{StatusCode: 401}, models.KindAuthFailure},
		{"forbidden", &models.StatusError{StatusCode: 403}, models.KindBotDetected},
		{"not found", &models.StatusError{StatusCode: 404}, models.KindNotFound},
		{"gone", &models.StatusError{StatusCode: 410}, models.KindNotFound},
		{"throttled", &models.StatusError{StatusCode: 429}, models.KindRateLimited},
		{"server error", &models.StatusError{StatusCode: 500}, models.KindNetwork},
		{"bad gateway", &models.StatusError{StatusCode: 502}, models.KindNetwork},
		{"teapot", &models.StatusError{StatusCode: 418}, models.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%d) = %v, want %v", tt.err.StatusCode, got, tt.want)
			}
		})
	}
}

func TestClassify_BotMarkersBeatStatus(t *testing.T) {
	// A challenge page can come back with any status; the markup decides.
	err := &models.StatusError{
		StatusCode: 503,
		Snippet:    "<html><title>Just a moment...</title>Checking if you are a robot. cloudflare</html>",
	}
	if got := Classify(err); got != models.KindBotDetected {
		t.Errorf("Classify(challenge page) = %v, want bot_detected", got)
	}
}

func TestClassify_WrappedErrors(t *testing.T) {
	authErr := fmt.Errorf("chain: %w", &models.AuthError{SiteID: "x", Reason: "no key"})
	if got := Classify(authErr); got != models.KindAuthFailure {
		t.Errorf("wrapped auth error = %v", got)
	}

	parseErr := fmt.Errorf("strategy: %w", &models.ParseError{Strategy: models.StrategyCSV, Reason: "bad"})
	if got := Classify(parseErr); got != models.KindParseFailure {
		t.Errorf("wrapped parse error = %v", got)
	}
}

func TestClassify_TransportErrors(t *testing.T) {
	if got := Classify(context.DeadlineExceeded); got != models.KindTimeout {
		t.Errorf("deadline = %v, want timeout", got)
	}
	var opErr error = &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	if got := Classify(opErr); got != models.KindNetwork {
		t.Errorf("op error = %v, want network", got)
	}
	dnsErr := &net.DNSError{Name: "nohost.example", IsNotFound: true}
	if got := Classify(fmt.Errorf("fetch: %w", dnsErr)); got != models.KindNetwork {
		t.Errorf("dns error = %v, want network", got)
	}
	if got := Classify(errors.New("something odd")); got != models.KindUnknown {
		t.Errorf("plain error = %v, want unknown", got)
	}
}

func TestActionFor(t *testing.T) {
	tests := []struct {
		kind models.ErrorKind
		want models.RecoveryAction
	}{
		{models.KindNetwork, models.RetrySameStrategy},
		{models.KindTimeout, models.RetrySameStrategy},
		{models.KindRateLimited, models.RetrySameStrategy},
		{models.KindAuthFailure, models.Abort},
		{models.KindBotDetected, models.FallbackNextStrategy},
		{models.KindParseFailure, models.FallbackNextStrategy},
		{models.KindNotFound, models.FallbackNextStrategy},
		{models.KindUnknown, models.FallbackNextStrategy},
	}
	for _, tt := range tests {
		if got := ActionFor(tt.kind); got != tt.want {
			t.Errorf("ActionFor(%v) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	max := time.Second

	for attempt := 1; attempt <= 6; attempt++ {
		d := Backoff(base, max, attempt)
		if d < base {
			t.Errorf("attempt %d: backoff %v below base", attempt, d)
		}
		// Cap plus the 25% jitter allowance.
		if d > max+max/4 {
			t.Errorf("attempt %d: backoff %v exceeds cap", attempt, d)
		}
	}

	if d := Backoff(0, max, 3); d != 0 {
		t.Errorf("zero base should disable backoff, got %v", d)
	}
}

func TestBackoff_Grows(t *testing.T) {
	base := 100 * time.Millisecond
	max := time.Minute
	// Jitter adds at most 25%, so the deterministic floor still orders
	// attempt 1 strictly below attempt 3.
	first := Backoff(base, max, 1)
	third := Backoff(base, max, 3)
	if third <= first-first/4 {
		t.Errorf("backoff not growing: attempt1=%v attempt3=%v", first, third)
	}
}

func TestRetryAfter(t *testing.T) {
	err := &models.StatusError{StatusCode: 429, RetryAfter: 30 * time.Second}
	if got := RetryAfter(fmt.Errorf("w: %w", err)); got != 30*time.Second {
		t.Errorf("RetryAfter = %v", got)
	}
	if got := RetryAfter(errors.New("other")); got != 0 {
		t.Errorf("RetryAfter(non-status) = %v, want 0", got)
	}
}

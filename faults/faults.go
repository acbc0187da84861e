// Package faults classifies extraction failures and maps each kind to
// a recovery action. Classification is conservative: anything not
// positively identified stays Unknown and moves the chain along rather
// than burning retries on it.
package faults

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/tabfetch/tabfetch/models"
)

// botMarkers identify challenge and block pages in response bodies.
// Matched case-insensitively against the stored body snippet.
var botMarkers = []string{
	"cloudflare",
	"captcha",
	"are you a robot",
	"access denied",
	"unusual traffic",
	"request blocked",
	"challenge-platform",
	"perimeterx",
	"datadome",
	"incapsula",
}

// Classify maps a strategy attempt error to its failure kind.
func Classify(err error) models.ErrorKind {
	if err == nil {
		return models.KindUnknown
	}

	var authErr *models.AuthError
	if errors.As(err, &authErr) {
		return models.KindAuthFailure
	}

	var statusErr *models.StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr)
	}

	var parseErr *models.ParseError
	if errors.As(err, &parseErr) {
		return models.KindParseFailure
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return models.KindTimeout
		}
		return models.KindNetwork
	}
	if errors.Is(err, context.Canceled) {
		return models.KindTimeout
	}

	return models.KindUnknown
}

func classifyStatus(err *models.StatusError) models.ErrorKind {
	if looksLikeBotPage(err.Snippet) {
		return models.KindBotDetected
	}
	switch {
	case err.StatusCode == 401:
		return models.KindAuthFailure
	case err.StatusCode == 403:
		// A bare 403 without challenge markup still reads as a block.
		return models.KindBotDetected
	case err.StatusCode == 404 || err.StatusCode == 410:
		return models.KindNotFound
	case err.StatusCode == 429:
		return models.KindRateLimited
	case err.StatusCode >= 500:
		return models.KindNetwork
	default:
		return models.KindUnknown
	}
}

func looksLikeBotPage(snippet string) bool {
	if snippet == "" {
		return false
	}
	lower := strings.ToLower(snippet)
	for _, marker := range botMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ActionFor maps a failure kind to the chain's recovery action.
//
// Transient transport faults retry the same strategy; a rate limit
// retries after the advertised wait without spending the retry budget;
// an auth failure aborts the whole run because every later strategy
// would present the same rejected credentials. Everything else falls
// through to the next strategy.
func ActionFor(kind models.ErrorKind) models.RecoveryAction {
	switch kind {
	case models.KindNetwork, models.KindTimeout, models.KindRateLimited:
		return models.RetrySameStrategy
	case models.KindAuthFailure:
		return models.Abort
	default:
		return models.FallbackNextStrategy
	}
}

// Backoff computes the wait before retry number attempt (1-based):
// exponential growth from base, capped at max, with up to 25% random
// jitter added so synchronized clients spread out.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			d = max
			break
		}
	}
	if max > 0 && d > max {
		d = max
	}
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

// RetryAfter extracts the advertised wait from a rate-limit response,
// or 0 when the server did not send one.
func RetryAfter(err error) time.Duration {
	var statusErr *models.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.RetryAfter
	}
	return 0
}

package models

import (
	"fmt"
	"time"
)

// ErrorKind classifies a failed extraction attempt. The classifier maps
// each kind to a RecoveryAction; see faults.ActionFor.
type ErrorKind string

const (
	KindNetwork      ErrorKind = "network"
	KindTimeout      ErrorKind = "timeout"
	KindAuthFailure  ErrorKind = "auth_failure"
	KindRateLimited  ErrorKind = "rate_limited"
	KindBotDetected  ErrorKind = "bot_detected"
	KindParseFailure ErrorKind = "parse_failure"
	KindNotFound     ErrorKind = "not_found"
	KindUnknown      ErrorKind = "unknown"
)

// RecoveryAction is what the chain does after a classified failure.
type RecoveryAction int

const (
	// RetrySameStrategy re-enters the same strategy with backoff.
	RetrySameStrategy RecoveryAction = iota
	// FallbackNextStrategy records the failure and advances the chain.
	FallbackNextStrategy
	// Abort halts the whole chain immediately.
	Abort
)

func (a RecoveryAction) String() string {
	switch a {
	case RetrySameStrategy:
		return "retry"
	case FallbackNextStrategy:
		return "fallback"
	case Abort:
		return "abort"
	}
	return "unknown"
}

// PolicyError is returned before any fetch when crawl permissions deny
// the run. It is fatal and never retried.
type PolicyError struct {
	URL    string
	Status RobotsStatus
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy: %s for %s: %s", e.Status, e.URL, e.Reason)
}

// AuthError means a required credential is absent or rejected. Fatal for
// the site: no fallback strategy shares a credential that just failed.
type AuthError struct {
	SiteID string
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %s: %v", e.SiteID, e.Reason, e.Err)
	}
	return fmt.Sprintf("auth: %s: %s", e.SiteID, e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// StatusError is a non-success HTTP response surfaced by the fetch
// client. RetryAfter carries a parsed Retry-After directive, if any.
type StatusError struct {
	URL        string
	StatusCode int
	RetryAfter time.Duration
	Snippet    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d for %s", e.StatusCode, e.URL)
}

// ParseError means the response did not match the strategy's expected
// shape. Retrying will not change the response; the chain falls back.
type ParseError struct {
	Strategy Strategy
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Strategy, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Strategy, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnreachableError is the terminal failure once every strategy in the
// chain has been exhausted or the run deadline expired. Attempts
// carries the full history; Err holds the cutting-short cause, if any.
type UnreachableError struct {
	SiteID   string
	Attempts []Attempt
	Err      error
}

func (e *UnreachableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("site unreachable: %s after %d attempts: %v", e.SiteID, len(e.Attempts), e.Err)
	}
	return fmt.Sprintf("site unreachable: %s after %d attempts", e.SiteID, len(e.Attempts))
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// API error codes.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodePolicy       = "ROBOTS_DISALLOWED"
	ErrCodeAuth         = "AUTH_FAILED"
	ErrCodeUnreachable  = "SITE_UNREACHABLE"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

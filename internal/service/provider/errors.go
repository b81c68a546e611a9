package provider

import (
	"errors"
	"strings"
)

var (
	// ErrRateLimited marks a provider 429-class rejection. It routes the
	// adapter onto the long rate-limit backoff path.
	ErrRateLimited = errors.New("provider: rate limited")

	// ErrAuthFailed marks bad credentials. Terminal for the connection:
	// reconnects are blocked until the adapter is externally restarted.
	ErrAuthFailed = errors.New("provider: authentication failed")

	// ErrNoData means the provider answered but has nothing for the symbol.
	ErrNoData = errors.New("provider: no data")
)

// IsRateLimit classifies an error as a rate-limit rejection, either via the
// sentinel or by inspecting the provider's error text for a 429 indicator.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit")
}

// IsAuthFailure classifies an error as a credential rejection.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthFailed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") ||
		strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "auth failed")
}

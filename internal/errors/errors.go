// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errors defines sentinel errors for consistent error handling across the engine.
// Every failure surfaced by a transport or the orchestrator wraps exactly one of these,
// so callers (and the CLI exit-code mapping) can branch with errors.Is.
package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for consistent error handling and exit code mapping
var (
	// ErrInvalidToken indicates GitHub authentication failed.
	// Maps to exit code 2.
	ErrInvalidToken = errors.New("invalid github token")

	// ErrRepoNotFound indicates the specified repository does not exist or is not accessible.
	// Maps to exit code 2.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrRateLimit indicates the GitHub quota for the current window is exhausted.
	// Maps to exit code 2.
	ErrRateLimit = errors.New("github rate limit exceeded")

	// ErrForbidden indicates a 403 that is not a quota problem (permissions, SSO enforcement).
	// Maps to exit code 2.
	ErrForbidden = errors.New("access forbidden")

	// ErrNetworkFailure indicates a network connection problem.
	// Maps to exit code 3.
	ErrNetworkFailure = errors.New("network connection failed")

	// ErrQueryRejected indicates GitHub refused the search predicate, usually
	// because the agent identity cannot be searched in the repository.
	// Maps to exit code 4.
	ErrQueryRejected = errors.New("search query rejected")

	// ErrTruncated indicates the true result count exceeds the 1,000-item search ceiling.
	// Maps to exit code 4.
	ErrTruncated = errors.New("search results truncated")

	// ErrIncompleteResults indicates GitHub flagged a page as incomplete (server-side timeout).
	// Maps to exit code 4.
	ErrIncompleteResults = errors.New("search results incomplete")

	// ErrMalformedResponse indicates a response that could not be decoded.
	ErrMalformedResponse = errors.New("malformed github response")

	// ErrSuperseded indicates the request was replaced by a newer one.
	// It is a cancellation and is never shown to users.
	ErrSuperseded = errors.New("request superseded")
)

// RateLimitError carries the quota reset time alongside ErrRateLimit so
// callers can tell the user how long to wait.
type RateLimitError struct {
	Reset time.Time
}

func (e *RateLimitError) Error() string {
	if e.Reset.IsZero() {
		return ErrRateLimit.Error()
	}
	return fmt.Sprintf("%s, resets at %s", ErrRateLimit, e.Reset.Format("15:04:05 MST"))
}

// Unwrap lets errors.Is(err, ErrRateLimit) match.
func (e *RateLimitError) Unwrap() error { return ErrRateLimit }

// IsRateLimitError reports true; used by giterror.ErrorChainInspector.
func (e *RateLimitError) IsRateLimitError() bool { return true }

// NewRateLimitError builds a RateLimitError from a reset given in epoch seconds.
func NewRateLimitError(resetEpoch int64) *RateLimitError {
	if resetEpoch <= 0 {
		return &RateLimitError{}
	}
	return &RateLimitError{Reset: time.Unix(resetEpoch, 0)}
}

// ResetTime extracts the reset time from a rate limit error chain.
func ResetTime(err error) (time.Time, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) && !rl.Reset.IsZero() {
		return rl.Reset, true
	}
	return time.Time{}, false
}

// IsCancellation reports whether err means the caller abandoned the request.
// Cancellations are suppressed rather than reported.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrSuperseded) ||
		errors.Is(err, context.Canceled)
}

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

package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		want     bool
	}{
		{
			name:     "direct invalid token error",
			err:      ErrInvalidToken,
			sentinel: ErrInvalidToken,
			want:     true,
		},
		{
			name:     "wrapped invalid token error",
			err:      fmt.Errorf("failed to authenticate: %w", ErrInvalidToken),
			sentinel: ErrInvalidToken,
			want:     true,
		},
		{
			name:     "different error type",
			err:      ErrRepoNotFound,
			sentinel: ErrInvalidToken,
			want:     false,
		},
		{
			name:     "wrapped truncation error",
			err:      fmt.Errorf("1500 results exceed ceiling: %w", ErrTruncated),
			sentinel: ErrTruncated,
			want:     true,
		},
		{
			name:     "rate limit error type matches sentinel",
			err:      fmt.Errorf("search: %w", NewRateLimitError(1700000000)),
			sentinel: ErrRateLimit,
			want:     true,
		},
		{
			name:     "nil error",
			err:      nil,
			sentinel: ErrInvalidToken,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.sentinel)
			if got != tt.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.sentinel, got, tt.want)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrInvalidToken, "invalid github token"},
		{ErrRepoNotFound, "repository not found"},
		{ErrNetworkFailure, "network connection failed"},
		{ErrRateLimit, "github rate limit exceeded"},
		{ErrTruncated, "search results truncated"},
		{ErrIncompleteResults, "search results incomplete"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResetTime(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewRateLimitError(1700000000))
	reset, ok := ResetTime(err)
	if !ok {
		t.Fatal("ResetTime() ok = false, want true")
	}
	if !reset.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("ResetTime() = %v, want %v", reset, time.Unix(1700000000, 0))
	}

	if _, ok := ResetTime(NewRateLimitError(0)); ok {
		t.Error("ResetTime() ok = true for zero reset, want false")
	}
	if _, ok := ResetTime(ErrRateLimit); ok {
		t.Error("ResetTime() ok = true for bare sentinel, want false")
	}
}

func TestIsCancellation(t *testing.T) {
	if !IsCancellation(fmt.Errorf("page 2: %w", context.Canceled)) {
		t.Error("context.Canceled should be a cancellation")
	}
	if !IsCancellation(ErrSuperseded) {
		t.Error("ErrSuperseded should be a cancellation")
	}
	if IsCancellation(context.DeadlineExceeded) {
		t.Error("deadline exceeded is a failure, not a cancellation")
	}
	if IsCancellation(ErrTruncated) {
		t.Error("ErrTruncated should not be a cancellation")
	}
}

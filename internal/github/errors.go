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

package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v59/github"

	pulseerrors "github.com/sirseerhq/sirseer-pulse/internal/errors"
	"github.com/sirseerhq/sirseer-pulse/internal/giterror"
	"github.com/sirseerhq/sirseer-pulse/internal/ratelimit"
)

// errorMapper maps transport errors to the engine's error taxonomy with
// actionable messages.
type errorMapper struct {
	inspector giterror.Inspector
}

func newErrorMapper() errorMapper {
	return errorMapper{inspector: giterror.NewErrorChainInspector(giterror.NewInspector())}
}

// mapError classifies err. quota is the most recent rate-limit state seen
// for the request; it disambiguates 403 responses.
func (m errorMapper) mapError(err error, q SearchQuery, quota *ratelimit.Info) error {
	if err == nil {
		return nil
	}

	// Cancellation passes through untouched so callers can suppress it.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return rateLimited(rateErr.Rate.Reset.Unix())
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return rateLimited(time.Now().Add(abuseErr.GetRetryAfter()).Unix())
	}

	status := 0
	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		status = respErr.Response.StatusCode
		if info, ok := ratelimit.FromHeaders(respErr.Response.Header); ok {
			quota = &info
		}
	}

	switch {
	case status == 0 && isDecodeError(err):
		return fmt.Errorf("GitHub returned a response for %s that could not be decoded (%v): %w",
			q.FullName(), err, pulseerrors.ErrMalformedResponse)

	case status == http.StatusForbidden || (status == 0 && m.inspector.IsForbiddenError(err)) ||
		m.inspector.IsRateLimitError(err):
		if quota != nil && quota.Remaining == 0 {
			return rateLimited(quota.Reset)
		}
		if m.inspector.IsRateLimitError(err) {
			var reset int64
			if quota != nil {
				reset = quota.Reset
			}
			return rateLimited(reset)
		}
		return fmt.Errorf("access to %s was denied. Check the token's scopes and organization SSO authorization: %w",
			q.FullName(), pulseerrors.ErrForbidden)

	case status == http.StatusUnauthorized || (status == 0 && m.inspector.IsAuthError(err)):
		return fmt.Errorf("GitHub API authentication failed. Please provide a valid token via --token flag or GITHUB_TOKEN environment variable: %w",
			pulseerrors.ErrInvalidToken)

	case status == http.StatusNotFound || (status == 0 && m.inspector.IsNotFoundError(err)):
		return fmt.Errorf("repository '%s' not found. Please check the repository name and your access permissions: %w",
			q.FullName(), pulseerrors.ErrRepoNotFound)

	case status == http.StatusUnprocessableEntity || (status == 0 && m.inspector.IsQueryRejectedError(err)):
		return fmt.Errorf("GitHub rejected the search for %s. Check that the repository exists, that you have access to it, and that the agent is enabled for it: %w",
			q.FullName(), pulseerrors.ErrQueryRejected)

	case m.inspector.IsNetworkError(err):
		return fmt.Errorf("network error connecting to GitHub API. Please check your internet connection and try again: %w",
			pulseerrors.ErrNetworkFailure)
	}

	return fmt.Errorf("failed to fetch pull requests: %w", err)
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func rateLimited(reset int64) error {
	if reset <= 0 {
		return fmt.Errorf("GitHub API rate limit exceeded. Please wait before retrying: %w",
			pulseerrors.NewRateLimitError(0))
	}
	return fmt.Errorf("GitHub API rate limit exceeded, resets in %s: %w",
		ratelimit.FormatCountdown(reset, time.Now()), pulseerrors.NewRateLimitError(reset))
}

func truncated(q SearchQuery, total int) error {
	return fmt.Errorf("%d pull requests match %s, more than the %d GitHub search can return. Narrow the date range: %w",
		total, q.FullName(), MaxSearchResults, pulseerrors.ErrTruncated)
}

func incomplete(q SearchQuery) error {
	return fmt.Errorf("GitHub reported incomplete search results for %s (server-side timeout). Try again later: %w",
		q.FullName(), pulseerrors.ErrIncompleteResults)
}

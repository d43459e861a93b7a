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

package main

import (
	"errors"
	"fmt"
	"time"

	pulseerrors "github.com/sirseerhq/sirseer-pulse/internal/errors"
	"github.com/sirseerhq/sirseer-pulse/internal/ratelimit"
)

const (
	exitOK         = 0
	exitGeneral    = 1
	exitAuth       = 2 // token, access, missing repository or rate limit
	exitNetwork    = 3
	exitIncomplete = 4 // results could not be fully trusted
	exitCancelled  = 130
)

// mapErrorToExitCode maps internal errors to appropriate exit codes
func mapErrorToExitCode(err error) int {
	if err == nil {
		return exitOK
	}

	switch {
	case errors.Is(err, pulseerrors.ErrInvalidToken),
		errors.Is(err, pulseerrors.ErrRepoNotFound),
		errors.Is(err, pulseerrors.ErrForbidden),
		errors.Is(err, pulseerrors.ErrRateLimit):
		return exitAuth
	case errors.Is(err, pulseerrors.ErrNetworkFailure):
		return exitNetwork
	case errors.Is(err, pulseerrors.ErrTruncated),
		errors.Is(err, pulseerrors.ErrIncompleteResults),
		errors.Is(err, pulseerrors.ErrQueryRejected):
		return exitIncomplete
	}
	return exitGeneral
}

// rateLimitHint tells the user when the quota resets, if err carries it.
func rateLimitHint(err error) string {
	reset, ok := pulseerrors.ResetTime(err)
	if !ok {
		return ""
	}
	return fmt.Sprintf("Rate limit resets in %s (%s).",
		ratelimit.FormatCountdown(reset.Unix(), time.Now()), reset.Local().Format(time.Kitchen))
}

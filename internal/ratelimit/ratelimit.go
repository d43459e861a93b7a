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

// Package ratelimit normalises GitHub quota metadata from both transports
// into a single Info shape. REST reports quota in X-RateLimit-* response
// headers; GraphQL reports it in a rateLimit selection of the response body
// with an ISO-8601 resetAt. Extraction never fails loudly: missing or
// unparseable fields yield "unavailable" rather than an error.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Resource identifies which quota bucket an Info describes.
type Resource string

const (
	ResourceCore    Resource = "core"
	ResourceSearch  Resource = "search"
	ResourceGraphQL Resource = "graphql"
)

// graphQLLimitThreshold is the magnitude above which a limit without an
// explicit Resource is assumed to be a point budget rather than a request budget.
const graphQLLimitThreshold = 100

// Header names used by the GitHub REST API.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderUsed      = "X-RateLimit-Used"
	HeaderResource  = "X-RateLimit-Resource"
)

// Info is the normalised quota state after a call.
type Info struct {
	Limit     int      `json:"limit"`
	Remaining int      `json:"remaining"`
	Reset     int64    `json:"reset"` // epoch seconds
	Used      int      `json:"used"`
	Cost      int      `json:"cost,omitempty"`
	Resource  Resource `json:"resource,omitempty"`
}

// GraphQLRateLimit mirrors the rateLimit selection of a GraphQL response.
// Used is a pointer because older API versions omit the field.
type GraphQLRateLimit struct {
	Limit     int
	Remaining int
	ResetAt   string
	Cost      int
	Used      *int
}

// FromHeaders extracts quota information from REST response headers.
// The second return value is false when limit, remaining or reset are
// missing or unparseable.
func FromHeaders(h http.Header) (Info, bool) {
	if h == nil {
		return Info{}, false
	}

	limit, ok := parseInt(h.Get(HeaderLimit))
	if !ok {
		return Info{}, false
	}
	remaining, ok := parseInt(h.Get(HeaderRemaining))
	if !ok {
		return Info{}, false
	}
	reset, ok := parseInt64(h.Get(HeaderReset))
	if !ok {
		return Info{}, false
	}

	info := Info{
		Limit:     limit,
		Remaining: remaining,
		Reset:     reset,
		Resource:  ResourceCore,
	}
	if res := strings.TrimSpace(h.Get(HeaderResource)); res != "" {
		info.Resource = Resource(strings.ToLower(res))
	}

	if used, ok := parseInt(h.Get(HeaderUsed)); ok {
		info.Used = used
	} else {
		info.Used = derivedUsed(limit, remaining)
	}

	return info, true
}

// FromGraphQL converts the GraphQL rateLimit selection, translating the
// ISO resetAt timestamp to epoch seconds.
func FromGraphQL(rl GraphQLRateLimit) (Info, bool) {
	if rl.Limit <= 0 || rl.Remaining < 0 {
		return Info{}, false
	}

	resetAt, err := time.Parse(time.RFC3339, strings.TrimSpace(rl.ResetAt))
	if err != nil {
		return Info{}, false
	}

	info := Info{
		Limit:     rl.Limit,
		Remaining: rl.Remaining,
		Reset:     resetAt.Unix(),
		Cost:      rl.Cost,
		Resource:  ResourceGraphQL,
	}
	if rl.Used != nil {
		info.Used = *rl.Used
	} else {
		info.Used = derivedUsed(rl.Limit, rl.Remaining)
	}

	return info, true
}

// IsGraphQL reports whether the info describes the GraphQL point budget.
// The explicit Resource flag wins; the magnitude heuristic only applies to
// entries that carry no flag.
func (i Info) IsGraphQL() bool {
	if i.Resource != "" {
		return i.Resource == ResourceGraphQL
	}
	return LooksLikeGraphQL(i.Limit)
}

// LooksLikeGraphQL guesses the transport from the size of the limit alone.
func LooksLikeGraphQL(limit int) bool {
	return limit >= graphQLLimitThreshold
}

// Exhausted reports whether no quota remains in the current window.
func (i Info) Exhausted() bool {
	return i.Limit > 0 && i.Remaining <= 0
}

// ResetTime returns Reset as a time.Time.
func (i Info) ResetTime() time.Time {
	return time.Unix(i.Reset, 0)
}

// Summary renders a one-line description suitable for status output.
func (i Info) Summary(now time.Time) string {
	unit := "requests"
	if i.IsGraphQL() {
		unit = "points"
	}
	return fmt.Sprintf("%d/%d %s remaining, resets in %s",
		i.Remaining, i.Limit, unit, FormatCountdown(i.Reset, now))
}

// FormatCountdown renders the time until reset (epoch seconds) as a short
// human string: "1h 4m", "12m 5s", "42s", or "now" once passed.
func FormatCountdown(reset int64, now time.Time) string {
	secs := reset - now.Unix()
	if secs <= 0 {
		return "now"
	}

	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func derivedUsed(limit, remaining int) int {
	if used := limit - remaining; used > 0 {
		return used
	}
	return 0
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func parseInt64(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

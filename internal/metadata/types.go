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

package metadata

import (
	"time"

	"github.com/sirseerhq/sirseer-pulse/internal/analytics"
	"github.com/sirseerhq/sirseer-pulse/internal/ratelimit"
)

// Report is the record of one fetch: what was asked, how it was served and
// what the records say.
type Report struct {
	PulseVersion string  `json:"pulse_version"`
	FetchID      string  `json:"fetch_id"`
	Parameters   Params  `json:"parameters"`
	Results      Results `json:"results"`
	Summary      Summary `json:"summary"`
}

// Params captures the request. The token itself is never recorded.
type Params struct {
	Owner         string     `json:"owner"`
	Repository    string     `json:"repository"`
	Agent         string     `json:"agent"`
	From          *time.Time `json:"from,omitempty"`
	To            *time.Time `json:"to,omitempty"`
	Authenticated bool       `json:"authenticated"`
}

// Results describes how the fetch was served.
type Results struct {
	TotalPRs     int             `json:"total_prs"`
	FirstPR      int             `json:"first_pr_number"`
	LastPR       int             `json:"last_pr_number"`
	OldestPR     time.Time       `json:"oldest_pr_date"`
	NewestPR     time.Time       `json:"newest_pr_date"`
	Transport    string          `json:"transport,omitempty"`
	FromCache    bool            `json:"from_cache"`
	APICallCount int             `json:"api_calls_made"`
	RateLimit    *ratelimit.Info `json:"rate_limit,omitempty"`
	Duration     string          `json:"fetch_duration"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  time.Time       `json:"completed_at"`
}

// Summary holds the analytics derived from the fetched records.
type Summary struct {
	Classification analytics.Classification       `json:"classification"`
	ResponseTimes  *analytics.ResponseTimeMetrics `json:"response_times,omitempty"`
	Daily          []analytics.DayCount           `json:"daily"`

	// Comparison and RepositoryResponseTimes are present only when
	// comparison data was requested.
	Comparison              *analytics.Comparison          `json:"comparison,omitempty"`
	RepositoryResponseTimes *analytics.ResponseTimeMetrics `json:"repository_response_times,omitempty"`
}

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

package fetcher

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirseerhq/sirseer-pulse/internal/cache"
	"github.com/sirseerhq/sirseer-pulse/internal/github"
	"github.com/sirseerhq/sirseer-pulse/internal/ratelimit"
)

// Request identifies one acquisition: a repository, an optional created-at
// range and the caller's credentials.
type Request struct {
	Owner string
	Repo  string
	From  *time.Time
	To    *time.Time

	// Token is the GitHub token; empty means anonymous.
	Token string
}

// FullName returns "owner/repo".
func (r Request) FullName() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Repo)
}

// Authenticated reports whether the request carries credentials.
func (r Request) Authenticated() bool {
	return r.Token != ""
}

// Validate checks the request before any I/O.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Owner) == "" || strings.TrimSpace(r.Repo) == "" {
		return fmt.Errorf("invalid repository format. Expected: <owner>/<repo>, got: %s", r.FullName())
	}
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return fmt.Errorf("invalid date range: --to (%s) is before --from (%s)",
			r.To.Format("2006-01-02"), r.From.Format("2006-01-02"))
	}
	return nil
}

func (r Request) cacheKey(agent string) string {
	return cache.Key(r.Owner, r.Repo, agent, r.From, r.To, r.Authenticated())
}

func (r Request) searchQuery(agent string) github.SearchQuery {
	return github.SearchQuery{
		Owner: strings.TrimSpace(r.Owner),
		Repo:  strings.TrimSpace(r.Repo),
		Agent: agent,
		From:  r.From,
		To:    r.To,
	}
}

// Result is the outcome of FetchPRs.
type Result struct {
	PullRequests []github.PullRequest
	RateLimit    *ratelimit.Info
	FromCache    bool

	// Counts are the repository-wide counts for the period, with Closed
	// derived. MergedPRs is the merged sample; only GraphQL fills it here.
	Counts    *github.Counts
	MergedPRs []github.PullRequest

	// Transport is empty when the result came from cache.
	Transport github.Kind
	APICalls  int
}

// Comparison is the outcome of FetchComparisonData.
type Comparison struct {
	Counts    github.Counts
	MergedPRs []github.PullRequest
	RateLimit *ratelimit.Info
	FromCache bool
	Transport github.Kind
	APICalls  int
}

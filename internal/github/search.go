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
	"fmt"
	"strings"
	"time"
)

// DefaultAgent is the search identity of GitHub's Copilot coding agent.
const DefaultAgent = "app/copilot-swe-agent"

const dateLayout = "2006-01-02"

// SearchQuery describes the pull requests to fetch: an agent's PRs in a
// repository, created within an optional date range.
type SearchQuery struct {
	Owner string
	Repo  string
	Agent string
	From  *time.Time
	To    *time.Time
}

// FullName returns "owner/repo".
func (q SearchQuery) FullName() string {
	return fmt.Sprintf("%s/%s", q.Owner, q.Repo)
}

// AgentPredicate builds the search predicate for the agent's pull requests.
func (q SearchQuery) AgentPredicate() string {
	agent := q.Agent
	if agent == "" {
		agent = DefaultAgent
	}
	return buildSearchQuery(q, "author:"+agent)
}

// RepoPredicate builds a repository-wide predicate for the same period,
// with extra qualifiers such as "is:merged".
func (q SearchQuery) RepoPredicate(qualifiers ...string) string {
	return buildSearchQuery(q, qualifiers...)
}

// buildSearchQuery constructs a GitHub search query for pull requests.
// It builds a query string that filters by repository, type (PR), the given
// qualifiers and optionally by creation date.
func buildSearchQuery(q SearchQuery, qualifiers ...string) string {
	parts := []string{
		fmt.Sprintf("repo:%s/%s", q.Owner, q.Repo),
		"is:pr",
	}
	parts = append(parts, qualifiers...)

	if created := createdQualifier(q.From, q.To); created != "" {
		parts = append(parts, created)
	}

	return strings.Join(parts, " ")
}

func createdQualifier(from, to *time.Time) string {
	switch {
	case from != nil && to != nil:
		return fmt.Sprintf("created:%s..%s", from.Format(dateLayout), to.Format(dateLayout))
	case from != nil:
		return fmt.Sprintf("created:>=%s", from.Format(dateLayout))
	case to != nil:
		return fmt.Sprintf("created:<=%s", to.Format(dateLayout))
	default:
		return ""
	}
}

// withSortQualifier appends the in-query sort used by GraphQL search, which
// has no separate sort argument. It matches the REST sort=created&order=desc.
func withSortQualifier(predicate string) string {
	return predicate + " sort:created-desc"
}

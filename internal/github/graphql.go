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
	"log/slog"
	"strings"
	"time"

	"github.com/shurcooL/graphql"

	"github.com/sirseerhq/sirseer-pulse/internal/ratelimit"
)

// GraphQLTransport implements Transport using GitHub's GraphQL API.
// Its first page is one combined query that also returns the repository
// counts and a merged sample, replacing four or more REST calls.
type GraphQLTransport struct {
	client *graphql.Client
	quota  *quotaRecorder
	errs   errorMapper
}

// NewGraphQLTransport creates a GraphQL transport with the provided token and endpoint.
func NewGraphQLTransport(token, endpoint string) *GraphQLTransport {
	if endpoint == "" {
		endpoint = DefaultEndpoints().GraphQLEndpoint
	}

	quota := &quotaRecorder{}
	return &GraphQLTransport{
		client: graphql.NewClient(endpoint, newHTTPClient(token, quota)),
		quota:  quota,
		errs:   newErrorMapper(),
	}
}

// pullRequestNode is the selection for one search result.
type pullRequestNode struct {
	PullRequest struct {
		DatabaseID int64 `graphql:"databaseId"`
		Number     graphql.Int
		Title      graphql.String
		State      graphql.String
		URL        graphql.String `graphql:"url"`
		CreatedAt  time.Time
		MergedAt   *time.Time
		Author     *struct {
			Login graphql.String
		}
	} `graphql:"... on PullRequest"`
}

type searchConnection struct {
	IssueCount graphql.Int
	PageInfo   struct {
		HasNextPage graphql.Boolean
		EndCursor   graphql.String
	}
	Nodes []pullRequestNode
}

type countConnection struct {
	IssueCount graphql.Int
}

type sampleConnection struct {
	IssueCount graphql.Int
	Nodes      []pullRequestNode
}

type rateLimitSelection struct {
	Limit     graphql.Int
	Remaining graphql.Int
	ResetAt   graphql.String
	Cost      graphql.Int
	Used      *graphql.Int
}

// combinedQuery fetches the first agent page, the period's total, merged
// and open counts, and the merged sample in one round trip.
type combinedQuery struct {
	Agent     searchConnection   `graphql:"agent: search(query: $agentQuery, type: ISSUE, first: $first, after: $after)"`
	Total     countConnection    `graphql:"total: search(query: $totalQuery, type: ISSUE, first: 1)"`
	Merged    sampleConnection   `graphql:"merged: search(query: $mergedQuery, type: ISSUE, first: $sample)"`
	Open      countConnection    `graphql:"open: search(query: $openQuery, type: ISSUE, first: 1)"`
	RateLimit rateLimitSelection `graphql:"rateLimit"`
}

// pageQuery fetches a subsequent agent page.
type pageQuery struct {
	Agent     searchConnection   `graphql:"agent: search(query: $agentQuery, type: ISSUE, first: $first, after: $after)"`
	RateLimit rateLimitSelection `graphql:"rateLimit"`
}

// aggregatesQuery fetches comparison data without an agent page.
type aggregatesQuery struct {
	Total     countConnection    `graphql:"total: search(query: $totalQuery, type: ISSUE, first: 1)"`
	Merged    sampleConnection   `graphql:"merged: search(query: $mergedQuery, type: ISSUE, first: $sample)"`
	Open      countConnection    `graphql:"open: search(query: $openQuery, type: ISSUE, first: 1)"`
	RateLimit rateLimitSelection `graphql:"rateLimit"`
}

// sampleQuery fetches only the merged sample.
type sampleQuery struct {
	Merged    sampleConnection   `graphql:"merged: search(query: $mergedQuery, type: ISSUE, first: $sample)"`
	RateLimit rateLimitSelection `graphql:"rateLimit"`
}

// Kind implements Transport.
func (t *GraphQLTransport) Kind() Kind { return KindGraphQL }

// FetchPage implements Transport. The first page uses the combined query;
// later pages use the single-search query with the opaque cursor.
func (t *GraphQLTransport) FetchPage(ctx context.Context, q SearchQuery, cursor Cursor) (*Page, error) {
	var after *graphql.String
	if cursor.After != "" {
		s := graphql.String(cursor.After)
		after = &s
	}

	agentQuery := withSortQualifier(q.AgentPredicate())
	slog.Debug("GitHub API: Searching pull requests", "transport", KindGraphQL, "query", agentQuery,
		"first_page", cursor.IsFirst())

	if cursor.After == "" {
		var query combinedQuery
		variables := map[string]interface{}{
			"agentQuery":  graphql.String(agentQuery),
			"totalQuery":  graphql.String(q.RepoPredicate()),
			"mergedQuery": graphql.String(withSortQualifier(q.RepoPredicate("is:merged"))),
			"openQuery":   graphql.String(q.RepoPredicate("is:open")),
			"first":       graphql.Int(PageSize),
			"sample":      graphql.Int(MergedSampleSize),
			"after":       after,
		}
		if err := t.client.Query(ctx, &query, variables); err != nil {
			return nil, t.errs.mapError(err, q, t.quota.Last())
		}

		page, err := t.toPage(q, query.Agent, query.RateLimit)
		if err != nil {
			return nil, err
		}
		page.Counts = &Counts{
			Total:  int(query.Total.IssueCount),
			Merged: int(query.Merged.IssueCount),
			Open:   int(query.Open.IssueCount),
		}
		page.MergedPRs = fromNodes(query.Merged.Nodes)
		return page, nil
	}

	var query pageQuery
	variables := map[string]interface{}{
		"agentQuery": graphql.String(agentQuery),
		"first":      graphql.Int(PageSize),
		"after":      after,
	}
	if err := t.client.Query(ctx, &query, variables); err != nil {
		return nil, t.errs.mapError(err, q, t.quota.Last())
	}

	return t.toPage(q, query.Agent, query.RateLimit)
}

// FetchAggregates implements AggregateFetcher.
func (t *GraphQLTransport) FetchAggregates(ctx context.Context, q SearchQuery) (*Aggregates, error) {
	slog.Debug("GitHub API: Fetching comparison aggregates", "transport", KindGraphQL, "repo", q.FullName())

	var query aggregatesQuery
	variables := map[string]interface{}{
		"totalQuery":  graphql.String(q.RepoPredicate()),
		"mergedQuery": graphql.String(withSortQualifier(q.RepoPredicate("is:merged"))),
		"openQuery":   graphql.String(q.RepoPredicate("is:open")),
		"sample":      graphql.Int(MergedSampleSize),
	}
	if err := t.client.Query(ctx, &query, variables); err != nil {
		return nil, t.errs.mapError(err, q, t.quota.Last())
	}

	return &Aggregates{
		Counts: &Counts{
			Total:  int(query.Total.IssueCount),
			Merged: int(query.Merged.IssueCount),
			Open:   int(query.Open.IssueCount),
		},
		MergedPRs: fromNodes(query.Merged.Nodes),
		RateLimit: convertRateLimit(query.RateLimit),
	}, nil
}

// FetchMergedSample implements MergedSampler.
func (t *GraphQLTransport) FetchMergedSample(ctx context.Context, q SearchQuery) (*Aggregates, error) {
	slog.Debug("GitHub API: Fetching merged sample", "transport", KindGraphQL, "repo", q.FullName())

	var query sampleQuery
	variables := map[string]interface{}{
		"mergedQuery": graphql.String(withSortQualifier(q.RepoPredicate("is:merged"))),
		"sample":      graphql.Int(MergedSampleSize),
	}
	if err := t.client.Query(ctx, &query, variables); err != nil {
		return nil, t.errs.mapError(err, q, t.quota.Last())
	}

	return &Aggregates{
		MergedPRs: fromNodes(query.Merged.Nodes),
		RateLimit: convertRateLimit(query.RateLimit),
	}, nil
}

// toPage applies the ceiling policy and converts the agent connection.
func (t *GraphQLTransport) toPage(q SearchQuery, conn searchConnection, rl rateLimitSelection) (*Page, error) {
	total := int(conn.IssueCount)
	if total > MaxSearchResults {
		return nil, truncated(q, total)
	}

	return &Page{
		PullRequests: fromNodes(conn.Nodes),
		RateLimit:    convertRateLimit(rl),
		HasMore:      bool(conn.PageInfo.HasNextPage),
		Next:         Cursor{After: string(conn.PageInfo.EndCursor)},
		TotalCount:   total,
	}, nil
}

func convertRateLimit(rl rateLimitSelection) *ratelimit.Info {
	sel := ratelimit.GraphQLRateLimit{
		Limit:     int(rl.Limit),
		Remaining: int(rl.Remaining),
		ResetAt:   string(rl.ResetAt),
		Cost:      int(rl.Cost),
	}
	if rl.Used != nil {
		used := int(*rl.Used)
		sel.Used = &used
	}

	info, ok := ratelimit.FromGraphQL(sel)
	if !ok {
		return nil
	}
	return &info
}

// fromNodes converts GraphQL search nodes to canonical records, skipping
// non-PR results (which decode with a zero number).
func fromNodes(nodes []pullRequestNode) []PullRequest {
	prs := make([]PullRequest, 0, len(nodes))
	for _, node := range nodes {
		n := node.PullRequest
		if n.Number == 0 {
			continue
		}

		pr := PullRequest{
			ID:        n.DatabaseID,
			Number:    int(n.Number),
			State:     normalizeState(string(n.State)),
			CreatedAt: n.CreatedAt,
			MergedAt:  n.MergedAt,
		}
		title := string(n.Title)
		pr.Title = &title
		if n.URL != "" {
			u := string(n.URL)
			pr.URL = &u
		}
		if n.Author != nil {
			pr.Author = &Author{Login: string(n.Author.Login)}
		}

		prs = append(prs, pr)
	}
	return prs
}

// normalizeState maps GraphQL's OPEN/CLOSED/MERGED onto the REST states.
// MERGED becomes closed; merged-ness is carried by MergedAt.
func normalizeState(state string) string {
	switch strings.ToUpper(state) {
	case "OPEN":
		return StateOpen
	default:
		return StateClosed
	}
}

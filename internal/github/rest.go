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
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v59/github"

	pulseerrors "github.com/sirseerhq/sirseer-pulse/internal/errors"
	"github.com/sirseerhq/sirseer-pulse/internal/ratelimit"
)

// RESTTransport queries the REST search endpoint with page-number
// pagination. It is the anonymous fallback; its search quota is small
// (10 requests/minute unauthenticated), so it fetches no more than needed.
type RESTTransport struct {
	client *gh.Client
	errs   errorMapper
}

// NewRESTTransport creates a REST search transport. token may be empty for
// anonymous access. apiEndpoint overrides https://api.github.com (GitHub
// Enterprise, tests).
func NewRESTTransport(token, apiEndpoint string) (*RESTTransport, error) {
	client := gh.NewClient(newHTTPClient(token, nil))

	if apiEndpoint != "" && strings.TrimSuffix(apiEndpoint, "/") != "https://api.github.com" {
		baseURL, err := url.Parse(strings.TrimSuffix(apiEndpoint, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid API endpoint %q: %w", apiEndpoint, err)
		}
		client.BaseURL = baseURL
	}

	return &RESTTransport{
		client: client,
		errs:   newErrorMapper(),
	}, nil
}

// Kind implements Transport.
func (t *RESTTransport) Kind() Kind { return KindREST }

// FetchPage implements Transport. Pages are numbered from 1; the 11th page
// is never requested because the search API cannot return it.
func (t *RESTTransport) FetchPage(ctx context.Context, q SearchQuery, cursor Cursor) (*Page, error) {
	pageNum := cursor.Page
	if pageNum <= 0 {
		pageNum = 1
	}
	if pageNum > MaxPages {
		return nil, truncated(q, pageNum*PageSize)
	}

	predicate := q.AgentPredicate()
	slog.Debug("GitHub API: Searching pull requests", "transport", KindREST, "query", predicate, "page", pageNum)

	result, info, err := t.search(ctx, q, predicate, PageSize, pageNum)
	if err != nil {
		return nil, err
	}

	total := result.GetTotal()
	if total > MaxSearchResults {
		return nil, truncated(q, total)
	}

	prs := make([]PullRequest, 0, len(result.Issues))
	for _, issue := range result.Issues {
		if issue == nil || !issue.IsPullRequest() {
			continue
		}
		prs = append(prs, fromIssue(issue))
	}

	fetched := (pageNum-1)*PageSize + len(result.Issues)
	hasMore := len(result.Issues) == PageSize && fetched < total
	if hasMore && pageNum+1 > MaxPages {
		return nil, truncated(q, total)
	}

	return &Page{
		PullRequests: prs,
		RateLimit:    info,
		HasMore:      hasMore,
		Next:         Cursor{Page: pageNum + 1},
		TotalCount:   total,
	}, nil
}

// CountSearch implements Counter with a one-record search whose total is
// the count.
func (t *RESTTransport) CountSearch(ctx context.Context, predicate string) (int, *ratelimit.Info, error) {
	slog.Debug("GitHub API: Counting pull requests", "transport", KindREST, "query", predicate)

	result, info, err := t.search(ctx, SearchQuery{}, predicate, 1, 1)
	if err != nil {
		return 0, info, err
	}
	return result.GetTotal(), info, nil
}

// FetchMergedSample implements MergedSampler.
func (t *RESTTransport) FetchMergedSample(ctx context.Context, q SearchQuery) (*Aggregates, error) {
	predicate := q.RepoPredicate("is:merged")
	slog.Debug("GitHub API: Fetching merged sample", "transport", KindREST, "query", predicate)

	result, info, err := t.search(ctx, q, predicate, MergedSampleSize, 1)
	if err != nil {
		return nil, err
	}

	merged := make([]PullRequest, 0, len(result.Issues))
	for _, issue := range result.Issues {
		if issue == nil || !issue.IsPullRequest() {
			continue
		}
		merged = append(merged, fromIssue(issue))
	}

	return &Aggregates{MergedPRs: merged, RateLimit: info}, nil
}

// search runs one search request and applies the checks every page needs:
// error mapping, quota extraction and the incomplete_results flag.
func (t *RESTTransport) search(ctx context.Context, q SearchQuery, predicate string, perPage, page int) (*gh.IssuesSearchResult, *ratelimit.Info, error) {
	opts := &gh.SearchOptions{
		Sort:  "created",
		Order: "desc",
		ListOptions: gh.ListOptions{
			PerPage: perPage,
			Page:    page,
		},
	}

	result, resp, err := t.client.Search.Issues(ctx, predicate, opts)
	info := quotaFromResponse(resp)
	if err != nil {
		return nil, info, t.errs.mapError(err, q, info)
	}
	if result == nil {
		return nil, info, fmt.Errorf("empty search response for %s: %w", q.FullName(), pulseerrors.ErrMalformedResponse)
	}
	if result.GetIncompleteResults() {
		return nil, info, incomplete(q)
	}

	return result, info, nil
}

func quotaFromResponse(resp *gh.Response) *ratelimit.Info {
	if resp == nil || resp.Response == nil {
		return nil
	}
	info, ok := ratelimit.FromHeaders(resp.Header)
	if !ok {
		return nil
	}
	return &info
}

// fromIssue converts a search result item to the canonical record.
func fromIssue(issue *gh.Issue) PullRequest {
	pr := PullRequest{
		ID:     issue.GetID(),
		Number: issue.GetNumber(),
		Title:  issue.Title,
		State:  strings.ToLower(issue.GetState()),
	}

	if issue.CreatedAt != nil {
		pr.CreatedAt = issue.CreatedAt.Time
	}
	if links := issue.PullRequestLinks; links != nil && links.MergedAt != nil {
		mergedAt := links.MergedAt.Time
		pr.MergedAt = &mergedAt
	}
	if issue.User != nil && issue.User.Login != nil {
		pr.Author = &Author{Login: issue.User.GetLogin()}
	}
	if issue.HTMLURL != nil {
		u := issue.GetHTMLURL()
		pr.URL = &u
	}

	return pr
}

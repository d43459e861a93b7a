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

// Package github provides the two transports used to search GitHub for pull
// requests authored by a coding agent: a REST search transport (go-github)
// for anonymous use and a GraphQL transport (shurcooL/graphql) whenever a
// token is available. Both page through results, normalise records into
// PullRequest, report quota as ratelimit.Info, and refuse to return a
// result set silently cut off by the 1,000-item search ceiling.
//
// The package includes:
//   - The Transport contract plus the optional Counter, AggregateFetcher
//     and MergedSampler capabilities
//   - RESTTransport and GraphQLTransport implementations
//   - Search predicate construction (SearchQuery)
//   - Mock transports for testing
//
// Basic usage:
//
//	t, err := github.NewTransport(github.SelectKind(token), token, github.DefaultEndpoints())
//	if err != nil {
//	    // Handle error
//	}
//	page, err := t.FetchPage(ctx, github.SearchQuery{Owner: "golang", Repo: "go"}, github.Cursor{})
//	for _, pr := range page.PullRequests {
//	    // Process pull request
//	}
package github

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
	"time"

	"github.com/sirseerhq/sirseer-pulse/internal/ratelimit"
)

// Search API limits shared by both transports.
const (
	// MaxSearchResults is the hard ceiling GitHub enforces on any search.
	MaxSearchResults = 1000

	// PageSize is the number of records requested per page.
	PageSize = 100

	// MaxPages is the last page number that can return records.
	MaxPages = MaxSearchResults / PageSize

	// MergedSampleSize is the number of merged records fetched for comparison.
	MergedSampleSize = 100
)

// PR states as reported by the search API.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// PullRequest is the canonical, transport-agnostic pull request record.
// A non-nil MergedAt means merged regardless of State.
type PullRequest struct {
	ID        int64      `json:"id"`
	Number    int        `json:"number"`
	Title     *string    `json:"title"`
	State     string     `json:"state"`
	MergedAt  *time.Time `json:"merged_at"`
	CreatedAt time.Time  `json:"created_at"`
	Author    *Author    `json:"author"`
	URL       *string    `json:"url"`
}

// Author represents the author of a pull request.
type Author struct {
	Login string `json:"login"`
}

// IsMerged reports whether the pull request was merged.
func (pr PullRequest) IsMerged() bool {
	return pr.MergedAt != nil
}

// IsClosedUnmerged reports whether the pull request was closed without merging.
func (pr PullRequest) IsClosedUnmerged() bool {
	return pr.State == StateClosed && pr.MergedAt == nil
}

// IsOpen reports whether the pull request is still open.
func (pr PullRequest) IsOpen() bool {
	return pr.State == StateOpen && pr.MergedAt == nil
}

// AuthorLogin returns the author login or "" for deleted accounts.
func (pr PullRequest) AuthorLogin() string {
	if pr.Author == nil {
		return ""
	}
	return pr.Author.Login
}

// Counts holds repository-wide pull request counts for the queried period.
// Closed means closed-but-not-merged and is always derived, never queried.
type Counts struct {
	Total  int `json:"total"`
	Merged int `json:"merged"`
	Closed int `json:"closed"`
	Open   int `json:"open"`
}

// Cursor identifies a page. REST uses Page, GraphQL uses After.
// The zero value is the first page.
type Cursor struct {
	Page  int    `json:"page,omitempty"`
	After string `json:"after,omitempty"`
}

// IsFirst reports whether the cursor points at the first page.
func (c Cursor) IsFirst() bool {
	return c.Page <= 1 && c.After == ""
}

// Page is one normalised page of results from a transport.
type Page struct {
	PullRequests []PullRequest
	RateLimit    *ratelimit.Info
	HasMore      bool
	Next         Cursor

	// TotalCount is the upstream's reported total for the agent search.
	TotalCount int

	// Counts and MergedPRs are only set by transports that can fetch
	// comparison aggregates alongside the first page.
	Counts    *Counts
	MergedPRs []PullRequest
}

// Aggregates is the comparison data for a repository and period.
type Aggregates struct {
	Counts    *Counts
	MergedPRs []PullRequest
	RateLimit *ratelimit.Info
}

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
	"testing"
	"time"
)

func TestAgentPredicate(t *testing.T) {
	tests := []struct {
		name     string
		query    SearchQuery
		expected string
	}{
		{
			name:     "basic query without dates uses default agent",
			query:    SearchQuery{Owner: "kubernetes", Repo: "kubernetes"},
			expected: "repo:kubernetes/kubernetes is:pr author:app/copilot-swe-agent",
		},
		{
			name:     "custom agent",
			query:    SearchQuery{Owner: "octo", Repo: "hello", Agent: "app/devin-ai-integration"},
			expected: "repo:octo/hello is:pr author:app/devin-ai-integration",
		},
		{
			name: "query with from date",
			query: SearchQuery{
				Owner: "kubernetes", Repo: "kubernetes",
				From: timePtr(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
			},
			expected: "repo:kubernetes/kubernetes is:pr author:app/copilot-swe-agent created:>=2024-01-15",
		},
		{
			name: "query with to date",
			query: SearchQuery{
				Owner: "kubernetes", Repo: "kubernetes",
				To: timePtr(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)),
			},
			expected: "repo:kubernetes/kubernetes is:pr author:app/copilot-swe-agent created:<=2024-06-30",
		},
		{
			name: "query with date range",
			query: SearchQuery{
				Owner: "kubernetes", Repo: "kubernetes",
				From: timePtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
				To:   timePtr(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)),
			},
			expected: "repo:kubernetes/kubernetes is:pr author:app/copilot-swe-agent created:2024-01-01..2024-12-31",
		},
		{
			name:     "org with special characters",
			query:    SearchQuery{Owner: "org-with-dash", Repo: "repo.with.dots"},
			expected: "repo:org-with-dash/repo.with.dots is:pr author:app/copilot-swe-agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.AgentPredicate(); got != tt.expected {
				t.Errorf("AgentPredicate() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRepoPredicate(t *testing.T) {
	q := SearchQuery{
		Owner: "octo", Repo: "hello", Agent: "app/copilot-swe-agent",
		From: timePtr(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		To:   timePtr(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)),
	}

	tests := []struct {
		qualifiers []string
		expected   string
	}{
		{nil, "repo:octo/hello is:pr created:2026-01-01..2026-01-10"},
		{[]string{"is:merged"}, "repo:octo/hello is:pr is:merged created:2026-01-01..2026-01-10"},
		{[]string{"is:open"}, "repo:octo/hello is:pr is:open created:2026-01-01..2026-01-10"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := q.RepoPredicate(tt.qualifiers...); got != tt.expected {
				t.Errorf("RepoPredicate() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWithSortQualifier(t *testing.T) {
	got := withSortQualifier("repo:a/b is:pr")
	if got != "repo:a/b is:pr sort:created-desc" {
		t.Errorf("withSortQualifier() = %q", got)
	}
}

func TestSelectKind(t *testing.T) {
	if got := SelectKind("ghp_token"); got != KindGraphQL {
		t.Errorf("SelectKind(token) = %s, want %s", got, KindGraphQL)
	}
	if got := SelectKind(""); got != KindREST {
		t.Errorf("SelectKind(\"\") = %s, want %s", got, KindREST)
	}
}

func TestNewTransport(t *testing.T) {
	tr, err := NewTransport(KindGraphQL, "", DefaultEndpoints())
	if err != nil {
		t.Fatalf("NewTransport() error = %v", err)
	}
	if tr.Kind() != KindREST {
		t.Errorf("anonymous GraphQL request should fall back to REST, got %s", tr.Kind())
	}

	tr, err = NewTransport(KindGraphQL, "token", DefaultEndpoints())
	if err != nil {
		t.Fatalf("NewTransport() error = %v", err)
	}
	if tr.Kind() != KindGraphQL {
		t.Errorf("Kind() = %s, want %s", tr.Kind(), KindGraphQL)
	}
}

func TestPullRequestClassificationHelpers(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	merged := TestPullRequest(1, StateClosed, created, time.Hour)
	if !merged.IsMerged() || merged.IsClosedUnmerged() || merged.IsOpen() {
		t.Error("merged PR misclassified")
	}

	mergedButOpen := TestPullRequest(2, StateOpen, created, time.Hour)
	mergedButOpen.State = StateOpen
	if !mergedButOpen.IsMerged() || mergedButOpen.IsOpen() {
		t.Error("non-nil MergedAt must mean merged regardless of state")
	}

	closed := TestPullRequest(3, StateClosed, created, -1)
	if closed.IsMerged() || !closed.IsClosedUnmerged() {
		t.Error("closed-without-merge PR misclassified")
	}

	open := TestPullRequest(4, StateOpen, created, -1)
	if !open.IsOpen() || open.IsMerged() {
		t.Error("open PR misclassified")
	}

	open.Author = nil
	if open.AuthorLogin() != "" {
		t.Error("AuthorLogin() should be empty for deleted authors")
	}
}

// timePtr is a helper function to create a pointer to a time.Time
func timePtr(t time.Time) *time.Time {
	return &t
}

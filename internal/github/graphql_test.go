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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	pulseerrors "github.com/sirseerhq/sirseer-pulse/internal/errors"
	"github.com/sirseerhq/sirseer-pulse/internal/ratelimit"
)

// graphqlRequest is the body the client posts.
type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// newGraphQLServer starts a fake GraphQL endpoint that checks the request
// shape and delegates the response to handler.
func newGraphQLServer(t *testing.T, handler func(w http.ResponseWriter, req graphqlRequest)) (*httptest.Server, *[]graphqlRequest) {
	t.Helper()

	var mu sync.Mutex
	var requests []graphqlRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graphql" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "sirseer-pulse/") {
			t.Errorf("unexpected user agent: %s", ua)
		}

		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		handler(w, req)
	}))
	t.Cleanup(server.Close)

	return server, &requests
}

func prNode(number int, state string, mergedAt interface{}) map[string]interface{} {
	return map[string]interface{}{
		"databaseId": 1_000_000 + number,
		"number":     number,
		"title":      "PR " + strconv.Itoa(number),
		"state":      state,
		"url":        "https://github.com/octo/hello/pull/" + strconv.Itoa(number),
		"createdAt":  "2026-01-02T00:00:00Z",
		"mergedAt":   mergedAt,
		"author":     map[string]interface{}{"login": "Copilot"},
	}
}

func rateLimitJSON(remaining int) map[string]interface{} {
	return map[string]interface{}{
		"limit":     5000,
		"remaining": remaining,
		"resetAt":   time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		"cost":      1,
		"used":      5000 - remaining,
	}
}

func TestGraphQLTransport_FirstPageCombinedQuery(t *testing.T) {
	server, requests := newGraphQLServer(t, func(w http.ResponseWriter, req graphqlRequest) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"agent": map[string]interface{}{
					"issueCount": 2,
					"pageInfo":   map[string]interface{}{"hasNextPage": true, "endCursor": "Y3Vyc29yOjI="},
					"nodes": []interface{}{
						prNode(2, "MERGED", "2026-01-03T00:00:00Z"),
						prNode(1, "OPEN", nil),
						map[string]interface{}{},
					},
				},
				"total":  map[string]interface{}{"issueCount": 42},
				"merged": map[string]interface{}{"issueCount": 18, "nodes": []interface{}{prNode(9, "MERGED", "2026-01-04T00:00:00Z")}},
				"open":   map[string]interface{}{"issueCount": 12},
				"rateLimit": rateLimitJSON(4990),
			},
		})
	})

	transport := NewGraphQLTransport("test-token", server.URL+"/graphql")
	if transport.Kind() != KindGraphQL {
		t.Fatalf("Kind() = %s, want %s", transport.Kind(), KindGraphQL)
	}

	page, err := transport.FetchPage(context.Background(), testQuery(), Cursor{})
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	if len(page.PullRequests) != 2 {
		t.Fatalf("got %d PRs, want 2 (non-PR node skipped)", len(page.PullRequests))
	}
	if !page.PullRequests[0].IsMerged() || page.PullRequests[0].State != StateClosed {
		t.Errorf("MERGED node should normalise to a merged closed record, got %+v", page.PullRequests[0])
	}
	if !page.PullRequests[1].IsOpen() {
		t.Errorf("OPEN node should be open, got %+v", page.PullRequests[1])
	}
	if page.PullRequests[0].ID != 1_000_002 {
		t.Errorf("ID = %d, want 1000002", page.PullRequests[0].ID)
	}
	if !page.HasMore || page.Next.After != "Y3Vyc29yOjI=" {
		t.Errorf("unexpected paging state: hasMore=%v next=%+v", page.HasMore, page.Next)
	}

	if page.Counts == nil {
		t.Fatal("first GraphQL page should carry counts")
	}
	if page.Counts.Total != 42 || page.Counts.Merged != 18 || page.Counts.Open != 12 {
		t.Errorf("unexpected counts: %+v", page.Counts)
	}
	if len(page.MergedPRs) != 1 || page.MergedPRs[0].Number != 9 {
		t.Errorf("unexpected merged sample: %+v", page.MergedPRs)
	}

	if page.RateLimit == nil || page.RateLimit.Resource != ratelimit.ResourceGraphQL {
		t.Fatalf("expected GraphQL rate limit, got %+v", page.RateLimit)
	}
	if page.RateLimit.Remaining != 4990 {
		t.Errorf("Remaining = %d, want 4990", page.RateLimit.Remaining)
	}

	if len(*requests) != 1 {
		t.Fatalf("expected one request, got %d", len(*requests))
	}
	req := (*requests)[0]
	for _, alias := range []string{"agent:", "total:", "merged:", "open:", "rateLimit"} {
		if !strings.Contains(req.Query, alias) {
			t.Errorf("combined query missing %q: %s", alias, req.Query)
		}
	}
	if got := req.Variables["agentQuery"]; got != "repo:octo/hello is:pr author:app/copilot-swe-agent created:2026-01-01..2026-01-10 sort:created-desc" {
		t.Errorf("agentQuery = %v", got)
	}
	if got := req.Variables["openQuery"]; got != "repo:octo/hello is:pr is:open created:2026-01-01..2026-01-10" {
		t.Errorf("openQuery = %v", got)
	}
	if req.Variables["after"] != nil {
		t.Errorf("first page must send a null cursor, got %v", req.Variables["after"])
	}
}

func TestGraphQLTransport_SubsequentPage(t *testing.T) {
	server, requests := newGraphQLServer(t, func(w http.ResponseWriter, req graphqlRequest) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"agent": map[string]interface{}{
					"issueCount": 101,
					"pageInfo":   map[string]interface{}{"hasNextPage": false, "endCursor": "end"},
					"nodes":      []interface{}{prNode(1, "CLOSED", nil)},
				},
				"rateLimit": rateLimitJSON(4989),
			},
		})
	})

	transport := NewGraphQLTransport("test-token", server.URL+"/graphql")
	page, err := transport.FetchPage(context.Background(), testQuery(), Cursor{After: "abc"})
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	if page.Counts != nil {
		t.Error("subsequent pages must not carry counts")
	}
	if page.HasMore {
		t.Error("expected last page")
	}
	if len(page.PullRequests) != 1 || !page.PullRequests[0].IsClosedUnmerged() {
		t.Errorf("unexpected records: %+v", page.PullRequests)
	}

	req := (*requests)[0]
	if req.Variables["after"] != "abc" {
		t.Errorf("after = %v, want abc", req.Variables["after"])
	}
	if strings.Contains(req.Query, "total:") {
		t.Errorf("subsequent page should not request aggregates: %s", req.Query)
	}
}

func TestGraphQLTransport_Truncation(t *testing.T) {
	server, _ := newGraphQLServer(t, func(w http.ResponseWriter, req graphqlRequest) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"agent": map[string]interface{}{
					"issueCount": 1500,
					"pageInfo":   map[string]interface{}{"hasNextPage": true, "endCursor": "x"},
					"nodes":      []interface{}{prNode(1, "OPEN", nil)},
				},
				"total":     map[string]interface{}{"issueCount": 2000},
				"merged":    map[string]interface{}{"issueCount": 0, "nodes": []interface{}{}},
				"open":      map[string]interface{}{"issueCount": 0},
				"rateLimit": rateLimitJSON(4999),
			},
		})
	})

	transport := NewGraphQLTransport("test-token", server.URL+"/graphql")
	_, err := transport.FetchPage(context.Background(), testQuery(), Cursor{})
	if !errors.Is(err, pulseerrors.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if !strings.Contains(err.Error(), "1500") {
		t.Errorf("error should name the true count: %v", err)
	}
}

func TestGraphQLTransport_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		remaining string
		body      string
		wantErr   error
	}{
		{
			name:    "errors array is a hard failure",
			status:  http.StatusOK,
			body:    `{"data":null,"errors":[{"type":"RATE_LIMITED","message":"API rate limit exceeded for user ID 1."}]}`,
			wantErr: pulseerrors.ErrRateLimit,
		},
		{
			name:    "undecodable body",
			status:  http.StatusOK,
			body:    `<html>upstream error</html>`,
			wantErr: pulseerrors.ErrMalformedResponse,
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"message":"Bad credentials"}`,
			wantErr: pulseerrors.ErrInvalidToken,
		},
		{
			name:      "forbidden with exhausted quota",
			status:    http.StatusForbidden,
			remaining: "0",
			body:      `{"message":"You have exceeded a secondary limit"}`,
			wantErr:   pulseerrors.ErrRateLimit,
		},
		{
			name:      "forbidden with quota left",
			status:    http.StatusForbidden,
			remaining: "4000",
			body:      `{"message":"Resource not accessible by integration"}`,
			wantErr:   pulseerrors.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			server, _ := newGraphQLServer(t, func(w http.ResponseWriter, req graphqlRequest) {
				calls++
				if tt.remaining != "" {
					w.Header().Set(ratelimit.HeaderLimit, "5000")
					w.Header().Set(ratelimit.HeaderRemaining, tt.remaining)
					w.Header().Set(ratelimit.HeaderReset, strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
					w.Header().Set(ratelimit.HeaderResource, "graphql")
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			transport := NewGraphQLTransport("test-token", server.URL+"/graphql")
			_, err := transport.FetchPage(context.Background(), testQuery(), Cursor{})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if calls != 1 {
				t.Errorf("expected exactly one request, got %d", calls)
			}
		})
	}
}

func TestGraphQLTransport_FetchAggregates(t *testing.T) {
	server, requests := newGraphQLServer(t, func(w http.ResponseWriter, req graphqlRequest) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"total":     map[string]interface{}{"issueCount": 10},
				"merged":    map[string]interface{}{"issueCount": 8, "nodes": []interface{}{prNode(3, "MERGED", "2026-01-05T00:00:00Z")}},
				"open":      map[string]interface{}{"issueCount": 2},
				"rateLimit": rateLimitJSON(4998),
			},
		})
	})

	transport := NewGraphQLTransport("test-token", server.URL+"/graphql")
	agg, err := transport.FetchAggregates(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("FetchAggregates() error = %v", err)
	}

	if agg.Counts == nil || agg.Counts.Total != 10 || agg.Counts.Merged != 8 || agg.Counts.Open != 2 {
		t.Errorf("unexpected counts: %+v", agg.Counts)
	}
	if len(agg.MergedPRs) != 1 {
		t.Errorf("unexpected sample size: %d", len(agg.MergedPRs))
	}
	if strings.Contains((*requests)[0].Query, "agent:") {
		t.Error("aggregates query must not fetch an agent page")
	}
}

func TestGraphQLTransport_FetchMergedSample(t *testing.T) {
	server, requests := newGraphQLServer(t, func(w http.ResponseWriter, req graphqlRequest) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"merged":    map[string]interface{}{"issueCount": 1, "nodes": []interface{}{prNode(3, "MERGED", "2026-01-05T00:00:00Z")}},
				"rateLimit": rateLimitJSON(4997),
			},
		})
	})

	transport := NewGraphQLTransport("test-token", server.URL+"/graphql")
	agg, err := transport.FetchMergedSample(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("FetchMergedSample() error = %v", err)
	}
	if agg.Counts != nil {
		t.Error("merged sample must not carry counts")
	}
	if len(agg.MergedPRs) != 1 || !agg.MergedPRs[0].IsMerged() {
		t.Errorf("unexpected sample: %+v", agg.MergedPRs)
	}
	if strings.Contains((*requests)[0].Query, "total:") {
		t.Error("sample query must not request counts")
	}
}

func TestNormalizeState(t *testing.T) {
	tests := map[string]string{
		"OPEN":   StateOpen,
		"open":   StateOpen,
		"CLOSED": StateClosed,
		"MERGED": StateClosed,
	}
	for in, want := range tests {
		if got := normalizeState(in); got != want {
			t.Errorf("normalizeState(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQuotaRecorder(t *testing.T) {
	var nilRecorder *quotaRecorder
	if nilRecorder.Last() != nil {
		t.Error("nil recorder should report no quota")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(ratelimit.HeaderLimit, "60")
		w.Header().Set(ratelimit.HeaderRemaining, "0")
		w.Header().Set(ratelimit.HeaderReset, "1767225600")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	recorder := &quotaRecorder{}
	client := newHTTPClient("", recorder)
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	last := recorder.Last()
	if last == nil {
		t.Fatal("expected recorded quota")
	}
	if !last.Exhausted() || last.Reset != 1767225600 {
		t.Errorf("unexpected quota: %+v", last)
	}
}

func TestLimitedReader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	resp, err := newHTTPClient("", nil).Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	lr, ok := resp.Body.(*limitedReader)
	if !ok {
		t.Fatalf("body should be size limited, got %T", resp.Body)
	}
	lr.limit = 16

	buf := make([]byte, 64)
	total := 0
	var readErr error
	for readErr == nil {
		var n int
		n, readErr = lr.Read(buf)
		total += n
	}
	if total > 16 {
		t.Errorf("read %d bytes past the limit", total)
	}
	if !strings.Contains(readErr.Error(), "exceeded limit") {
		t.Errorf("expected size limit error, got %v", readErr)
	}
}

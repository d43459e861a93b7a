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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirseerhq/sirseer-pulse/internal/ratelimit"
)

// MockTransport is a scripted Transport for testing. It also implements
// Counter and MergedSampler, like the REST transport.
type MockTransport struct {
	mu sync.Mutex

	// TransportKind is returned by Kind. Defaults to KindREST.
	TransportKind Kind

	// Pages are returned by successive FetchPage calls.
	Pages []*Page

	// PageErrors fails the FetchPage call with the given index (0-based).
	PageErrors map[int]error

	// CountResults and CountErrors are keyed by "total", "merged" or "open".
	CountResults map[string]int
	CountErrors  map[string]error

	// Sample is returned by FetchMergedSample; SampleError fails it.
	Sample      *Aggregates
	SampleError error

	// Block, when set, makes every call wait until it is closed or ctx ends.
	Block chan struct{}

	// Track calls for verification
	FetchCalls  int
	CountCalls  int
	SampleCalls int
	Cursors     []Cursor
	Predicates  []string
}

// NewMockTransport creates a mock REST-like transport returning pages in order.
func NewMockTransport(pages ...*Page) *MockTransport {
	return &MockTransport{
		TransportKind: KindREST,
		Pages:         pages,
		CountResults:  map[string]int{},
		CountErrors:   map[string]error{},
	}
}

// Kind implements Transport
func (m *MockTransport) Kind() Kind {
	if m.TransportKind == "" {
		return KindREST
	}
	return m.TransportKind
}

// FetchPage implements Transport
func (m *MockTransport) FetchPage(ctx context.Context, q SearchQuery, cursor Cursor) (*Page, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.FetchCalls
	m.FetchCalls++
	m.Cursors = append(m.Cursors, cursor)
	m.Predicates = append(m.Predicates, q.AgentPredicate())

	if err, ok := m.PageErrors[idx]; ok {
		return nil, err
	}
	if idx >= len(m.Pages) {
		return &Page{}, nil
	}

	page := *m.Pages[idx]
	return &page, nil
}

// CountSearch implements Counter
func (m *MockTransport) CountSearch(ctx context.Context, predicate string) (int, *ratelimit.Info, error) {
	if err := m.wait(ctx); err != nil {
		return 0, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.CountCalls++
	m.Predicates = append(m.Predicates, predicate)

	key := countKey(predicate)
	if err := m.CountErrors[key]; err != nil {
		return 0, nil, err
	}
	return m.CountResults[key], &ratelimit.Info{Limit: 10, Remaining: 9, Resource: ratelimit.ResourceSearch}, nil
}

// FetchMergedSample implements MergedSampler
func (m *MockTransport) FetchMergedSample(ctx context.Context, q SearchQuery) (*Aggregates, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.SampleCalls++
	if m.SampleError != nil {
		return nil, m.SampleError
	}
	if m.Sample == nil {
		return &Aggregates{}, nil
	}
	sample := *m.Sample
	sample.Counts = nil
	return &sample, nil
}

// Calls returns the FetchPage, CountSearch and FetchMergedSample call counts.
func (m *MockTransport) Calls() (fetch, count, sample int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FetchCalls, m.CountCalls, m.SampleCalls
}

func (m *MockTransport) wait(ctx context.Context) error {
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return ctx.Err()
}

func countKey(predicate string) string {
	switch {
	case strings.Contains(predicate, "is:merged"):
		return "merged"
	case strings.Contains(predicate, "is:open"):
		return "open"
	default:
		return "total"
	}
}

// MockGraphQLTransport adds AggregateFetcher to MockTransport, like the
// GraphQL transport.
type MockGraphQLTransport struct {
	*MockTransport

	// Aggregates is returned by FetchAggregates; AggregatesError fails it.
	Aggregates      *Aggregates
	AggregatesError error
	AggregateCalls  int
}

// NewMockGraphQLTransport creates a mock GraphQL-like transport.
func NewMockGraphQLTransport(pages ...*Page) *MockGraphQLTransport {
	m := NewMockTransport(pages...)
	m.TransportKind = KindGraphQL
	return &MockGraphQLTransport{MockTransport: m}
}

// FetchAggregates implements AggregateFetcher
func (m *MockGraphQLTransport) FetchAggregates(ctx context.Context, q SearchQuery) (*Aggregates, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.AggregateCalls++
	if m.AggregatesError != nil {
		return nil, m.AggregatesError
	}
	if m.Aggregates == nil {
		return &Aggregates{Counts: &Counts{}}, nil
	}
	agg := *m.Aggregates
	return &agg, nil
}

// TestPullRequest builds a record for tests. mergedAfter < 0 means unmerged.
func TestPullRequest(number int, state string, created time.Time, mergedAfter time.Duration) PullRequest {
	title := "Automated change"
	url := "https://github.com/octo/repo/pull/" + strconv.Itoa(number)
	pr := PullRequest{
		ID:        int64(1_000_000 + number),
		Number:    number,
		Title:     &title,
		State:     state,
		CreatedAt: created,
		Author:    &Author{Login: "Copilot"},
		URL:       &url,
	}
	if mergedAfter >= 0 {
		merged := created.Add(mergedAfter)
		pr.MergedAt = &merged
		pr.State = StateClosed
	}
	return pr
}

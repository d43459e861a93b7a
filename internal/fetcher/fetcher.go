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
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sirseerhq/sirseer-pulse/internal/analytics"
	"github.com/sirseerhq/sirseer-pulse/internal/cache"
	pulseerrors "github.com/sirseerhq/sirseer-pulse/internal/errors"
	"github.com/sirseerhq/sirseer-pulse/internal/github"
	"github.com/sirseerhq/sirseer-pulse/internal/ratelimit"
)

// Mode forces a transport or leaves the choice to the token.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeREST    Mode = "rest"
	ModeGraphQL Mode = "graphql"
)

// TransportFactory builds the transport for one request.
type TransportFactory func(kind github.Kind, token string) (github.Transport, error)

// Fetcher is the acquisition orchestrator. It is safe for concurrent use;
// concurrent requests supersede each other.
type Fetcher struct {
	cache        *cache.Cache
	newTransport TransportFactory
	agent        string
	mode         Mode

	mu         sync.Mutex
	seq        uint64
	primary    lane
	comparison lane
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithAgent sets the author identity searched for.
func WithAgent(agent string) Option {
	return func(f *Fetcher) {
		if agent != "" {
			f.agent = agent
		}
	}
}

// WithMode forces a transport.
func WithMode(mode Mode) Option {
	return func(f *Fetcher) {
		if mode != "" {
			f.mode = mode
		}
	}
}

// WithEndpoints points the default transports at other API endpoints.
func WithEndpoints(endpoints github.Endpoints) Option {
	return func(f *Fetcher) {
		f.newTransport = func(kind github.Kind, token string) (github.Transport, error) {
			return github.NewTransport(kind, token, endpoints)
		}
	}
}

// WithTransportFactory replaces transport construction, for tests.
func WithTransportFactory(factory TransportFactory) Option {
	return func(f *Fetcher) {
		if factory != nil {
			f.newTransport = factory
		}
	}
}

// New creates a Fetcher over c.
func New(c *cache.Cache, opts ...Option) *Fetcher {
	f := &Fetcher{
		cache: c,
		agent: github.DefaultAgent,
		mode:  ModeAuto,
	}
	WithEndpoints(github.DefaultEndpoints())(f)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchPRs returns every pull request the agent authored in the requested
// repository and period, from cache when a live entry exists.
func (f *Fetcher) FetchPRs(ctx context.Context, req Request, progress Progress) (*Result, error) {
	if progress == nil {
		progress = NopProgress{}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ticket := f.Begin(ctx)
	defer ticket.Release()
	ctx = ticket.Ctx

	f.cache.SweepExpired(ctx)

	key := req.cacheKey(f.agent)
	if entry, ok := f.cache.Get(ctx, key); ok {
		progress.UpdatePhase("Loading from cache",
			fmt.Sprintf("%d pull requests for %s", len(entry.Data), req.FullName()))

		res := &Result{
			PullRequests: entry.Data,
			RateLimit:    entry.RateLimit,
			FromCache:    true,
			Counts:       entry.Counts,
			MergedPRs:    entry.MergedPRs,
		}
		if err := f.settle(ticket, "fetch of "+req.FullName(), nil); err != nil {
			return nil, err
		}
		return res, nil
	}

	transport, err := f.transportFor(req.Token)
	if err != nil {
		return nil, err
	}

	progress.UpdatePhase("Fetching pull requests",
		fmt.Sprintf("%s via %s", req.FullName(), transport.Kind()))

	q := req.searchQuery(f.agent)
	res := &Result{
		PullRequests: []github.PullRequest{},
		Transport:    transport.Kind(),
	}

	cursor := github.Cursor{}
	for page := 1; ; page++ {
		p, err := transport.FetchPage(ctx, q, cursor)
		if err != nil {
			return nil, f.settle(ticket, "fetch of "+req.FullName(), err)
		}
		res.APICalls++

		res.PullRequests = append(res.PullRequests, p.PullRequests...)
		if p.RateLimit != nil {
			res.RateLimit = p.RateLimit
		}
		if p.Counts != nil {
			counts := analytics.NormalizeCounts(*p.Counts)
			res.Counts = &counts
			res.MergedPRs = p.MergedPRs
		}

		progress.UpdateProgress(len(res.PullRequests), p.TotalCount, fmt.Sprintf("Page %d", page))

		if !p.HasMore {
			break
		}
		cursor = p.Next
	}

	if res.Counts == nil {
		if counter, ok := transport.(github.Counter); ok {
			progress.UpdatePhase("Counting repository pull requests", req.FullName())

			counts, rl, calls := f.countAll(ctx, counter, q)
			res.Counts = &counts
			res.APICalls += calls
			if rl != nil {
				res.RateLimit = rl
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, f.settle(ticket, "fetch of "+req.FullName(), err)
	}
	if err := f.settle(ticket, "fetch of "+req.FullName(), nil); err != nil {
		return nil, err
	}

	f.cache.Put(ctx, key, cache.Entry{
		Data:      res.PullRequests,
		RateLimit: res.RateLimit,
		Counts:    res.Counts,
		MergedPRs: res.MergedPRs,
	})

	slog.Debug("Fetch complete", "repo", req.FullName(), "transport", res.Transport,
		"pull_requests", len(res.PullRequests), "api_calls", res.APICalls)

	return res, nil
}

func (f *Fetcher) transportFor(token string) (github.Transport, error) {
	var kind github.Kind
	switch f.mode {
	case ModeREST:
		kind = github.KindREST
	case ModeGraphQL:
		if token == "" {
			return nil, fmt.Errorf("the GraphQL transport requires a token. Provide one via --token or GITHUB_TOKEN: %w",
				pulseerrors.ErrInvalidToken)
		}
		kind = github.KindGraphQL
	default:
		kind = github.SelectKind(token)
	}

	transport, err := f.newTransport(kind, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s transport: %w", kind, err)
	}
	return transport, nil
}

// countOutcome is the settled result of one count search.
type countOutcome struct {
	n    int
	rate *ratelimit.Info
	err  error
}

// countAll runs the total, merged and open count searches concurrently and
// waits for all three. A failed search counts as zero; it never fails the
// others or the request.
func (f *Fetcher) countAll(ctx context.Context, counter github.Counter, q github.SearchQuery) (github.Counts, *ratelimit.Info, int) {
	predicates := [3]string{
		q.RepoPredicate(),
		q.RepoPredicate("is:merged"),
		q.RepoPredicate("is:open"),
	}

	var outcomes [3]countOutcome
	var wg sync.WaitGroup
	for i, predicate := range predicates {
		i, predicate := i, predicate
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, rl, err := counter.CountSearch(ctx, predicate)
			outcomes[i] = countOutcome{n: n, rate: rl, err: err}
		}()
	}
	wg.Wait()

	var rate *ratelimit.Info
	for i, o := range outcomes {
		if o.err != nil {
			slog.Debug("Count search failed, using zero", "query", predicates[i], "error", o.err)
			outcomes[i].n = 0
		}
		if o.rate != nil && (rate == nil || o.rate.Remaining < rate.Remaining) {
			rate = o.rate
		}
	}

	counts := analytics.NormalizeCounts(github.Counts{
		Total:  outcomes[0].n,
		Merged: outcomes[1].n,
		Open:   outcomes[2].n,
	})
	return counts, rate, len(predicates)
}

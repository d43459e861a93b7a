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

	"github.com/sirseerhq/sirseer-pulse/internal/analytics"
	"github.com/sirseerhq/sirseer-pulse/internal/github"
)

// FetchComparisonData returns the repository-wide counts and merged sample
// for the request's period. It reuses whatever the cached fetch already
// holds: when counts are cached only the merged sample is fetched, and when
// both are cached no call is made. The result is attached to the cache
// entry.
func (f *Fetcher) FetchComparisonData(ctx context.Context, req Request, progress Progress) (*Comparison, error) {
	if progress == nil {
		progress = NopProgress{}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ticket := f.beginComparison(ctx)
	defer ticket.Release()
	ctx = ticket.Ctx
	what := "comparison for " + req.FullName()

	key := req.cacheKey(f.agent)
	entry, hit := f.cache.Get(ctx, key)
	if hit && entry.HasCounts() && entry.MergedPRs != nil {
		progress.UpdatePhase("Loading comparison data from cache", req.FullName())
		if err := f.settle(ticket, what, nil); err != nil {
			return nil, err
		}
		return &Comparison{
			Counts:    analytics.NormalizeCounts(*entry.Counts),
			MergedPRs: entry.MergedPRs,
			RateLimit: entry.RateLimit,
			FromCache: true,
		}, nil
	}

	transport, err := f.transportFor(req.Token)
	if err != nil {
		return nil, err
	}
	q := req.searchQuery(f.agent)
	cmp := &Comparison{Transport: transport.Kind()}

	switch {
	case hit && entry.HasCounts():
		progress.UpdatePhase("Fetching merged pull requests", req.FullName())
		agg, err := f.mergedSample(ctx, transport, q)
		if err != nil {
			return nil, f.settle(ticket, what, err)
		}
		cmp.Counts = *entry.Counts
		cmp.MergedPRs = agg.MergedPRs
		cmp.RateLimit = agg.RateLimit
		cmp.APICalls = 1

	default:
		progress.UpdatePhase("Fetching repository comparison data", req.FullName())
		if err := f.fullAggregates(ctx, transport, q, cmp); err != nil {
			return nil, f.settle(ticket, what, err)
		}
	}

	cmp.Counts = analytics.NormalizeCounts(cmp.Counts)
	if cmp.MergedPRs == nil {
		cmp.MergedPRs = []github.PullRequest{}
	}

	if err := ctx.Err(); err != nil {
		return nil, f.settle(ticket, what, err)
	}
	if err := f.settle(ticket, what, nil); err != nil {
		return nil, err
	}

	counts := cmp.Counts
	f.cache.UpdateAggregates(ctx, key, &counts, cmp.MergedPRs, cmp.RateLimit)
	return cmp, nil
}

// fullAggregates fetches counts and the merged sample in as few calls as
// the transport allows.
func (f *Fetcher) fullAggregates(ctx context.Context, transport github.Transport, q github.SearchQuery, cmp *Comparison) error {
	if fetcher, ok := transport.(github.AggregateFetcher); ok {
		agg, err := fetcher.FetchAggregates(ctx, q)
		if err != nil {
			return err
		}
		if agg.Counts != nil {
			cmp.Counts = *agg.Counts
		}
		cmp.MergedPRs = agg.MergedPRs
		cmp.RateLimit = agg.RateLimit
		cmp.APICalls = 1
		return nil
	}

	counter, ok := transport.(github.Counter)
	if !ok {
		return fmt.Errorf("%s transport cannot count pull requests", transport.Kind())
	}

	counts, rate, calls := f.countAll(ctx, counter, q)
	agg, err := f.mergedSample(ctx, transport, q)
	if err != nil {
		return err
	}

	cmp.Counts = counts
	cmp.MergedPRs = agg.MergedPRs
	cmp.RateLimit = rate
	if agg.RateLimit != nil {
		cmp.RateLimit = agg.RateLimit
	}
	cmp.APICalls = calls + 1
	return nil
}

func (f *Fetcher) mergedSample(ctx context.Context, transport github.Transport, q github.SearchQuery) (*github.Aggregates, error) {
	sampler, ok := transport.(github.MergedSampler)
	if !ok {
		return nil, fmt.Errorf("%s transport cannot fetch merged pull requests", transport.Kind())
	}
	return sampler.FetchMergedSample(ctx, q)
}

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

	"github.com/sirseerhq/sirseer-pulse/internal/ratelimit"
)

// Kind names a transport protocol.
type Kind string

const (
	KindREST    Kind = "rest"
	KindGraphQL Kind = "graphql"
)

// Transport pages through one upstream protocol and normalises its records.
// Implementations must honour ctx cancellation on every network call and
// must not retry.
type Transport interface {
	// Kind identifies the protocol, used for logging and rate-limit display.
	Kind() Kind

	// FetchPage retrieves the page at cursor for the agent search in q.
	// It fails with ErrTruncated when the true result count exceeds
	// MaxSearchResults and with ErrIncompleteResults when GitHub flags
	// the page as incomplete.
	FetchPage(ctx context.Context, q SearchQuery, cursor Cursor) (*Page, error)
}

// Counter runs count-only searches. The REST transport implements it so the
// orchestrator can fan out the total/merged/open queries concurrently.
type Counter interface {
	CountSearch(ctx context.Context, predicate string) (int, *ratelimit.Info, error)
}

// AggregateFetcher retrieves all comparison aggregates in a single call.
type AggregateFetcher interface {
	FetchAggregates(ctx context.Context, q SearchQuery) (*Aggregates, error)
}

// MergedSampler retrieves up to MergedSampleSize merged pull requests for
// the repository and period, without counts.
type MergedSampler interface {
	FetchMergedSample(ctx context.Context, q SearchQuery) (*Aggregates, error)
}

// Endpoints configures where each transport sends its requests.
type Endpoints struct {
	APIEndpoint     string
	GraphQLEndpoint string
}

// DefaultEndpoints points at public github.com.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		APIEndpoint:     "https://api.github.com",
		GraphQLEndpoint: "https://api.github.com/graphql",
	}
}

// SelectKind chooses the transport for a request: GraphQL whenever a token
// is present (it is far cheaper against quota), REST otherwise.
func SelectKind(token string) Kind {
	if token != "" {
		return KindGraphQL
	}
	return KindREST
}

// NewTransport builds the transport of the given kind for one request.
// GraphQL requires a token; asking for it anonymously yields REST.
func NewTransport(kind Kind, token string, endpoints Endpoints) (Transport, error) {
	if kind == KindGraphQL && token != "" {
		return NewGraphQLTransport(token, endpoints.GraphQLEndpoint), nil
	}
	return NewRESTTransport(token, endpoints.APIEndpoint)
}

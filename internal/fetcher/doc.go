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

// Package fetcher drives pull request acquisition for one repository and
// date range.
//
// A Fetcher owns the cache, chooses a transport per request (GraphQL when a
// token is present, REST otherwise), pages it to completion and writes the
// result back. REST fetches also fan out three count searches to build the
// repository-wide counts that the GraphQL first page returns for free.
//
// Requests on one Fetcher supersede each other: starting a fetch cancels
// the context of the previous one, and a result that completes after being
// superseded is dropped and reported as errors.ErrSuperseded.
//
// Nothing is retried. Every failure is returned once and the caller decides
// whether to ask again.
package fetcher

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

// Package analytics derives statistics from pull request records.
//
// Every function here is pure: it reads a slice of github.PullRequest and
// returns values, never touching the network or the cache. The caller runs
// these on the records the fetcher returns.
//
// Classification follows one rule: a record with a merge timestamp is
// merged whatever its state says. Closed means closed without merge, and
// repository-wide closed counts are always derived (see AdjustClosedCount).
package analytics

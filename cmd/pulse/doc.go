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

// Package main implements the sirseer-pulse command-line interface.
// It finds the pull requests an AI coding agent authored in a GitHub
// repository and summarises how they fared.
//
// Usage:
//
//	sirseer-pulse fetch <owner>/<repo> [--from DATE] [--to DATE] [--compare] [flags]
//	sirseer-pulse report <owner>/<repo> [--json]
//	sirseer-pulse cache sweep|clear
//
// Example:
//
//	export GITHUB_TOKEN=your_token
//	sirseer-pulse fetch octo/hello --from 30d --compare --output prs.ndjson
//
// Exit codes:
//   - 0: Success
//   - 1: General error
//   - 2: Authentication, access, missing repository or rate limit
//   - 3: Network error
//   - 4: Truncated, incomplete or rejected search
//   - 130: Cancelled
package main

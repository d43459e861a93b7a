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

package analytics

import (
	"math"

	"github.com/sirseerhq/sirseer-pulse/internal/github"
)

// Classification counts records by outcome.
type Classification struct {
	Total     int `json:"total"`
	Merged    int `json:"merged"`
	Closed    int `json:"closed"`
	Open      int `json:"open"`
	MergeRate int `json:"merge_rate"`
}

// Classify counts merged, closed-without-merge and open records.
// Records in any other state are not counted, so
// Merged+Closed+Open == Total always holds.
func Classify(prs []github.PullRequest) Classification {
	var c Classification
	for _, pr := range prs {
		switch {
		case pr.IsMerged():
			c.Merged++
		case pr.IsClosedUnmerged():
			c.Closed++
		case pr.IsOpen():
			c.Open++
		default:
			continue
		}
		c.Total++
	}
	c.MergeRate = MergeRate(c.Merged, c.Total)
	return c
}

// MergeRate returns round(100*merged/total), or 0 when total is 0.
func MergeRate(merged, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(merged) / float64(total)))
}

// AdjustClosedCount derives closed-without-merge from the three queried
// counts, clamped at zero when the counts disagree.
func AdjustClosedCount(total, merged, open int) int {
	closed := total - merged - open
	if closed < 0 {
		return 0
	}
	return closed
}

// NormalizeCounts clamps negative counts to zero and recomputes Closed.
// Any Closed value already present is ignored.
func NormalizeCounts(c github.Counts) github.Counts {
	out := github.Counts{
		Total:  max(c.Total, 0),
		Merged: max(c.Merged, 0),
		Open:   max(c.Open, 0),
	}
	out.Closed = AdjustClosedCount(out.Total, out.Merged, out.Open)
	return out
}

// Comparison sets the agent's records against the whole repository for the
// same period.
type Comparison struct {
	Agent      Classification `json:"agent"`
	Repository Classification `json:"repository"`

	// AgentShare is the percentage of the repository's pull requests that
	// the agent authored.
	AgentShare int `json:"agent_share"`

	// MergeRateDelta is Agent.MergeRate minus Repository.MergeRate.
	MergeRateDelta int `json:"merge_rate_delta"`
}

// Compare builds the comparison row from the agent classification and the
// repository counts.
func Compare(agent Classification, all github.Counts) Comparison {
	all = NormalizeCounts(all)
	repo := Classification{
		Total:     all.Total,
		Merged:    all.Merged,
		Closed:    all.Closed,
		Open:      all.Open,
		MergeRate: MergeRate(all.Merged, all.Total),
	}

	return Comparison{
		Agent:          agent,
		Repository:     repo,
		AgentShare:     min(MergeRate(agent.Total, repo.Total), 100),
		MergeRateDelta: agent.MergeRate - repo.MergeRate,
	}
}

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
	"sort"

	"github.com/sirseerhq/sirseer-pulse/internal/github"
)

// Bucket is one bar of the merge latency histogram. The range is
// [MinHours, MaxHours); MaxHours of zero marks the unbounded last bucket.
type Bucket struct {
	Label    string  `json:"label"`
	MinHours float64 `json:"min_hours"`
	MaxHours float64 `json:"max_hours,omitempty"`
	Count    int     `json:"count"`
}

// Contains reports whether a duration in hours falls in the bucket.
func (b Bucket) Contains(hours float64) bool {
	if hours < b.MinHours {
		return false
	}
	return b.MaxHours == 0 || hours < b.MaxHours
}

// ResponseTimeMetrics summarises time-to-merge over merged records.
// All durations are in hours.
type ResponseTimeMetrics struct {
	Average     float64   `json:"average_hours"`
	Median      float64   `json:"median_hours"`
	Fastest     float64   `json:"fastest_hours"`
	Slowest     float64   `json:"slowest_hours"`
	Buckets     [6]Bucket `json:"buckets"`
	TotalMerged int       `json:"total_merged"`
}

// NewBuckets returns the empty histogram: <1h, 1-6h, 6-24h, 1-3d, 3-7d, 7d+.
func NewBuckets() [6]Bucket {
	return [6]Bucket{
		{Label: "<1h", MinHours: 0, MaxHours: 1},
		{Label: "1-6h", MinHours: 1, MaxHours: 6},
		{Label: "6-24h", MinHours: 6, MaxHours: 24},
		{Label: "1-3d", MinHours: 24, MaxHours: 72},
		{Label: "3-7d", MinHours: 72, MaxHours: 168},
		{Label: "7d+", MinHours: 168},
	}
}

// ResponseTimes computes time-to-merge statistics. It reports false when no
// record has a usable merge duration. Records whose duration is negative or
// non-finite, or that lack a creation time, are excluded from every figure.
func ResponseTimes(prs []github.PullRequest) (*ResponseTimeMetrics, bool) {
	hours := mergeDurations(prs)
	if len(hours) == 0 {
		return nil, false
	}

	sort.Float64s(hours)

	m := &ResponseTimeMetrics{
		Fastest:     hours[0],
		Slowest:     hours[len(hours)-1],
		Median:      median(hours),
		Buckets:     NewBuckets(),
		TotalMerged: len(hours),
	}

	var sum float64
	for _, h := range hours {
		sum += h
		for i := range m.Buckets {
			if m.Buckets[i].Contains(h) {
				m.Buckets[i].Count++
				break
			}
		}
	}
	m.Average = sum / float64(len(hours))

	return m, true
}

func mergeDurations(prs []github.PullRequest) []float64 {
	hours := make([]float64, 0, len(prs))
	for _, pr := range prs {
		if pr.MergedAt == nil || pr.MergedAt.IsZero() || pr.CreatedAt.IsZero() {
			continue
		}
		h := pr.MergedAt.Sub(pr.CreatedAt).Hours()
		if h < 0 || math.IsNaN(h) || math.IsInf(h, 0) {
			continue
		}
		hours = append(hours, h)
	}
	return hours
}

// median expects sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

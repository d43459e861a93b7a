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
	"sort"
	"time"

	"github.com/sirseerhq/sirseer-pulse/internal/github"
)

// DateLayout is the format of DayCount.Date.
const DateLayout = "2006-01-02"

// DayCount is one point of the per-day chart series.
type DayCount struct {
	Date   string `json:"date"`
	Total  int    `json:"total"`
	Merged int    `json:"merged"`
	Closed int    `json:"closed"`
	Open   int    `json:"open"`
}

// BucketByDate groups records by the UTC calendar day they were created.
//
// With both bounds it emits every day of the inclusive range, zero days
// included, and drops records outside it. With either bound missing it
// emits only the days present in the data, ascending.
func BucketByDate(prs []github.PullRequest, from, to *time.Time) []DayCount {
	byDay := make(map[string]*DayCount)
	for _, pr := range prs {
		if pr.CreatedAt.IsZero() {
			continue
		}
		day := pr.CreatedAt.UTC().Format(DateLayout)
		dc, ok := byDay[day]
		if !ok {
			dc = &DayCount{Date: day}
			byDay[day] = dc
		}
		add(dc, pr)
	}

	if from != nil && to != nil {
		return fillRange(byDay, truncateDay(*from), truncateDay(*to))
	}

	series := make([]DayCount, 0, len(byDay))
	for _, dc := range byDay {
		series = append(series, *dc)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series
}

func fillRange(byDay map[string]*DayCount, start, end time.Time) []DayCount {
	if end.Before(start) {
		return []DayCount{}
	}

	series := make([]DayCount, 0, int(end.Sub(start).Hours()/24)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(DateLayout)
		if dc, ok := byDay[key]; ok {
			series = append(series, *dc)
			continue
		}
		series = append(series, DayCount{Date: key})
	}
	return series
}

func add(dc *DayCount, pr github.PullRequest) {
	switch {
	case pr.IsMerged():
		dc.Merged++
	case pr.IsClosedUnmerged():
		dc.Closed++
	case pr.IsOpen():
		dc.Open++
	default:
		return
	}
	dc.Total++
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

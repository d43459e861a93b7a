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

// Package metadata builds and persists fetch reports. A report records the
// request, how it was served (transport, cache, API calls, quota) and an
// analytics summary of the records, under a unique fetch ID.
package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sirseerhq/sirseer-pulse/internal/analytics"
	"github.com/sirseerhq/sirseer-pulse/internal/github"
	"github.com/sirseerhq/sirseer-pulse/internal/ratelimit"
)

const reportGlob = "fetch-report-*.json"

// Tracker collects statistics during a fetch and generates its report.
// Create one at the start of each fetch.
type Tracker struct {
	startTime time.Time
	now       func() time.Time

	apiCalls  int
	fromCache bool
	transport string
	rateLimit *ratelimit.Info
	prStats   PRStats
	prs       []github.PullRequest

	comparison *analytics.Comparison
	repoTimes  *analytics.ResponseTimeMetrics
}

// PRStats holds the numerical and temporal range of the fetched records.
type PRStats struct {
	TotalPRs int       // Total number of PRs processed
	FirstPR  int       // Lowest PR number seen
	LastPR   int       // Highest PR number seen
	OldestPR time.Time // Earliest PR creation date
	NewestPR time.Time // Latest PR creation date
}

// New creates a tracker started now.
func New() *Tracker {
	return &Tracker{startTime: time.Now(), now: time.Now}
}

// RecordFetch records how the fetch was served.
func (t *Tracker) RecordFetch(transport github.Kind, apiCalls int, fromCache bool, rl *ratelimit.Info) {
	t.transport = string(transport)
	t.apiCalls += apiCalls
	t.fromCache = fromCache
	if rl != nil {
		t.rateLimit = rl
	}
}

// RecordComparison attaches the comparison data. It may be called after
// the records have been added.
func (t *Tracker) RecordComparison(apiCalls int, counts github.Counts, merged []github.PullRequest, rl *ratelimit.Info) {
	t.apiCalls += apiCalls
	if rl != nil {
		t.rateLimit = rl
	}

	cmp := analytics.Compare(analytics.Classify(t.prs), counts)
	t.comparison = &cmp
	if m, ok := analytics.ResponseTimes(merged); ok {
		t.repoTimes = m
	}
}

// AddPullRequests adds fetched records to the report.
func (t *Tracker) AddPullRequests(prs []github.PullRequest) {
	for _, pr := range prs {
		t.UpdatePRStats(pr.Number, pr.CreatedAt)
	}
	t.prs = append(t.prs, prs...)
}

// UpdatePRStats updates the running statistics with a single pull request.
func (t *Tracker) UpdatePRStats(prNumber int, createdAt time.Time) {
	t.prStats.TotalPRs++

	// Track first and last PR numbers
	if t.prStats.FirstPR == 0 || prNumber < t.prStats.FirstPR {
		t.prStats.FirstPR = prNumber
	}
	if prNumber > t.prStats.LastPR {
		t.prStats.LastPR = prNumber
	}

	// Track oldest and newest PR dates
	if t.prStats.OldestPR.IsZero() || createdAt.Before(t.prStats.OldestPR) {
		t.prStats.OldestPR = createdAt
	}
	if createdAt.After(t.prStats.NewestPR) {
		t.prStats.NewestPR = createdAt
	}
}

// Generate creates the report. Call it once the fetch, and the comparison
// if any, has completed.
func (t *Tracker) Generate(pulseVersion string, params Params) *Report {
	completedAt := t.now()

	summary := Summary{
		Classification:          analytics.Classify(t.prs),
		Daily:                   analytics.BucketByDate(t.prs, params.From, params.To),
		Comparison:              t.comparison,
		RepositoryResponseTimes: t.repoTimes,
	}
	if m, ok := analytics.ResponseTimes(t.prs); ok {
		summary.ResponseTimes = m
	}

	return &Report{
		PulseVersion: pulseVersion,
		FetchID:      uuid.NewString(),
		Parameters:   params,
		Results: Results{
			TotalPRs:     t.prStats.TotalPRs,
			FirstPR:      t.prStats.FirstPR,
			LastPR:       t.prStats.LastPR,
			OldestPR:     t.prStats.OldestPR,
			NewestPR:     t.prStats.NewestPR,
			Transport:    t.transport,
			FromCache:    t.fromCache,
			APICallCount: t.apiCalls,
			RateLimit:    t.rateLimit,
			Duration:     completedAt.Sub(t.startTime).Round(time.Millisecond).String(),
			StartedAt:    t.startTime,
			CompletedAt:  completedAt,
		},
		Summary: summary,
	}
}

// SaveReport writes report as indented JSON into dir, atomically. The file
// is named fetch-report-{started}-{fetch id}.json so names sort by time.
func SaveReport(report *Report, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	filename := fmt.Sprintf("fetch-report-%d-%s.json", report.Results.StartedAt.Unix(), report.FetchID)
	path := filepath.Join(dir, filename)

	// Write to temporary file first for atomicity
	tmpFile := path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}

	if err := WriteReport(report, file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpFile)
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpFile)
		return "", fmt.Errorf("failed to close report file: %w", err)
	}

	// Atomically rename to final location
	if err := os.Rename(tmpFile, path); err != nil {
		_ = os.Remove(tmpFile)
		return "", fmt.Errorf("failed to save report file: %w", err)
	}

	return path, nil
}

// LoadLatestReport returns the newest report in dir for owner/repo, or nil
// if there is none.
func LoadLatestReport(dir, repo string) (*Report, error) {
	files, err := filepath.Glob(filepath.Join(dir, reportGlob))
	if err != nil {
		return nil, fmt.Errorf("failed to list report files: %w", err)
	}

	var latest *Report
	for _, path := range files {
		report, err := readReport(path)
		if err != nil {
			continue
		}

		fullRepo := report.Parameters.Owner + "/" + report.Parameters.Repository
		if !strings.EqualFold(fullRepo, repo) {
			continue
		}
		if latest == nil || report.Results.StartedAt.After(latest.Results.StartedAt) {
			latest = report
		}
	}

	return latest, nil
}

func readReport(path string) (*Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer file.Close()

	var report Report
	if err := json.NewDecoder(file).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// WriteReport serializes report as indented JSON to w.
func WriteReport(report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

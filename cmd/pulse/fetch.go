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

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sirseerhq/sirseer-pulse/internal/analytics"
	"github.com/sirseerhq/sirseer-pulse/internal/config"
	"github.com/sirseerhq/sirseer-pulse/internal/fetcher"
	"github.com/sirseerhq/sirseer-pulse/internal/github"
	"github.com/sirseerhq/sirseer-pulse/internal/metadata"
	"github.com/sirseerhq/sirseer-pulse/internal/output"
	"github.com/sirseerhq/sirseer-pulse/pkg/version"
)

// fetchOptions are the fetch command's flags.
type fetchOptions struct {
	token      string
	from       string
	to         string
	compare    bool
	outputFile string
	format     string
	transport  string
	reportDir  string
	noReport   bool
}

func newFetchCommand(global *globalOptions) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch <owner>/<repo>",
		Short: "Fetch the agent's pull requests from a GitHub repository",
		Long: `Fetch the pull requests the configured agent authored in a GitHub
repository, write them as NDJSON or JSON, and print a summary.

Dates accept YYYY-MM-DD, RFC 3339 timestamps, or a relative age such as
7d or 2w. Either bound may be omitted.

A token is optional. With one, the GraphQL API is used; without one, the
REST search API is used at a much lower quota:
  - Use --token flag to provide token directly
  - Or set GITHUB_TOKEN environment variable`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd.Context(), global, opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.token, "token", "", "GitHub personal access token (overrides GITHUB_TOKEN env var)")
	cmd.Flags().StringVar(&opts.from, "from", "", "Only PRs created on or after this date")
	cmd.Flags().StringVar(&opts.to, "to", "", "Only PRs created on or before this date")
	cmd.Flags().BoolVar(&opts.compare, "compare", false, "Compare the agent with the whole repository")
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&opts.format, "format", "", "Output format: ndjson or json (default from config)")
	cmd.Flags().StringVar(&opts.transport, "transport", "", "Force a transport: auto, rest or graphql")
	cmd.Flags().StringVar(&opts.reportDir, "report-dir", "", "Directory for fetch reports (default from config)")
	cmd.Flags().BoolVar(&opts.noReport, "no-report", false, "Do not save a fetch report")

	return cmd
}

// runFetch executes the fetch command
func runFetch(ctx context.Context, global *globalOptions, opts *fetchOptions, repoArg string, stdout, stderr io.Writer) error {
	owner, repo, err := parseRepository(repoArg)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfigForRepo(global.configPath, owner+"/"+repo)
	if err != nil {
		return err
	}
	if opts.transport != "" {
		cfg.Transport = strings.ToLower(opts.transport)
	}
	if opts.format != "" {
		cfg.Output.Format = opts.format
	}
	if opts.reportDir != "" {
		cfg.Output.ReportDir = opts.reportDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	req := fetcher.Request{
		Owner: owner,
		Repo:  repo,
		Token: getToken(opts.token, cfg),
	}
	now := time.Now().UTC()
	if opts.from != "" {
		from, err := parseDate(opts.from, now)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		req.From = &from
	}
	if opts.to != "" {
		to, err := parseDate(opts.to, now)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
		req.To = &to
	}
	if err := req.Validate(); err != nil {
		return err
	}

	c, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	f := fetcher.New(c,
		fetcher.WithAgent(cfg.Search.Agent),
		fetcher.WithMode(fetcher.Mode(cfg.Transport)),
		fetcher.WithEndpoints(github.Endpoints{
			APIEndpoint:     cfg.GitHub.APIEndpoint,
			GraphQLEndpoint: cfg.GitHub.GraphQLEndpoint,
		}),
	)

	progress := fetcher.NewTerminalProgress(stderr)
	tracker := metadata.New()

	res, err := f.FetchPRs(ctx, req, progress)
	if err != nil {
		progress.Done("")
		return err
	}
	tracker.AddPullRequests(res.PullRequests)
	tracker.RecordFetch(res.Transport, res.APICalls, res.FromCache, res.RateLimit)

	if err := writeRecords(stdout, opts.outputFile, format, res.PullRequests); err != nil {
		progress.Done("")
		return err
	}

	if opts.compare {
		cmp, err := f.FetchComparisonData(ctx, req, progress)
		if err != nil {
			progress.Done("")
			return fmt.Errorf("failed to fetch comparison data: %w", err)
		}
		tracker.RecordComparison(cmp.APICalls, cmp.Counts, cmp.MergedPRs, cmp.RateLimit)
	}

	progress.Done(fmt.Sprintf("Fetched %d pull requests from %s", len(res.PullRequests), req.FullName()))

	report := tracker.Generate(version.Version, metadata.Params{
		Owner:         owner,
		Repository:    repo,
		Agent:         cfg.Search.Agent,
		From:          req.From,
		To:            req.To,
		Authenticated: req.Authenticated(),
	})
	printSummary(stderr, report)

	if !opts.noReport && cfg.Output.ReportDir != "" {
		path, err := metadata.SaveReport(report, cfg.Output.ReportDir)
		if err != nil {
			// The records are already written; a missing report is not fatal.
			fmt.Fprintf(stderr, "Warning: %v\n", err)
		} else {
			fmt.Fprintf(stderr, "Report saved to %s\n", path)
		}
	}

	return nil
}

// writeRecords writes prs to filename, or to stdout when no file is named.
func writeRecords(stdout io.Writer, filename string, format output.Format, prs []github.PullRequest) error {
	var (
		writer output.RecordWriter
		err    error
	)
	if filename == "" || filename == "-" {
		writer, err = output.New(stdout, format)
	} else {
		writer, err = output.Open(filename, format)
	}
	if err != nil {
		return err
	}
	for _, pr := range prs {
		if err := writer.Write(pr); err != nil {
			_ = writer.Close()
			return fmt.Errorf("failed to write PR: %w", err)
		}
	}
	return writer.Close()
}

// printSummary writes the analytics of report in a human-readable form.
func printSummary(w io.Writer, report *metadata.Report) {
	s := report.Summary
	c := s.Classification

	fmt.Fprintf(w, "\nAgent %s in %s/%s\n", report.Parameters.Agent,
		report.Parameters.Owner, report.Parameters.Repository)
	fmt.Fprintf(w, "  Pull requests: %d (merged %d, closed %d, open %d)\n", c.Total, c.Merged, c.Closed, c.Open)
	fmt.Fprintf(w, "  Merge rate:    %d%%\n", c.MergeRate)
	if s.ResponseTimes != nil {
		printResponseTimes(w, "  Time to merge", s.ResponseTimes)
	}

	if cmp := s.Comparison; cmp != nil {
		r := cmp.Repository
		fmt.Fprintf(w, "\nRepository\n")
		fmt.Fprintf(w, "  Pull requests: %d (merged %d, closed %d, open %d)\n", r.Total, r.Merged, r.Closed, r.Open)
		fmt.Fprintf(w, "  Merge rate:    %d%%\n", r.MergeRate)
		fmt.Fprintf(w, "  Agent share:   %d%%\n", cmp.AgentShare)
		fmt.Fprintf(w, "  Merge rate delta: %+d points\n", cmp.MergeRateDelta)
		if s.RepositoryResponseTimes != nil {
			printResponseTimes(w, "  Time to merge", s.RepositoryResponseTimes)
		}
	}

	res := report.Results
	source := "via " + res.Transport
	if res.FromCache {
		source = "from cache"
	}
	fmt.Fprintf(w, "\nServed %s with %d API calls in %s\n", source, res.APICallCount, res.Duration)
	if res.RateLimit != nil {
		fmt.Fprintf(w, "Rate limit: %s\n", res.RateLimit.Summary(time.Now()))
	}
}

func printResponseTimes(w io.Writer, label string, m *analytics.ResponseTimeMetrics) {
	fmt.Fprintf(w, "%s: median %s, average %s (fastest %s, slowest %s)\n", label,
		formatHours(m.Median), formatHours(m.Average), formatHours(m.Fastest), formatHours(m.Slowest))
	for _, b := range m.Buckets {
		fmt.Fprintf(w, "    %-6s %d\n", b.Label, b.Count)
	}
}

func formatHours(h float64) string {
	if h < 48 {
		return strconv.FormatFloat(h, 'f', 1, 64) + "h"
	}
	return strconv.FormatFloat(h/24, 'f', 1, 64) + "d"
}

// parseRepository parses an owner/repo string into owner and repo components
func parseRepository(repoArg string) (owner, repo string, err error) {
	parts := strings.Split(repoArg, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid repository format. Expected: <owner>/<repo>, got: %s", repoArg)
	}

	owner = strings.TrimSpace(parts[0])
	repo = strings.TrimSpace(parts[1])

	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository format. Expected: <owner>/<repo>, got: %s", repoArg)
	}

	return owner, repo, nil
}

// getToken returns the GitHub token from the flag, falling back to the
// environment variable named in the configuration.
func getToken(flagToken string, cfg *config.Config) string {
	if flagToken != "" {
		return flagToken
	}
	return cfg.Token()
}

// parseDate accepts YYYY-MM-DD, RFC 3339, or an age in days or weeks
// ("7d", "2w") counted back from now.
func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}

	if n := len(s); n > 1 {
		unit := s[n-1]
		count, err := strconv.Atoi(s[:n-1])
		if err == nil && count >= 0 {
			switch unit {
			case 'd':
				return now.AddDate(0, 0, -count), nil
			case 'w':
				return now.AddDate(0, 0, -7*count), nil
			}
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised date %q (want YYYY-MM-DD, RFC 3339, or an age like 7d)", s)
}

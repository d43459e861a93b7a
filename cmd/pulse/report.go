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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sirseerhq/sirseer-pulse/internal/config"
	"github.com/sirseerhq/sirseer-pulse/internal/metadata"
)

func newReportCommand(global *globalOptions) *cobra.Command {
	var (
		reportDir string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "report <owner>/<repo>",
		Short: "Show the latest saved fetch report for a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := parseRepository(args[0])
			if err != nil {
				return err
			}

			if reportDir == "" {
				cfg, err := config.LoadConfig(global.configPath)
				if err != nil {
					return err
				}
				reportDir = cfg.Output.ReportDir
			}

			report, err := metadata.LoadLatestReport(reportDir, owner+"/"+repo)
			if err != nil {
				return err
			}
			if report == nil {
				return fmt.Errorf("no fetch report for %s/%s in %s", owner, repo, reportDir)
			}

			if asJSON {
				return metadata.WriteReport(report, cmd.OutOrStdout())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetch %s at %s\n", report.FetchID,
				report.Results.CompletedAt.Local().Format("2006-01-02 15:04:05"))
			printSummary(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Directory holding fetch reports (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}

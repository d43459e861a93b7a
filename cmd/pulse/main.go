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
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	pulseerrors "github.com/sirseerhq/sirseer-pulse/internal/errors"
	"github.com/sirseerhq/sirseer-pulse/pkg/version"
)

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configPath string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCommand(stdout, stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if pulseerrors.IsCancellation(err) {
		return exitCancelled
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	if hint := rateLimitHint(err); hint != "" {
		fmt.Fprintln(stderr, hint)
	}
	return mapErrorToExitCode(err)
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "sirseer-pulse",
		Short: "Measure an AI coding agent's pull request activity on GitHub",
		Long: `SirSeer Pulse finds the pull requests an AI coding agent authored in a
GitHub repository, classifies them as merged, closed or open, and compares
the agent's merge rate and time-to-merge with the repository as a whole.`,
		Version:       version.Version,
		SilenceUsage:  true, // Don't show usage on error
		SilenceErrors: true, // We'll handle error printing ourselves
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(stderr, opts.verbose)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newFetchCommand(opts))
	rootCmd.AddCommand(newCacheCommand(opts))
	rootCmd.AddCommand(newReportCommand(opts))

	return rootCmd
}

// setupLogging installs a text handler on stderr. Library packages only log
// at Debug, so without --verbose the log stays quiet.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

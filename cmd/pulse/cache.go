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

	"github.com/spf13/cobra"

	"github.com/sirseerhq/sirseer-pulse/internal/cache"
	"github.com/sirseerhq/sirseer-pulse/internal/config"
)

// openCache builds the configured cache backend. The returned function
// releases it.
func openCache(ctx context.Context, cfg *config.Config) (*cache.Cache, func(), error) {
	var (
		store   cache.Store
		release = func() {}
	)

	switch cfg.Cache.Backend {
	case config.BackendMemory:
		store = cache.NewMemoryStore(cfg.Cache.QuotaBytes)
	case config.BackendFile:
		fs, err := cache.NewFileStore(cfg.Cache.Dir, cfg.Cache.QuotaBytes)
		if err != nil {
			return nil, nil, err
		}
		store = fs
	case config.BackendPostgres:
		ps, err := cache.NewPostgresStore(ctx, cfg.Cache.DSN)
		if err != nil {
			return nil, nil, err
		}
		store = ps
		release = ps.Close
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}

	opts := []cache.Option{cache.WithTTL(cfg.Cache.TTL)}
	if cfg.Cache.SweepInterval > 0 {
		opts = append(opts, cache.WithSweepInterval(cfg.Cache.SweepInterval))
	}
	return cache.New(store, opts...), release, nil
}

func newCacheCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the fetch result cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Remove expired, corrupt and outdated cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd.Context(), global, func(c *cache.Cache) error {
				n := c.SweepExpired(cmd.Context())
				fmt.Fprintf(cmd.ErrOrStderr(), "Removed %d cache entries\n", n)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd.Context(), global, func(c *cache.Cache) error {
				n, err := c.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Removed %d cache entries\n", n)
				return nil
			})
		},
	})

	return cmd
}

func withCache(ctx context.Context, global *globalOptions, fn func(*cache.Cache) error) error {
	cfg, err := config.LoadConfig(global.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c, release, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	return fn(c)
}

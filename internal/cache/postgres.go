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

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool settings for the Postgres store. The cache issues at most a few
// queries per fetch, so the pool stays small.
const (
	PoolMaxConns          = int32(4)
	PoolMinConns          = int32(0)
	PoolMaxConnLifetime   = 30 * time.Minute
	PoolMaxConnIdleTime   = 5 * time.Minute
	PoolHealthCheckPeriod = 1 * time.Minute
)

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS pulse_cache (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// PostgresStore keeps one row per key in the pulse_cache table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn, verifies the connection and creates the
// cache table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config failed: %w", err)
	}

	cfg.MaxConns = PoolMaxConns
	cfg.MinConns = PoolMinConns
	cfg.MaxConnLifetime = PoolMaxConnLifetime
	cfg.MaxConnIdleTime = PoolMaxConnIdleTime
	cfg.HealthCheckPeriod = PoolHealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool failed: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating cache table failed: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Get implements Store
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const query = `SELECT value FROM pulse_cache WHERE key = $1`

	var value []byte
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache query failed: %w", err)
	}
	return value, true, nil
}

// Set implements Store
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	const query = `
		INSERT INTO pulse_cache (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("cache upsert failed: %w", err)
	}
	return nil
}

// Delete implements Store
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM pulse_cache WHERE key = $1`

	if _, err := s.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// Keys implements Store
func (s *PostgresStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	const query = `SELECT key FROM pulse_cache WHERE starts_with(key, $1) ORDER BY key`

	rows, err := s.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("cache key listing failed: %w", err)
	}

	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("cache key listing failed: %w", err)
	}
	return keys, nil
}

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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// startPostgres runs a disposable Postgres and returns its DSN. The test is
// skipped in -short mode or when no container runtime is reachable.
func startPostgres(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres store test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("pulse"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("container runtime unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresStore(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	// Table creation is idempotent
	again, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	again.Close()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "p:a", []byte(`{"v":1}`)))
	require.NoError(t, store.Set(ctx, "p:a", []byte(`{"v":2}`)))
	require.NoError(t, store.Set(ctx, "p:b", []byte(`{"v":3}`)))
	require.NoError(t, store.Set(ctx, "q:c", []byte(`{}`)))

	v, ok, err := store.Get(ctx, "p:a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"v":2}`, string(v))

	keys, err := store.Keys(ctx, "p:")
	require.NoError(t, err)
	assert.Equal(t, []string{"p:a", "p:b"}, keys)

	require.NoError(t, store.Delete(ctx, "p:a"))
	require.NoError(t, store.Delete(ctx, "p:a"))
	_, ok, err = store.Get(ctx, "p:a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresStore_WithCache(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	clock := newFakeClock()
	c := New(store, WithClock(clock.Now))
	anonKey := Key("octo", "hello", testAgent, nil, nil, false)
	authKey := Key("octo", "hello", testAgent, nil, nil, true)

	c.Put(ctx, anonKey, sampleEntry())
	_, ok := c.Get(ctx, authKey)
	assert.False(t, ok)

	got, ok := c.Get(ctx, anonKey)
	require.True(t, ok)
	assert.Len(t, got.Data, 2)

	clock.Advance(DefaultTTL + time.Second)
	assert.Equal(t, 1, c.SweepExpired(ctx))

	keys, err := store.Keys(ctx, KeyPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestNewPostgresStore_BadDSN(t *testing.T) {
	_, err := NewPostgresStore(context.Background(), "://not a dsn")
	assert.Error(t, err)
}

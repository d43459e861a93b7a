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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sirseerhq/sirseer-pulse/internal/github"
	"github.com/sirseerhq/sirseer-pulse/internal/ratelimit"
)

// SchemaVersion is the current entry schema version.
// Increment this when making breaking changes to Entry; entries written
// under any other version are purged, never read.
const SchemaVersion = 2

// KeyPrefix namespaces every key this package writes.
const KeyPrefix = "sirseer-pulse:"

const (
	// DefaultTTL is how long an entry is served.
	DefaultTTL = 5 * time.Minute

	// DefaultSweepInterval is the minimum time between two sweeps.
	DefaultSweepInterval = 60 * time.Second
)

const (
	authSuffix = ":auth"
	anonSuffix = ":anon"
	openBound  = "*"
	dateLayout = "2006-01-02"
)

// Entry is one cached fetch result.
type Entry struct {
	Version   int                  `json:"version"`
	Data      []github.PullRequest `json:"data"`
	Timestamp time.Time            `json:"timestamp"`
	RateLimit *ratelimit.Info      `json:"rate_limit_info,omitempty"`

	// Counts and MergedPRs are the comparison data. GraphQL fetches fill
	// them at write time; otherwise UpdateAggregates attaches them later.
	Counts    *github.Counts       `json:"all_pr_counts,omitempty"`
	MergedPRs []github.PullRequest `json:"all_merged_prs"`
}

// HasCounts reports whether the entry already carries repository counts.
func (e *Entry) HasCounts() bool {
	return e != nil && e.Counts != nil
}

// Cache is the TTL and version policy over a Store. It is safe for
// concurrent use.
type Cache struct {
	store         Store
	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithSweepInterval overrides DefaultSweepInterval.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Cache over store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:         store,
		ttl:           DefaultTTL,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the cache key for a request. Owner, repo and agent are
// lower-cased, dates are reduced to their UTC day, and authenticated
// requests get their own slot.
func Key(owner, repo, agent string, from, to *time.Time, authenticated bool) string {
	suffix := anonSuffix
	if authenticated {
		suffix = authSuffix
	}
	return fmt.Sprintf("%s%s/%s:%s:%s:%s%s",
		versionPrefix(),
		strings.ToLower(strings.TrimSpace(owner)),
		strings.ToLower(strings.TrimSpace(repo)),
		agentKey(agent),
		dateKey(from), dateKey(to), suffix)
}

func agentKey(agent string) string {
	agent = strings.ToLower(strings.TrimSpace(agent))
	if agent == "" {
		return openBound
	}
	return agent
}

func versionPrefix() string {
	return fmt.Sprintf("%sv%d:", KeyPrefix, SchemaVersion)
}

func dateKey(t *time.Time) string {
	if t == nil {
		return openBound
	}
	return t.UTC().Format(dateLayout)
}

// Get returns the live entry for key. Anything unusable found under key is
// deleted before the miss is reported.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, bool) {
	entry, reason := c.load(ctx, key)
	if entry != nil {
		slog.Debug("Cache hit", "key", key, "age", c.now().Sub(entry.Timestamp).Round(time.Second))
		return entry, true
	}

	if reason != "" {
		slog.Debug("Cache entry purged", "key", key, "reason", reason)
		if err := c.store.Delete(ctx, key); err != nil {
			slog.Debug("Cache delete failed", "key", key, "error", err)
		}
	} else {
		slog.Debug("Cache miss", "key", key)
	}
	return nil, false
}

// load reads key. It returns the entry when live, or a non-empty reason
// when something was found but must be discarded. A store read error other
// than ErrCorrupt is a plain miss and leaves the entry in place.
func (c *Cache) load(ctx context.Context, key string) (*Entry, string) {
	if !strings.HasPrefix(key, versionPrefix()) {
		return nil, "foreign version"
	}

	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			return nil, "corrupt"
		}
		slog.Debug("Cache read failed", "key", key, "error", err)
		return nil, ""
	}
	if !ok {
		return nil, ""
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, "corrupt"
	}
	if entry.Version != SchemaVersion {
		return nil, "stale version"
	}
	if c.expired(entry.Timestamp) {
		return nil, "expired"
	}
	return &entry, ""
}

func (c *Cache) expired(ts time.Time) bool {
	return ts.IsZero() || c.now().Sub(ts) >= c.ttl
}

// Put stores entry under key, stamping the version and the current time.
// Failures are logged at debug level and otherwise ignored.
func (c *Cache) Put(ctx context.Context, key string, entry Entry) {
	entry.Version = SchemaVersion
	entry.Timestamp = c.now()

	if outcome := c.write(ctx, key, &entry); outcome.err != nil {
		slog.Debug("Cache write skipped", "key", key, "error", outcome.err)
	}
}

// UpdateAggregates attaches comparison data to the live entry under key,
// keeping its original timestamp. It does nothing when there is no live
// entry.
func (c *Cache) UpdateAggregates(ctx context.Context, key string, counts *github.Counts, merged []github.PullRequest, rateLimit *ratelimit.Info) {
	entry, ok := c.Get(ctx, key)
	if !ok {
		return
	}

	if counts != nil {
		entry.Counts = counts
	}
	entry.MergedPRs = merged
	if rateLimit != nil {
		entry.RateLimit = rateLimit
	}

	if outcome := c.write(ctx, key, entry); outcome.err != nil {
		slog.Debug("Cache aggregate update skipped", "key", key, "error", outcome.err)
	}
}

// writeOutcome is the internal result of a store write. Callers log it and
// drop it; the cache never fails a fetch.
type writeOutcome struct {
	err error
}

func (c *Cache) write(ctx context.Context, key string, entry *Entry) writeOutcome {
	data, err := json.Marshal(entry)
	if err != nil {
		return writeOutcome{err: fmt.Errorf("failed to marshal cache entry: %w", err)}
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		return writeOutcome{err: err}
	}
	return writeOutcome{}
}

// SweepExpired deletes expired, corrupt and foreign-version entries. It
// runs at most once per sweep interval; calls in between return 0 at once.
func (c *Cache) SweepExpired(ctx context.Context) int {
	c.mu.Lock()
	now := c.now()
	if !c.lastSweep.IsZero() && now.Sub(c.lastSweep) < c.sweepInterval {
		c.mu.Unlock()
		return 0
	}
	c.lastSweep = now
	c.mu.Unlock()

	keys, err := c.store.Keys(ctx, KeyPrefix)
	if err != nil {
		slog.Debug("Cache sweep failed", "error", err)
		return 0
	}

	removed := 0
	for _, key := range keys {
		entry, reason := c.load(ctx, key)
		if entry != nil || reason == "" {
			continue
		}
		if err := c.store.Delete(ctx, key); err != nil {
			slog.Debug("Cache delete failed", "key", key, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Debug("Cache sweep complete", "removed", removed, "scanned", len(keys))
	}
	return removed
}

// Clear deletes every entry this package wrote, whatever its version.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx, KeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache keys: %w", err)
	}

	for i, key := range keys {
		if err := c.store.Delete(ctx, key); err != nil {
			return i, fmt.Errorf("failed to delete cache key %s: %w", key, err)
		}
	}
	return len(keys), nil
}

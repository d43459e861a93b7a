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

// Package cache provides the versioned, TTL-based result cache.
//
// A Cache sits on top of a Store, a plain key/value interface with three
// implementations: MemoryStore for tests and one-shot runs, FileStore for
// the CLI's on-disk cache under ~/.sirseer/cache, and PostgresStore for a
// cache shared between machines.
//
// Keys are partitioned by schema version and by whether the request carried
// credentials, so an authenticated result is never served to an anonymous
// caller. Entries expire after five minutes. Reads self-heal: an expired,
// corrupt or foreign-version entry is deleted before the miss is reported.
// Writes are best-effort; a full or failing store never fails a fetch.
//
// Example usage:
//
//	c := cache.New(cache.NewMemoryStore(0))
//	key := cache.Key("octo", "hello", "app/agent", &from, &to, token != "")
//	if entry, ok := c.Get(ctx, key); ok {
//	    return entry.Data
//	}
package cache

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
	"sort"
	"strings"
	"sync"
)

// ErrQuotaExceeded is returned by a Store when a write would exceed its
// configured size budget.
var ErrQuotaExceeded = errors.New("cache store quota exceeded")

// ErrCorrupt is returned by a Store when a stored value fails its
// integrity check.
var ErrCorrupt = errors.New("cache entry corrupted")

// Store is the persistence layer under a Cache.
type Store interface {
	// Get returns the value for key. A missing key is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists the stored keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	size  int64
	quota int64
}

// NewMemoryStore creates an empty store. quotaBytes <= 0 means unlimited.
func NewMemoryStore(quotaBytes int64) *MemoryStore {
	return &MemoryStore{
		data:  make(map[string][]byte),
		quota: quotaBytes,
	}
}

// Get implements Store
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements Store
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	newSize := s.size - int64(len(s.data[key])) + int64(len(value))
	if s.quota > 0 && newSize > s.quota {
		return ErrQuotaExceeded
	}

	s.data[key] = append([]byte(nil), value...)
	s.size = newSize
	return nil
}

// Delete implements Store
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.size -= int64(len(s.data[key]))
	delete(s.data, key)
	return nil
}

// Keys implements Store
func (s *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

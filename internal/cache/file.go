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
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const fileExt = ".json"

// fileEnvelope is the on-disk format of one cache file.
type fileEnvelope struct {
	// Key is the cache key the file was written for.
	Key string `json:"key"`

	// Checksum is the SHA256 of Value, used to detect corruption.
	Checksum string `json:"checksum"`

	// Value is the stored payload.
	Value json.RawMessage `json:"value"`
}

// FileStore keeps one JSON file per key in a directory. Writes are atomic
// (temp file, fsync, rename) and every file carries a checksum.
type FileStore struct {
	dir   string
	quota int64

	// mu serialises writers so the quota check and the rename are atomic
	// with respect to each other.
	mu sync.Mutex
}

// DefaultDir returns the standard cache directory: ~/.sirseer/cache/pulse
func DefaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home directory is not accessible
		homeDir = "."
	}
	return filepath.Join(homeDir, ".sirseer", "cache", "pulse")
}

// NewFileStore creates a store rooted at dir. quotaBytes <= 0 means unlimited.
func NewFileStore(dir string, quotaBytes int64) (*FileStore, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileStore{dir: dir, quota: quotaBytes}, nil
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string {
	return s.dir
}

// Get implements Store. A file that fails its checksum is reported as
// ErrCorrupt.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	env, err := readEnvelope(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if env.Key != key {
		return nil, false, fmt.Errorf("cache file for %q holds key %q: %w", key, env.Key, ErrCorrupt)
	}

	return []byte(env.Value), true, nil
}

// Set implements Store
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, value); err != nil {
		return fmt.Errorf("cache value for %q is not valid JSON: %w", key, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fileEnvelope{
		Key:      key,
		Checksum: checksum(compact.Bytes()),
		Value:    compact.Bytes(),
	}); err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	data := buf.Bytes()

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(key)
	if s.quota > 0 {
		used, err := s.usage(target)
		if err != nil {
			return err
		}
		if used+int64(len(data)) > s.quota {
			return ErrQuotaExceeded
		}
	}

	return writeAtomic(target, data)
}

// Delete implements Store
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Keys implements Store. Files that cannot be read back are removed, since
// their key cannot be recovered for a later Delete.
func (s *FileStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list cache directory: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}

		path := filepath.Join(s.dir, e.Name())
		env, err := readEnvelope(path)
		if err != nil {
			_ = os.Remove(path)
			continue
		}
		if strings.HasPrefix(env.Key, prefix) {
			keys = append(keys, env.Key)
		}
	}
	return keys, nil
}

// path maps a key to its file. Keys contain characters that are not safe in
// file names, so the name is the key's hash.
func (s *FileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+fileExt)
}

// usage returns the bytes held by the directory, not counting skip.
func (s *FileStore) usage(skip string) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to measure cache directory: %w", err)
	}

	var total int64
	for _, e := range entries {
		if e.IsDir() || filepath.Join(s.dir, e.Name()) == skip {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

func readEnvelope(path string) (*fileEnvelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("cache file is not valid JSON: %w", ErrCorrupt)
	}
	if env.Checksum != checksum(env.Value) {
		return nil, fmt.Errorf("cache file checksum mismatch: %w", ErrCorrupt)
	}
	return &env, nil
}

// writeAtomic uses a write-to-temp-and-rename pattern so readers never see
// a partial file.
func writeAtomic(target string, data []byte) error {
	tempFile := target + ".tmp"

	// Write to temporary file with restricted permissions
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temporary cache file: %w", err)
	}

	// Sync to ensure data is flushed to disk
	file, err := os.Open(tempFile)
	if err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to open temp file for sync: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempFile, target); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// checksum computes the SHA256 hash of a stored value.
func checksum(value []byte) string {
	hash := sha256.Sum256(value)
	return hex.EncodeToString(hash[:])
}

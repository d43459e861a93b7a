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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultDir(t *testing.T) {
	got := DefaultDir()
	want := filepath.Join(".sirseer", "cache", "pulse")
	if !strings.HasSuffix(got, want) {
		t.Errorf("DefaultDir() = %q, want suffix %q", got, want)
	}
}

func TestFileStore_SetAndGet(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	key := "sirseer-pulse:v2:octo/hello:app/copilot-swe-agent:2026-01-01:2026-01-10:auth"
	value := []byte(`{"title":"Fix <b>escaping</b> & more"}`)

	if err := store.Set(ctx, key, value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Get should find the stored key")
	}
	if string(got) != string(value) {
		t.Errorf("value mismatch: got %s, want %s", got, value)
	}

	// No temp file should remain after an atomic write
	matches, _ := filepath.Glob(filepath.Join(store.Dir(), "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestFileStore_GetMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	_, ok, err := store.Get(context.Background(), "missing")
	if err != nil || ok {
		t.Errorf("Get(missing) = ok %v, err %v; want false, nil", ok, err)
	}
}

func TestFileStore_DetectsCorruption(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	key := "corrupt-me"
	if err := store.Set(ctx, key, []byte(`{"total":100}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Tamper with the payload without updating the checksum
	path := store.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read cache file: %v", err)
	}
	tampered := strings.Replace(string(data), "100", "999", 1)
	if err := os.WriteFile(path, []byte(tampered), 0o600); err != nil {
		t.Fatalf("failed to write tampered file: %v", err)
	}

	_, _, err = store.Get(ctx, key)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}

	// Invalid JSON is corruption too
	if err := os.WriteFile(path, []byte("{ invalid json"), 0o600); err != nil {
		t.Fatalf("failed to write invalid file: %v", err)
	}
	_, _, err = store.Get(ctx, key)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt for invalid JSON, got %v", err)
	}
}

func TestFileStore_KeysAndDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	for _, key := range []string{"p:a", "p:b", "other"} {
		if err := store.Set(ctx, key, []byte("{}")); err != nil {
			t.Fatalf("Set(%s) failed: %v", key, err)
		}
	}
	// An unreadable file is dropped during listing
	if err := os.WriteFile(filepath.Join(store.Dir(), "junk.json"), []byte("nope"), 0o600); err != nil {
		t.Fatalf("failed to write junk file: %v", err)
	}

	keys, err := store.Keys(ctx, "p:")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Keys(p:) = %v, want 2 keys", keys)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), "junk.json")); !os.IsNotExist(err) {
		t.Error("unreadable cache file should have been removed")
	}

	if err := store.Delete(ctx, "p:a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "p:a"); err != nil {
		t.Errorf("deleting a missing key should succeed, got %v", err)
	}

	keys, _ = store.Keys(ctx, "")
	if len(keys) != 2 {
		t.Errorf("after delete Keys() = %v, want 2 keys", keys)
	}
}

func TestFileStore_Quota(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), 200)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if err := store.Set(ctx, "small", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set within quota failed: %v", err)
	}

	big := []byte(`{"data":"` + strings.Repeat("x", 300) + `"}`)
	if err := store.Set(ctx, "big", big); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("expected ErrQuotaExceeded, got %v", err)
	}

	// Overwriting an existing key only counts its new size
	if err := store.Set(ctx, "small", []byte(`{"a":2}`)); err != nil {
		t.Errorf("overwrite within quota failed: %v", err)
	}
}

func TestFileStore_WithCache(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	clock := newFakeClock()
	c := New(store, WithClock(clock.Now))
	key := Key("octo", "hello", testAgent, nil, nil, true)

	c.Put(ctx, key, sampleEntry())
	if _, ok := c.Get(ctx, key); !ok {
		t.Fatal("entry should round-trip through the file store")
	}

	clock.Advance(DefaultTTL)
	if _, ok := c.Get(ctx, key); ok {
		t.Fatal("entry should expire")
	}
	if _, ok, _ := store.Get(ctx, key); ok {
		t.Error("expired entry should be removed from disk")
	}
}

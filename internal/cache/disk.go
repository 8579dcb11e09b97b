package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// headerSize holds the expiry as big-endian unix nanoseconds
const headerSize = 8

// DiskCache keeps one file per entry, grouped in a directory per query kind,
// so cached results survive restarts of the CLI.
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates a disk cache rooted at dir
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{dir: dir, ttl: ttl, now: time.Now}
}

// Get returns the entry unless it is missing, corrupt or expired
func (c *DiskCache) Get(_ context.Context, key string) ([]byte, bool) {
	path := c.path(key)
	data, err := os.ReadFile(path)
	if err != nil || len(data) < headerSize {
		return nil, false
	}

	expires := time.Unix(0, int64(binary.BigEndian.Uint64(data[:headerSize])))
	if c.now().After(expires) {
		_ = os.Remove(path)
		return nil, false
	}
	return data[headerSize:], true
}

// Set writes the entry atomically; a zero ttl uses the default
func (c *DiskCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	buf := make([]byte, headerSize+len(value))
	binary.BigEndian.PutUint64(buf, uint64(c.now().Add(ttl).UnixNano()))
	copy(buf[headerSize:], value)

	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	if _, err := tmp.Write(buf); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Delete removes an entry; a missing entry is not an error
func (c *DiskCache) Delete(_ context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Clear drops every entry under the cache root
func (c *DiskCache) Clear(_ context.Context) error {
	return os.RemoveAll(c.dir)
}

// path maps "ontograph:v1:<kind>:<hash>" to <dir>/<kind>/<hash>.
// Keys outside that shape land in the root with ':' replaced.
func (c *DiskCache) path(key string) string {
	rest := strings.TrimPrefix(key, KeyPrefix)
	if kind, hash, ok := strings.Cut(rest, ":"); ok && rest != key {
		return filepath.Join(c.dir, kind, hash)
	}
	return filepath.Join(c.dir, strings.ReplaceAll(key, ":", "_"))
}

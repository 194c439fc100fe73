// Package cache stores metadata API responses on disk so repeated runs on
// the same podcast do not re-query external services.
package cache

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache is a file-per-key store under a single directory.
type Cache struct {
	dir    string
	maxAge time.Duration // 0 means entries never expire
}

// New creates a cache rooted at dir.
func New(dir string, maxAge time.Duration) *Cache {
	return &Cache{dir: dir, maxAge: maxAge}
}

// Get returns the cached data for key, or false when the entry is missing
// or expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	path := filepath.Join(c.dir, sanitizeKey(key))

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if c.maxAge > 0 && time.Since(info.ModTime()) > c.maxAge {
		os.Remove(path)
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores data under key, creating the cache directory if needed.
func (c *Cache) Put(key string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, sanitizeKey(key)), data, 0644)
}

// sanitizeKey turns an arbitrary key into a safe file name.
func sanitizeKey(key string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		" ", "_",
	)
	return strings.ToLower(replacer.Replace(key))
}

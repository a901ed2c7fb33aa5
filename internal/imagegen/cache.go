package imagegen

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache provides file-based caching for generated banner images.
type Cache struct {
	dir    string
	maxAge time.Duration
}

// NewCache creates an image cache in the given directory. Banners are
// refreshed after maxAge to provide variety.
func NewCache(dir string) *Cache {
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Printf("Warning: could not create image cache directory: %v\n", err)
	}
	return &Cache{
		dir:    dir,
		maxAge: 7 * 24 * time.Hour,
	}
}

func (c *Cache) path(condition Condition) string {
	return filepath.Join(c.dir, fmt.Sprintf("banner_%s.png", condition))
}

// Get retrieves a cached banner if present and not stale.
func (c *Cache) Get(condition Condition) ([]byte, bool) {
	path := c.path(condition)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	if time.Since(info.ModTime()) > c.maxAge {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	return data, true
}

// Set stores a banner in the cache.
func (c *Cache) Set(condition Condition, data []byte) error {
	return os.WriteFile(c.path(condition), data, 0644)
}

// GetAny returns any cached banner as a fallback for conditions not yet
// generated.
func (c *Cache) GetAny() ([]byte, bool) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, false
	}

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".png" {
			data, err := os.ReadFile(filepath.Join(c.dir, entry.Name()))
			if err == nil {
				return data, true
			}
		}
	}

	return nil, false
}

// Package cache provides TTL-bound, disk-backed caching for metadata API responses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/anistream/anistream/filesystem"
	"github.com/anistream/anistream/where"
	"github.com/metafates/gache"
	"github.com/samber/mo"
)

// TTL is the default lifetime of a cached response.
const TTL = 7 * 24 * time.Hour

type entries[T any] struct {
	Items map[string]T `json:"items"`
}

// Cache is a keyed response cache persisted as one JSON file per namespace.
type Cache[T any] struct {
	internal *gache.Cache[*entries[T]]
	mu       sync.RWMutex
}

// New opens the cache stored under name in the responses directory.
func New[T any](name string, lifetime time.Duration) *Cache[T] {
	return &Cache[T]{
		internal: gache.New[*entries[T]](&gache.Options{
			Path:       filepath.Join(where.Responses(), name+".json"),
			Lifetime:   lifetime,
			FileSystem: &filesystem.GacheFs{},
		}),
	}
}

// Get retrieves the value stored for key.
func (c *Cache[T]) Get(key string) mo.Option[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, expired, err := c.internal.Get()
	if err != nil || expired || data == nil {
		return mo.None[T]()
	}

	if item, ok := data.Items[key]; ok {
		return mo.Some(item)
	}
	return mo.None[T]()
}

// Set stores value under key. An expired file is replaced wholesale.
func (c *Cache[T]) Set(key string, value T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, expired, err := c.internal.Get()
	if err != nil {
		return err
	}

	if expired || data == nil || data.Items == nil {
		data = &entries[T]{Items: make(map[string]T)}
	}

	data.Items[key] = value
	return c.internal.Set(data)
}

// Delete removes key from the cache.
func (c *Cache[T]) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, expired, err := c.internal.Get()
	if err != nil {
		return err
	}
	if expired || data == nil {
		return nil
	}

	delete(data.Items, key)
	return c.internal.Set(data)
}

// Key derives a stable identifier from request parts, ignoring case and whitespace.
func Key(parts ...string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(strings.Join(parts, "\x00")), ""))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}

// Clear removes every cached response file.
func Clear() error {
	return filesystem.API().RemoveAll(where.Responses())
}

// CollectGarbage removes response files not written to within TTL.
func CollectGarbage() {
	fs := filesystem.API()
	_ = fs.Walk(where.Responses(), func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if time.Since(info.ModTime()) > TTL {
			_ = fs.Remove(path)
		}
		return nil
	})
}

package metadata

import (
	"context"
	"strings"
	"sync"
)

// Cache remembers successful lookups for the process lifetime. Songs come
// around again on every playlist rotation, so this removes almost all
// repeat API traffic. Misses are not cached; a later retry may succeed.
type Cache struct {
	inner Resolver

	mu      sync.RWMutex
	entries map[string]string
}

func NewCache(inner Resolver) *Cache {
	return &Cache{inner: inner, entries: make(map[string]string)}
}

func cacheKey(title, artist string) string {
	return strings.ToLower(title) + "\x00" + strings.ToLower(artist)
}

func (c *Cache) Resolve(ctx context.Context, title, artist string, durationHintMs int) (string, error) {
	key := cacheKey(title, artist)

	c.mu.RLock()
	mediaID, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return mediaID, nil
	}

	mediaID, err := c.inner.Resolve(ctx, title, artist, durationHintMs)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[key] = mediaID
	c.mu.Unlock()
	return mediaID, nil
}

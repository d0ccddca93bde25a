package cache

import (
	"context"
	"sync"

	"github.com/pantrylens/backend/internal/domain"
)

// MemoryNameCache is a thread-safe in-process name cache
type MemoryNameCache struct {
	data  map[string]string
	mutex sync.RWMutex
}

// NewMemoryNameCache creates an empty in-memory name cache
func NewMemoryNameCache() *MemoryNameCache {
	return &MemoryNameCache{
		data: make(map[string]string),
	}
}

// Get returns the name cached for candidate
func (c *MemoryNameCache) Get(ctx context.Context, candidate string) (string, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	name, exists := c.data[candidate]
	if !exists {
		return "", domain.ErrCacheMiss
	}
	return name, nil
}

// Set stores name under every candidate in one critical section
func (c *MemoryNameCache) Set(ctx context.Context, candidates []string, name string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		c.data[candidate] = name
	}
	return nil
}

// Delete removes one candidate
func (c *MemoryNameCache) Delete(ctx context.Context, candidate string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, candidate)
	return nil
}

// Size returns the current number of cached candidates (for debugging/monitoring)
func (c *MemoryNameCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all entries
func (c *MemoryNameCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]string)
}

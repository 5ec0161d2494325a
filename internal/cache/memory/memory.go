package memory

import (
	"context"

	"github.com/DMarby/postcard-poodle/internal/cache"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the number of entries held when no positive capacity is given
const DefaultCapacity = 256

// Provider implements an in-memory cache holding at most a fixed number of entries,
// evicting the least recently used one when full
type Provider struct {
	entries *lru.Cache[string, []byte]
}

// New returns a new Provider instance; a capacity of zero or less uses DefaultCapacity
func New(capacity int) *Provider {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	// lru.New only fails for a non-positive size
	entries, _ := lru.New[string, []byte](capacity)

	return &Provider{
		entries: entries,
	}
}

// Get returns an object from the cache if it exists
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	data, exists := p.entries.Get(key)
	if !exists {
		return nil, cache.ErrNotFound
	}

	return data, nil
}

// Set adds an object to the cache
func (p *Provider) Set(ctx context.Context, key string, data []byte) (err error) {
	p.entries.Add(key, data)
	return nil
}

// Len returns the number of cached objects
func (p *Provider) Len() int {
	return p.entries.Len()
}

// Shutdown shuts down the cache
func (p *Provider) Shutdown() {
	p.entries.Purge()
}

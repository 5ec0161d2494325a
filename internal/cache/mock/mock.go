package mock

import (
	"context"
	"fmt"

	"github.com/DMarby/postcard-poodle/internal/cache"
)

// Provider is a mock cache whose behaviour depends on the key:
// "notfound", "notfounderr" and "seterror" miss, "error" fails,
// "seterror" also fails to store, and every other key hits with its own name.
// The health check key hits, so a checker sees the cache as unhealthy.
type Provider struct{}

// Get returns an object from the cache if it exists
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	switch key {
	case "notfound", "notfounderr", "seterror":
		return nil, cache.ErrNotFound
	case "error":
		return nil, fmt.Errorf("error")
	default:
		return []byte(key), nil
	}
}

// Set adds an object to the cache
func (p *Provider) Set(ctx context.Context, key string, data []byte) (err error) {
	if key == "seterror" {
		return fmt.Errorf("seterror")
	}

	return nil
}

// Shutdown shuts down the cache
func (p *Provider) Shutdown() {}

package cache

import (
	"context"
	"errors"

	"github.com/DMarby/postcard-poodle/internal/tracing"
	"golang.org/x/sync/singleflight"
	"go.opentelemetry.io/otel/attribute"
)

// Provider is an interface for getting and setting cached objects
type Provider interface {
	Get(ctx context.Context, key string) (data []byte, err error)
	Set(ctx context.Context, key string, data []byte) (err error)
	Shutdown()
}

// LoaderFunc is a function for loading the data of a single key into a cache
type LoaderFunc func(ctx context.Context) (data []byte, err error)

// Auto is a cache that automatically loads objects that don't exist yet
type Auto struct {
	Tracer      *tracing.Tracer
	Provider    Provider
	lookupGroup singleflight.Group
}

// Get returns an object from the cache if it exists, otherwise it loads it into the cache and returns it.
// Concurrent calls for the same key share a single load.
func (a *Auto) Get(ctx context.Context, key string, loader LoaderFunc) (data []byte, err error) {
	ctx, span := a.Tracer.Start(ctx, "cache.Auto.Get")
	defer span.End()

	data, err = a.Provider.Get(ctx, key)
	// Exit early on a hit, or if the provider failed for another reason
	if !errors.Is(err, ErrNotFound) {
		span.SetAttributes(attribute.Bool("cache.hit", err == nil))
		return
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	var v interface{}
	v, err, _ = a.lookupGroup.Do(key, func() (interface{}, error) {
		data, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		err = a.Provider.Set(ctx, key, data)
		if err != nil {
			return nil, err
		}

		return data, nil
	})

	if err != nil {
		return
	}

	data, _ = v.([]byte)
	return
}

// Errors
var (
	ErrNotFound = errors.New("not found in cache")
)

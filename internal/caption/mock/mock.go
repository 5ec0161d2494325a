package mock

import (
	"context"
	"sync/atomic"

	"github.com/DMarby/postcard-poodle/internal/caption"
	"github.com/DMarby/postcard-poodle/internal/filter"
)

// Provider is a mock caption provider returning a fixed caption or error
type Provider struct {
	Caption string
	Err     error
	// Release, when set, blocks Generate until it receives or is closed
	Release chan struct{}

	calls atomic.Int32
}

// Generate returns the configured caption, normalized like a real provider
func (p *Provider) Generate(ctx context.Context, kind filter.Kind) (string, error) {
	p.calls.Add(1)

	if p.Release != nil {
		select {
		case <-p.Release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if p.Err != nil {
		return "", p.Err
	}

	return caption.Normalize(p.Caption), nil
}

// Calls returns how many times Generate has been called
func (p *Provider) Calls() int {
	return int(p.calls.Load())
}

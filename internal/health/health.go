package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DMarby/postcard-poodle/internal/cache"
	"github.com/DMarby/postcard-poodle/internal/logger"
)

const checkInterval = 10 * time.Second
const checkTimeout = 8 * time.Second

// Renderer is something that can prove it is able to render
type Renderer interface {
	Check(ctx context.Context) error
}

// Checker is a periodic health checker
type Checker struct {
	Ctx      context.Context
	Cache    cache.Provider
	Renderer Renderer
	status   Status
	mutex    sync.RWMutex
	Log      *logger.Logger
}

// Status contains the healtcheck status
type Status struct {
	Healthy  bool   `json:"healthy"`
	Cache    string `json:"cache,omitempty"`
	Renderer string `json:"renderer,omitempty"`
}

// Run starts the health checker
func (c *Checker) Run() {
	ticker := time.NewTicker(checkInterval)
	go func() {
		for {
			select {
			case <-ticker.C:
				c.runCheck()
			case <-c.Ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()

	c.runCheck()
}

// Status returns the status of the health checks
func (c *Checker) Status() Status {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.status
}

func (c *Checker) unknown() Status {
	status := Status{
		Healthy: false,
	}
	if c.Cache != nil {
		status.Cache = "unknown"
	}
	if c.Renderer != nil {
		status.Renderer = "unknown"
	}

	return status
}

func (c *Checker) runCheck() {
	ctx, cancel := context.WithTimeout(c.Ctx, checkTimeout)
	defer cancel()

	channel := make(chan Status, 1)
	go func() {
		c.check(ctx, channel)
	}()

	select {
	case <-ctx.Done():
		c.mutex.Lock()
		c.status = c.unknown()
		c.mutex.Unlock()

		c.Log.Errorw("healthcheck timed out")
	case status, ok := <-channel:
		if !ok {
			return
		}

		c.mutex.Lock()
		c.status = status
		c.mutex.Unlock()
		if !status.Healthy {
			c.Log.Errorw("healthcheck error",
				"status", status,
			)
		}
	}
}

func (c *Checker) check(ctx context.Context, channel chan Status) {
	defer close(channel)

	if ctx.Err() != nil {
		return
	}

	status := c.unknown()
	status.Healthy = true

	if c.Cache != nil {
		if _, err := c.Cache.Get(ctx, "healthcheck"); !errors.Is(err, cache.ErrNotFound) {
			status.Healthy = false
			status.Cache = "unhealthy"
		} else {
			status.Cache = "healthy"
		}
	}

	if ctx.Err() != nil {
		return
	}

	if c.Renderer != nil {
		if err := c.Renderer.Check(ctx); err != nil {
			status.Healthy = false
			status.Renderer = "unhealthy"
		} else {
			status.Renderer = "healthy"
		}
	}

	channel <- status
}

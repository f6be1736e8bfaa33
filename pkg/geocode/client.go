// Package geocode resolves street addresses to coordinates via
// Nominatim (primary) and Google (optional fallback).
package geocode

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Provider represents a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (*Result, error)
	Available() bool
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string // "nominatim" or "google"
	Quality   string // "rooftop", "centroid", "approximate"
	Matched   bool
}

// Chain tries providers in order until one returns a match. Results,
// including misses, are memoized per normalized address so repeated
// lookups during a backfill run cost one upstream call.
type Chain struct {
	providers []Provider

	mu    sync.Mutex
	cache map[string]Result
}

// NewChain creates a Chain over the given providers.
func NewChain(providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		cache:     make(map[string]Result),
	}
}

// Geocode resolves one address. A miss from every provider is not an
// error; it comes back as an unmatched Result.
func (c *Chain) Geocode(ctx context.Context, address string) (*Result, error) {
	key := normalizeAddress(address)
	if key == "" {
		return &Result{Matched: false, Source: "chain"}, nil
	}

	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return &cached, nil
	}

	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		result, err := p.Geocode(ctx, address)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			zap.L().Debug("geocode chain: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if result != nil && result.Matched {
			c.store(key, *result)
			return result, nil
		}
	}

	miss := Result{Matched: false, Source: "chain"}
	c.store(key, miss)
	return &miss, nil
}

func (c *Chain) store(key string, r Result) {
	c.mu.Lock()
	c.cache[key] = r
	c.mu.Unlock()
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

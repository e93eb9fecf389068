package chain

import (
	"context"
	"strconv"

	"github.com/txpull/sourcecheck/clients"
	"github.com/txpull/sourcecheck/options"
)

// Registry holds one Provider per configured, supported chain. It is built
// once at startup and handed to the Worker Pool and Chain Monitor by
// reference, per spec §5's "shared immutable configuration" requirement.
type Registry struct {
	providers map[uint64]*Provider
}

// NewRegistry dials a Provider for every supported chain in cfg. A
// healthCache, when non-nil, is wired into every provider via WithHealthCache.
func NewRegistry(ctx context.Context, chains map[string]options.Chain, healthCache *clients.Redis) (*Registry, error) {
	r := &Registry{providers: make(map[uint64]*Provider, len(chains))}

	for key, chainCfg := range chains {
		if !chainCfg.Supported {
			continue
		}
		chainID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, ErrUnknownChain
		}

		var opts []Option
		if healthCache != nil {
			opts = append(opts, WithHealthCache(healthCache))
		}

		provider, err := NewProvider(ctx, chainID, chainCfg, opts...)
		if err != nil {
			return nil, err
		}
		r.providers[chainID] = provider
	}

	return r, nil
}

// Get returns the Provider for chainID, or ErrUnknownChain.
func (r *Registry) Get(chainID uint64) (*Provider, error) {
	p, ok := r.providers[chainID]
	if !ok {
		return nil, ErrUnknownChain
	}
	return p, nil
}

// Close closes every provider's underlying RPC clients.
func (r *Registry) Close() {
	for _, p := range r.providers {
		p.Close()
	}
}

package chain

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/txpull/sourcecheck/clients"
	"github.com/txpull/sourcecheck/options"
	"go.uber.org/zap"
)

const (
	maxBackoff  = 60 * time.Second
	baseBackoff = 10 * time.Second
)

// health is the per-endpoint circuit breaker state described in spec §5:
// consecutive failures and the earliest time the endpoint may be retried.
type health struct {
	consecutiveFailures int
	nextRetryTime       time.Time
}

func (h *health) isOpen(now time.Time) bool {
	return now.Before(h.nextRetryTime)
}

// recordFailure advances the breaker on a failed call. Backoff is
// baseBackoff * 2^(n-1) capped at maxBackoff, per spec §4.C: 10s, 20s, 40s,
// 60s, 60s, ...
func (h *health) recordFailure(now time.Time) {
	h.consecutiveFailures++
	backoff := time.Duration(math.Pow(2, float64(h.consecutiveFailures-1))) * baseBackoff
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	h.nextRetryTime = now.Add(backoff)
}

func (h *health) recordSuccess() {
	h.consecutiveFailures = 0
	h.nextRetryTime = time.Time{}
}

// Option configures a Provider.
type Option func(*Provider)

// WithHealthCache attaches a Redis client to the Provider. The Provider keeps
// the client but never reads or writes it: per-endpoint health lives only in
// this process's memory, so separate processes do not share circuit breaker
// state.
func WithHealthCache(cache *clients.Redis) Option {
	return func(p *Provider) { p.healthCache = cache }
}

// Provider is the Chain Access Layer's per-chain entry point: it holds an
// ordered list of RPC endpoints for one chain and routes calls away from
// endpoints whose circuit is currently open.
type Provider struct {
	chainID     uint64
	chain       options.Chain
	ethClient   *clients.EthClient
	healthCache *clients.Redis

	mu     sync.Mutex
	health map[int]*health
}

// NewProvider dials every configured endpoint of chain and wraps them with
// circuit-breaker routing.
func NewProvider(ctx context.Context, chainID uint64, chainCfg options.Chain, opts ...Option) (*Provider, error) {
	ethClient, err := clients.NewEthClient(ctx, chainCfg)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		chainID:   chainID,
		chain:     chainCfg,
		ethClient: ethClient,
		health:    make(map[int]*health),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *Provider) endpointHealth(idx int) *health {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.health[idx]
	if !ok {
		h = &health{}
		p.health[idx] = h
	}
	return h
}

// withEndpoint calls fn against each dialed endpoint in round-robin order,
// skipping endpoints whose circuit is open, until fn succeeds or every
// endpoint has been tried. It returns ErrAllRPCsFailed if none succeed.
func (p *Provider) withEndpoint(ctx context.Context, fn func(*ethclient.Client) error) error {
	n := p.ethClient.Len()
	now := time.Now()

	var lastErr error
	tried := 0
	for i := 0; i < n; i++ {
		client, idx := p.ethClient.Next()
		h := p.endpointHealth(idx)

		p.mu.Lock()
		open := h.isOpen(now)
		p.mu.Unlock()
		if open {
			continue
		}

		tried++
		err := fn(client)
		p.mu.Lock()
		if err != nil {
			h.recordFailure(now)
		} else {
			h.recordSuccess()
		}
		p.mu.Unlock()

		if err == nil {
			return nil
		}
		lastErr = err
		zap.L().Warn("rpc endpoint call failed",
			zap.Uint64("chainId", p.chainID),
			zap.Int("endpoint", idx),
			zap.Error(err))
	}

	if tried == 0 {
		return ErrAllRPCsFailed
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %w", ErrAllRPCsFailed, lastErr)
	}
	return ErrAllRPCsFailed
}

// CodeAt returns the deployed bytecode at address, per spec §4.C.
func (p *Provider) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	var code []byte
	err := p.withEndpoint(ctx, func(c *ethclient.Client) error {
		var innerErr error
		code, innerErr = c.CodeAt(ctx, address, nil)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, ErrContractNotDeployed
	}
	return code, nil
}

// TransactionByHash fetches a transaction and whether it is still pending.
func (p *Provider) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	var tx *types.Transaction
	var pending bool
	err := p.withEndpoint(ctx, func(c *ethclient.Client) error {
		var innerErr error
		tx, pending, innerErr = c.TransactionByHash(ctx, hash)
		return innerErr
	})
	return tx, pending, err
}

// TransactionReceipt fetches a transaction's receipt.
func (p *Provider) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := p.withEndpoint(ctx, func(c *ethclient.Client) error {
		var innerErr error
		receipt, innerErr = c.TransactionReceipt(ctx, hash)
		return innerErr
	})
	return receipt, err
}

// BlockByNumber fetches a full block (with transactions) by number.
func (p *Provider) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	var block *types.Block
	err := p.withEndpoint(ctx, func(c *ethclient.Client) error {
		var innerErr error
		block, innerErr = c.BlockByNumber(ctx, number)
		return innerErr
	})
	return block, err
}

// BlockNumber returns the current chain head.
func (p *Provider) BlockNumber(ctx context.Context) (uint64, error) {
	var num uint64
	err := p.withEndpoint(ctx, func(c *ethclient.Client) error {
		var innerErr error
		num, innerErr = c.BlockNumber(ctx)
		return innerErr
	})
	return num, err
}

// Close closes every underlying RPC client.
func (p *Provider) Close() {
	p.ethClient.Close()
}

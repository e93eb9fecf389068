// Package monitor implements the Chain Monitor (spec §4.H): one independent
// polling loop per chain that discovers newly deployed contracts (including
// factory children via traces), resolves their metadata from IPFS, and
// submits verification jobs to the Worker Pool. It adapts the teacher's
// cmd/syncers/sourcify.go "loop over discovered addresses, skip already-seen
// via a cache Exists() check, write-through" shape into a continuous loop.
package monitor

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/txpull/sourcecheck/chain"
	"github.com/txpull/sourcecheck/clients"
	"github.com/txpull/sourcecheck/options"
	"github.com/txpull/sourcecheck/worker"
	sourcify "github.com/txpull/sourcify-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// errNoSourcifyFallback is returned internally when no sourcify.dev client
// is configured, or it has nothing for the address either.
var errNoSourcifyFallback = errors.New("monitor: no sourcify fallback available")

// Option configures a Monitor.
type Option func(*Monitor)

// WithFactoryMonitoring enables discovery of factory-created children via
// trace frames (spec §4.H step 4).
func WithFactoryMonitoring(enabled bool) Option {
	return func(m *Monitor) { m.monitorFactories = enabled }
}

// WithStartBlock sets the first block a chain's loop begins scanning from.
func WithStartBlock(chainID uint64, block uint64) Option {
	return func(m *Monitor) { m.startBlocks[chainID] = block }
}

// WithSimilarityDelay overrides the grace delay before firing the
// similarity-verification trigger (spec §4.H step 6, default 15s).
func WithSimilarityDelay(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.similarityDelay = d
		}
	}
}

// WithSimilarityTrigger sets the function invoked to fire the client-side
// similarity-verification trigger contract (spec §9's Open Question
// resolution). Without one, assembly failures are logged and otherwise
// ignored.
func WithSimilarityTrigger(fn func(ctx context.Context, chainID uint64, address common.Address) error) Option {
	return func(m *Monitor) { m.similarityPOST = fn }
}

// WithSourcifyFallback sets the sourcify.dev client consulted when a
// discovered contract's metadata can't be resolved from IPFS directly: many
// already-verified contracts have their metadata mirrored there, saving an
// IPFS round trip (and the similarity-trigger fallback) entirely.
func WithSourcifyFallback(client *sourcify.Client) Option {
	return func(m *Monitor) { m.sourcify = client }
}

// Monitor runs one polling loop per configured chain.
type Monitor struct {
	registry *chain.Registry
	pool     *worker.Pool
	seen     *clients.Redis
	ipfs     *ipfsFetcher
	sourcify *sourcify.Client

	monitorFactories bool
	startBlocks      map[uint64]uint64

	similarityDelay time.Duration
	similarityPOST  func(ctx context.Context, chainID uint64, address common.Address) error
}

// New builds a Monitor over the given chain registry, worker pool, and
// seen-address cache, using ipfsCfg for metadata gateway fan-out.
func New(registry *chain.Registry, pool *worker.Pool, seen *clients.Redis, ipfsCfg options.IPFS, opts ...Option) *Monitor {
	m := &Monitor{
		registry:        registry,
		pool:            pool,
		seen:            seen,
		ipfs:            newIPFSFetcher(ipfsCfg),
		startBlocks:     make(map[uint64]uint64),
		similarityDelay: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts one goroutine per configured, supported chain and blocks until
// ctx is cancelled. Chains process blocks independently (spec §5); chains is
// keyed by chain id string, matching spec §6's chains[chainId] config shape.
func (m *Monitor) Run(ctx context.Context, chains map[string]options.Chain) {
	var loops []chan struct{}
	for idStr, cfg := range chains {
		if !cfg.Supported {
			continue
		}
		chainID, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			zap.L().Error("monitor: invalid chain id key", zap.String("chain", idStr), zap.Error(err))
			continue
		}
		done := make(chan struct{})
		loops = append(loops, done)
		go func(chainID uint64, cfg options.Chain) {
			defer close(done)
			m.runChainLoop(ctx, chainID, cfg)
		}(chainID, cfg)
	}
	for _, done := range loops {
		<-done
	}
}

// runChainLoop implements spec §4.H's per-chain state machine: sleep, fetch
// next block, discover deployments, submit verifications; interval adapts
// between [lower, upper] based on whether new blocks were found.
func (m *Monitor) runChainLoop(ctx context.Context, chainID uint64, cfg options.Chain) {
	provider, err := m.registry.Get(chainID)
	if err != nil {
		zap.L().Error("monitor: no provider for chain", zap.Uint64("chain_id", chainID), zap.Error(err))
		return
	}

	st := &chainState{
		chainID:  new(big.Int).SetUint64(chainID),
		interval: cfg.BlockInterval,
	}
	if st.interval <= 0 {
		st.interval = 5 * time.Second
	}
	st.lastBlockSeen = m.startBlocks[chainID]

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(st.interval):
		}

		head, err := provider.BlockNumber(ctx)
		if err != nil {
			zap.L().Warn("monitor: failed to fetch block number", zap.Uint64("chain_id", chainID), zap.Error(err))
			continue
		}

		if head <= st.lastBlockSeen {
			st.interval = adaptInterval(st.interval, cfg, true)
			continue
		}

		next := st.lastBlockSeen + 1
		block, err := provider.BlockByNumber(ctx, new(big.Int).SetUint64(next))
		if err != nil {
			zap.L().Warn("monitor: failed to fetch block", zap.Uint64("chain_id", chainID), zap.Uint64("block", next), zap.Error(err))
			continue
		}

		m.processBlock(ctx, provider, st.chainID.Uint64(), cfg, block.Transactions())
		st.lastBlockSeen = next
		st.interval = adaptInterval(st.interval, cfg, false)
	}
}

// processBlock enumerates block's transactions, discovers top-level and
// (optionally) factory-child deployments, and fans the per-contract
// bytecode/metadata work out concurrently up to a fixed limit (spec §4.H
// "concurrency" note: chains process blocks serially, but within a block
// fetches run concurrently up to a configured fan-out).
func (m *Monitor) processBlock(ctx context.Context, provider *chain.Provider, chainID uint64, cfg options.Chain, txs types.Transactions) {
	var discovered []DiscoveredContract

	for _, tx := range txs {
		receipt, err := provider.TransactionReceipt(ctx, tx.Hash())
		if err != nil {
			zap.L().Warn("monitor: failed to fetch receipt", zap.Uint64("chain_id", chainID), zap.String("tx", tx.Hash().Hex()), zap.Error(err))
			continue
		}
		if receipt.ContractAddress != (common.Address{}) {
			discovered = append(discovered, DiscoveredContract{
				Address:         receipt.ContractAddress,
				TransactionHash: tx.Hash(),
				BlockNumber:     receipt.BlockNumber.Uint64(),
			})
		}

		if m.monitorFactories {
			children, err := provider.FactoryChildren(ctx, tx.Hash())
			if err != nil && err != chain.ErrNoTraceSupport {
				zap.L().Warn("monitor: factory trace failed", zap.Uint64("chain_id", chainID), zap.String("tx", tx.Hash().Hex()), zap.Error(err))
			}
			for _, addr := range children {
				discovered = append(discovered, DiscoveredContract{
					Address:         addr,
					TransactionHash: tx.Hash(),
					BlockNumber:     receipt.BlockNumber.Uint64(),
					IsFactoryChild:  true,
				})
			}
		}
	}

	if len(discovered) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, d := range discovered {
		d := d
		g.Go(func() error {
			m.handleDiscovered(gctx, provider, chainID, d)
			return nil
		})
	}
	_ = g.Wait()
}

// handleDiscovered fetches a discovered contract's runtime bytecode,
// extracts an embedded IPFS CID, fetches its metadata, and submits a
// VerifyFromMetadata job; on any assembly failure it triggers similarity
// verification instead (spec §4.H steps 5-6).
func (m *Monitor) handleDiscovered(ctx context.Context, provider *chain.Provider, chainID uint64, d DiscoveredContract) {
	key := "seen:" + strconv.FormatUint(chainID, 10) + ":" + d.Address.Hex()
	if m.seen != nil {
		if exists, err := m.seen.Exists(ctx, key); err == nil && exists {
			return
		}
	}

	runtime, err := provider.CodeAt(ctx, d.Address)
	if err != nil {
		zap.L().Debug("monitor: contract not deployed (already self-destructed?)", zap.String("address", d.Address.Hex()), zap.Error(err))
		return
	}

	metadata, err := m.resolveMetadata(ctx, chainID, runtime, d.Address)
	if err != nil {
		m.triggerSimilarity(ctx, chainID, d.Address)
		m.markSeen(ctx, key)
		return
	}

	job := worker.NewMetadataJob(chainID, d.Address, metadata, nil, d.TransactionHash)
	if err := m.pool.TrySubmit(job); err != nil {
		zap.L().Warn("monitor: failed to submit verification job", zap.String("address", d.Address.Hex()), zap.Error(err))
	}
	m.markSeen(ctx, key)
}

// resolveMetadata extracts the embedded IPFS CID from runtime and fetches its
// metadata, falling back to the sourcify.dev repository (if configured) when
// either step fails — the contract may already be verified there even when
// our own gateways can't reach its CID (spec §4.H step 5).
func (m *Monitor) resolveMetadata(ctx context.Context, chainID uint64, runtime []byte, address common.Address) ([]byte, error) {
	cid, err := ipfsCIDFromRuntime(hex.EncodeToString(runtime))
	if err == nil {
		if metadata, ferr := m.ipfs.Fetch(ctx, cid); ferr == nil {
			return metadata, nil
		}
	}
	return m.fetchFromSourcify(chainID, address)
}

// fetchFromSourcify tries the full-match then partial-match metadata for
// address on chainID. It never talks to a chain's own RPC; sourcify-go hits
// the sourcify.dev repository API directly.
func (m *Monitor) fetchFromSourcify(chainID uint64, address common.Address) ([]byte, error) {
	if m.sourcify == nil {
		return nil, errNoSourcifyFallback
	}
	for _, matchType := range []sourcify.MethodMatchType{sourcify.MethodMatchTypeFull, sourcify.MethodMatchTypePartial} {
		body, err := sourcify.GetContractMetadataAsBytes(m.sourcify, int(chainID), address, matchType)
		if err == nil {
			return body, nil
		}
	}
	return nil, errNoSourcifyFallback
}

func (m *Monitor) markSeen(ctx context.Context, key string) {
	if m.seen == nil {
		return
	}
	if err := m.seen.Write(ctx, key, "1", 0); err != nil {
		zap.L().Warn("monitor: failed to write seen-address cache", zap.String("key", key), zap.Error(err))
	}
}

// triggerSimilarity fires the client-side similarity-verification trigger
// contract (spec §9's Open Question resolution: fire-and-forget POST, no
// server-side similarity logic here) after the configured grace delay.
func (m *Monitor) triggerSimilarity(ctx context.Context, chainID uint64, address common.Address) {
	if m.similarityPOST == nil {
		return
	}
	time.AfterFunc(m.similarityDelay, func() {
		if err := m.similarityPOST(ctx, chainID, address); err != nil {
			zap.L().Warn("monitor: similarity verification trigger failed",
				zap.Uint64("chain_id", chainID), zap.String("address", address.Hex()), zap.Error(err))
		}
	})
}

// adaptInterval multiplies by BlockIntervalFactor on no-new-blocks, divides
// on a successful fetch, clamped to [lower, upper] (spec §4.H step 1).
func adaptInterval(current time.Duration, cfg options.Chain, noNewBlocks bool) time.Duration {
	factor := cfg.BlockIntervalFactor
	if factor <= 1 {
		factor = 1.5
	}

	next := current
	if noNewBlocks {
		next = time.Duration(float64(current) * factor)
	} else {
		next = time.Duration(float64(current) / factor)
	}

	if cfg.BlockIntervalLower > 0 && next < cfg.BlockIntervalLower {
		next = cfg.BlockIntervalLower
	}
	if cfg.BlockIntervalUpper > 0 && next > cfg.BlockIntervalUpper {
		next = cfg.BlockIntervalUpper
	}
	return next
}


package clients

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/txpull/sourcecheck/options"
)

// Error messages
var (
	ErrClientURLNotSet  error = errors.New("configuration client URL not set")
	ErrNoEndpointsDialed error = errors.New("no RPC endpoints could be dialed")
)

// EthClient is a load-balanced, round-robin Ethereum RPC client dialed
// against every configured endpoint of a single chain. The Chain Access
// Layer (package chain) wraps one EthClient per chain with per-endpoint
// circuit breaker state; EthClient itself stays a dumb, stateless dialer.
type EthClient struct {
	ctx     context.Context
	chain   options.Chain
	clients []*ethclient.Client
	next    uint32
}

// Len returns the number of successfully dialed endpoints.
func (c *EthClient) Len() int {
	return len(c.clients)
}

// ClientAt returns the raw *ethclient.Client at index i of the dialed
// endpoints, the same index Next returns, so callers holding per-endpoint
// health state can address a specific endpoint rather than round-robin
// across all of them. Endpoints that failed to dial are left out of that
// list, so i equals the options.Chain.RPC index only when every endpoint
// dialed.
func (c *EthClient) ClientAt(i int) *ethclient.Client {
	return c.clients[i]
}

// Next returns the next client in round-robin order along with its index.
func (c *EthClient) Next() (*ethclient.Client, int) {
	n := atomic.AddUint32(&c.next, 1)
	idx := (int(n) - 1) % len(c.clients)
	return c.clients[idx], idx
}

// Close closes every underlying client.
func (c *EthClient) Close() {
	for _, client := range c.clients {
		client.Close()
	}
}

// NewEthClient dials every endpoint of chain concurrently. An endpoint that
// fails to dial is dropped rather than failing the whole chain, since the
// circuit breaker above this layer is designed to route around unreachable
// endpoints; NewEthClient only fails if none dial successfully.
func NewEthClient(ctx context.Context, chain options.Chain) (*EthClient, error) {
	if len(chain.RPC) == 0 {
		return nil, ErrClientURLNotSet
	}

	type dialed struct {
		idx    int
		client *ethclient.Client
	}

	var wg sync.WaitGroup
	results := make(chan dialed, len(chain.RPC))

	for i, endpoint := range chain.RPC {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			client, err := ethclient.DialContext(ctx, url)
			if err != nil {
				return
			}
			results <- dialed{idx: i, client: client}
		}(i, ResolveEndpointURL(endpoint))
	}

	wg.Wait()
	close(results)

	ordered := make([]*ethclient.Client, len(chain.RPC))
	got := 0
	for d := range results {
		ordered[d.idx] = d.client
		got++
	}
	if got == 0 {
		return nil, ErrNoEndpointsDialed
	}

	// Compact to the successfully dialed subset, preserving relative order.
	clients := make([]*ethclient.Client, 0, got)
	for _, c := range ordered {
		if c != nil {
			clients = append(clients, c)
		}
	}

	return &EthClient{
		ctx:     ctx,
		chain:   chain,
		clients: clients,
		next:    0,
	}, nil
}

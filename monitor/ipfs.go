package monitor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/txpull/sourcecheck/options"
	"golang.org/x/time/rate"
)

// ipfsFetcher fans a CID fetch out across configured gateways concurrently,
// per spec §4.H step 5 ("retries and per-gateway timeout") and the
// clients.EthClient round-robin-under-a-lock pattern generalized here to
// generic HTTP fetchers (SPEC_FULL.md §4.H). Each gateway gets its own
// limiter so one slow/throttling gateway can't starve the others' budget.
type ipfsFetcher struct {
	cfg    options.IPFS
	client *http.Client

	mu       sync.Mutex
	next     int
	limiters map[string]*rate.Limiter
}

func newIPFSFetcher(cfg options.IPFS) *ipfsFetcher {
	return &ipfsFetcher{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiters: make(map[string]*rate.Limiter),
	}
}

// limiterFor returns the rate limiter for gateway, creating it on first use.
// A non-positive RateLimit leaves the gateway unthrottled.
func (f *ipfsFetcher) limiterFor(gateway string) *rate.Limiter {
	if f.cfg.RateLimit <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[gateway]
	if !ok {
		l = rate.NewLimiter(rate.Limit(f.cfg.RateLimit), f.cfg.RateLimit)
		f.limiters[gateway] = l
	}
	return l
}

// Fetch retrieves the metadata JSON for cid, trying up to cfg.FanOut
// gateways concurrently and returning the first success.
func (f *ipfsFetcher) Fetch(ctx context.Context, cid string) ([]byte, error) {
	if !f.cfg.Enabled || len(f.cfg.Gateways) == 0 {
		return nil, fmt.Errorf("ipfs: no gateways configured")
	}

	fanOut := f.cfg.FanOut
	if fanOut <= 0 || fanOut > len(f.cfg.Gateways) {
		fanOut = len(f.cfg.Gateways)
	}

	type result struct {
		body []byte
		err  error
	}
	resultCh := make(chan result, fanOut)
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i := 0; i < fanOut; i++ {
		gw := f.nextGateway()
		go func(gateway string) {
			body, err := f.fetchOne(fetchCtx, gateway, cid)
			resultCh <- result{body, err}
		}(gw)
	}

	var lastErr error
	for i := 0; i < fanOut; i++ {
		r := <-resultCh
		if r.err == nil {
			return r.body, nil
		}
		lastErr = r.err
	}
	return nil, fmt.Errorf("ipfs: all gateways failed: %w", lastErr)
}

func (f *ipfsFetcher) nextGateway() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	gw := f.cfg.Gateways[f.next%len(f.cfg.Gateways)]
	f.next++
	return gw
}

func (f *ipfsFetcher) fetchOne(ctx context.Context, gateway, cid string) ([]byte, error) {
	retries := f.cfg.Retries
	if retries < 1 {
		retries = 1
	}

	limiter := f.limiterFor(gateway)

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		url := strings.TrimSuffix(gateway, "/") + "/ipfs/" + cid
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range f.cfg.Headers {
			req.Header.Set(k, v)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("ipfs gateway %s: status %d", gateway, resp.StatusCode)
			continue
		}
		return body, nil
	}
	return nil, lastErr
}

package monitor

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
)

// NewSimilarityTrigger builds the client-side trigger function spec §4.H
// step 6 and §9's Open Question resolution describe: a fire-and-forget
// POST to {server}/v2/verify/similarity/{chainId}/{address} against the
// configured Sourcify servers in order, stopping at the first one that
// answers 202, each retried with a constant backoff (spec §6's
// similarityVerification.requestDelay family of settings).
func NewSimilarityTrigger(servers []string, client *http.Client, maxRetries int, retryDelay time.Duration) func(ctx context.Context, chainID uint64, address common.Address) error {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return func(ctx context.Context, chainID uint64, address common.Address) error {
		if len(servers) == 0 {
			return fmt.Errorf("similarity trigger: no sourcify servers configured")
		}

		policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), uint64(maxRetries))

		var lastErr error
		for _, server := range servers {
			url := fmt.Sprintf("%s/v2/verify/similarity/%s/%s", server, strconv.FormatUint(chainID, 10), address.Hex())

			err := backoff.Retry(func() error {
				req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
				if err != nil {
					return backoff.Permanent(err)
				}
				resp, err := client.Do(req)
				if err != nil {
					return err
				}
				defer resp.Body.Close()
				if resp.StatusCode != http.StatusAccepted {
					return fmt.Errorf("similarity trigger: %s responded %d", server, resp.StatusCode)
				}
				return nil
			}, backoff.WithContext(policy, ctx))

			if err == nil {
				return nil
			}
			lastErr = err
		}
		return lastErr
	}
}

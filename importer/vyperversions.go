package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

const vyperMirrorURL = "https://vyper-releases-mirror.hardhat.org/list.json"

// vyperRelease is one entry of the hardhat mirror's release list.
type vyperRelease struct {
	Version string `json:"version"` // e.g. "v0.3.10"
}

// vyperVersionCache caches the mirror listing for 1h (spec §4.G step 3), with
// a single refresh retry on a cache miss.
type vyperVersionCache struct {
	mu        sync.Mutex
	client    *http.Client
	fetchedAt time.Time
	versions  map[string]string // "0.3.10" -> "v0.3.10"
}

func newVyperVersionCache(client *http.Client) *vyperVersionCache {
	return &vyperVersionCache{client: client}
}

// Resolve maps an Etherscan-reported compiler string (e.g. "vyper:0.3.10")
// to the canonical release tag the Compiler Invoker resolves against.
func (c *vyperVersionCache) Resolve(ctx context.Context, compilerVersion string) (string, error) {
	bare := strings.TrimPrefix(compilerVersion, "vyper:")

	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.fetchedAt) > time.Hour || c.versions == nil {
		if err := c.refresh(ctx); err != nil {
			return "", fmt.Errorf("%w: %s", ErrVyperVersionMappingFailed, err)
		}
	}
	if v, ok := c.versions[bare]; ok {
		return v, nil
	}

	// One refresh retry on miss, per spec §4.G step 3.
	if err := c.refresh(ctx); err != nil {
		return "", fmt.Errorf("%w: %s", ErrVyperVersionMappingFailed, err)
	}
	if v, ok := c.versions[bare]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s not in mirror listing", ErrVyperVersionMappingFailed, bare)
}

func (c *vyperVersionCache) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, vyperMirrorURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var releases []vyperRelease
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return err
	}

	versions := make(map[string]string, len(releases))
	for _, r := range releases {
		versions[strings.TrimPrefix(r.Version, "v")] = r.Version
	}
	c.versions = versions
	c.fetchedAt = time.Now()
	return nil
}

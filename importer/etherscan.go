// Package importer wraps any block explorer exposing Etherscan v2's
// getsourcecode API, normalizing its three SourceCode encodings into a
// compilable standard-JSON input (spec §4.G). It adapts the teacher's
// scanners/bscscan.go HTTP-GET-and-decode shape to the unified
// `chainid`-parameterized v2 endpoint instead of a single per-chain scanner.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/txpull/sourcecheck/apierror"
	"golang.org/x/time/rate"
)

// Option configures an Importer.
type Option func(*Importer)

func WithBaseURL(u string) Option          { return func(i *Importer) { i.baseURL = u } }
func WithAPIKey(k string) Option           { return func(i *Importer) { i.apiKey = k } }
func WithHTTPClient(c *http.Client) Option { return func(i *Importer) { i.client = c } }

// WithRateLimit caps outbound getsourcecode calls at rps requests/second
// (burst rps), matching the per-key throttling every Etherscan-family
// explorer enforces server-side (spec §4.G).
func WithRateLimit(rps int) Option {
	return func(i *Importer) {
		if rps > 0 {
			i.limiter = rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

// Importer fetches and normalizes verified source code from an Etherscan
// v2-compatible explorer.
type Importer struct {
	baseURL string
	apiKey  string
	client  *http.Client
	vyper   *vyperVersionCache
	limiter *rate.Limiter
}

// New builds an Importer against baseURL (e.g. https://api.etherscan.io/v2).
// Etherscan's free-tier default of 5 requests/second applies unless
// overridden by WithRateLimit.
func New(opts ...Option) *Importer {
	i := &Importer{
		baseURL: "https://api.etherscan.io/v2",
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.vyper = newVyperVersionCache(i.client)
	return i
}

// Fetch retrieves and normalizes the verified source of (chainID, address),
// per spec §4.G's 5-step contract.
func (i *Importer) Fetch(ctx context.Context, chainID uint64, address string) (*ProcessedEtherscanResult, error) {
	body, err := i.getSourceCode(ctx, chainID, address)
	if err != nil {
		return nil, err
	}

	if strings.Contains(string(body), "NOTOK") {
		var errResp getSourceCodeErrorResponse
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr != nil {
			return nil, apierror.New(apierror.CodeEtherscanHTTPError, nil, jsonErr)
		}
		return nil, apierror.New(apierror.CodeEtherscanAPIError, errResp.Result, fmt.Errorf("%w: %s", ErrAPIError, errResp.Result))
	}

	var resp getSourceCodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apierror.New(apierror.CodeEtherscanHTTPError, nil, err)
	}
	if len(resp.Result) == 0 {
		return nil, apierror.New(apierror.CodeEtherscanMissingContractDefinition, nil, ErrMissingContractDefinition)
	}

	result := resp.Result[0]
	if result.ABI == "Contract source code not verified" || result.SourceCode == "" {
		return nil, apierror.New(apierror.CodeEtherscanNotVerified, nil, ErrNotVerified)
	}

	return i.normalize(ctx, result)
}

func (i *Importer) getSourceCode(ctx context.Context, chainID uint64, address string) ([]byte, error) {
	if i.limiter != nil {
		if err := i.limiter.Wait(ctx); err != nil {
			return nil, apierror.New(apierror.CodeEtherscanNetworkError, nil, err)
		}
	}

	q := url.Values{}
	q.Set("chainid", strconv.FormatUint(chainID, 10))
	q.Set("module", "contract")
	q.Set("action", "getsourcecode")
	q.Set("address", address)
	if i.apiKey != "" {
		q.Set("apikey", i.apiKey)
	}
	reqURL := fmt.Sprintf("%s/api?%s", i.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apierror.New(apierror.CodeEtherscanNetworkError, nil, err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, apierror.New(apierror.CodeEtherscanNetworkError, nil, fmt.Errorf("%w: %s", ErrNetwork, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apierror.New(apierror.CodeEtherscanRateLimit, nil, ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apierror.New(apierror.CodeEtherscanHTTPError, resp.StatusCode, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierror.New(apierror.CodeEtherscanNetworkError, nil, err)
	}
	return body, nil
}

// normalize discriminates SourceCode's three shapes (single-file, multi-file,
// standard-JSON) per spec §4.G step 2, and maps the Vyper compiler string
// through the cached mirror listing when the contract is Vyper.
func (i *Importer) normalize(ctx context.Context, r sourceCodeResult) (*ProcessedEtherscanResult, error) {
	language := "Solidity"
	compilerVersion := r.CompilerVersion
	if strings.HasPrefix(strings.ToLower(r.CompilerVersion), "vyper") {
		language = "Vyper"
		mapped, err := i.vyper.Resolve(ctx, r.CompilerVersion)
		if err != nil {
			return nil, apierror.New(apierror.CodeEtherscanVyperVersionMappingFailed, r.CompilerVersion, err)
		}
		compilerVersion = mapped
	}

	src := strings.TrimSpace(r.SourceCode)
	switch {
	case strings.HasPrefix(src, "{{"):
		return i.fromStandardJSON(src, r, language, compilerVersion)
	case strings.HasPrefix(src, "{"):
		return i.fromMultiFile(src, r, language, compilerVersion)
	default:
		return i.fromSingleFile(src, r, language, compilerVersion)
	}
}

func (i *Importer) fromStandardJSON(src string, r sourceCodeResult, language, compilerVersion string) (*ProcessedEtherscanResult, error) {
	unwrapped := strings.TrimSuffix(strings.TrimPrefix(src, "{"), "}")

	var input standardJSONInput
	if err := json.Unmarshal([]byte(unwrapped), &input); err != nil {
		return nil, apierror.New(apierror.CodeEtherscanMissingContractInJSON, nil, err)
	}
	if language == "Vyper" && input.Settings == nil {
		return nil, apierror.New(apierror.CodeEtherscanMissingVyperSettings, nil, ErrMissingVyperSettings)
	}

	contractPath, ok := findContractPathByName(input.Sources, r.ContractName)
	if !ok {
		return nil, apierror.New(apierror.CodeEtherscanMissingContractInJSON, r.ContractName, ErrMissingContractInJSON)
	}

	jsonInput, err := json.Marshal(input)
	if err != nil {
		return nil, apierror.New(apierror.CodeEtherscanHTTPError, nil, err)
	}

	return &ProcessedEtherscanResult{
		CompilerVersion: compilerVersion,
		Language:        language,
		JSONInput:       jsonInput,
		ContractPath:    contractPath,
		ContractName:    r.ContractName,
		LicenseCode:     r.LicenseType,
	}, nil
}

func (i *Importer) fromMultiFile(src string, r sourceCodeResult, language, compilerVersion string) (*ProcessedEtherscanResult, error) {
	var files map[string]jsonSource
	if err := json.Unmarshal([]byte(src), &files); err != nil {
		return nil, apierror.New(apierror.CodeEtherscanMissingContractInJSON, nil, err)
	}

	contractPath, ok := findContractPathByName(files, r.ContractName)
	if !ok {
		return nil, apierror.New(apierror.CodeEtherscanMissingContractInJSON, r.ContractName, ErrMissingContractInJSON)
	}

	input := standardJSONInput{
		Language: language,
		Sources:  files,
		Settings: settingsFromResult(r),
	}
	jsonInput, err := json.Marshal(input)
	if err != nil {
		return nil, apierror.New(apierror.CodeEtherscanHTTPError, nil, err)
	}

	return &ProcessedEtherscanResult{
		CompilerVersion: compilerVersion,
		Language:        language,
		JSONInput:       jsonInput,
		ContractPath:    contractPath,
		ContractName:    r.ContractName,
		LicenseCode:     r.LicenseType,
	}, nil
}

func (i *Importer) fromSingleFile(src string, r sourceCodeResult, language, compilerVersion string) (*ProcessedEtherscanResult, error) {
	ext := ".sol"
	if language == "Vyper" {
		ext = ".vy"
	}
	contractPath := r.ContractName + ext

	input := standardJSONInput{
		Language: language,
		Sources:  map[string]jsonSource{contractPath: {Content: src}},
		Settings: settingsFromResult(r),
	}
	jsonInput, err := json.Marshal(input)
	if err != nil {
		return nil, apierror.New(apierror.CodeEtherscanHTTPError, nil, err)
	}

	return &ProcessedEtherscanResult{
		CompilerVersion: compilerVersion,
		Language:        language,
		JSONInput:       jsonInput,
		ContractPath:    contractPath,
		ContractName:    r.ContractName,
		LicenseCode:     r.LicenseType,
	}, nil
}

// findContractPathByName scans file contents for the contract/interface
// declaration matching name, per spec §4.G step 2's "Find the target path by
// scanning file contents for the contract name."
func findContractPathByName(files map[string]jsonSource, name string) (string, bool) {
	if len(files) == 1 {
		for path := range files {
			return path, true
		}
	}
	needles := []string{"contract " + name, "library " + name, "interface " + name}
	for path, f := range files {
		for _, n := range needles {
			if strings.Contains(f.Content, n) {
				return path, true
			}
		}
	}
	return "", false
}

// settingsFromResult builds a minimal settings object from the flat
// Etherscan fields available outside a standard-JSON payload.
func settingsFromResult(r sourceCodeResult) map[string]interface{} {
	optimizerEnabled := r.OptimizationUsed == "1"
	runs, _ := strconv.Atoi(r.Runs)

	settings := map[string]interface{}{
		"optimizer": map[string]interface{}{
			"enabled": optimizerEnabled,
			"runs":    runs,
		},
	}
	if r.EVMVersion != "" && !strings.EqualFold(r.EVMVersion, "Default") {
		settings["evmVersion"] = r.EVMVersion
	}
	return settings
}

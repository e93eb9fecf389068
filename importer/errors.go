package importer

import "errors"

// Sentinel errors map 1:1 onto the apierror codes in spec §4.G's taxonomy;
// the importer returns apierror-wrapped values built from these.
var (
	ErrNetwork                    = errors.New("etherscan: network error")
	ErrHTTPStatus                 = errors.New("etherscan: unexpected http status")
	ErrRateLimited                = errors.New("etherscan: rate limited")
	ErrAPIError                   = errors.New("etherscan: api error")
	ErrNotVerified                = errors.New("etherscan: contract not verified")
	ErrMissingContractDefinition  = errors.New("etherscan: missing contract definition")
	ErrVyperVersionMappingFailed  = errors.New("etherscan: vyper version mapping failed")
	ErrMissingContractInJSON      = errors.New("etherscan: missing contract in standard-json input")
	ErrMissingVyperSettings       = errors.New("etherscan: missing vyper settings")
)

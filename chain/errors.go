package chain

import "errors"

var (
	// ErrAllRPCsFailed is returned when every configured endpoint for a chain
	// is either circuit-open or failed the request.
	ErrAllRPCsFailed = errors.New("all rpcs failed")

	// ErrNoTraceSupport is returned when a chain has no endpoint marked with
	// trace support for the requested method.
	ErrNoTraceSupport = errors.New("no trace support configured for chain")

	// ErrNoCreateTrace is returned when a transaction trace was retrieved but
	// contained no contract-creation frame.
	ErrNoCreateTrace = errors.New("no contract creation found in trace")

	// ErrMalformedTrace is returned when a trace response could not be
	// decoded into the expected parity/geth shape.
	ErrMalformedTrace = errors.New("malformed trace response")

	// ErrUnknownChain is returned when a request names a chain id that was
	// not present in configuration.
	ErrUnknownChain = errors.New("unknown chain")

	// ErrContractNotDeployed is returned when the chain reports no code at
	// the requested address.
	ErrContractNotDeployed = errors.New("contract not deployed at address")
)

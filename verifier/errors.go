package verifier

import "errors"

var (
	// ErrContractNotDeployed names the contract_not_deployed outcome. Engine
	// does not return it: an on-chain code fetch failure comes back as an
	// apierror with CodeContractNotDeployed wrapping the chain package's error.
	ErrContractNotDeployed = errors.New("contract_not_deployed")

	// ErrExtraFileInputBug is returned (after the recompile-with-all-sources
	// retry also fails) for the known Solidity 0.6.12/0.7.0 metadata bug
	// (spec §4.D step 7).
	ErrExtraFileInputBug = errors.New("extra_file_input_bug")

	// ErrBytecodeMismatch is returned when classification settles on VerdictNull.
	ErrBytecodeMismatch = errors.New("bytecode_mismatch")
)

// Package apierror provides the coded, data-bearing error envelope used
// throughout the verification pipeline (spec §7). Compiler failures and
// bytecode mismatches are not exceptions: they are recorded as ordinary
// values carrying a stable code, a freshly minted error id for log
// correlation, and a code-keyed data payload.
package apierror

import (
	"fmt"

	"github.com/google/uuid"
)

// Code is a stable identifier from the taxonomy in spec §7.
type Code string

const (
	// Compilation
	CodeUnsupportedCompilerVersion Code = "unsupported_compiler_version"
	CodeCompilerError              Code = "compiler_error"
	CodeContractNotFound           Code = "contract_not_found"
	CodeMissingSource              Code = "missing_source"
	CodeMissingOrInvalidSource     Code = "missing_or_invalid_source"
	CodeExtraFileInputBug          Code = "extra_file_input_bug"

	// Chain access
	CodeNoTraceSupport         Code = "no_trace_support"
	CodeNoCreateTrace          Code = "no_create_trace"
	CodeMalformedTraceResponse Code = "malformed_trace_response"
	CodeAllRPCsFailed          Code = "all_rpcs_failed"
	CodeContractNotDeployed    Code = "contract_not_deployed"

	// Verification
	CodeBytecodeMismatch    Code = "bytecode_mismatch"
	CodeNoSimilarMatchFound Code = "no_similar_match_found"

	// Import (superset kept per spec §9 Open Question #1)
	CodeEtherscanNetworkError               Code = "etherscan_network_error"
	CodeEtherscanHTTPError                  Code = "etherscan_http_error"
	CodeEtherscanRateLimit                  Code = "etherscan_rate_limit"
	CodeEtherscanAPIError                   Code = "etherscan_api_error"
	CodeEtherscanNotVerified                Code = "etherscan_not_verified"
	CodeEtherscanMissingContractDefinition  Code = "etherscan_missing_contract_definition"
	CodeEtherscanVyperVersionMappingFailed  Code = "etherscan_vyper_version_mapping_failed"
	CodeEtherscanMissingContractInJSON      Code = "etherscan_missing_contract_in_json"
	CodeEtherscanMissingVyperSettings       Code = "etherscan_missing_vyper_settings"

	// Persistence
	CodeConflict Code = "conflict"
)

// PartialArtifacts is the data payload attached to an error when the
// Verification Engine produced partial artifacts before failing (spec §7).
type PartialArtifacts struct {
	OnchainRuntimeCode      string `json:"onchainRuntimeCode,omitempty"`
	OnchainCreationCode     string `json:"onchainCreationCode,omitempty"`
	RecompiledRuntimeCode   string `json:"recompiledRuntimeCode,omitempty"`
	RecompiledCreationCode  string `json:"recompiledCreationCode,omitempty"`
	CreationTransactionHash string `json:"creationTransactionHash,omitempty"`
}

// Error is the envelope every public operation returns for a handled
// failure: a stable code, a correlation id, and a code-keyed data payload.
type Error struct {
	Code    Code
	ErrorID uuid.UUID
	Data    interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (id=%s): %s", e.Code, e.ErrorID, e.Err)
	}
	return fmt.Sprintf("%s (id=%s)", e.Code, e.ErrorID)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New mints a fresh Error with a new correlation id.
func New(code Code, data interface{}, cause error) *Error {
	return &Error{
		Code:    code,
		ErrorID: uuid.New(),
		Data:    data,
		Err:     cause,
	}
}

// IsConflict reports whether err is a persistence ConflictError (HTTP 409-mappable).
func IsConflict(err error) bool {
	var apiErr *Error
	if e, ok := err.(*Error); ok {
		apiErr = e
	}
	return apiErr != nil && apiErr.Code == CodeConflict
}

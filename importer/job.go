package importer

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/txpull/sourcecheck/compilers"
	"github.com/txpull/sourcecheck/worker"
)

// ToJob resolves a ProcessedEtherscanResult into the KindJSONInput job shape
// worker.Pool consumes (spec §4.F's "VerifyFromExplorer" job, which is
// resolved into a standard-JSON verification before it ever reaches the
// pool, per job.go's KindExplorer doc comment).
func ToJob(chainID uint64, address common.Address, creationTxHash common.Hash, result ProcessedEtherscanResult) (*worker.Job, error) {
	var input compilers.Input
	if err := json.Unmarshal(result.JSONInput, &input); err != nil {
		return nil, fmt.Errorf("importer: decode standard-json input: %w", err)
	}

	if _, ok := input.Sources[result.ContractPath]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingContractInJSON, result.ContractPath)
	}

	return worker.NewJSONInputJob(
		chainID,
		address,
		compilers.Language(result.Language),
		result.CompilerVersion,
		input.Sources,
		input.Settings,
		result.ContractPath,
		result.ContractName,
		creationTxHash,
	), nil
}

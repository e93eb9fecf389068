package verifier

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/txpull/sourcecheck/apierror"
	"github.com/txpull/sourcecheck/chain"
	"github.com/txpull/sourcecheck/compilers"
	"go.uber.org/zap"
)

// Engine runs the Verification Engine pipeline of spec §4.D.
type Engine struct {
	invoker  compilers.Invoker
	chains   *chain.Registry
}

// NewEngine builds an Engine backed by invoker for compilation and registry
// for on-chain access.
func NewEngine(invoker compilers.Invoker, registry *chain.Registry) *Engine {
	return &Engine{invoker: invoker, chains: registry}
}

// Verify runs the full pipeline: compile, fetch on-chain code, substitute,
// classify, export. creationTxHash may be empty, in which case only the
// runtime side is verified. A VerdictNull outcome is returned as an
// apierror with CodeBytecodeMismatch wrapping ErrBytecodeMismatch.
func (e *Engine) Verify(ctx context.Context, compilation Compilation, chainID *big.Int, address common.Address, creationTxHash common.Hash) (*VerificationExport, error) {
	provider, err := e.chains.Get(chainID.Uint64())
	if err != nil {
		return nil, err
	}

	output, err := compilation.Compile(ctx, e.invoker)
	if err != nil {
		output, compilation, err = e.retryWithAllSources(ctx, compilation, err)
		if err != nil {
			return nil, err
		}
	}

	onchainRuntime, err := provider.CodeAt(ctx, address)
	if err != nil {
		return nil, apierror.New(apierror.CodeContractNotDeployed, nil, err)
	}
	onchainRuntimeHex := hex.EncodeToString(onchainRuntime)

	recompiledRuntimeHex, err := compilation.RuntimeBytecode(output)
	if err != nil {
		return nil, apierror.New(apierror.CodeContractNotFound, nil, err)
	}

	immutables := compilation.ImmutableReferences(output)

	runtimeResult, err := substitute(stripHexPrefix(recompiledRuntimeHex), onchainRuntimeHex, immutables, SideRuntime)
	if err != nil {
		return nil, err
	}

	export := &VerificationExport{
		Address:                   address.Hex(),
		ChainID:                   new(big.Int).Set(chainID),
		OnchainRuntimeBytecode:    onchainRuntimeHex,
		RecompiledRuntimeBytecode: recompiledRuntimeHex,
		RuntimeTransformations:    runtimeResult.transformations,
		TransformationValues:      runtimeResult.values,
		LibraryMap:                runtimeResult.libraryMap,
		RuntimeMetadataMatch:      runtimeResult.metadataMatch,
		CompilationLanguage:       compilation.Language(),
		CompilationVersion:        compilation.Version(),
	}

	runtimeVerdict := classify(runtimeResult.transformed, onchainRuntime, !runtimeResult.metadataMatch)
	export.Verdict = runtimeVerdict

	if (creationTxHash != common.Hash{}) {
		e.verifyCreationSide(ctx, provider, compilation, output, export, address, creationTxHash)
	}

	zap.L().Debug("verification complete",
		zap.String("address", address.Hex()),
		zap.String("verdict", string(export.Verdict)))

	if export.Verdict == VerdictNull {
		return nil, apierror.New(apierror.CodeBytecodeMismatch, nil, ErrBytecodeMismatch)
	}
	return export, nil
}

func (e *Engine) verifyCreationSide(ctx context.Context, provider *chain.Provider, compilation Compilation, output *compilers.Output, export *VerificationExport, address common.Address, creationTxHash common.Hash) {
	onchainCreationHex, err := provider.CreationBytecode(ctx, creationTxHash, address)
	if err != nil {
		zap.L().Warn("creation bytecode extraction failed", zap.Error(err))
		return
	}

	recompiledCreationHex, err := compilation.CreationBytecode(output)
	if err != nil {
		return
	}

	// Creation-side substitution analyzes the recompiled creation bytecode
	// on its own rather than reusing the runtime side's offsets. It passes
	// no immutables, since immutables are reported relative to deployed
	// (runtime) bytecode only per spec §4.B; the creation side's own
	// malleable regions are auxdata and library placeholders.
	result, err := substitute(stripHexPrefix(recompiledCreationHex), stripHexPrefix(onchainCreationHex), nil, SideCreation)
	if err != nil {
		zap.L().Warn("creation bytecode substitution failed", zap.Error(err))
		return
	}

	export.OnchainCreationBytecode = stripHexPrefix(onchainCreationHex)
	export.RecompiledCreationBytecode = recompiledCreationHex
	export.CreationTransformations = result.transformations
	export.CreationMetadataMatch = result.metadataMatch
	for k, v := range result.values {
		export.TransformationValues[k] = v
	}

	onchainCreation, err := hex.DecodeString(stripHexPrefix(onchainCreationHex))
	if err != nil {
		return
	}
	creationVerdict := classify(result.transformed, onchainCreation, !result.metadataMatch)

	// The overall verdict is the weaker of the two sides present.
	if creationVerdict.rank() < export.Verdict.rank() {
		export.Verdict = creationVerdict
	}
}

// retryWithAllSources implements spec §4.D step 7: the Solidity 0.6.12/0.7.0
// "extra file input" bug, where a metadata-derived compilation can fail to
// reproduce correctly unless every available source (not just the ones
// metadata lists) is included. If compilation exposes a wider candidate set
// (SourceWidener), it is recompiled against sources ∪ extraSources; failure
// there surfaces as extra_file_input_bug rather than a plain compiler_error.
// Compilations with nothing wider to try (no extra sources, or a frontend
// that never implements SourceWidener) keep the original compiler_error.
func (e *Engine) retryWithAllSources(ctx context.Context, compilation Compilation, cause error) (*compilers.Output, Compilation, error) {
	widener, ok := compilation.(SourceWidener)
	if !ok {
		return nil, nil, apierror.New(apierror.CodeCompilerError, nil, cause)
	}

	all := widener.AllSources()
	if len(all) == 0 {
		return nil, nil, apierror.New(apierror.CodeCompilerError, nil, cause)
	}

	widened := widener.WithAllSources(all)
	output, err := widened.Compile(ctx, e.invoker)
	if err != nil {
		return nil, nil, apierror.New(apierror.CodeExtraFileInputBug, nil, fmt.Errorf("%w: %s", ErrExtraFileInputBug, err))
	}
	return output, widened, nil
}

func stripHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

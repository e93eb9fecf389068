// Package verifier implements the Verification Engine (spec §4.D): the
// pipeline that compiles submitted sources, fetches on-chain bytecode,
// substitutes malleable regions, classifies the match, and exports the
// result. Solidity, Vyper and Yul are modeled as the tagged variant
// described in spec §9: a small Compilation capability set shared by three
// concrete implementations.
package verifier

import (
	"context"
	"math/big"

	"github.com/txpull/sourcecheck/bytecode"
	"github.com/txpull/sourcecheck/compilers"
)

// Compilation is the capability set the Engine needs from any frontend
// (Solidity, Vyper, Yul), per spec §9's "tagged variant" design note.
type Compilation interface {
	Language() string
	Version() string
	Compile(ctx context.Context, invoker compilers.Invoker) (*compilers.Output, error)
	RuntimeBytecode(out *compilers.Output) (string, error)
	CreationBytecode(out *compilers.Output) (string, error)
	ImmutableReferences(out *compilers.Output) []bytecode.ImmutableRange
}

// SourceWidener is implemented by Compilations built from a source set that
// may be narrower than everything actually available (e.g. a metadata-derived
// compilation only uses metadata.sources, dropping sibling files fetched
// alongside it). AllSources returns the wider candidate set, or nil when
// there is nothing beyond what was already tried. WithAllSources rebuilds the
// Compilation against that wider set. This backs the Solidity 0.6.12/0.7.0
// extra-file-input-bug retry (spec §4.D step 7).
type SourceWidener interface {
	Compilation
	AllSources() map[string]compilers.Source
	WithAllSources(all map[string]compilers.Source) Compilation
}

// Verdict is the three-way classification of spec §4.D step 6.
type Verdict string

const (
	VerdictPerfect Verdict = "perfect"
	VerdictPartial Verdict = "partial"
	VerdictNull    Verdict = "null"
)

// rank orders verdicts for the "at least as good as" monotonicity invariant
// (spec §3): perfect > partial > null.
func (v Verdict) rank() int {
	switch v {
	case VerdictPerfect:
		return 2
	case VerdictPartial:
		return 1
	default:
		return 0
	}
}

// AtLeastAsGoodAs reports whether v is not a regression relative to prior.
func (v Verdict) AtLeastAsGoodAs(prior Verdict) bool {
	return v.rank() >= prior.rank()
}

// TransformReason is the taxonomy of edits recorded by the Engine (spec §4.D).
type TransformReason string

const (
	ReasonLibrary              TransformReason = "library"
	ReasonImmutable            TransformReason = "immutable"
	ReasonCBORAuxdata          TransformReason = "cborAuxdata"
	ReasonConstructorArguments TransformReason = "constructorArguments"
	ReasonCallProtection       TransformReason = "callProtection"
)

// TransformType is whether a Transformation replaces bytes in place or
// inserts new ones (only constructorArguments ever inserts).
type TransformType string

const (
	TransformReplace TransformType = "replace"
	TransformInsert  TransformType = "insert"
)

// Transformation is one entry of the ordered, positionally-addressable edit
// log described in spec §4.D. Transformations never reference each other:
// they form a flat ordered index, not a graph (spec §9's "arena of immutable
// transformation records").
type Transformation struct {
	Reason TransformReason `json:"reason"`
	Type   TransformType   `json:"type"`
	Offset int             `json:"offset"`
	ID     string          `json:"id,omitempty"`
}

// Side is which bytecode (runtime or creation) a set of transformations applies to.
type Side string

const (
	SideRuntime  Side = "runtime"
	SideCreation Side = "creation"
)

// DeploymentInfo is the on-chain provenance of the verified deployment.
type DeploymentInfo struct {
	BlockNumber      uint64
	TransactionIndex uint
	Deployer         string
	TransactionHash  string
}

// VerificationExport is the full result the Engine returns for a successful
// or partially-successful verification attempt (spec §4.D step 8). It also
// serves as both `Verification` and `ExtendedVerification` from spec §6 —
// they are the same type.
type VerificationExport struct {
	Address   string
	ChainID   *big.Int
	Verdict   Verdict

	OnchainRuntimeBytecode     string
	OnchainCreationBytecode    string
	RecompiledRuntimeBytecode  string
	RecompiledCreationBytecode string

	RuntimeTransformations  []Transformation
	CreationTransformations []Transformation
	TransformationValues    map[string][]byte

	LibraryMap map[string]string

	RuntimeMetadataMatch  bool
	CreationMetadataMatch bool

	Deployment *DeploymentInfo

	CompilationLanguage string
	CompilationVersion  string

	CompilationTimeMS int64
}

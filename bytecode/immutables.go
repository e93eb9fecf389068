package bytecode

import "github.com/txpull/sourcecheck/compilers"

// ImmutableReferencesFromCompiler flattens the compiler-reported
// evm.deployedBytecode.immutableReferences map (AST node id -> ranges) into
// the analyzer's flat ImmutableRange list.
func ImmutableReferencesFromCompiler(refs map[string][]compilers.ImmutableRange) []ImmutableRange {
	var out []ImmutableRange
	for id, ranges := range refs {
		for _, r := range ranges {
			out = append(out, ImmutableRange{ID: id, Offset: r.Start, Length: r.Length})
		}
	}
	return out
}

package verifier

import (
	"encoding/hex"
	"sort"

	"github.com/txpull/sourcecheck/bytecode"
)

// reasonOrder breaks offset ties when sorting transformations, per spec
// §4.D's declared tie-break order.
var reasonOrder = map[TransformReason]int{
	ReasonLibrary:              0,
	ReasonImmutable:            1,
	ReasonCBORAuxdata:          2,
	ReasonConstructorArguments: 3,
	ReasonCallProtection:       4,
}

// substitutionResult is the per-side outcome of applying step 5 of spec §4.D.
type substitutionResult struct {
	transformed     []byte
	transformations []Transformation
	values          map[string][]byte
	metadataMatch   bool
	libraryMap      map[string]string
}

// substitute applies library, immutable and CBOR-auxdata substitutions to
// recompiledHex using values observed at the same offsets in onchainHex.
// For side == SideCreation, a constructor-arguments tail transformation is
// also recorded when onchain bytecode runs longer than the (substituted)
// recompiled bytecode.
func substitute(recompiledHex, onchainHex string, immutables []bytecode.ImmutableRange, side Side) (*substitutionResult, error) {
	analysis, err := bytecode.Analyze(recompiledHex, immutables)
	if err != nil {
		return nil, err
	}

	onchain, err := hex.DecodeString(onchainHex)
	if err != nil {
		return nil, err
	}

	transformed := append([]byte(nil), analysis.Bytecode...)
	values := make(map[string][]byte)
	libraryMap := make(map[string]string)
	var transformations []Transformation
	metadataMatch := true

	for _, lib := range analysis.Libraries {
		length := bytecode.LibraryPlaceholderByteLen()
		value := sliceAt(onchain, lib.Offset, length)
		if value == nil {
			continue
		}
		copy(transformed[lib.Offset:lib.Offset+length], value)
		values[lib.PlaceholderID] = value
		libraryMap[lib.PlaceholderID] = hex.EncodeToString(value)
		transformations = append(transformations, Transformation{
			Reason: ReasonLibrary, Type: TransformReplace, Offset: lib.Offset, ID: lib.PlaceholderID,
		})
	}

	for _, im := range analysis.Immutables {
		value := sliceAt(onchain, im.Offset, im.Length)
		if value == nil {
			continue
		}
		copy(transformed[im.Offset:im.Offset+im.Length], value)
		values[im.ID] = value
		transformations = append(transformations, Transformation{
			Reason: ReasonImmutable, Type: TransformReplace, Offset: im.Offset, ID: im.ID,
		})
	}

	for _, ad := range analysis.Auxdata {
		value := sliceAt(onchain, ad.Offset, len(ad.Value))
		if value == nil {
			continue
		}
		copy(transformed[ad.Offset:ad.Offset+len(ad.Value)], value)
		key := "auxdata:" + ad.ID
		values[key] = value
		if !bytesEqual(value, ad.Value) {
			metadataMatch = false
		}
		transformations = append(transformations, Transformation{
			Reason: ReasonCBORAuxdata, Type: TransformReplace, Offset: ad.Offset, ID: ad.ID,
		})
	}

	if side == SideCreation && len(onchain) > len(transformed) {
		tailOffset := len(transformed)
		tail := onchain[tailOffset:]
		values["constructorArguments"] = tail
		transformations = append(transformations, Transformation{
			Reason: ReasonConstructorArguments, Type: TransformInsert, Offset: tailOffset,
		})
		transformed = append(transformed, tail...)
	}

	sort.SliceStable(transformations, func(i, j int) bool {
		if transformations[i].Offset != transformations[j].Offset {
			return transformations[i].Offset < transformations[j].Offset
		}
		return reasonOrder[transformations[i].Reason] < reasonOrder[transformations[j].Reason]
	})

	return &substitutionResult{
		transformed:     transformed,
		transformations: transformations,
		values:          values,
		metadataMatch:   metadataMatch,
		libraryMap:      libraryMap,
	}, nil
}

func sliceAt(b []byte, offset, length int) []byte {
	if offset < 0 || length <= 0 || offset+length > len(b) {
		return nil
	}
	return append([]byte(nil), b[offset:offset+length]...)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

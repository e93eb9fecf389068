package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerdict_AtLeastAsGoodAs(t *testing.T) {
	assert.True(t, VerdictPerfect.AtLeastAsGoodAs(VerdictPartial))
	assert.True(t, VerdictPartial.AtLeastAsGoodAs(VerdictPartial))
	assert.False(t, VerdictPartial.AtLeastAsGoodAs(VerdictPerfect))
	assert.True(t, VerdictNull.AtLeastAsGoodAs(VerdictNull))
}

func TestClassify_PerfectWhenEqualAndNoAuxdataTransform(t *testing.T) {
	a := []byte{0x01, 0x02, 0x03}
	b := []byte{0x01, 0x02, 0x03}
	assert.Equal(t, VerdictPerfect, classify(a, b, false))
}

func TestClassify_PartialWhenEqualButAuxdataDiffered(t *testing.T) {
	a := []byte{0x01, 0x02, 0x03}
	b := []byte{0x01, 0x02, 0x03}
	assert.Equal(t, VerdictPartial, classify(a, b, true))
}

func TestClassify_NullWhenUnequal(t *testing.T) {
	a := []byte{0x01, 0x02, 0x03}
	b := []byte{0x01, 0x02, 0xff}
	assert.Equal(t, VerdictNull, classify(a, b, true))
}

func TestSubstitute_LibraryPlaceholderReplacedWithOnchainAddress(t *testing.T) {
	placeholder := "__$1234567890123456789012345678901234$__"
	recompiledHex := "6000" + placeholder + "6001"
	onchainAddr := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" // 20 bytes
	onchainHex := "6000" + onchainAddr + "6001"

	result, err := substitute(recompiledHex, onchainHex, nil, SideRuntime)
	assert.NoError(t, err)
	assert.Len(t, result.transformations, 1)
	assert.Equal(t, ReasonLibrary, result.transformations[0].Reason)
	assert.Equal(t, onchainAddr, result.libraryMap["1234567890123456789012345678901234"])
}

func TestSubstitute_ConstructorArgumentsTailOnCreationSide(t *testing.T) {
	recompiledHex := "600160025b"
	onchainHex := "600160025b" + "00000001" // extra constructor-args tail

	result, err := substitute(recompiledHex, onchainHex, nil, SideCreation)
	assert.NoError(t, err)

	found := false
	for _, tr := range result.transformations {
		if tr.Reason == ReasonConstructorArguments {
			found = true
			assert.Equal(t, TransformInsert, tr.Type)
		}
	}
	assert.True(t, found)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01}, result.values["constructorArguments"])
}

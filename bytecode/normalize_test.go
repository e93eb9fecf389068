package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindLibraryPlaceholders(t *testing.T) {
	placeholderHex := "__$1234567890123456789012345678901234$__"
	bytecodeHex := "6000" + placeholderHex + "6001"

	placeholders := FindLibraryPlaceholders(bytecodeHex)
	assert.Len(t, placeholders, 1)
	assert.Equal(t, 2, placeholders[0].Offset)
	assert.Equal(t, "1234567890123456789012345678901234", placeholders[0].PlaceholderID)
}

func TestExtractAuxdata_NoTrailer(t *testing.T) {
	_, err := ExtractAuxdata([]byte{0x60, 0x01})
	assert.ErrorIs(t, err, ErrNoAuxdata)
}

func TestAnalysis_Normalize_ZeroesAuxdataAndImmutables(t *testing.T) {
	a := &Analysis{
		Bytecode:   []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
		Auxdata:    []Auxdata{{ID: "1", Offset: 4, Value: []byte{0xaa, 0xbb}}},
		Immutables: []ImmutableRange{{ID: "7", Offset: 0, Length: 2}},
	}

	normalized := a.Normalize(0)
	assert.Equal(t, []byte{0x00, 0x00, 0x03, 0x04, 0x00, 0x00}, normalized)
	// original bytecode slice is untouched
	assert.Equal(t, byte(0x01), a.Bytecode[0])
}

func TestAnalysis_Normalize_ConstructorArgsTail(t *testing.T) {
	a := &Analysis{Bytecode: []byte{0x01, 0x02, 0x03, 0x04}}
	normalized := a.Normalize(2)
	assert.Equal(t, []byte{0x01, 0x02, 0x00, 0x00}, normalized)
}

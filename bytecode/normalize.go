package bytecode

import (
	"encoding/hex"
	"strings"
)

// Analyze runs the full Bytecode Analyzer over one side (runtime or
// creation) of a contract's bytecode, given the compiler-reported immutable
// references for that side. Library placeholders are only ever present in
// unlinked bytecode, so FindLibraryPlaceholders is always attempted; it is a
// no-op (empty result) on already-linked bytecode.
func Analyze(hexBytecode string, immutables []ImmutableRange) (*Analysis, error) {
	libraries := FindLibraryPlaceholders(hexBytecode)

	raw, err := hexToBytes(hexBytecode)
	if err != nil {
		return nil, err
	}

	auxdata, err := ExtractAuxdata(raw)
	if err != nil && err != ErrNoAuxdata {
		return nil, err
	}

	return &Analysis{
		Bytecode:   raw,
		Auxdata:    auxdata,
		Immutables: immutables,
		Libraries:  libraries,
	}, nil
}

// Normalize produces the canonical comparison form of bytecode by zeroing
// every malleable region: CBOR auxdata, immutable slices, library
// placeholders, and (when constructorArgsLen > 0) the constructor-argument
// tail of creation bytecode. Two normalized bytecodes are compared byte-for-byte
// to decide a `partial` match (spec §4.B/§4.D).
func (a *Analysis) Normalize(constructorArgsLen int) []byte {
	out := append([]byte(nil), a.Bytecode...)

	for _, ad := range a.Auxdata {
		zero(out, ad.Offset, len(ad.Value))
	}
	for _, im := range a.Immutables {
		zero(out, im.Offset, im.Length)
	}
	for _, lib := range a.Libraries {
		zero(out, lib.Offset, placeholderLen/2)
	}
	if constructorArgsLen > 0 && constructorArgsLen <= len(out) {
		zero(out, len(out)-constructorArgsLen, constructorArgsLen)
	}

	return out
}

func zero(b []byte, offset, length int) {
	if offset < 0 || length <= 0 || offset+length > len(b) {
		return
	}
	for i := offset; i < offset+length; i++ {
		b[i] = 0
	}
}

// hexToBytes decodes hexBytecode, masking any `__$<34 hex>$__` library
// placeholders to zero bytes first. Unlinked bytecode carries those
// placeholders at library call sites, and they are not valid hex, so
// hex.DecodeString is run against a sanitized copy; the placeholder span is
// replaced with as many "0" characters as it spans, which keeps every later
// byte offset (auxdata, immutables) unchanged from what FindLibraryPlaceholders
// already computed against the original string.
func hexToBytes(hexBytecode string) ([]byte, error) {
	sanitized := placeholderPattern.ReplaceAllString(hexBytecode, strings.Repeat("0", placeholderLen))
	return hex.DecodeString(sanitized)
}

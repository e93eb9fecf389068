package bytecode

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/fxamacker/cbor/v2"
	"github.com/txpull/sourcecheck/opcodes"
)

// ErrNoAuxdata is returned when no CBOR trailer could be located; this is an
// expected outcome for bytecode compiled with metadata appending disabled
// (`metadata.appendCBOR = false`), not a failure.
var ErrNoAuxdata = errors.New("no CBOR auxdata trailer found")

// auxdataID is the compiler-assigned identity used by the transformation log.
// Solc emits at most one trailer per contract; the id is stable across the
// one trailer we recognize.
const auxdataID = "1"

// ExtractAuxdata locates the CBOR-tagged trailer appended to bytecode by the
// compiler's metadata hash mechanism. It implements the universal tail-scan:
// the last two bytes are a big-endian length N of the CBOR blob immediately
// preceding them, so offset = len(bytecode) - 2 - N. This is also the
// fallback spec §4.B calls for on pre-0.4.12 Solidity, where the compiler's
// own legacyAssembly.auxdata is unavailable; callers that do have a
// compiler-reported auxdata map should prefer that and only fall back to
// this scan when it is absent.
func ExtractAuxdata(runtimeBytecode []byte) ([]Auxdata, error) {
	if len(runtimeBytecode) < 2 {
		return nil, ErrNoAuxdata
	}

	length := int(runtimeBytecode[len(runtimeBytecode)-2])<<8 | int(runtimeBytecode[len(runtimeBytecode)-1])
	trailerStart := len(runtimeBytecode) - 2 - length
	if trailerStart < 0 || length == 0 {
		return nil, ErrNoAuxdata
	}

	if !endsOnInstructionBoundary(runtimeBytecode[:trailerStart]) {
		// The tail-scan guessed a length that splits a PUSH argument in two;
		// the bytes we'd hand to cbor.Unmarshal aren't actually a trailer.
		return nil, ErrNoAuxdata
	}

	blob := runtimeBytecode[trailerStart : trailerStart+length]

	var decoded map[string]interface{}
	if err := cbor.Unmarshal(blob, &decoded); err != nil {
		return nil, ErrNoAuxdata
	}
	if len(decoded) == 0 {
		return nil, ErrNoAuxdata
	}

	return []Auxdata{{
		ID:     auxdataID,
		Offset: trailerStart,
		Value:  append([]byte(nil), blob...),
	}}, nil
}

// endsOnInstructionBoundary reports whether decompiling code runs cleanly to
// its end with no truncated PUSH argument, i.e. the candidate auxdata offset
// the tail-scan computed does not fall inside a preceding instruction's
// operand (spec §4.B's pre-0.4.12 tail-scan fallback).
func endsOnInstructionBoundary(code []byte) bool {
	if len(code) == 0 {
		return true
	}
	d := opcodes.NewDecompiler(context.Background(), code)
	if err := d.Decompile(); err != nil {
		return false
	}
	instructions := d.GetInstructions()
	if len(instructions) == 0 {
		return false
	}
	last := instructions[len(instructions)-1]
	return last.Offset+1+len(last.Args) == len(code)
}

// ExtractAuxdataHex is ExtractAuxdata for a 0x-less hex-encoded bytecode string.
func ExtractAuxdataHex(hexBytecode string) ([]Auxdata, error) {
	raw, err := hex.DecodeString(hexBytecode)
	if err != nil {
		return nil, err
	}
	return ExtractAuxdata(raw)
}

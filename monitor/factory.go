package monitor

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/txpull/sourcecheck/bytecode"
)

// ipfsCIDFromRuntime extracts the IPFS CID embedded in a contract's CBOR
// auxdata trailer, if any, per spec §4.H step 5 ("parse it for an embedded
// CBOR metadata hash; if an IPFS CID is present..."). The hash is wrapped as
// a CIDv0 the same way solc's own metadata hash is conventionally rendered,
// using the pack's multiformats/go-cid and go-multihash libraries instead of
// a hand-rolled base58 encoder.
func ipfsCIDFromRuntime(runtimeHex string) (string, error) {
	runtimeHex = strings.TrimPrefix(runtimeHex, "0x")
	raw, err := hex.DecodeString(runtimeHex)
	if err != nil {
		return "", fmt.Errorf("decode runtime bytecode: %w", err)
	}

	auxdatas, err := bytecode.ExtractAuxdata(raw)
	if err != nil {
		return "", err
	}

	for _, a := range auxdatas {
		var fields map[string]cbor.RawMessage
		if err := cbor.Unmarshal(a.Value, &fields); err != nil {
			continue
		}
		ipfsRaw, ok := fields["ipfs"]
		if !ok {
			continue
		}
		// solc embeds the full sha256 multihash bytes (<code><len><digest>)
		// under the "ipfs" key, not a bare digest.
		var raw []byte
		if err := cbor.Unmarshal(ipfsRaw, &raw); err != nil {
			continue
		}
		mh, err := multihash.Cast(raw)
		if err != nil {
			continue
		}
		c := cid.NewCidV0(mh)
		return c.String(), nil
	}
	return "", fmt.Errorf("no ipfs cid in auxdata")
}

package bytecode

import "regexp"

var placeholderPattern = regexp.MustCompile(`__\$[0-9a-fA-F]{34}\$__`)

// FindLibraryPlaceholders enumerates every `__$<34 hex>$__` link site in hexBytecode
// (a hex string, no 0x prefix). Offsets are in bytes, not hex characters.
func FindLibraryPlaceholders(hexBytecode string) []LibraryPlaceholder {
	var placeholders []LibraryPlaceholder
	for _, loc := range placeholderPattern.FindAllStringIndex(hexBytecode, -1) {
		start := loc[0]
		if start%2 != 0 {
			// Placeholders are only meaningful byte-aligned; a mid-byte match
			// means we matched inside a PUSH argument that happens to look
			// like one, which solc never emits, so this is defensive only.
			continue
		}
		match := hexBytecode[loc[0]:loc[1]]
		placeholders = append(placeholders, LibraryPlaceholder{
			PlaceholderID: match[len(placeholderPrefix) : len(match)-len(placeholderSuffix)],
			Offset:        start / 2,
		})
	}
	return placeholders
}

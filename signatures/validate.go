package signatures

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// nameRe matches a valid Solidity identifier as the leading component of a
// signature ("transfer", "Transfer", "InsufficientBalance").
var nameRe = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z0-9_$]*$`)

// searchPatternRe is the grammar spec §4.I requires of a search pattern
// before '*'/'?' are translated to SQL '%'/'_'.
var searchPatternRe = regexp.MustCompile(`^[a-zA-Z0-9$_()\[\],*?]+$`)

// ValidateSearchPattern rejects a search pattern containing anything outside
// the allowed character class (spec §4.I "Validation").
func ValidateSearchPattern(pattern string) error {
	if pattern == "" || !searchPatternRe.MatchString(pattern) {
		return fmt.Errorf("invalid search pattern %q", pattern)
	}
	return nil
}

// ValidateHash checks a 0x-prefixed hex hash is either a 4-byte selector
// (length 10: "0x" + 8 hex digits) or a 32-byte selector (length 66),
// per spec §4.I "Validation".
func ValidateHash(hash string) error {
	if !strings.HasPrefix(hash, "0x") {
		return fmt.Errorf("hash %q missing 0x prefix", hash)
	}
	switch len(hash) {
	case 10, 66:
		return nil
	default:
		return fmt.Errorf("hash %q has invalid length %d (want 10 or 66)", hash, len(hash))
	}
}

// ValidateSignatureText grammar-checks a candidate signature text
// ("transfer(address,uint256)") the way spec §4.I's insert operation
// requires before hashing it: the name must be a valid identifier and every
// parameter type must parse as a canonical Solidity ABI type.
func ValidateSignatureText(text string) error {
	open := strings.IndexByte(text, '(')
	if open < 0 || !strings.HasSuffix(text, ")") {
		return fmt.Errorf("signature %q is not of the form name(type,type,...)", text)
	}

	name := text[:open]
	if !nameRe.MatchString(name) {
		return fmt.Errorf("signature %q has an invalid name %q", text, name)
	}

	argList := text[open+1 : len(text)-1]
	if argList == "" {
		return nil
	}

	for _, t := range splitTopLevel(argList) {
		t = strings.TrimSpace(t)
		if t == "" {
			return fmt.Errorf("signature %q has an empty parameter type", text)
		}
		if _, err := abi.NewType(t, "", nil); err != nil {
			return fmt.Errorf("signature %q: parameter type %q: %w", text, t, err)
		}
	}
	return nil
}

// splitTopLevel splits a comma-separated argument list on commas that are
// not nested inside a tuple's own parentheses, e.g.
// "address,(uint256,bool),string" -> ["address", "(uint256,bool)", "string"].
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

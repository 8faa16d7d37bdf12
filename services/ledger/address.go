package ledger

import "strings"

const addressHexLen = 64

// NormalizeAddress returns the canonical 0x-prefixed, zero-padded, lowercase
// form of an address or object id. Inputs that are not hex are returned
// lowercased and otherwise untouched.
func NormalizeAddress(addr string) string {
	s := strings.ToLower(strings.TrimSpace(addr))
	s = strings.TrimPrefix(s, "0x")
	if s == "" || len(s) > addressHexLen || strings.Trim(s, "0123456789abcdef") != "" {
		return strings.ToLower(strings.TrimSpace(addr))
	}
	return "0x" + strings.Repeat("0", addressHexLen-len(s)) + s
}

// SameAddress compares two addresses in canonical form, so "0x2" equals its padded form.
func SameAddress(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}

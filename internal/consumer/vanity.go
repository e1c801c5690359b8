package consumer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Amr-9/AddressFinder/pkg/publickey"
)

// Base58 charset (excludes 0, O, I, l)
const base58Charset = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// VanityMatcher tests both addresses of a key against a regular expression.
type VanityMatcher struct {
	re *regexp.Regexp
}

// NewVanityMatcher compiles pattern.
func NewVanityMatcher(pattern string) (*VanityMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid vanity pattern %q: %w", pattern, err)
	}
	return &VanityMatcher{re: re}, nil
}

// Matches reports whether addr matches the pattern.
func (m *VanityMatcher) Matches(addr string) bool {
	return m.re.MatchString(addr)
}

// MatchKey returns the addresses of k that match, uncompressed first.
func (m *VanityMatcher) MatchKey(k *publickey.PublicKeyBytes) []string {
	var matched []string
	if a := k.UncompressedAddress(); m.Matches(a) {
		matched = append(matched, a)
	}
	if a := k.CompressedAddress(); m.Matches(a) {
		matched = append(matched, a)
	}
	return matched
}

// String returns the pattern.
func (m *VanityMatcher) String() string {
	return m.re.String()
}

// IsValidBase58Char checks if a character is valid in Base58 encoding.
func IsValidBase58Char(c rune) bool {
	return strings.ContainsRune(base58Charset, c)
}

// InvalidBase58Chars returns invalid Base58 characters in the input.
func InvalidBase58Chars(s string) []rune {
	var invalid []rune
	for _, c := range s {
		if !IsValidBase58Char(c) {
			invalid = append(invalid, c)
		}
	}
	return invalid
}

// VanityPrefixPattern turns an address prefix such as "1Love" into a
// pattern. Base58 is case-sensitive, so the prefix is matched as given.
func VanityPrefixPattern(prefix string) (string, error) {
	if !strings.HasPrefix(prefix, "1") {
		return "", fmt.Errorf("P2PKH addresses start with 1, got %q", prefix)
	}
	if invalid := InvalidBase58Chars(prefix); len(invalid) > 0 {
		return "", fmt.Errorf("prefix %q has characters outside base58: %q", prefix, string(invalid))
	}
	return "^" + regexp.QuoteMeta(prefix), nil
}

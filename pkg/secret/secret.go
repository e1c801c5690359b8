// Package secret holds the arithmetic around secp256k1 private keys used by
// the search: the valid scalar range, fixed-width encodings and the kill
// mask that turns a secret into the base of a grid.
package secret

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Size is the width in bytes of an encoded secret.
const Size = 32

// MaxBitLength is the widest secret the search ever produces.
const MaxBitLength = 256

var (
	// N is the order of the secp256k1 group.
	N = uint256.MustFromHex("0xfffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")

	// MaxValid is the largest usable secret, N-1.
	MaxValid = new(uint256.Int).SubUint64(N, 1)

	zero = uint256.NewInt(0)
	one  = uint256.NewInt(1)
)

// ErrSecretOutOfRange signals a secret outside [1, N-1].
var ErrSecretOutOfRange = errors.New("secret outside of the valid secp256k1 range")

// IsInvalid reports whether s must not be materialized. Zero and one are the
// sentinels of the search; anything at or above N is not a scalar at all.
func IsInvalid(s *uint256.Int) bool {
	return s.Cmp(one) <= 0 || s.Cmp(N) >= 0
}

// InRange reports whether s lies in [1, N-1].
func InRange(s *uint256.Int) bool {
	return !s.IsZero() && s.Lt(N)
}

// Bytes32 returns the big-endian 32 byte encoding of s.
func Bytes32(s *uint256.Int) [Size]byte {
	return s.Bytes32()
}

// FromBytes decodes a big-endian byte slice of at most 32 bytes.
func FromBytes(b []byte) (*uint256.Int, error) {
	if len(b) > Size {
		return nil, fmt.Errorf("secret has %d bytes, at most %d allowed", len(b), Size)
	}
	return new(uint256.Int).SetBytes(b), nil
}

// FromHex parses a hex string with or without a 0x prefix. Leading zeros are
// accepted.
func FromHex(s string) (*uint256.Int, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if s == "" {
		return nil, errors.New("empty hex secret")
	}
	b, ok := new(big.Int).SetString(s, 16)
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("invalid hex secret %q", s)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("hex secret %q exceeds %d bits", s, MaxBitLength)
	}
	return v, nil
}

// Hex formats s as 64 lowercase hex digits.
func Hex(s *uint256.Int) string {
	b := s.Bytes32()
	return fmt.Sprintf("%x", b[:])
}

// MaxForBitLength returns 2^bits - 1.
func MaxForBitLength(bits int) *uint256.Int {
	if bits >= MaxBitLength {
		return new(uint256.Int).SetAllOne()
	}
	m := new(uint256.Int).Lsh(one, uint(bits))
	return m.SubUint64(m, 1)
}

// IsZero reports whether s is the zero sentinel.
func IsZero(s *uint256.Int) bool {
	return s.Eq(zero)
}

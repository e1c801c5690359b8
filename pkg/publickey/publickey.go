// Package publickey turns secrets into the public key encodings the search
// compares against the address database: the 65 byte uncompressed key, the
// 33 byte compressed key, and the hash-160 and address of both.
package publickey

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/holiman/uint256"

	"github.com/Amr-9/AddressFinder/pkg/secret"
)

const (
	// CoordinateSize is the width of an affine X or Y coordinate.
	CoordinateSize = 32

	// UncompressedSize is 0x04 || X || Y.
	UncompressedSize = 1 + 2*CoordinateSize

	// CompressedSize is parity || X.
	CompressedSize = 1 + CoordinateSize

	parityUncompressed = 0x04
	parityEven         = 0x02
	parityOdd          = 0x03
)

// generator point coordinates, used for the invalid key placeholder so that it
// never goes through scalar multiplication.
const (
	genX = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	genY = "483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8"
)

// lazyHash caches a hash-160 computed on first access.
type lazyHash struct {
	once sync.Once
	sum  [Hash160Size]byte
}

func (l *lazyHash) get(data []byte) [Hash160Size]byte {
	l.once.Do(func() { l.sum = Hash160(data) })
	return l.sum
}

// seed fills the cache with a precomputed value. It is a no-op if the value
// was already computed.
func (l *lazyHash) seed(sum [Hash160Size]byte) {
	l.once.Do(func() { l.sum = sum })
}

// lazyAddress caches an address string computed on first access.
type lazyAddress struct {
	once sync.Once
	addr string
}

func (l *lazyAddress) get(hash func() [Hash160Size]byte) string {
	l.once.Do(func() { l.addr = Address(hash()) })
	return l.addr
}

// PublicKeyBytes is a materialized key. Apart from the lazily filled caches
// it is immutable; the caches are safe for concurrent use.
type PublicKeyBytes struct {
	secret       uint256.Int
	uncompressed [UncompressedSize]byte
	compressed   [CompressedSize]byte
	invalid      bool

	uncompressedHash lazyHash
	compressedHash   lazyHash
	uncompressedAddr lazyAddress
	compressedAddr   lazyAddress
}

// Invalid is the placeholder used wherever a secret must not be materialized.
// It carries the generator point and the zero secret and reports IsInvalid.
var Invalid = newInvalid()

func newInvalid() *PublicKeyBytes {
	x, _ := hex.DecodeString(genX)
	y, _ := hex.DecodeString(genY)

	var uncompressed [UncompressedSize]byte
	uncompressed[0] = parityUncompressed
	copy(uncompressed[1:], x)
	copy(uncompressed[1+CoordinateSize:], y)

	k := newFromUncompressed(new(uint256.Int), uncompressed)
	k.invalid = true
	return k
}

// FromSecret computes the public key of s on the CPU. Callers filter the
// sentinels with secret.IsInvalid before calling; an out of range secret is a
// programming error and returns secret.ErrSecretOutOfRange.
func FromSecret(s *uint256.Int) (*PublicKeyBytes, error) {
	if !secret.InRange(s) {
		return nil, fmt.Errorf("%w: %s", secret.ErrSecretOutOfRange, secret.Hex(s))
	}

	b := s.Bytes32()
	var k btcec.ModNScalar
	k.SetBytes(&b)

	var p btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&k, &p)
	p.ToAffine()

	var uncompressed [UncompressedSize]byte
	uncompressed[0] = parityUncompressed
	var coord [CoordinateSize]byte
	p.X.PutBytes(&coord)
	copy(uncompressed[1:], coord[:])
	p.Y.PutBytes(&coord)
	copy(uncompressed[1+CoordinateSize:], coord[:])

	return newFromUncompressed(s, uncompressed), nil
}

// FromSecretOrInvalid materializes s, or returns Invalid if s is a sentinel.
func FromSecretOrInvalid(s *uint256.Int) *PublicKeyBytes {
	if secret.IsInvalid(s) {
		return Invalid
	}
	k, err := FromSecret(s)
	if err != nil {
		return Invalid
	}
	return k
}

// FromUncompressed builds a key from an externally computed uncompressed
// encoding, such as the output of an OpenCL device.
func FromUncompressed(s *uint256.Int, uncompressed [UncompressedSize]byte) *PublicKeyBytes {
	return newFromUncompressed(s, uncompressed)
}

// FromCoordinates builds a key from big-endian X and Y together with hash-160
// values computed elsewhere. The hashes seed the caches and are not
// recomputed.
func FromCoordinates(s *uint256.Int, x, y []byte, uncompressedHash, compressedHash [Hash160Size]byte) *PublicKeyBytes {
	var uncompressed [UncompressedSize]byte
	uncompressed[0] = parityUncompressed
	copy(uncompressed[1:1+CoordinateSize], x)
	copy(uncompressed[1+CoordinateSize:], y)

	k := newFromUncompressed(s, uncompressed)
	k.uncompressedHash.seed(uncompressedHash)
	k.compressedHash.seed(compressedHash)
	return k
}

func newFromUncompressed(s *uint256.Int, uncompressed [UncompressedSize]byte) *PublicKeyBytes {
	k := &PublicKeyBytes{uncompressed: uncompressed}
	k.secret.Set(s)
	k.compressed = Compress(uncompressed)
	return k
}

// Compress derives parity || X from 0x04 || X || Y. The parity byte is 0x02
// when the last byte of Y is even and 0x03 otherwise.
func Compress(uncompressed [UncompressedSize]byte) [CompressedSize]byte {
	var c [CompressedSize]byte
	if uncompressed[UncompressedSize-1]&1 == 0 {
		c[0] = parityEven
	} else {
		c[0] = parityOdd
	}
	copy(c[1:], uncompressed[1:1+CoordinateSize])
	return c
}

// Secret returns a copy of the secret.
func (k *PublicKeyBytes) Secret() *uint256.Int {
	return new(uint256.Int).Set(&k.secret)
}

// IsInvalid reports whether k is a placeholder that must be skipped.
func (k *PublicKeyBytes) IsInvalid() bool {
	return k.invalid
}

// Uncompressed returns a copy of 0x04 || X || Y.
func (k *PublicKeyBytes) Uncompressed() []byte {
	b := k.uncompressed
	return b[:]
}

// Compressed returns a copy of parity || X.
func (k *PublicKeyBytes) Compressed() []byte {
	b := k.compressed
	return b[:]
}

// UncompressedKeyHash returns the hash-160 of the uncompressed key.
func (k *PublicKeyBytes) UncompressedKeyHash() [Hash160Size]byte {
	return k.uncompressedHash.get(k.uncompressed[:])
}

// CompressedKeyHash returns the hash-160 of the compressed key.
func (k *PublicKeyBytes) CompressedKeyHash() [Hash160Size]byte {
	return k.compressedHash.get(k.compressed[:])
}

// UncompressedAddress returns the P2PKH address of the uncompressed key.
func (k *PublicKeyBytes) UncompressedAddress() string {
	return k.uncompressedAddr.get(k.UncompressedKeyHash)
}

// CompressedAddress returns the P2PKH address of the compressed key.
func (k *PublicKeyBytes) CompressedAddress() string {
	return k.compressedAddr.get(k.CompressedKeyHash)
}

// String renders every field of the key for hit logs.
func (k *PublicKeyBytes) String() string {
	uh := k.UncompressedKeyHash()
	ch := k.CompressedKeyHash()
	return fmt.Sprintf("secret=%s uncompressed=%x compressed=%x "+
		"uncompressedHash160=%x compressedHash160=%x "+
		"uncompressedAddress=%s compressedAddress=%s",
		secret.Hex(&k.secret), k.uncompressed[:], k.compressed[:],
		uh[:], ch[:], k.UncompressedAddress(), k.CompressedAddress())
}

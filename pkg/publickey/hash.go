package publickey

import (
	"crypto/sha256"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

// Hash160Size is the length of a RIPEMD160(SHA256(x)) digest.
const Hash160Size = ripemd160.Size

// P2PKHVersion is the mainnet version byte of a pay-to-pubkey-hash address.
const P2PKHVersion = 0x00

// Hash160 computes RIPEMD160(SHA256(data)).
func Hash160(data []byte) [Hash160Size]byte {
	sha := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sha[:])

	var out [Hash160Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Address returns the Base58Check P2PKH address of a hash-160.
func Address(hash [Hash160Size]byte) string {
	data := make([]byte, 0, 1+Hash160Size+4)
	data = append(data, P2PKHVersion)
	data = append(data, hash[:]...)
	return Base58CheckEncode(data)
}

// Base58CheckEncode appends the 4-byte double SHA256 checksum and encodes the
// result in Base58.
func Base58CheckEncode(data []byte) string {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])

	full := make([]byte, 0, len(data)+4)
	full = append(full, data...)
	full = append(full, second[:4]...)
	return base58.Encode(full)
}

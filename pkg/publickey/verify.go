package publickey

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Amr-9/AddressFinder/pkg/secret"
)

// ErrSecretOutOfRange is returned by FromSecret for secrets outside [1, N-1].
var ErrSecretOutOfRange = secret.ErrSecretOutOfRange

// ErrMismatch is returned by CrossCheck when the two implementations disagree.
var ErrMismatch = errors.New("public key mismatch")

// CrossCheck recomputes k with an independent secp256k1 implementation and
// compares both encodings and both hash-160 values.
func CrossCheck(k *PublicKeyBytes) error {
	if k.IsInvalid() {
		return nil
	}

	b := k.secret.Bytes32()
	priv, err := crypto.ToECDSA(b[:])
	if err != nil {
		return fmt.Errorf("failed to load secret %s: %w", secret.Hex(&k.secret), err)
	}

	uncompressed := crypto.FromECDSAPub(&priv.PublicKey)
	if !bytes.Equal(uncompressed, k.uncompressed[:]) {
		return fmt.Errorf("%w: uncompressed key of %s is %x, expected %x",
			ErrMismatch, secret.Hex(&k.secret), k.uncompressed[:], uncompressed)
	}

	compressed := crypto.CompressPubkey(&priv.PublicKey)
	if !bytes.Equal(compressed, k.compressed[:]) {
		return fmt.Errorf("%w: compressed key of %s is %x, expected %x",
			ErrMismatch, secret.Hex(&k.secret), k.compressed[:], compressed)
	}

	if got, want := k.UncompressedKeyHash(), Hash160(uncompressed); got != want {
		return fmt.Errorf("%w: uncompressed hash160 of %s is %x, expected %x",
			ErrMismatch, secret.Hex(&k.secret), got[:], want[:])
	}
	if got, want := k.CompressedKeyHash(), Hash160(compressed); got != want {
		return fmt.Errorf("%w: compressed hash160 of %s is %x, expected %x",
			ErrMismatch, secret.Hex(&k.secret), got[:], want[:])
	}
	return nil
}

package keyproducer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/holiman/uint256"
	"github.com/tyler-smith/go-bip39"
)

// BIP39 derives secrets as the children of a fixed BIP32 path below the
// master key of a mnemonic. The same mnemonic, passphrase and path always
// yield the same sequence.
type BIP39 struct {
	interruptible

	mu       sync.Mutex
	parent   *hdkeychain.ExtendedKey
	hardened bool
	next     uint32
}

// NewBIP39 validates the mnemonic and derives the parent key.
func NewBIP39(cfg BIP39Config) (*BIP39, error) {
	seed, err := bip39.NewSeedWithErrorChecking(cfg.Mnemonic, cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	path, err := ParsePath(cfg.Path)
	if err != nil {
		return nil, err
	}

	parent := master
	for _, index := range path {
		parent, err = parent.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive %s: %w", cfg.Path, err)
		}
	}

	log.Debugf("BIP39 producer derives from %s (hardened children %v)", cfg.Path, cfg.Hardened)
	return &BIP39{parent: parent, hardened: cfg.Hardened}, nil
}

// ParsePath parses a derivation path such as m/44'/0'/0'/0. A trailing ' or h
// marks a hardened index.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("derivation path %q must start with m", path)
	}

	indices := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		if hardened {
			part = part[:len(part)-1]
		}
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil || v >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("invalid index %q in derivation path %q", part, path)
		}
		index := uint32(v)
		if hardened {
			index += hdkeychain.HardenedKeyStart
		}
		indices = append(indices, index)
	}
	return indices, nil
}

func (b *BIP39) CreateSecrets(overallWorkSize int, returnBaseOnly bool) ([]*uint256.Int, error) {
	n, err := secretCount(overallWorkSize, returnBaseOnly)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	secrets := make([]*uint256.Int, 0, n)
	for len(secrets) < n {
		if b.next >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("%w: child indices exhausted", ErrNoMoreSecrets)
		}
		index := b.next
		if b.hardened {
			index += hdkeychain.HardenedKeyStart
		}
		b.next++

		child, err := b.parent.Derive(index)
		if errors.Is(err, hdkeychain.ErrInvalidChild) {
			// BIP32 says to skip to the next index.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to derive child %d: %w", index, err)
		}
		priv, err := child.ECPrivKey()
		if err != nil {
			return nil, fmt.Errorf("failed to read child %d key: %w", index, err)
		}
		secrets = append(secrets, new(uint256.Int).SetBytes(priv.Serialize()))
	}
	return secrets, nil
}

func (b *BIP39) Close() error { return nil }

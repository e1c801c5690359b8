package keyproducer

import (
	crand "crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/exp/rand"

	"github.com/Amr-9/AddressFinder/pkg/secret"
)

// Random draws every secret independently, limited to MaxBitLength bits.
type Random struct {
	interruptible

	mu   sync.Mutex
	read func([]byte) (int, error)
	mask *uint256.Int
}

// NewRandom returns a Random producer for cfg.
func NewRandom(cfg RandomConfig) (*Random, error) {
	if cfg.MaxBitLength < 1 || cfg.MaxBitLength > secret.MaxBitLength {
		return nil, fmt.Errorf("max bit length %d outside [1, %d]",
			cfg.MaxBitLength, secret.MaxBitLength)
	}

	r := &Random{mask: secret.MaxForBitLength(cfg.MaxBitLength)}
	switch cfg.Source {
	case SourceSecure, "":
		r.read = crand.Read
	case SourceSeeded:
		r.read = rand.New(rand.NewSource(cfg.Seed)).Read
	case SourceTime:
		r.read = rand.New(rand.NewSource(uint64(time.Now().UnixNano()))).Read
	default:
		return nil, fmt.Errorf("unknown random source %q", cfg.Source)
	}
	return r, nil
}

func (r *Random) CreateSecrets(overallWorkSize int, returnBaseOnly bool) ([]*uint256.Int, error) {
	n, err := secretCount(overallWorkSize, returnBaseOnly)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var buf [secret.Size]byte
	secrets := make([]*uint256.Int, n)
	for i := range secrets {
		if _, err := r.read(buf[:]); err != nil {
			return nil, fmt.Errorf("failed to read random secret: %w", err)
		}
		s := new(uint256.Int).SetBytes32(buf[:])
		secrets[i] = s.And(s, r.mask)
	}
	return secrets, nil
}

func (r *Random) Close() error { return nil }

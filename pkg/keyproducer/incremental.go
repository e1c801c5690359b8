package keyproducer

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/Amr-9/AddressFinder/pkg/secret"
)

// Incremental walks the range [start, end]. Each call returns consecutive
// values from the cursor and advances it by the full work size, so grid mode
// calls that only take the base still cover the whole batch.
type Incremental struct {
	interruptible

	mu        sync.Mutex
	cursor    uint256.Int
	end       uint256.Int
	exhausted bool
}

// NewIncremental parses the bounds in cfg.
func NewIncremental(cfg IncrementalConfig) (*Incremental, error) {
	start, err := secret.FromHex(cfg.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid start: %w", err)
	}
	end, err := secret.FromHex(cfg.End)
	if err != nil {
		return nil, fmt.Errorf("invalid end: %w", err)
	}
	if start.Gt(end) {
		return nil, fmt.Errorf("start %s is above end %s", secret.Hex(start), secret.Hex(end))
	}

	inc := &Incremental{}
	inc.cursor.Set(start)
	inc.end.Set(end)
	return inc, nil
}

func (inc *Incremental) CreateSecrets(overallWorkSize int, returnBaseOnly bool) ([]*uint256.Int, error) {
	n, err := secretCount(overallWorkSize, returnBaseOnly)
	if err != nil {
		return nil, err
	}

	inc.mu.Lock()
	defer inc.mu.Unlock()

	if inc.exhausted || inc.cursor.Gt(&inc.end) {
		return nil, fmt.Errorf("%w: cursor passed %s", ErrNoMoreSecrets, secret.Hex(&inc.end))
	}

	secrets := make([]*uint256.Int, n)
	for i := range secrets {
		secrets[i] = new(uint256.Int).AddUint64(&inc.cursor, uint64(i))
	}

	if _, overflow := inc.cursor.AddOverflow(&inc.cursor, uint256.NewInt(uint64(overallWorkSize))); overflow {
		inc.exhausted = true
	}
	return secrets, nil
}

// Cursor returns the next value to be produced.
func (inc *Incremental) Cursor() *uint256.Int {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	return new(uint256.Int).Set(&inc.cursor)
}

func (inc *Incremental) Close() error { return nil }

// Package keyproducer provides the sources of candidate secrets: uniform
// random draws, a sequential range, BIP39/BIP32 derivation, and a TCP feed.
//
// Every source answers CreateSecrets with exactly one secret when asked for
// a grid base only, and with exactly overallWorkSize secrets otherwise.
package keyproducer

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/holiman/uint256"
)

// ErrNoMoreSecrets is returned once a source is exhausted or can no longer
// reach its feed. Producers treat it as a clean stop.
var ErrNoMoreSecrets = errors.New("no more secrets available")

// KeyProducer is a source of secrets.
type KeyProducer interface {
	// CreateSecrets returns one secret if returnBaseOnly is set and
	// overallWorkSize secrets otherwise.
	CreateSecrets(overallWorkSize int, returnBaseOnly bool) ([]*uint256.Int, error)

	// Interrupt asks the source to abort retries and blocking waits.
	Interrupt()

	// Close releases any resources held by the source.
	Close() error
}

// secretCount returns how many secrets a call has to produce.
func secretCount(overallWorkSize int, returnBaseOnly bool) (int, error) {
	if overallWorkSize <= 0 {
		return 0, fmt.Errorf("invalid work size %d", overallWorkSize)
	}
	if returnBaseOnly {
		return 1, nil
	}
	return overallWorkSize, nil
}

// interruptible carries the cooperative stop flag shared by all sources.
type interruptible struct {
	interrupted atomic.Bool
}

func (i *interruptible) Interrupt() {
	i.interrupted.Store(true)
}

func (i *interruptible) isInterrupted() bool {
	return i.interrupted.Load()
}

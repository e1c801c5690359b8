package secret

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/holiman/uint256"
)

// MaxGridBits bounds the grid width. Grid indices live in the lowest 64 bit
// word of a secret, and a grid of 2^32 keys is already far beyond any device
// buffer.
const MaxGridBits = 32

var (
	// ErrNotPowerOfTwo is returned for grid sizes that are not 2^n.
	ErrNotPowerOfTwo = errors.New("work size is not a power of two")

	// ErrBaseNotAligned is returned when a grid base has any of the low
	// grid bits set. OR and addition only agree on cleared bits.
	ErrBaseNotAligned = errors.New("grid base has low bits set")
)

// KillMask returns the complement of 2^gridBits - 1.
func KillMask(gridBits int) *uint256.Int {
	m := MaxForBitLength(gridBits)
	return m.Not(m)
}

// KillBits returns a copy of s with the low gridBits bits cleared.
func KillBits(s *uint256.Int, gridBits int) *uint256.Int {
	return new(uint256.Int).And(s, KillMask(gridBits))
}

// WorkSize returns 2^gridBits.
func WorkSize(gridBits int) int {
	return 1 << gridBits
}

// GridBits returns log2 of workSize, or an error if workSize is not a power of
// two in range.
func GridBits(workSize int) (int, error) {
	if workSize <= 0 || workSize&(workSize-1) != 0 {
		return 0, fmt.Errorf("%w: %d", ErrNotPowerOfTwo, workSize)
	}
	b := bits.TrailingZeros(uint(workSize))
	if b > MaxGridBits {
		return 0, fmt.Errorf("work size 2^%d exceeds 2^%d", b, MaxGridBits)
	}
	return b, nil
}

// GridElement returns base | i. The caller guarantees i < 2^gridBits.
func GridElement(base *uint256.Int, i uint64) *uint256.Int {
	e := new(uint256.Int).Set(base)
	e[0] |= i
	return e
}

// DeriveGrid expands base into workSize secrets, element i being base | i.
// The base must have its low log2(workSize) bits cleared.
func DeriveGrid(base *uint256.Int, workSize int) ([]uint256.Int, error) {
	gridBits, err := GridBits(workSize)
	if err != nil {
		return nil, err
	}
	if !base.Eq(KillBits(base, gridBits)) {
		return nil, fmt.Errorf("%w: base %s, %d bits", ErrBaseNotAligned, Hex(base), gridBits)
	}

	grid := make([]uint256.Int, workSize)
	for i := range grid {
		grid[i] = *base
		grid[i][0] |= uint64(i)
	}
	return grid, nil
}

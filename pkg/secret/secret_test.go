package secret

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		s       *uint256.Int
		invalid bool
	}{
		{"zero", uint256.NewInt(0), true},
		{"one", uint256.NewInt(1), true},
		{"two", uint256.NewInt(2), false},
		{"max valid", MaxValid, false},
		{"order", N, true},
		{"all ones", new(uint256.Int).SetAllOne(), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.invalid, IsInvalid(tc.s))
		})
	}
}

func TestInRange(t *testing.T) {
	require.False(t, InRange(uint256.NewInt(0)))
	require.True(t, InRange(uint256.NewInt(1)))
	require.True(t, InRange(MaxValid))
	require.False(t, InRange(N))
}

func TestFromHex(t *testing.T) {
	v, err := FromHex("0x0000000000000000000000000000000000000000000000000000000000000100")
	require.NoError(t, err)
	require.Equal(t, uint64(0x100), v.Uint64())

	v, err = FromHex("FF")
	require.NoError(t, err)
	require.Equal(t, uint64(0xff), v.Uint64())

	_, err = FromHex("")
	require.Error(t, err)
	_, err = FromHex("xyz")
	require.Error(t, err)
	_, err = FromHex("1" + Hex(MaxValid))
	require.Error(t, err)
}

func TestHexIsFixedWidth(t *testing.T) {
	require.Equal(t,
		"0000000000000000000000000000000000000000000000000000000000000001",
		Hex(uint256.NewInt(1)))
	require.Len(t, Hex(MaxValid), 64)
}

func TestFromBytes(t *testing.T) {
	b := Bytes32(uint256.NewInt(0xabcdef))
	v, err := FromBytes(b[:])
	require.NoError(t, err)
	require.Equal(t, uint64(0xabcdef), v.Uint64())

	_, err = FromBytes(make([]byte, 33))
	require.Error(t, err)
}

func TestMaxForBitLength(t *testing.T) {
	require.Equal(t, uint64(0xff), MaxForBitLength(8).Uint64())
	require.Equal(t, 256, MaxForBitLength(256).BitLen())
	require.Equal(t, 65, MaxForBitLength(65).BitLen())
}

func TestKillBits(t *testing.T) {
	s := uint256.NewInt(0x1ff)
	require.Equal(t, uint64(0x100), KillBits(s, 8).Uint64())
	require.Equal(t, uint64(0x1ff), s.Uint64(), "input must not be modified")

	full := new(uint256.Int).SetAllOne()
	killed := KillBits(full, 16)
	require.Equal(t, uint64(0), killed[0]&0xffff)
	require.Equal(t, 256, killed.BitLen())
}

func TestDeriveGridOrsIndex(t *testing.T) {
	grid, err := DeriveGrid(uint256.NewInt(0x100), 4)
	require.NoError(t, err)
	require.Len(t, grid, 4)
	for i, want := range []uint64{0x100, 0x101, 0x102, 0x103} {
		require.Equal(t, want, grid[i].Uint64())
	}
}

func TestDeriveGridIsLossless(t *testing.T) {
	base := KillBits(MaxValid, 10)
	grid, err := DeriveGrid(base, 1<<10)
	require.NoError(t, err)

	seen := make(map[uint256.Int]struct{}, len(grid))
	for i := range grid {
		// The high part stays the base and the low part is exactly i.
		require.True(t, KillBits(&grid[i], 10).Eq(base))
		require.Equal(t, uint64(i), grid[i][0]&0x3ff)
		seen[grid[i]] = struct{}{}
	}
	require.Len(t, seen, len(grid))
}

func TestDeriveGridErrors(t *testing.T) {
	_, err := DeriveGrid(uint256.NewInt(0x100), 3)
	require.True(t, errors.Is(err, ErrNotPowerOfTwo))

	_, err = DeriveGrid(uint256.NewInt(0x101), 4)
	require.True(t, errors.Is(err, ErrBaseNotAligned))

	_, err = DeriveGrid(uint256.NewInt(0), 0)
	require.True(t, errors.Is(err, ErrNotPowerOfTwo))
}

func TestGridElementMatchesDeriveGrid(t *testing.T) {
	base := uint256.NewInt(0xabc000)
	grid, err := DeriveGrid(base, 16)
	require.NoError(t, err)
	for i := range grid {
		require.True(t, GridElement(base, uint64(i)).Eq(&grid[i]))
	}
}

func TestGridBits(t *testing.T) {
	b, err := GridBits(1)
	require.NoError(t, err)
	require.Equal(t, 0, b)

	b, err = GridBits(1 << 20)
	require.NoError(t, err)
	require.Equal(t, 20, b)
	require.Equal(t, 1<<20, WorkSize(b))
}

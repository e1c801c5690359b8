// Package opencl offloads key materialization to an OpenCL device.
//
// In grid mode the host sends one grid base as 32 little-endian bytes, the
// big-endian encoding reversed. In list mode it sends every secret that way,
// back to back. For every index i the device writes a 104 byte chunk:
//
//	[ 0, 32)  X of k·G, in device word order
//	[32, 64)  Y of k·G, in device word order
//	[64, 84)  hash-160 of the uncompressed key
//	[84,104)  hash-160 of the compressed key
//
// Device word order is little-endian on little-endian devices, so the host
// reverses both coordinates before assembling 0x04 || X || Y. Here k is
// base|i in grid mode and the i-th secret in list mode.
package opencl

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/Amr-9/AddressFinder/pkg/publickey"
	"github.com/Amr-9/AddressFinder/pkg/secret"
)

const (
	// ChunkSize is the number of output bytes per grid index.
	ChunkSize = 2*publickey.CoordinateSize + 2*publickey.Hash160Size

	offsetX     = 0
	offsetY     = offsetX + publickey.CoordinateSize
	offsetHashU = offsetY + publickey.CoordinateSize
	offsetHashC = offsetHashU + publickey.Hash160Size
)

// ErrNotCompiled is returned by NewContext in builds without the opencl tag.
var ErrNotCompiled = errors.New("OpenCL support not compiled, build with: go build -tags opencl")

// EncodeSecret returns the device input encoding of s.
func EncodeSecret(s *uint256.Int) [secret.Size]byte {
	b := s.Bytes32()
	reverse(b[:])
	return b
}

// EncodeSecrets concatenates the encodings of secrets for list mode.
func EncodeSecrets(secrets []*uint256.Int) []byte {
	out := make([]byte, 0, len(secrets)*secret.Size)
	for _, s := range secrets {
		b := EncodeSecret(s)
		out = append(out, b[:]...)
	}
	return out
}

// DecodeSecret inverts EncodeSecret.
func DecodeSecret(b [secret.Size]byte) *uint256.Int {
	reverse(b[:])
	return new(uint256.Int).SetBytes32(b[:])
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// GridResult is the raw output of one device call. Data is owned by the
// result and is not shared with the device. Secrets is set in list mode and
// nil in grid mode.
type GridResult struct {
	Base         uint256.Int
	Secrets      []*uint256.Int
	WorkSize     int
	LittleEndian bool
	Data         []byte
}

func (r *GridResult) secretAt(i int) *uint256.Int {
	if r.Secrets != nil {
		return r.Secrets[i]
	}
	return secret.GridElement(&r.Base, uint64(i))
}

// PublicKeyBytes converts the result into keys, one per index. Secrets are
// known to the host and never read back from the device. Indices whose
// secret is invalid get publickey.Invalid whatever the device wrote for them.
func (r *GridResult) PublicKeyBytes() ([]*publickey.PublicKeyBytes, error) {
	if want := r.WorkSize * ChunkSize; len(r.Data) != want {
		return nil, fmt.Errorf("device output has %d bytes, expected %d", len(r.Data), want)
	}
	if r.Secrets != nil && len(r.Secrets) != r.WorkSize {
		return nil, fmt.Errorf("result carries %d secrets for work size %d", len(r.Secrets), r.WorkSize)
	}

	keys := make([]*publickey.PublicKeyBytes, r.WorkSize)
	var x, y [publickey.CoordinateSize]byte
	var hashU, hashC [publickey.Hash160Size]byte
	for i := range keys {
		s := r.secretAt(i)
		if secret.IsInvalid(s) {
			keys[i] = publickey.Invalid
			continue
		}

		chunk := r.Data[i*ChunkSize : (i+1)*ChunkSize]
		copy(x[:], chunk[offsetX:offsetY])
		copy(y[:], chunk[offsetY:offsetHashU])
		if r.LittleEndian {
			reverse(x[:])
			reverse(y[:])
		}
		copy(hashU[:], chunk[offsetHashU:offsetHashC])
		copy(hashC[:], chunk[offsetHashC:ChunkSize])

		keys[i] = publickey.FromCoordinates(s, x[:], y[:], hashU, hashC)
	}
	return keys, nil
}

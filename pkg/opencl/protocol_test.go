package opencl

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/AddressFinder/pkg/publickey"
	"github.com/Amr-9/AddressFinder/pkg/secret"
)

// simulate builds the output a device would produce for a grid, using the
// CPU implementation.
func simulate(t *testing.T, base *uint256.Int, workSize int, littleEndian bool) *GridResult {
	t.Helper()

	r := &GridResult{WorkSize: workSize, LittleEndian: littleEndian}
	r.Base.Set(base)
	fill(t, r)
	return r
}

func simulateSecrets(t *testing.T, secrets []*uint256.Int, littleEndian bool) *GridResult {
	t.Helper()

	r := &GridResult{Secrets: secrets, WorkSize: len(secrets), LittleEndian: littleEndian}
	fill(t, r)
	return r
}

func fill(t *testing.T, r *GridResult) {
	t.Helper()

	r.Data = make([]byte, r.WorkSize*ChunkSize)
	for i := 0; i < r.WorkSize; i++ {
		s := r.secretAt(i)
		if secret.IsInvalid(s) {
			continue
		}
		k, err := publickey.FromSecret(s)
		require.NoError(t, err)

		u := k.Uncompressed()
		chunk := r.Data[i*ChunkSize : (i+1)*ChunkSize]
		copy(chunk[offsetX:offsetY], u[1:33])
		copy(chunk[offsetY:offsetHashU], u[33:65])
		if r.LittleEndian {
			reverse(chunk[offsetX:offsetY])
			reverse(chunk[offsetY:offsetHashU])
		}
		hu, hc := k.UncompressedKeyHash(), k.CompressedKeyHash()
		copy(chunk[offsetHashU:offsetHashC], hu[:])
		copy(chunk[offsetHashC:ChunkSize], hc[:])
	}
}

type fakeRunner struct {
	t            *testing.T
	workSize     int
	littleEndian bool
	corrupt      int
	err          error
}

func (f *fakeRunner) Run(base *uint256.Int) (*GridResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := simulate(f.t, base, f.workSize, f.littleEndian)
	if f.corrupt >= 0 {
		r.Data[f.corrupt*ChunkSize+offsetHashC] ^= 0xff
	}
	return r, nil
}

func (f *fakeRunner) RunSecrets(secrets []*uint256.Int) (*GridResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return simulateSecrets(f.t, secrets, f.littleEndian), nil
}

func (f *fakeRunner) WorkSize() int { return f.workSize }

func TestChunkLayout(t *testing.T) {
	require.Equal(t, 104, ChunkSize)
	require.Equal(t, 32, offsetY)
	require.Equal(t, 64, offsetHashU)
	require.Equal(t, 84, offsetHashC)
}

func TestEncodeSecretIsReversed(t *testing.T) {
	s := uint256.NewInt(0x0102)
	enc := EncodeSecret(s)
	require.Equal(t, byte(0x02), enc[0])
	require.Equal(t, byte(0x01), enc[1])
	for _, b := range enc[2:] {
		require.Zero(t, b)
	}
	require.True(t, DecodeSecret(enc).Eq(s))

	full := secret.MaxValid
	be := full.Bytes32()
	enc = EncodeSecret(full)
	for i := range enc {
		require.Equal(t, be[secret.Size-1-i], enc[i])
	}
}

func TestEvenYGivesEvenParity(t *testing.T) {
	for _, little := range []bool{false, true} {
		data := make([]byte, ChunkSize)
		data[offsetY-1] = 0x02
		data[offsetHashU-1] = 0x04

		r := &GridResult{WorkSize: 1, LittleEndian: little, Data: data}
		r.Base.SetUint64(0x100)
		keys, err := r.PublicKeyBytes()
		require.NoError(t, err)
		require.Len(t, keys, 1)

		k := keys[0]
		require.False(t, k.IsInvalid())
		require.Equal(t, byte(0x02), k.Compressed()[0])
		require.Equal(t, uint64(0x100), k.Secret().Uint64())

		u := k.Uncompressed()
		require.Equal(t, byte(0x04), u[0])
		if little {
			require.Equal(t, byte(0x02), u[1])
			require.Equal(t, byte(0x04), u[33])
		} else {
			require.Equal(t, byte(0x02), u[32])
			require.Equal(t, byte(0x04), u[64])
		}
	}
}

func TestPublicKeyBytesMatchesCPU(t *testing.T) {
	base := uint256.NewInt(0x1000)
	for _, little := range []bool{false, true} {
		keys, err := simulate(t, base, 16, little).PublicKeyBytes()
		require.NoError(t, err)
		for i, k := range keys {
			want, err := publickey.FromSecret(secret.GridElement(base, uint64(i)))
			require.NoError(t, err)
			require.True(t, Equal(k, want))
			require.NoError(t, publickey.CrossCheck(k))
		}
	}
}

func TestPublicKeyBytesListMode(t *testing.T) {
	secrets := []*uint256.Int{
		uint256.NewInt(0),
		uint256.NewInt(7),
		new(uint256.Int).Set(secret.MaxValid),
		uint256.NewInt(0xdeadbeef),
	}
	keys, err := simulateSecrets(t, secrets, true).PublicKeyBytes()
	require.NoError(t, err)
	require.Len(t, keys, len(secrets))
	require.Same(t, publickey.Invalid, keys[0])
	for i, k := range keys[1:] {
		want, err := publickey.FromSecret(secrets[i+1])
		require.NoError(t, err)
		require.True(t, Equal(k, want))
	}

	r := &GridResult{Secrets: secrets[:2], WorkSize: 4, Data: make([]byte, 4*ChunkSize)}
	_, err = r.PublicKeyBytes()
	require.Error(t, err)
}

func TestEncodeSecrets(t *testing.T) {
	secrets := []*uint256.Int{uint256.NewInt(1), uint256.NewInt(0x0203)}
	b := EncodeSecrets(secrets)
	require.Len(t, b, 2*secret.Size)
	require.Equal(t, byte(1), b[0])
	require.Equal(t, byte(3), b[secret.Size])
	require.Equal(t, byte(2), b[secret.Size+1])
}

func TestPublicKeyBytesSubstitutesInvalid(t *testing.T) {
	r := &GridResult{WorkSize: 4, Data: make([]byte, 4*ChunkSize)}
	for i := range r.Data {
		r.Data[i] = 0xee
	}
	keys, err := r.PublicKeyBytes()
	require.NoError(t, err)
	require.Same(t, publickey.Invalid, keys[0])
	require.Same(t, publickey.Invalid, keys[1])
	require.False(t, keys[2].IsInvalid())
	require.Equal(t, uint64(3), keys[3].Secret().Uint64())

	top := secret.KillBits(new(uint256.Int).SetAllOne(), 2)
	r = &GridResult{WorkSize: 4, Data: make([]byte, 4*ChunkSize)}
	r.Base.Set(top)
	keys, err = r.PublicKeyBytes()
	require.NoError(t, err)
	for _, k := range keys {
		require.Same(t, publickey.Invalid, k)
	}
}

func TestPublicKeyBytesRejectsShortOutput(t *testing.T) {
	r := &GridResult{WorkSize: 2, Data: make([]byte, ChunkSize)}
	_, err := r.PublicKeyBytes()
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{DeviceType: DeviceTypeGPU, GridBits: 8, LoopCount: 4}
	require.NoError(t, cfg.Validate())
	require.Equal(t, 256, cfg.WorkSize())
	require.Equal(t, 64, cfg.WorkItems())

	bad := cfg
	bad.LoopCount = 3
	require.Error(t, bad.Validate())

	bad = cfg
	bad.LoopCount = 512
	require.Error(t, bad.Validate())

	bad = cfg
	bad.DeviceType = "fpga"
	require.Error(t, bad.Validate())

	bad = cfg
	bad.GridBits = secret.MaxGridBits + 1
	require.Error(t, bad.Validate())
}

func TestVerify(t *testing.T) {
	passed, results, err := Verify(&fakeRunner{t: t, workSize: 8, littleEndian: true, corrupt: -1}, uint256.NewInt(0))
	require.NoError(t, err)
	require.True(t, passed)
	require.Len(t, results, 8)
	require.Equal(t, "invalid secret skipped", results[0].ErrorMessage)
	require.Equal(t, results[5].CPUAddress, results[5].DeviceAddress)

	passed, results, err = Verify(&fakeRunner{t: t, workSize: 8, corrupt: 5}, uint256.NewInt(0x800))
	require.NoError(t, err)
	require.False(t, passed)
	require.False(t, results[5].Match)
	require.True(t, results[4].Match)

	boom := errors.New("boom")
	_, _, err = Verify(&fakeRunner{t: t, workSize: 8, err: boom}, uint256.NewInt(0))
	require.True(t, errors.Is(err, boom))
}

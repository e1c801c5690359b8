package opencl

import (
	"bytes"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/Amr-9/AddressFinder/pkg/publickey"
	"github.com/Amr-9/AddressFinder/pkg/secret"
)

// TestResult is the outcome of comparing one device key with the CPU.
type TestResult struct {
	Index         int
	Secret        string
	DeviceAddress string
	CPUAddress    string
	Match         bool
	ErrorMessage  string
}

// Verify runs one grid at base on r and compares every key with the CPU
// implementation. It reports false if any key differs.
func Verify(r Runner, base *uint256.Int) (bool, []TestResult, error) {
	result, err := r.Run(base)
	if err != nil {
		return false, nil, fmt.Errorf("device run at %s failed: %w", secret.Hex(base), err)
	}
	keys, err := result.PublicKeyBytes()
	if err != nil {
		return false, nil, err
	}

	passed := true
	results := make([]TestResult, len(keys))
	for i, got := range keys {
		tr := TestResult{Index: i, Secret: secret.Hex(got.Secret())}
		if got.IsInvalid() {
			tr.Match = true
			tr.ErrorMessage = "invalid secret skipped"
			results[i] = tr
			continue
		}

		want, err := publickey.FromSecret(got.Secret())
		if err != nil {
			tr.ErrorMessage = err.Error()
			passed = false
			results[i] = tr
			continue
		}

		tr.DeviceAddress = got.CompressedAddress()
		tr.CPUAddress = want.CompressedAddress()
		tr.Match = Equal(got, want)
		if !tr.Match {
			passed = false
		}
		results[i] = tr
	}
	return passed, results, nil
}

// Equal reports whether both keys agree on every encoding and hash.
func Equal(a, b *publickey.PublicKeyBytes) bool {
	return a.Secret().Eq(b.Secret()) &&
		bytes.Equal(a.Uncompressed(), b.Uncompressed()) &&
		bytes.Equal(a.Compressed(), b.Compressed()) &&
		a.UncompressedKeyHash() == b.UncompressedKeyHash() &&
		a.CompressedKeyHash() == b.CompressedKeyHash()
}

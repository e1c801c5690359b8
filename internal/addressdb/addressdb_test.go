package addressdb

import (
	"compress/gzip"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// hash-160 of the compressed public key of secret 1
const oneCompressed = "751e76e8199196d454941c45d1b3a323f1433bd6"

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func openTemp(t *testing.T, opts Options) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "addresses"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDecodeAddress(t *testing.T) {
	tests := []struct {
		addr string
		hash string
	}{
		{"1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", oneCompressed},
		{"1EHNa6Q4Jz2uvNExL497mE43ikXhwF6kZm", "91b24bf9f5288532960ac687abb035127b1d28a5"},
		{"bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", oneCompressed},
		{"BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4", oneCompressed},
		{oneCompressed, oneCompressed},
	}
	for _, tc := range tests {
		got, err := DecodeAddress(tc.addr)
		require.NoError(t, err, tc.addr)
		require.Equal(t, tc.hash, hex.EncodeToString(got), tc.addr)
	}
}

func TestDecodeAddressRejects(t *testing.T) {
	_, err := DecodeAddress("3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy")
	require.True(t, errors.Is(err, ErrUnsupportedAddress))

	// checksum of the last character changed
	_, err = DecodeAddress("1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMJ")
	require.Error(t, err)

	_, err = DecodeAddress("not an address")
	require.Error(t, err)

	_, err = DecodeAddress("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t5")
	require.Error(t, err)
}

func TestParseLine(t *testing.T) {
	e, ok, err := ParseLine(" 1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH , 5000 ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, oneCompressed, hex.EncodeToString(e.Hash160[:]))
	require.Equal(t, uint64(5000), e.Amount)

	e, ok, err = ParseLine(oneCompressed)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, e.Amount)

	for _, line := range []string{"", "   ", "# comment"} {
		_, ok, err = ParseLine(line)
		require.NoError(t, err)
		require.False(t, ok)
	}

	_, _, err = ParseLine(oneCompressed + ",-1")
	require.Error(t, err)
}

func TestPutContainsAmount(t *testing.T) {
	d := openTemp(t, Options{})
	h := mustHex(t, oneCompressed)

	require.False(t, d.ContainsAddress(h))
	_, ok, err := d.GetAmount(h)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, d.PutNewAmount(h, 42))
	require.True(t, d.ContainsAddress(h))
	amount, ok, err := d.GetAmount(h)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), amount)

	require.NoError(t, d.PutNewAmount(h, 7))
	amount, _, err = d.GetAmount(h)
	require.NoError(t, err)
	require.Equal(t, uint64(7), amount)

	n, err := d.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	require.Error(t, d.PutNewAmount(h[:19], 1))
}

func TestImport(t *testing.T) {
	d := openTemp(t, Options{})

	list := strings.Join([]string{
		"# address,amount",
		"1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH,100",
		"1EHNa6Q4Jz2uvNExL497mE43ikXhwF6kZm",
		"",
		"3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy,1",
		"garbage",
	}, "\n")
	stats, err := d.Import(strings.NewReader(list))
	require.NoError(t, err)
	require.Equal(t, ImportStats{Lines: 6, Imported: 2, Skipped: 2}, stats)

	require.True(t, d.ContainsAddress(mustHex(t, oneCompressed)))
	require.True(t, d.ContainsAddress(mustHex(t, "91b24bf9f5288532960ac687abb035127b1d28a5")))
	amount, _, err := d.GetAmount(mustHex(t, oneCompressed))
	require.NoError(t, err)
	require.Equal(t, uint64(100), amount)
}

func TestImportFileGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.txt.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4,1\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	d := openTemp(t, Options{})
	stats, err := d.ImportFile(path)
	require.NoError(t, err)
	require.Equal(t, uint64(1), stats.Imported)
	require.True(t, d.ContainsAddress(mustHex(t, oneCompressed)))
}

func TestBloomPrefilter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "addresses")
	d, err := Open(dir, Options{})
	require.NoError(t, err)
	require.NoError(t, d.PutNewAmount(mustHex(t, oneCompressed), 1))
	require.NoError(t, d.Close())

	d, err = Open(dir, Options{BloomFilter: true})
	require.NoError(t, err)
	defer d.Close()
	require.NotNil(t, d.prefilter)

	require.True(t, d.ContainsAddress(mustHex(t, oneCompressed)))
	require.False(t, d.ContainsAddress(mustHex(t, "91b24bf9f5288532960ac687abb035127b1d28a5")))

	other := mustHex(t, "0000000000000000000000000000000000000001")
	require.NoError(t, d.PutNewAmount(other, 2))
	require.True(t, d.ContainsAddress(other))
}

func TestOptionsValidate(t *testing.T) {
	o := Options{}
	o.SetDefaults()
	require.NoError(t, o.Validate())
	require.Equal(t, DefaultCachePercent, o.CachePercent)

	require.Error(t, (&Options{CachePercent: 95}).Validate())
	require.Error(t, (&Options{BloomFalsePositiveRate: 1}).Validate())
}

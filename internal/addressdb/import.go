package addressdb

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/mr-tron/base58"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/Amr-9/AddressFinder/pkg/publickey"
)

// ImportBatchSize is the number of addresses written per LevelDB batch.
const ImportBatchSize = 100000

const (
	bech32HRP    = "bc"
	checksumSize = 4
	p2pkhSize    = 1 + publickey.Hash160Size + checksumSize
	maxLineSize  = 1024 * 1024
)

// ErrUnsupportedAddress is returned for address formats without a plain
// hash-160 of a public key, such as P2SH or Taproot.
var ErrUnsupportedAddress = errors.New("unsupported address format")

// Entry is one parsed line of an address list.
type Entry struct {
	Hash160 [publickey.Hash160Size]byte
	Amount  uint64
}

// ImportStats summarizes an import.
type ImportStats struct {
	Lines    uint64
	Imported uint64
	Skipped  uint64
}

// ParseLine parses "address[,amount]". Blank lines and lines starting with #
// report ok false and no error.
func ParseLine(line string) (e Entry, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return e, false, nil
	}

	addr, amount, hasAmount := strings.Cut(line, ",")
	hash, err := DecodeAddress(strings.TrimSpace(addr))
	if err != nil {
		return e, false, err
	}
	copy(e.Hash160[:], hash)

	if hasAmount {
		amount = strings.TrimSpace(amount)
		if e.Amount, err = strconv.ParseUint(amount, 10, 64); err != nil {
			return e, false, fmt.Errorf("invalid amount %q: %w", amount, err)
		}
	}
	return e, true, nil
}

// DecodeAddress returns the hash-160 behind a P2PKH address, a version 0
// P2WPKH address or a 40 digit hex string.
func DecodeAddress(addr string) ([]byte, error) {
	if len(addr) == 2*publickey.Hash160Size {
		if b, err := hex.DecodeString(addr); err == nil {
			return b, nil
		}
	}

	if strings.HasPrefix(strings.ToLower(addr), bech32HRP+"1") {
		return decodeBech32(addr)
	}
	return decodeBase58Check(addr)
}

func decodeBech32(addr string) ([]byte, error) {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid bech32 address %q: %w", addr, err)
	}
	if hrp != bech32HRP || len(data) < 1 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAddress, addr)
	}
	if data[0] != 0 {
		return nil, fmt.Errorf("%w: witness version %d in %q", ErrUnsupportedAddress, data[0], addr)
	}

	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("invalid witness program in %q: %w", addr, err)
	}
	if len(program) != publickey.Hash160Size {
		return nil, fmt.Errorf("%w: %d byte witness program in %q", ErrUnsupportedAddress, len(program), addr)
	}
	return program, nil
}

func decodeBase58Check(addr string) ([]byte, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid base58 address %q: %w", addr, err)
	}
	if len(raw) != p2pkhSize {
		return nil, fmt.Errorf("address %q decodes to %d bytes", addr, len(raw))
	}

	payload, checksum := raw[:p2pkhSize-checksumSize], raw[p2pkhSize-checksumSize:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:checksumSize], checksum) {
		return nil, fmt.Errorf("bad checksum in address %q", addr)
	}
	if payload[0] != publickey.P2PKHVersion {
		return nil, fmt.Errorf("%w: version %#x in %q", ErrUnsupportedAddress, payload[0], addr)
	}
	return payload[1:], nil
}

// Import reads an address list from r and stores every parsable line.
// Unparsable lines are logged and counted as skipped.
func (d *DB) Import(r io.Reader) (ImportStats, error) {
	var stats ImportStats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	batch := new(leveldb.Batch)
	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := d.db.Write(batch, nil); err != nil {
			return fmt.Errorf("failed to write batch: %w", err)
		}
		batch.Reset()
		log.Debugf("Imported %d addresses", stats.Imported)
		return nil
	}

	for scanner.Scan() {
		stats.Lines++
		e, ok, err := ParseLine(scanner.Text())
		if err != nil {
			stats.Skipped++
			log.Debugf("Skipping line %d: %v", stats.Lines, err)
			continue
		}
		if !ok {
			continue
		}

		batch.Put(e.Hash160[:], encodeAmount(e.Amount))
		d.addToFilter(e.Hash160[:])
		stats.Imported++

		if batch.Len() >= ImportBatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read address list: %w", err)
	}
	if err := flush(); err != nil {
		return stats, err
	}

	log.Infof("Imported %d addresses from %d lines, %d skipped",
		stats.Imported, stats.Lines, stats.Skipped)
	return stats, nil
}

// ImportFile imports a plain or gzip compressed address list.
func (d *DB) ImportFile(path string) (ImportStats, error) {
	file, err := os.Open(path)
	if err != nil {
		return ImportStats{}, err
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return ImportStats{}, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gzReader.Close()
		r = gzReader
	}
	return d.Import(r)
}

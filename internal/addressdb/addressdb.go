// Package addressdb is the membership oracle of the finder: a LevelDB store
// keyed by hash-160 with the known amount of each address as value, with an
// optional in-memory Bloom filter in front of it.
package addressdb

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/shirou/gopsutil/mem"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/willf/bloom"

	"github.com/Amr-9/AddressFinder/pkg/publickey"
)

const (
	// DefaultCachePercent is the share of total memory given to the block
	// cache.
	DefaultCachePercent = 5.0

	// DefaultBloomFalsePositiveRate is the target rate of the prefilter.
	DefaultBloomFalsePositiveRate = 0.0001

	minBlockCache = 8 * opt.MiB
	maxBlockCache = 1 * opt.GiB

	amountSize = 8
)

// Options tunes the store.
type Options struct {
	// CachePercent of total memory is used for the LevelDB block cache.
	CachePercent float64 `json:"cachePercent"`

	// BloomFilter loads every key into an in-memory filter on Open so
	// misses never touch LevelDB.
	BloomFilter            bool    `json:"bloomFilter"`
	BloomFalsePositiveRate float64 `json:"bloomFalsePositiveRate"`

	ReadOnly bool `json:"-"`
}

// SetDefaults fills unset fields.
func (o *Options) SetDefaults() {
	if o.CachePercent == 0 {
		o.CachePercent = DefaultCachePercent
	}
	if o.BloomFalsePositiveRate == 0 {
		o.BloomFalsePositiveRate = DefaultBloomFalsePositiveRate
	}
}

// Validate checks the ranges of the options.
func (o *Options) Validate() error {
	if o.CachePercent < 0 || o.CachePercent > 90 {
		return fmt.Errorf("cache percent %v outside [0, 90]", o.CachePercent)
	}
	if o.BloomFalsePositiveRate < 0 || o.BloomFalsePositiveRate >= 1 {
		return fmt.Errorf("bloom false positive rate %v outside [0, 1)", o.BloomFalsePositiveRate)
	}
	return nil
}

// DB is safe for concurrent use.
type DB struct {
	db   *leveldb.DB
	opts Options

	mu        sync.RWMutex
	prefilter *bloom.BloomFilter
}

// Open opens or creates the store at path.
func Open(path string, opts Options) (*DB, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ldbOpts := &opt.Options{
		BlockCacheCapacity: blockCacheCapacity(opts.CachePercent),
		Filter:             filter.NewBloomFilter(10),
		ReadOnly:           opts.ReadOnly,
	}
	ldb, err := leveldb.OpenFile(path, ldbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open address database %s: %w", path, err)
	}

	d := &DB{db: ldb, opts: opts}
	if opts.BloomFilter {
		if err := d.RebuildFilter(); err != nil {
			ldb.Close()
			return nil, err
		}
	}
	return d, nil
}

// blockCacheCapacity sizes the cache from the machine's total memory,
// falling back to the LevelDB default when it cannot be read.
func blockCacheCapacity(percent float64) int {
	v, err := mem.VirtualMemory()
	if err != nil {
		log.Warnf("Cannot read system memory, using default block cache: %v", err)
		return opt.DefaultBlockCacheCapacity
	}

	size := int(float64(v.Total) * percent / 100)
	if size < minBlockCache {
		size = minBlockCache
	}
	if size > maxBlockCache {
		size = maxBlockCache
	}
	log.Debugf("Block cache %d MiB of %d MiB total memory", size/opt.MiB, v.Total/opt.MiB)
	return size
}

// RebuildFilter recreates the prefilter from the stored keys. It is a no-op
// when the filter is disabled.
func (d *DB) RebuildFilter() error {
	if !d.opts.BloomFilter {
		return nil
	}

	n, err := d.Count()
	if err != nil {
		return err
	}
	if n == 0 {
		n = 1
	}
	f := bloom.NewWithEstimates(uint(n), d.opts.BloomFalsePositiveRate)

	iter := d.db.NewIterator(nil, nil)
	for iter.Next() {
		f.Add(iter.Key())
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("failed to load bloom filter: %w", err)
	}

	d.mu.Lock()
	d.prefilter = f
	d.mu.Unlock()

	log.Infof("Bloom filter loaded with %d addresses", n)
	return nil
}

// ContainsAddress reports whether hash160 is stored. Read errors are logged
// and reported as absent.
func (d *DB) ContainsAddress(hash160 []byte) bool {
	d.mu.RLock()
	f := d.prefilter
	d.mu.RUnlock()
	if f != nil && !f.Test(hash160) {
		return false
	}

	ok, err := d.db.Has(hash160, nil)
	if err != nil {
		log.Errorf("Lookup of %x failed: %v", hash160, err)
		return false
	}
	return ok
}

// PutNewAmount stores hash160 with amount, replacing any previous amount.
func (d *DB) PutNewAmount(hash160 []byte, amount uint64) error {
	if len(hash160) != publickey.Hash160Size {
		return fmt.Errorf("hash160 has %d bytes, expected %d", len(hash160), publickey.Hash160Size)
	}
	if err := d.db.Put(hash160, encodeAmount(amount), nil); err != nil {
		return fmt.Errorf("failed to store %x: %w", hash160, err)
	}
	d.addToFilter(hash160)
	return nil
}

func (d *DB) addToFilter(hash160 []byte) {
	d.mu.Lock()
	if d.prefilter != nil {
		d.prefilter.Add(hash160)
	}
	d.mu.Unlock()
}

// GetAmount returns the stored amount; ok is false if hash160 is absent.
func (d *DB) GetAmount(hash160 []byte) (amount uint64, ok bool, err error) {
	v, err := d.db.Get(hash160, nil)
	if err == leveldb.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read %x: %w", hash160, err)
	}
	if len(v) != amountSize {
		return 0, false, fmt.Errorf("corrupt amount for %x: %d bytes", hash160, len(v))
	}
	return binary.BigEndian.Uint64(v), true, nil
}

// Count walks the store and returns the number of addresses.
func (d *DB) Count() (uint64, error) {
	var n uint64
	iter := d.db.NewIterator(nil, nil)
	for iter.Next() {
		n++
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("failed to count addresses: %w", err)
	}
	return n, nil
}

// Close closes the store.
func (d *DB) Close() error {
	return d.db.Close()
}

func encodeAmount(amount uint64) []byte {
	b := make([]byte, amountSize)
	binary.BigEndian.PutUint64(b, amount)
	return b
}

// Package consumer checks materialized keys against the address database.
// A fixed pool of workers drains a bounded queue filled by the producers,
// reports hits and vanity hits and keeps the search statistics.
package consumer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Amr-9/AddressFinder/pkg/publickey"
	"github.com/Amr-9/AddressFinder/pkg/secret"
)

// AddressDB is the membership oracle. Implementations must be safe for
// concurrent use and report lookup failures as absent.
type AddressDB interface {
	ContainsAddress(hash160 []byte) bool
}

// Hit is a key of interest found by a worker.
type Hit struct {
	Key *publickey.PublicKeyBytes

	// Compressed tells which encoding matched a database hit.
	Compressed bool

	// Vanity hits carry the matching address.
	Vanity  bool
	Address string
}

// Consumer owns the queue and the worker pool.
type Consumer struct {
	cfg    Config
	db     AddressDB
	queue  *Queue
	vanity *VanityMatcher
	stats  *Statistics
	onHit  func(Hit)

	running  atomic.Bool
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New validates cfg and returns a consumer that is not started yet.
func New(cfg Config, db AddressDB) (*Consumer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Consumer{
		cfg:   cfg,
		db:    db,
		queue: NewQueue(cfg.QueueSize),
		stats: newStatistics(),
		quit:  make(chan struct{}),
	}
	if cfg.EnableVanity {
		m, err := NewVanityMatcher(cfg.VanityPattern)
		if err != nil {
			return nil, err
		}
		c.vanity = m
	}
	return c, nil
}

// OnHit registers f to run on the worker after every hit has been logged.
// It must be called before Start.
func (c *Consumer) OnHit(f func(Hit)) {
	c.onHit = f
}

// Queue returns the queue producers put batches into.
func (c *Consumer) Queue() *Queue {
	return c.queue
}

// Statistics returns the live counters.
func (c *Consumer) Statistics() *Statistics {
	return c.stats
}

// Start launches the workers and the statistics ticker.
func (c *Consumer) Start() {
	if !c.running.CompareAndSwap(false, true) {
		return
	}

	log.Infof("Starting %d consumer threads, queue size %d", c.cfg.Threads, c.cfg.QueueSize)
	for i := 0; i < c.cfg.Threads; i++ {
		c.wg.Add(1)
		go c.work()
	}

	if every := c.cfg.printStatisticsEvery(); every > 0 {
		c.wg.Add(1)
		go c.printStatistics(every)
	}
}

// Interrupt stops the workers after they have drained the queue.
func (c *Consumer) Interrupt() {
	c.running.Store(false)
	c.stopOnce.Do(func() { close(c.quit) })
}

// WaitTillNotRunning blocks until every worker has returned.
func (c *Consumer) WaitTillNotRunning() {
	c.wg.Wait()
}

func (c *Consumer) work() {
	defer c.wg.Done()

	delay := c.cfg.delayEmptyConsumer()
	for c.running.Load() {
		b, ok := c.queue.Poll(delay)
		if !ok {
			c.stats.emptyConsumer.Add(1)
			continue
		}
		c.processBatch(b)
	}

	// Keys already produced are still checked.
	for {
		b, ok := c.queue.TryPoll()
		if !ok {
			return
		}
		c.processBatch(b)
	}
}

func (c *Consumer) printStatistics(every time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			statsLog.Info(c.stats.Snapshot(c.queue))
		case <-c.quit:
			statsLog.Info(c.stats.Snapshot(c.queue))
			return
		}
	}
}

// processBatch checks every key of b. A panic aborts the batch only.
func (c *Consumer) processBatch(b Batch) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered from panic in batch of %d keys: %v", len(b), r)
		}
	}()

	var checked uint64
	var contains time.Duration
	for _, k := range b {
		if k == nil || k.IsInvalid() {
			continue
		}
		contains += c.processKey(k)
		checked++
	}
	c.stats.addChecked(checked, contains)
}

// processKey checks one key and returns the time spent in the database.
func (c *Consumer) processKey(k *publickey.PublicKeyBytes) time.Duration {
	uh := k.UncompressedKeyHash()
	ch := k.CompressedKeyHash()

	start := time.Now()
	hitU := c.db.ContainsAddress(uh[:])
	hitC := c.db.ContainsAddress(ch[:])
	elapsed := time.Since(start)

	if hitU {
		c.hit(Hit{Key: k})
	}
	if hitC {
		c.hit(Hit{Key: k, Compressed: true})
	}

	if c.vanity != nil {
		for _, addr := range c.vanity.MatchKey(k) {
			c.hit(Hit{Key: k, Vanity: true, Address: addr})
		}
	}

	if c.cfg.RuntimePublicKeyCalculationCheck {
		if err := publickey.CrossCheck(k); err != nil {
			log.Errorf("Runtime public key check failed for %s: %v", secret.Hex(k.Secret()), err)
		}
	}
	return elapsed
}

// hit logs h before anything else happens to it.
func (c *Consumer) hit(h Hit) {
	if h.Vanity {
		hitLog.Infof("Vanity hit: %s %s", h.Address, h.Key)
		c.stats.vanityHits.Add(1)
	} else {
		hitLog.Infof("Hit (%s): %s", encodingName(h.Compressed), h.Key)
		c.stats.hits.Add(1)
	}

	if c.onHit != nil {
		c.onHit(h)
	}
}

func encodingName(compressed bool) string {
	if compressed {
		return "compressed"
	}
	return "uncompressed"
}

// String describes the configuration for the startup log.
func (c *Consumer) String() string {
	vanity := "off"
	if c.vanity != nil {
		vanity = c.vanity.String()
	}
	return fmt.Sprintf("consumer threads=%d queue=%d vanity=%s runtimeCheck=%t",
		c.cfg.Threads, c.cfg.QueueSize, vanity, c.cfg.RuntimePublicKeyCalculationCheck)
}

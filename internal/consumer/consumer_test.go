package consumer

import (
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/AddressFinder/pkg/publickey"
)

type mapDB struct {
	mu      sync.Mutex
	entries map[[publickey.Hash160Size]byte]bool
	calls   int
}

func newMapDB(keys ...*publickey.PublicKeyBytes) *mapDB {
	db := &mapDB{entries: make(map[[publickey.Hash160Size]byte]bool)}
	for _, k := range keys {
		db.entries[k.CompressedKeyHash()] = true
	}
	return db
}

func (db *mapDB) ContainsAddress(hash160 []byte) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.calls++
	var h [publickey.Hash160Size]byte
	copy(h[:], hash160)
	return db.entries[h]
}

func mustKey(t *testing.T, s uint64) *publickey.PublicKeyBytes {
	t.Helper()
	k, err := publickey.FromSecret(uint256.NewInt(s))
	require.NoError(t, err)
	return k
}

func testConfig() Config {
	return Config{
		Threads:                     2,
		DelayEmptyConsumerMillis:    1,
		QueueSize:                   2,
		PrintStatisticsEverySeconds: -1,
	}
}

type hitRecorder struct {
	mu   sync.Mutex
	hits []Hit
}

func (r *hitRecorder) record(h Hit) {
	r.mu.Lock()
	r.hits = append(r.hits, h)
	r.mu.Unlock()
}

func (r *hitRecorder) all() []Hit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Hit(nil), r.hits...)
}

func TestQueueBlocksWhenFull(t *testing.T) {
	q := NewQueue(2)
	q.Put(Batch{})
	q.Put(Batch{})
	require.Equal(t, 2, q.Len())

	third := Batch{mustKey(t, 3)}
	done := make(chan struct{})
	go func() {
		q.Put(third)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("third put did not block")
	case <-time.After(50 * time.Millisecond):
	}

	_, ok := q.Poll(time.Second)
	require.True(t, ok)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("third put still blocked after a poll")
	}

	require.Equal(t, 2, q.Len())
	require.Equal(t, uint64(1), q.FullCount())
	_, _ = q.TryPoll()
	b, ok := q.TryPoll()
	require.True(t, ok)
	require.Len(t, b, 1)
}

func TestQueuePollTimeout(t *testing.T) {
	q := NewQueue(1)
	start := time.Now()
	_, ok := q.Poll(20 * time.Millisecond)
	require.False(t, ok)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	_, ok = q.TryPoll()
	require.False(t, ok)
}

func TestConsumerFindsHits(t *testing.T) {
	target := mustKey(t, 5)
	db := newMapDB(target)

	c, err := New(testConfig(), db)
	require.NoError(t, err)
	rec := &hitRecorder{}
	c.OnHit(rec.record)
	c.Start()

	c.Queue().Put(Batch{publickey.Invalid, mustKey(t, 4), target, nil})
	c.Queue().Put(Batch{mustKey(t, 6)})

	require.Eventually(t, func() bool {
		return c.Statistics().Snapshot(nil).CheckedKeys == 3
	}, 2*time.Second, 5*time.Millisecond)

	c.Interrupt()
	c.WaitTillNotRunning()

	hits := rec.all()
	require.Len(t, hits, 1)
	require.True(t, hits[0].Compressed)
	require.False(t, hits[0].Vanity)
	require.Equal(t, uint64(5), hits[0].Key.Secret().Uint64())

	snap := c.Statistics().Snapshot(c.Queue())
	require.Equal(t, uint64(1), snap.Hits)
	require.Zero(t, snap.QueueDepth)
	require.Equal(t, 2, snap.QueueCapacity)
	require.Equal(t, 6, db.calls)
}

func TestConsumerDrainsOnInterrupt(t *testing.T) {
	c, err := New(testConfig(), newMapDB())
	require.NoError(t, err)

	c.Queue().Put(Batch{mustKey(t, 2), mustKey(t, 3)})
	c.Start()
	c.Interrupt()
	c.WaitTillNotRunning()

	require.Equal(t, uint64(2), c.Statistics().Snapshot(nil).CheckedKeys)
	require.Zero(t, c.Queue().Len())
}

func TestConsumerCountsEmptyPolls(t *testing.T) {
	c, err := New(testConfig(), newMapDB())
	require.NoError(t, err)
	c.Start()

	require.Eventually(t, func() bool {
		return c.Statistics().Snapshot(nil).EmptyConsumer > 0
	}, 2*time.Second, 5*time.Millisecond)

	c.Interrupt()
	c.WaitTillNotRunning()
}

type panicDB struct{}

func (panicDB) ContainsAddress([]byte) bool { panic("lookup exploded") }

func TestConsumerSurvivesPanickingBatch(t *testing.T) {
	c, err := New(testConfig(), panicDB{})
	require.NoError(t, err)
	c.Start()

	c.Queue().Put(Batch{mustKey(t, 2)})
	c.Queue().Put(Batch{publickey.Invalid})
	require.Eventually(t, func() bool {
		return c.Queue().Len() == 0
	}, 2*time.Second, 5*time.Millisecond)

	c.Interrupt()
	c.WaitTillNotRunning()
	require.Zero(t, c.Statistics().Snapshot(nil).CheckedKeys)
}

func TestConsumerVanity(t *testing.T) {
	cfg := testConfig()
	cfg.EnableVanity = true
	cfg.VanityPattern = "^1BgGZ9"

	c, err := New(cfg, newMapDB())
	require.NoError(t, err)
	rec := &hitRecorder{}
	c.OnHit(rec.record)
	c.Start()

	c.Queue().Put(Batch{mustKey(t, 1), mustKey(t, 2)})
	c.Interrupt()
	c.WaitTillNotRunning()

	hits := rec.all()
	require.Len(t, hits, 1)
	require.True(t, hits[0].Vanity)
	require.Equal(t, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", hits[0].Address)
	require.Equal(t, uint64(1), c.Statistics().Snapshot(nil).VanityHits)
	require.Zero(t, c.Statistics().Snapshot(nil).Hits)
}

func TestConsumerRuntimeCheck(t *testing.T) {
	cfg := testConfig()
	cfg.RuntimePublicKeyCalculationCheck = true
	c, err := New(cfg, newMapDB())
	require.NoError(t, err)

	c.processBatch(Batch{mustKey(t, 9)})
	require.Equal(t, uint64(1), c.Statistics().Snapshot(nil).CheckedKeys)
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	require.Positive(t, cfg.Threads)
	require.Equal(t, DefaultQueueSize, cfg.QueueSize)
	require.Equal(t, DefaultPrintStatisticsEverySeconds*time.Second, cfg.printStatisticsEvery())

	cfg.EnableVanity = true
	require.Error(t, cfg.Validate())
	cfg.VanityPattern = "("
	require.Error(t, cfg.Validate())
	cfg.VanityPattern = "^1"
	require.NoError(t, cfg.Validate())

	cfg.QueueSize = -1
	require.Error(t, cfg.Validate())

	_, err := New(Config{Threads: -2}, newMapDB())
	require.Error(t, err)
}

func TestVanityPrefixPattern(t *testing.T) {
	p, err := VanityPrefixPattern("1Bg")
	require.NoError(t, err)
	require.Equal(t, "^1Bg", p)

	m, err := NewVanityMatcher(p)
	require.NoError(t, err)
	require.Len(t, m.MatchKey(mustKey(t, 1)), 1)

	_, err = VanityPrefixPattern("1l0O")
	require.Error(t, err)
	_, err = VanityPrefixPattern("bc1q")
	require.Error(t, err)

	require.Equal(t, []rune{'0', 'O', 'I', 'l'}, InvalidBase58Chars("a0OIlb"))
}

func TestSnapshotString(t *testing.T) {
	s := Snapshot{CheckedKeys: 2000, ContainsTime: 2 * time.Millisecond, Elapsed: 2 * time.Second, QueueDepth: 1, QueueCapacity: 4}
	require.Equal(t, 1000.0, s.KeysPerSecond())
	require.Equal(t, time.Microsecond, s.AverageContains())
	require.Contains(t, s.String(), "Checked 2,000 keys")
	require.Contains(t, s.String(), "queue 1/4")
	require.Zero(t, Snapshot{}.AverageContains())
}

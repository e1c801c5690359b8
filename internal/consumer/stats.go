package consumer

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Amr-9/AddressFinder/internal/ui"
)

// Statistics are the running counters of a consumer.
type Statistics struct {
	start time.Time

	checkedKeys   atomic.Uint64
	containsNanos atomic.Uint64
	emptyConsumer atomic.Uint64
	hits          atomic.Uint64
	vanityHits    atomic.Uint64
}

func newStatistics() *Statistics {
	return &Statistics{start: time.Now()}
}

func (s *Statistics) addChecked(n uint64, contains time.Duration) {
	s.checkedKeys.Add(n)
	s.containsNanos.Add(uint64(contains))
}

// Snapshot is a point in time copy of the counters.
type Snapshot struct {
	CheckedKeys   uint64
	ContainsTime  time.Duration
	EmptyConsumer uint64
	Hits          uint64
	VanityHits    uint64
	Elapsed       time.Duration
	QueueDepth    int
	QueueCapacity int
}

// Snapshot reads the counters together with the depth of q, which may be
// nil.
func (s *Statistics) Snapshot(q *Queue) Snapshot {
	snap := Snapshot{
		CheckedKeys:   s.checkedKeys.Load(),
		ContainsTime:  time.Duration(s.containsNanos.Load()),
		EmptyConsumer: s.emptyConsumer.Load(),
		Hits:          s.hits.Load(),
		VanityHits:    s.vanityHits.Load(),
		Elapsed:       time.Since(s.start),
	}
	if q != nil {
		snap.QueueDepth = q.Len()
		snap.QueueCapacity = q.Cap()
	}
	return snap
}

// KeysPerSecond is the average rate since the consumer was created.
func (s Snapshot) KeysPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.CheckedKeys) / s.Elapsed.Seconds()
}

// AverageContains is the mean time spent in the database per key.
func (s Snapshot) AverageContains() time.Duration {
	if s.CheckedKeys == 0 {
		return 0
	}
	return s.ContainsTime / time.Duration(s.CheckedKeys)
}

func (s Snapshot) String() string {
	return fmt.Sprintf("Checked %s keys in %s (%s), avg contains %v, "+
		"empty polls %s, hits %d, vanity hits %d, queue %d/%d",
		ui.FormatNumber(s.CheckedKeys), ui.FormatDuration(s.Elapsed),
		ui.FormatHashRate(s.KeysPerSecond()), s.AverageContains(),
		ui.FormatNumber(s.EmptyConsumer), s.Hits, s.VanityHits,
		s.QueueDepth, s.QueueCapacity)
}

package consumer

import (
	"sync/atomic"
	"time"

	"github.com/Amr-9/AddressFinder/pkg/publickey"
)

// queueFullWarnInterval limits the full queue warning.
const queueFullWarnInterval = 10 * time.Second

// Batch is the unit of work between producers and the consumer, usually one
// grid of keys.
type Batch []*publickey.PublicKeyBytes

// Queue is a bounded multi-producer multi-consumer queue of batches. Put
// blocks while the queue is full; batches are never dropped.
type Queue struct {
	ch chan Batch

	warnInterval time.Duration
	lastWarn     atomic.Int64
	fullCount    atomic.Uint64
}

// NewQueue returns a queue holding up to size batches.
func NewQueue(size int) *Queue {
	return &Queue{
		ch:           make(chan Batch, size),
		warnInterval: queueFullWarnInterval,
	}
}

// Put enqueues b, blocking until there is room.
func (q *Queue) Put(b Batch) {
	select {
	case q.ch <- b:
		return
	default:
	}

	q.fullCount.Add(1)
	q.warnFull()
	q.ch <- b
}

func (q *Queue) warnFull() {
	now := time.Now().UnixNano()
	last := q.lastWarn.Load()
	if last != 0 && now-last < int64(q.warnInterval) {
		return
	}
	if q.lastWarn.CompareAndSwap(last, now) {
		log.Warnf("Queue is full (%d batches), producers are faster than "+
			"the consumer; consider more consumer threads", cap(q.ch))
	}
}

// Poll waits up to timeout for a batch.
func (q *Queue) Poll(timeout time.Duration) (Batch, bool) {
	select {
	case b := <-q.ch:
		return b, true
	default:
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case b := <-q.ch:
		return b, true
	case <-t.C:
		return nil, false
	}
}

// TryPoll returns a batch if one is ready.
func (q *Queue) TryPoll() (Batch, bool) {
	select {
	case b := <-q.ch:
		return b, true
	default:
		return nil, false
	}
}

// Len returns the number of queued batches.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the capacity in batches.
func (q *Queue) Cap() int { return cap(q.ch) }

// FullCount returns how often Put found the queue full.
func (q *Queue) FullCount() uint64 { return q.fullCount.Load() }

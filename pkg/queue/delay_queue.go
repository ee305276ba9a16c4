package queue

import (
	"container/heap"
	"errors"
	"sync"
	"time"
)

// ErrTimedOut is returned by Get when no item became ready within the
// timeout.
var ErrTimedOut = errors.New("delay queue: timed out")

type entry[T any] struct {
	item    T
	release time.Time
	seq     uint64
}

type delayHeap[T any] []entry[T]

func (h delayHeap[T]) Len() int { return len(h) }
func (h delayHeap[T]) Less(i, j int) bool {
	if h[i].release.Equal(h[j].release) {
		return h[i].seq < h[j].seq
	}
	return h[i].release.Before(h[j].release)
}
func (h delayHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *delayHeap[T]) Push(x any) { *h = append(*h, x.(entry[T])) }

func (h *delayHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// DelayQueue releases items at their release time. Items with equal release
// times keep insertion order. Safe for concurrent use by one producer and
// one consumer (or more).
type DelayQueue[T any] struct {
	mu    sync.Mutex
	items delayHeap[T]
	seq   uint64
	wake  chan struct{}
}

func NewDelayQueue[T any]() *DelayQueue[T] {
	return &DelayQueue[T]{wake: make(chan struct{}, 1)}
}

// Put adds an item that becomes available at release.
func (q *DelayQueue[T]) Put(item T, release time.Time) {
	q.mu.Lock()
	q.seq++
	heap.Push(&q.items, entry[T]{item: item, release: release, seq: q.seq})
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Peek returns the head item and its release time without removing it.
func (q *DelayQueue[T]) Peek() (item T, release time.Time, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return item, time.Time{}, false
	}
	return q.items[0].item, q.items[0].release, true
}

// Len returns the number of queued items.
func (q *DelayQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Get blocks until the head's release time has passed, then removes and
// returns it. Returns ErrTimedOut when the timeout elapses without a ready
// item.
func (q *DelayQueue[T]) Get(timeout time.Duration) (T, error) {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		var wait time.Duration
		if len(q.items) > 0 {
			now := time.Now()
			if !q.items[0].release.After(now) {
				it := heap.Pop(&q.items).(entry[T])
				q.mu.Unlock()
				return it.item, nil
			}
			wait = q.items[0].release.Sub(now)
		} else {
			wait = time.Until(deadline)
		}
		q.mu.Unlock()

		if remaining := time.Until(deadline); remaining <= 0 {
			var zero T
			return zero, ErrTimedOut
		} else if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

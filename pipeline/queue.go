package pipeline

import (
	"container/heap"
	"sync"
	"time"
)

// pendingItem is ownership of one finished artifact awaiting transcription.
type pendingItem struct {
	startedAt time.Time
	segID     string
	artifact  string
}

type pendingHeap []pendingItem

func (h pendingHeap) Len() int            { return len(h) }
func (h pendingHeap) Less(i, j int) bool  { return h[i].startedAt.Before(h[j].startedAt) }
func (h pendingHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pendingHeap) Push(x any)         { *h = append(*h, x.(pendingItem)) }
func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// pendingQueue orders finished segments by startedAt. Ordering here only
// makes draining deterministic; the transcript ordering guarantee lives in
// the assembler.
type pendingQueue struct {
	mu     sync.Mutex
	items  pendingHeap
	notify chan struct{}
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{notify: make(chan struct{}, 1)}
}

func (q *pendingQueue) push(item pendingItem) {
	q.mu.Lock()
	heap.Push(&q.items, item)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pop blocks up to timeout for the earliest item. The timeout is what lets
// the worker loop re-check its shutdown condition.
func (q *pendingQueue) pop(timeout time.Duration) (pendingItem, bool) {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := heap.Pop(&q.items).(pendingItem)
			q.mu.Unlock()
			return item, true
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return pendingItem{}, false
		}
		select {
		case <-q.notify:
		case <-time.After(remaining):
		}
	}
}

func (q *pendingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// drain removes and returns everything queued, oldest first.
func (q *pendingQueue) drain() []pendingItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	var items []pendingItem
	for len(q.items) > 0 {
		items = append(items, heap.Pop(&q.items).(pendingItem))
	}
	return items
}

package buffer

import "container/heap"

// evictHeap is a max-heap on lastAccess, bounded to a fixed capacity. Pushing
// past capacity pops the most-recently-accessed entry, so after all
// candidates are pushed the heap holds exactly the `cap` least-recently-used
// ones: the eviction set.
type evictHeap struct {
	items []*block
	cap   int
}

func newEvictHeap(capacity int) *evictHeap {
	h := &evictHeap{cap: capacity}
	heap.Init(h)
	return h
}

// consider offers a clean-block candidate for eviction.
func (h *evictHeap) consider(b *block) {
	if h.cap <= 0 {
		return
	}
	if len(h.items) < h.cap {
		heap.Push(h, b)
		return
	}
	if b.lastAccess < h.items[0].lastAccess {
		heap.Pop(h)
		heap.Push(h, b)
	}
}

// blocks returns the selected eviction set, in no particular order.
func (h *evictHeap) blocks() []*block {
	return h.items
}

func (h *evictHeap) Len() int { return len(h.items) }

func (h *evictHeap) Less(i, j int) bool {
	// Max-heap: the most-recently-accessed (largest counter) sits at the
	// root so it's the first one evicted from the candidate set when a
	// smaller (older) candidate arrives.
	return h.items[i].lastAccess > h.items[j].lastAccess
}

func (h *evictHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *evictHeap) Push(x any) { h.items = append(h.items, x.(*block)) }

func (h *evictHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

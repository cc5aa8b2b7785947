package eikonal

import "container/heap"

// heapItem is one considered node with its tentative arrival time. seq
// records insertion order so equal times pop in insertion order, keeping
// the accept sequence stable and the solve bit-reproducible.
type heapItem struct {
	node int
	time float64
	seq  uint64
}

// nodeHeap is an index-addressable binary min-heap over grid nodes,
// ordered by tentative arrival time. The position map makes lowering a
// node's tentative time an O(log n) decrease-key instead of a linear scan.
type nodeHeap struct {
	items []heapItem
	pos   []int // node -> index in items, -1 when absent
	seq   uint64
}

func newNodeHeap(numNodes int) *nodeHeap {
	pos := make([]int, numNodes)
	for i := range pos {
		pos[i] = -1
	}
	return &nodeHeap{pos: pos}
}

func (h *nodeHeap) Len() int { return len(h.items) }

func (h *nodeHeap) Less(i, j int) bool {
	if h.items[i].time != h.items[j].time {
		return h.items[i].time < h.items[j].time
	}
	return h.items[i].seq < h.items[j].seq
}

func (h *nodeHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.pos[h.items[i].node] = i
	h.pos[h.items[j].node] = j
}

func (h *nodeHeap) Push(x any) {
	item := x.(heapItem)
	h.pos[item.node] = len(h.items)
	h.items = append(h.items, item)
}

func (h *nodeHeap) Pop() any {
	last := len(h.items) - 1
	item := h.items[last]
	h.items = h.items[:last]
	h.pos[item.node] = -1
	return item
}

// insert adds a node with its first tentative time.
func (h *nodeHeap) insert(node int, t float64) {
	h.seq++
	heap.Push(h, heapItem{node: node, time: t, seq: h.seq})
}

// decrease lowers the tentative time of an already-inserted node. The
// node keeps its original insertion sequence number.
func (h *nodeHeap) decrease(node int, t float64) {
	i := h.pos[node]
	h.items[i].time = t
	heap.Fix(h, i)
}

// popMin removes and returns the node with the globally smallest
// tentative time.
func (h *nodeHeap) popMin() (node int, t float64) {
	item := heap.Pop(h).(heapItem)
	return item.node, item.time
}

func (h *nodeHeap) empty() bool { return len(h.items) == 0 }

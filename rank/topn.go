package rank

import (
	"container/heap"
	"sort"
)

type candidate struct {
	pos   int
	score float64
}

// better 定义最终顺序：分数高者优先，同分时表位置靠前者优先。
func better(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.pos < b.pos
}

// minHeap 堆顶是当前最差的候选。
type minHeap []candidate

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topN 保留至多 n 个最优候选，内存与候选总数无关。
type topN struct {
	n int
	h minHeap
}

func newTopN(n int) *topN {
	capacity := n
	if capacity > 1024 {
		capacity = 1024
	}
	return &topN{n: n, h: make(minHeap, 0, capacity)}
}

func (t *topN) push(c candidate) {
	if len(t.h) < t.n {
		heap.Push(&t.h, c)
		return
	}
	if better(c, t.h[0]) {
		t.h[0] = c
		heap.Fix(&t.h, 0)
	}
}

func (t *topN) sorted() []candidate {
	out := make([]candidate, len(t.h))
	copy(out, t.h)
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out
}

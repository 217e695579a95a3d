package collapse

// candidate is a pending merge of two group roots, valid only while both
// roots still carry the versions it was scored against.
type candidate struct {
	score  float64
	a, b   int // local roots, a < b
	va, vb int
}

// candHeap orders candidates by score, then a, then b.
type candHeap []candidate

func (h candHeap) Len() int { return len(h) }

func (h candHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	if h[i].a != h[j].a {
		return h[i].a < h[j].a
	}
	return h[i].b < h[j].b
}

func (h candHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

package watershed

import "container/heap"

// item is a voxel waiting to be flooded
type item struct {
	priority float64
	index    int
}

// floodQueue is a min-heap on (priority, flat index)
type floodQueue []item

func (q floodQueue) Len() int { return len(q) }
func (q floodQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].index < q[j].index
}
func (q floodQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *floodQueue) Push(x any) { *q = append(*q, x.(item)) }

func (q *floodQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

func (q *floodQueue) push(priority float64, index int) {
	heap.Push(q, item{priority: priority, index: index})
}

func (q *floodQueue) pop() item { return heap.Pop(q).(item) }

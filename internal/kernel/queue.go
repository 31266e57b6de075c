// Copyright 2026 The Z6 Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kernel

import "container/heap"

// QueueItem is a unit of work scheduled to fire no earlier than Tick,
// ordered against same-tick items by Seq (its insertion sequence) so
// pops within a tick yield FIFO order, per spec.md §5's ordering
// guarantees.
type QueueItem struct {
	Tick Tick
	Seq  uint64
	Work any
}

// item is the internal heap element; it embeds QueueItem plus the
// index container/heap needs to support Remove/update in the future.
type item struct {
	QueueItem
	index int
}

type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].Tick != h[j].Tick {
		return h[i].Tick < h[j].Tick
	}
	return h[i].Seq < h[j].Seq
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// PriorityQueue is a min-heap of QueueItems keyed on (Tick, Seq), the
// priority event queue described in spec.md §4 component D.
type PriorityQueue struct {
	h       itemHeap
	nextSeq uint64
}

// NewPriorityQueue returns an empty queue.
func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{}
}

// Push inserts work scheduled for the given tick, assigning it the next
// insertion sequence so it sorts FIFO against other items at the same
// tick.
func (q *PriorityQueue) Push(tick Tick, work any) uint64 {
	seq := q.nextSeq
	q.nextSeq++
	heap.Push(&q.h, &item{QueueItem: QueueItem{Tick: tick, Seq: seq, Work: work}})
	return seq
}

// Peek returns the minimum item without removing it. ok is false if the
// queue is empty.
func (q *PriorityQueue) Peek() (QueueItem, bool) {
	if len(q.h) == 0 {
		return QueueItem{}, false
	}
	return q.h[0].QueueItem, true
}

// Pop removes and returns the minimum item. ok is false if the queue is
// empty.
func (q *PriorityQueue) Pop() (QueueItem, bool) {
	if len(q.h) == 0 {
		return QueueItem{}, false
	}
	it := heap.Pop(&q.h).(*item)
	return it.QueueItem, true
}

// PopUpTo pops and returns, in order, every item whose Tick is <= tick.
func (q *PriorityQueue) PopUpTo(tick Tick) []QueueItem {
	var out []QueueItem
	for {
		top, ok := q.Peek()
		if !ok || top.Tick > tick {
			break
		}
		popped, _ := q.Pop()
		out = append(out, popped)
	}
	return out
}

// Len returns the number of items currently queued.
func (q *PriorityQueue) Len() int { return len(q.h) }

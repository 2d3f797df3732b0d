package scheduler

import (
	"container/heap"
	"time"
)

// event is a pending fire in the timeline.
type event struct {
	// id is the alarm to fire.
	id string
	// fireAt is the instant the alarm is due.
	fireAt time.Time
}

// eventHeap implements container/heap.Interface ordered by fireAt, earliest first.
type eventHeap []event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].fireAt.Before(h[j].fireAt) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(event)) //nolint:forcetypeassert // Only events are pushed.
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]

	return x
}

// push adds an event, replacing any pending event of the same alarm.
func (h *eventHeap) push(e event) {
	h.remove(e.id)
	heap.Push(h, e)
}

// pop removes and returns the earliest event. The heap must not be empty.
func (h *eventHeap) pop() event {
	return heap.Pop(h).(event) //nolint:forcetypeassert // Only events are pushed.
}

// remove drops the pending event of the alarm and reports whether there was one.
func (h *eventHeap) remove(id string) bool {
	for i, e := range *h {
		if e.id == id {
			heap.Remove(h, i)

			return true
		}
	}

	return false
}

package cpu

import "container/heap"

// pendingInterrupt is one entry of the tick-keyed interrupt schedule.
type pendingInterrupt struct {
	tick    int
	payload int32
}

type intHeap []pendingInterrupt

func (h intHeap) Len() int            { return len(h) }
func (h intHeap) Less(i, j int) bool  { return h[i].tick < h[j].tick }
func (h intHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x any)         { *h = append(*h, x.(pendingInterrupt)) }
func (h *intHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Schedule is the tick-keyed interrupt queue: a finite mapping from tick
// number to input payload, admitted in strictly ascending tick order. Any
// ordered structure supporting min-extraction suffices (spec.md §9);
// container/heap is the stdlib one, and no pack repo ships a keyed
// priority-queue library to use instead.
type Schedule struct {
	h intHeap
}

// NewSchedule builds a schedule from tick->payload entries. Map keys are
// unique by construction, so no two entries share a tick.
func NewSchedule(entries map[int]int32) *Schedule {
	s := &Schedule{h: make(intHeap, 0, len(entries))}
	for tick, payload := range entries {
		heap.Push(&s.h, pendingInterrupt{tick: tick, payload: payload})
	}
	return s
}

// Empty reports whether the schedule has no pending entries.
func (s *Schedule) Empty() bool { return s.h.Len() == 0 }

// MinTick returns the smallest pending tick key, if any.
func (s *Schedule) MinTick() (int, bool) {
	if s.h.Len() == 0 {
		return 0, false
	}
	return s.h[0].tick, true
}

// Pop removes and returns the earliest-key pending interrupt.
func (s *Schedule) Pop() (pendingInterrupt, bool) {
	if s.h.Len() == 0 {
		return pendingInterrupt{}, false
	}
	return heap.Pop(&s.h).(pendingInterrupt), true
}

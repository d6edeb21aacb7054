package alarm

import "container/heap"

// alarmHeap orders alarms by trigger time, earliest first.
type alarmHeap []Alarm

func (h alarmHeap) Len() int           { return len(h) }
func (h alarmHeap) Less(i, j int) bool { return h[i].At.Before(h[j].At) }
func (h alarmHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *alarmHeap) Push(x any) {
	*h = append(*h, x.(Alarm))
}

func (h *alarmHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// heapReplace removes any alarm with the same key and pushes a.
func heapReplace(h *alarmHeap, a Alarm) {
	heapRemove(h, a.key())
	heap.Push(h, a)
}

func heapPop(h *alarmHeap) Alarm {
	return heap.Pop(h).(Alarm)
}

func heapRemove(h *alarmHeap, k alarmKey) bool {
	for i, a := range *h {
		if a.key() == k {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}

// snapshot returns the pending alarms in trigger order without mutating h.
func (h alarmHeap) snapshot() []Alarm {
	cp := make(alarmHeap, len(h))
	copy(cp, h)
	out := make([]Alarm, 0, len(cp))
	for cp.Len() > 0 {
		out = append(out, heapPop(&cp))
	}
	return out
}

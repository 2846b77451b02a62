package dev

import (
	"container/list"
	"sync"
)

// A workItem is one deferred callback, tagged with the device it belongs to.
type workItem struct {
	owner    *Device
	callback func()
}

// A WorkQueue is a FIFO of deferred callbacks that must run on the host's
// control loop instead of the caller's stack. Any goroutine may push;
// RunPending is invoked only from the control loop.
type WorkQueue struct {
	mu     sync.Mutex
	items  *list.List
	signal chan struct{}
}

// NewWorkQueue creates an empty WorkQueue.
func NewWorkQueue() *WorkQueue {
	q := new(WorkQueue)
	q.items = list.New()
	q.signal = make(chan struct{}, 1)
	return q
}

// Push appends a callback and wakes the control loop. Wakeups coalesce, so a
// burst of pushes delivers at least one.
func (q *WorkQueue) Push(owner *Device, callback func()) {
	q.mu.Lock()
	q.items.PushBack(workItem{owner: owner, callback: callback})
	q.mu.Unlock()

	q.wake()
}

// Signal returns the channel the control loop waits on. A receive means the
// queue was non-empty at some point since the last drain; the loop must call
// RunPending and treat an empty queue as a spurious wakeup.
func (q *WorkQueue) Signal() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued callbacks.
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	l := q.items.Len()
	q.mu.Unlock()

	return l
}

// RunPending drains up to limit callbacks and returns how many ran. A limit
// of 0 drains all callbacks queued at entry, but not ones pushed while
// draining, to bound latency. Callbacks may push more work; the queue wakes
// the control loop again if it is non-empty after the drain.
func (q *WorkQueue) RunPending(limit int) int {
	q.mu.Lock()
	n := q.items.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	q.mu.Unlock()

	for i := 0; i < n; i++ {
		q.mu.Lock()
		front := q.items.Front()
		if front == nil {
			q.mu.Unlock()
			return i
		}
		item := q.items.Remove(front).(workItem)
		q.mu.Unlock()

		item.callback()
	}

	if q.Len() > 0 {
		q.wake()
	}

	return n
}

func (q *WorkQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

package engine

import "container/heap"

type delayedCall struct {
	due float64
	seq uint64
	fn  func()
}

type callQueue []delayedCall

func (q callQueue) Len() int { return len(q) }

func (q callQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}

func (q callQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *callQueue) Push(x any) { *q = append(*q, x.(delayedCall)) }

func (q *callQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	old[n-1] = delayedCall{}
	*q = old[:n-1]
	return c
}

// Scheduler is a simulated-time call queue. Calls run on the frame loop, in
// due order, ties broken by scheduling order.
type Scheduler struct {
	now   float64
	seq   uint64
	queue callQueue
}

// NewScheduler creates an empty scheduler at time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// CallLater runs fn once delay simulated seconds have passed.
func (s *Scheduler) CallLater(delay float64, fn func()) {
	if delay < 0 {
		delay = 0
	}
	s.seq++
	heap.Push(&s.queue, delayedCall{due: s.now + delay, seq: s.seq, fn: fn})
}

// Advance moves the clock to now and runs every call that fell due.
// Calls scheduled by a running call for a time <= now also run.
func (s *Scheduler) Advance(now float64) int {
	s.now = now
	ran := 0
	for s.queue.Len() > 0 && s.queue[0].due <= now {
		c := heap.Pop(&s.queue).(delayedCall)
		c.fn()
		ran++
	}
	return ran
}

// Pending returns the number of queued calls.
func (s *Scheduler) Pending() int {
	return s.queue.Len()
}

// Now returns the scheduler clock.
func (s *Scheduler) Now() float64 {
	return s.now
}

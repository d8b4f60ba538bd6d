package async

import (
	"container/heap"
	"sync"
	"time"
)

// sleeper is one suspended timer registration.
type sleeper struct {
	at    time.Time
	waker *Waker
	index int // for heap interface
}

// sleeperHeap implements heap.Interface ordered by deadline.
type sleeperHeap []*sleeper

func (h sleeperHeap) Len() int           { return len(h) }
func (h sleeperHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h sleeperHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *sleeperHeap) Push(x any) {
	n := len(*h)
	item := x.(*sleeper)
	item.index = n
	*h = append(*h, item)
}

func (h *sleeperHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

func (h *sleeperHeap) Peek() *sleeper {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// reactor tracks timer registrations for one executor. Unlike a free-running
// timer goroutine, it is advanced by the executor's own loop: due wakers fire
// right before tasks are dequeued, and the earliest deadline bounds how long
// the executor may park while idle.
type reactor struct {
	mu       sync.Mutex
	sleepers sleeperHeap
}

func newReactor() *reactor {
	r := &reactor{sleepers: make(sleeperHeap, 0)}
	heap.Init(&r.sleepers)
	return r
}

// add registers waker to fire once now >= at.
func (r *reactor) add(w *Waker, at time.Time) {
	r.mu.Lock()
	heap.Push(&r.sleepers, &sleeper{at: at, waker: w})
	r.mu.Unlock()
}

// advance wakes every sleeper whose deadline has passed and reports how many
// fired. Wakers are invoked outside the lock.
func (r *reactor) advance(now time.Time) int {
	r.mu.Lock()
	var due []*sleeper
	for r.sleepers.Len() > 0 {
		item := r.sleepers.Peek()
		if item.at.After(now) {
			break
		}
		heap.Pop(&r.sleepers)
		due = append(due, item)
	}

	// Registrations of cancelled or finished tasks are dead weight: they
	// retain the task through its waker and bound the idle park on a
	// deadline nobody is waiting for.
	kept := r.sleepers[:0]
	for _, item := range r.sleepers {
		if item.waker.terminal() {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) != len(r.sleepers) {
		for i := len(kept); i < len(r.sleepers); i++ {
			r.sleepers[i] = nil
		}
		r.sleepers = kept
		heap.Init(&r.sleepers)
	}
	r.mu.Unlock()

	for _, item := range due {
		item.waker.Wake()
	}
	return len(due)
}

// nextDeadline reports the earliest pending deadline, if any.
func (r *reactor) nextDeadline() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.sleepers.Peek()
	if item == nil {
		return time.Time{}, false
	}
	return item.at, true
}

func (r *reactor) pendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sleepers)
}

// =============================================================================
// Timer futures
// =============================================================================

// SleepFuture completes once its deadline has passed.
type SleepFuture struct {
	at time.Time
}

// Sleep returns a future that completes after d, measured from now.
// It suspends the polling task; the hosting OS-level task is free to run
// other work in the meantime.
func Sleep(d time.Duration) *SleepFuture {
	return &SleepFuture{at: time.Now().Add(d)}
}

// SleepUntil returns a future that completes once at has passed.
func SleepUntil(at time.Time) *SleepFuture {
	return &SleepFuture{at: at}
}

func (s *SleepFuture) Poll(cx *Context) (struct{}, bool) {
	if !time.Now().Before(s.at) {
		return struct{}{}, true
	}
	// Re-registering on every poll can leave a stale entry behind if the
	// task is woken early by another source. The waker coalesces, so the
	// worst case is one redundant poll.
	cx.reactor.add(cx.Waker(), s.at)
	return struct{}{}, false
}

// yieldNow suspends exactly once, handing the run queue back to the executor.
type yieldNow struct {
	polled bool
}

// YieldNow returns a future that suspends once and is immediately re-queued,
// letting every other queued task run a step first.
func YieldNow() Future[struct{}] {
	return &yieldNow{}
}

func (y *yieldNow) Poll(cx *Context) (struct{}, bool) {
	if y.polled {
		return struct{}{}, true
	}
	y.polled = true
	cx.Waker().Wake()
	return struct{}{}, false
}

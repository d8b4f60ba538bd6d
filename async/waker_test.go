package async

import (
	"sync"
	"testing"
)

// TestWaker_CoalescesRepeatedWakes tests that N wakes before the next poll
// produce exactly one re-queue, not N duplicate polls.
func TestWaker_CoalescesRepeatedWakes(t *testing.T) {
	e := newTestExecutor(nil)

	wakers := make(chan *Waker, 1)
	fut := &suspendOnce{value: 1, wakerOut: wakers}
	Spawn(e, fut)
	e.RunUntilStalled()

	w := <-wakers
	for i := 0; i < 8; i++ {
		w.Wake()
	}
	e.RunUntilStalled()

	// First poll suspended, the coalesced wake burst buys exactly one more.
	if fut.polls != 2 {
		t.Fatalf("polls = %d, want 2", fut.polls)
	}
}

// TestWaker_ConcurrentWakesSingleRequeue tests coalescing under concurrent
// invocation from many goroutines, as wakes from timer or interrupt-adjacent
// contexts would arrive.
func TestWaker_ConcurrentWakesSingleRequeue(t *testing.T) {
	e := newTestExecutor(nil)

	wakers := make(chan *Waker, 1)
	fut := &suspendOnce{value: 1, wakerOut: wakers}
	Spawn(e, fut)
	e.RunUntilStalled()

	w := <-wakers
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Wake()
		}()
	}
	wg.Wait()
	e.RunUntilStalled()

	if fut.polls != 2 {
		t.Fatalf("polls = %d, want 2", fut.polls)
	}
	if depth := e.QueuedTaskCount(); depth != 0 {
		t.Fatalf("queue depth = %d after drain, duplicate re-queues happened", depth)
	}
}

// TestWaker_WakeDuringPollRequeuesOnce tests the mid-poll race: a wake that
// lands while the task is inside a poll step must not be lost, and must not
// duplicate either.
func TestWaker_WakeDuringPollRequeuesOnce(t *testing.T) {
	e := newTestExecutor(nil)

	polls := 0
	fut := FutureFunc[int](func(cx *Context) (int, bool) {
		polls++
		if polls == 1 {
			// Fire the waker while we are still being polled, several
			// times; then suspend. The executor must re-queue us once.
			cx.Waker().Wake()
			cx.Waker().Wake()
			cx.Waker().Wake()
			return 0, false
		}
		return polls, true
	})
	h := Spawn(e, fut)
	e.RunUntilStalled()

	if polls != 2 {
		t.Fatalf("polls = %d, want 2 (one redundant poll, no lost wakeup)", polls)
	}
	if got := h.State(); got != TaskReady {
		t.Fatalf("state = %v, want ready", got)
	}
}

// TestWaker_WakeAfterCompletionIsNoop tests that stale wakers are harmless.
func TestWaker_WakeAfterCompletionIsNoop(t *testing.T) {
	e := newTestExecutor(nil)

	wakers := make(chan *Waker, 1)
	h := Spawn(e, &suspendOnce{value: 3, wakerOut: wakers})
	e.RunUntilStalled()

	w := <-wakers
	w.Wake()
	e.RunUntilStalled()
	if got := h.State(); got != TaskReady {
		t.Fatalf("state = %v, want ready", got)
	}

	// The task is done; its waker must now be inert.
	w.Wake()
	e.RunUntilStalled()
	if depth := e.QueuedTaskCount(); depth != 0 {
		t.Fatalf("stale wake re-queued a finished task, depth = %d", depth)
	}

	var nilWaker *Waker
	nilWaker.Wake() // must not crash
}

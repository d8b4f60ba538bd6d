package async

// Task lifecycle states. Transitions are driven by atomic compare-and-swap so
// that Wake may race with the run loop without locks:
//
//	Queued -> Polling -> {Pending, Queued (via Notified), Ready, Panicked}
//	Pending -> Queued            (Wake)
//	Polling -> Notified          (Wake arrived mid-poll)
//	Cancelled                    (observed at dequeue)
const (
	stateQueued   int32 = iota // in the run queue, waiting for a poll
	statePolling               // a poll step is executing right now
	stateNotified              // woken during the poll, re-queue after the step
	statePending               // suspended, waiting for its waker
	stateReady
	statePanicked
	stateCancelled
)

// Waker re-enqueues one specific task into its executor's run queue.
//
// Wake is safe to invoke from any goroutine, including ones entirely outside
// the cooperative context (timer callbacks, other OS-level tasks). Invoking it
// multiple times before the task is next polled coalesces into a single
// re-queue. Waking a completed task is a no-op.
type Waker struct {
	exec *Executor
	task *task
}

// terminal reports whether the task reached a state this waker can never
// move it out of.
func (w *Waker) terminal() bool {
	switch w.task.state.Load() {
	case stateReady, statePanicked, stateCancelled:
		return true
	}
	return false
}

// Wake schedules the task to be polled again.
func (w *Waker) Wake() {
	if w == nil || w.task == nil {
		return
	}
	t := w.task
	for {
		switch t.state.Load() {
		case statePending:
			if t.state.CompareAndSwap(statePending, stateQueued) {
				w.exec.enqueue(t)
				return
			}
		case statePolling:
			// The poll step is mid-flight. Mark it notified so the run
			// loop re-queues it instead of suspending; a lost wakeup is
			// never acceptable, one redundant poll is.
			if t.state.CompareAndSwap(statePolling, stateNotified) {
				return
			}
		default:
			// Queued, already notified, or terminal: coalesce to nothing.
			return
		}
	}
}

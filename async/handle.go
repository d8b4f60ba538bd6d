package async

import (
	"context"
	"errors"
	"fmt"
)

// ErrTaskCancelled is returned by Join when the task was cancelled before it
// produced a value.
var ErrTaskCancelled = errors.New("async: task cancelled")

// TaskFault is a panic caught at a task's poll boundary. It satisfies error
// so a joiner can propagate it; tasks without a joiner only reach the
// configured PanicHandler.
type TaskFault struct {
	TaskID   uint64
	TaskName string
	Value    any    // the recovered panic value
	Stack    []byte // stack trace captured at the fault
}

func (f *TaskFault) Error() string {
	return fmt.Sprintf("async: task %d %q panicked: %v", f.TaskID, f.TaskName, f.Value)
}

// TaskState is the externally visible lifecycle state of a spawned task.
type TaskState int32

const (
	TaskQueued    TaskState = TaskState(stateQueued)
	TaskPolling   TaskState = TaskState(statePolling)
	TaskPending   TaskState = TaskState(statePending)
	TaskReady     TaskState = TaskState(stateReady)
	TaskPanicked  TaskState = TaskState(statePanicked)
	TaskCancelled TaskState = TaskState(stateCancelled)
)

func (s TaskState) String() string {
	switch s {
	case TaskQueued:
		return "queued"
	case TaskPolling, TaskState(stateNotified):
		return "polling"
	case TaskPending:
		return "pending"
	case TaskReady:
		return "ready"
	case TaskPanicked:
		return "panicked"
	case TaskCancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

// Result carries a joined task's value or the error it terminated with.
type Result[T any] struct {
	Value T
	Err   error
}

// JoinHandle is a cancellable, awaitable reference to a spawned task. It
// holds no ownership of the task's computation; discarding a handle without
// joining simply detaches the task. With no destructor to hook, a handle
// falling out of scope cannot cancel anything: where a scoped-ownership
// runtime cancels on handle drop, here the task keeps running unless Cancel
// is called explicitly.
type JoinHandle[T any] struct {
	exec *Executor
	task *task
}

// ID returns the task's executor-unique identity.
func (h *JoinHandle[T]) ID() uint64 { return h.task.id }

// State reports the task's current lifecycle state.
func (h *JoinHandle[T]) State() TaskState {
	s := h.task.state.Load()
	if s == stateNotified {
		return TaskPolling
	}
	return TaskState(s)
}

// Done reports whether the task has reached a terminal state.
func (h *JoinHandle[T]) Done() bool {
	_, terminal := h.task.peek()
	return terminal
}

// Join returns a future that suspends the calling task until this task
// reaches Ready, Panicked or Cancelled, then yields the value or the fault.
// A caught TaskFault is propagated to the joiner explicitly; this is distinct
// from the executor's isolation, which only keeps the fault away from
// sibling tasks.
//
// At most one task may join a handle.
func (h *JoinHandle[T]) Join() Future[Result[T]] {
	return FutureFunc[Result[T]](func(cx *Context) (Result[T], bool) {
		t := h.task
		t.mu.Lock()
		out := t.outcome
		if out == nil {
			t.joinWaker = cx.Waker()
			t.mu.Unlock()
			return Result[T]{}, false
		}
		t.mu.Unlock()

		v, err := resultFromOutcome[T](out)
		return Result[T]{Value: v, Err: err}, true
	})
}

// JoinBlocking waits for the task from outside the executor's run loop.
// It must not be called from a task on the same executor; use Join there.
func (h *JoinHandle[T]) JoinBlocking(ctx context.Context) (T, error) {
	select {
	case <-h.task.done:
		out, _ := h.task.peek()
		return resultFromOutcome[T](out)
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel requests cooperative cancellation. A task that is Queued or Pending
// is dropped at its next dequeue; a task already inside a poll step runs to
// its next suspension point first. A task that already completed keeps its
// result. Safe to call from any goroutine, and more than once.
func (h *JoinHandle[T]) Cancel() {
	h.task.cancelRequested.Store(true)
	// If the task is suspended, queue it so the request is observed
	// promptly instead of waiting for an unrelated wake.
	(&Waker{exec: h.exec, task: h.task}).Wake()
}

// Detach documents the intent to let the task run unobserved. The task keeps
// running; the handle may still be used afterwards.
func (h *JoinHandle[T]) Detach() {}

func resultFromOutcome[T any](out *outcome) (T, error) {
	var zero T
	switch {
	case out.cancelled:
		return zero, ErrTaskCancelled
	case out.fault != nil:
		return zero, out.fault
	default:
		if out.value == nil {
			return zero, nil
		}
		return out.value.(T), nil
	}
}

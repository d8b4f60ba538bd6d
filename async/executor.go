package async

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// task is the executor-internal representation of a spawned computation.
// The executor's run queue owns it while runnable; JoinHandle keeps only a
// back reference for join and cancel.
type task struct {
	id   uint64
	name string

	// Type-erased poll step. Released once the task reaches a terminal
	// state so the computation and everything it captured can be collected.
	step func(cx *Context) (any, bool)

	state           atomic.Int32
	cancelRequested atomic.Bool

	mu        sync.Mutex
	outcome   *outcome // nil until terminal
	joinWaker *Waker   // at most one joiner
	done      chan struct{}
}

// outcome is the terminal result of a task: exactly one field is meaningful.
type outcome struct {
	value     any
	fault     *TaskFault
	cancelled bool
}

func (t *task) peek() (*outcome, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome, t.outcome != nil
}

// Executor multiplexes many cooperative tasks over one logical execution
// context. Tasks are polled in FIFO order among those simultaneously queued;
// a task that suspends is not polled again until its Waker fires.
//
// The run loop itself is single-threaded: RunUntilStalled, Run and BlockOn
// must be driven from one goroutine. Wakers, Spawn and Cancel are safe to
// call from anywhere.
type Executor struct {
	name string

	mu  sync.Mutex
	run []*task

	// Coalesced run-queue signal. A single buffered slot is enough: the
	// parked loop re-scans the whole queue after every wakeup.
	signal chan struct{}

	reactor *reactor
	nextID  atomic.Uint64

	panicHandler PanicHandler
	metrics      Metrics
	logger       Logger
}

// NewExecutor creates an executor with default collaborators.
func NewExecutor(name string) *Executor {
	return NewExecutorWithConfig(name, DefaultExecutorConfig())
}

// NewExecutorWithConfig creates an executor with the given collaborators.
// Missing config fields fall back to defaults.
func NewExecutorWithConfig(name string, config *ExecutorConfig) *Executor {
	e := &Executor{
		name:    name,
		run:     make([]*task, 0, 16),
		signal:  make(chan struct{}, 1),
		reactor: newReactor(),
	}
	if config != nil {
		e.panicHandler = config.PanicHandler
		e.metrics = config.Metrics
		e.logger = config.Logger
	}
	if e.panicHandler == nil {
		e.panicHandler = &DefaultPanicHandler{}
	}
	if e.metrics == nil {
		e.metrics = &NilMetrics{}
	}
	if e.logger == nil {
		e.logger = NewNoOpLogger()
	}
	return e
}

// Name returns the executor's diagnostic name.
func (e *Executor) Name() string { return e.name }

// Spawn enqueues fut as a new task and returns immediately.
func Spawn[T any](e *Executor, fut Future[T]) *JoinHandle[T] {
	return SpawnNamed(e, "", fut)
}

// SpawnNamed enqueues fut with a diagnostic name used in fault reports.
func SpawnNamed[T any](e *Executor, name string, fut Future[T]) *JoinHandle[T] {
	t := &task{
		id:   e.nextID.Add(1),
		name: name,
		done: make(chan struct{}),
		step: func(cx *Context) (any, bool) {
			v, ok := fut.Poll(cx)
			return v, ok
		},
	}
	t.state.Store(stateQueued)
	e.logger.Debug("task spawned", F("task", t.id), F("name", name))
	e.enqueue(t)
	return &JoinHandle[T]{exec: e, task: t}
}

func (e *Executor) enqueue(t *task) {
	e.mu.Lock()
	e.run = append(e.run, t)
	depth := len(e.run)
	e.mu.Unlock()

	e.metrics.RecordQueueDepth(e.name, depth)

	select {
	case e.signal <- struct{}{}:
	default:
		// Signal already pending; the loop will re-scan anyway.
	}
}

func (e *Executor) dequeue() *task {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.run) == 0 {
		return nil
	}
	t := e.run[0]
	e.run[0] = nil // release the reference held by the backing array
	e.run = e.run[1:]
	if len(e.run) == 0 && cap(e.run) > 64 {
		e.run = make([]*task, 0, 16)
	}
	return t
}

// QueuedTaskCount reports the current run-queue depth.
func (e *Executor) QueuedTaskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.run)
}

// SleeperCount reports how many timer registrations are pending.
func (e *Executor) SleeperCount() int {
	return e.reactor.pendingCount()
}

// RunUntilStalled fires due timers and polls queued tasks until no task is
// immediately runnable. It never blocks.
func (e *Executor) RunUntilStalled() {
	for {
		e.reactor.advance(time.Now())
		t := e.dequeue()
		if t == nil {
			return
		}
		e.pollTask(t)
	}
}

// Run drives the executor until ctx is cancelled, parking between bursts of
// work so an idle executor consumes no CPU.
func (e *Executor) Run(ctx context.Context) error {
	for {
		e.RunUntilStalled()
		if !e.park(ctx.Done()) {
			return ctx.Err()
		}
	}
}

// BlockOn drives the executor until fut completes, returning its value or
// the fault it raised. Other previously spawned tasks keep making progress
// while fut is pending.
func BlockOn[T any](e *Executor, fut Future[T]) (T, error) {
	h := SpawnNamed(e, "block_on", fut)
	for {
		e.RunUntilStalled()
		if out, terminal := h.task.peek(); terminal {
			return resultFromOutcome[T](out)
		}
		e.park(nil)
	}
}

// park yields the hosting OS-level context until there is work to do: either
// the run-queue signal fires or the earliest timer deadline passes. This is
// the idle path; it must never busy-spin, and it must not oversleep past a
// pending deadline. Returns false if stop fired.
func (e *Executor) park(stop <-chan struct{}) bool {
	var timerC <-chan time.Time
	if at, ok := e.reactor.nextDeadline(); ok {
		d := time.Until(at)
		if d < 0 {
			d = 0
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		timerC = timer.C
	}

	select {
	case <-e.signal:
		return true
	case <-timerC:
		return true
	case <-stop:
		return false
	}
}

// pollTask runs one step of t and performs the resulting state transition.
func (e *Executor) pollTask(t *task) {
	if t.cancelRequested.Load() {
		t.state.Store(stateCancelled)
		e.metrics.RecordTaskCancelled(e.name)
		e.logger.Debug("task cancelled", F("task", t.id))
		e.finish(t, &outcome{cancelled: true})
		return
	}

	t.state.Store(statePolling)
	cx := &Context{
		waker:   &Waker{exec: e, task: t},
		reactor: e.reactor,
	}

	start := time.Now()
	value, completed, fault := e.pollStep(t, cx)
	e.metrics.RecordPollDuration(e.name, time.Since(start))

	switch {
	case fault != nil:
		// The fault is contained here. It reaches the diagnostic channel
		// and any joiner, never the run loop or sibling tasks.
		t.state.Store(statePanicked)
		e.metrics.RecordTaskPanic(e.name)
		e.panicHandler.HandlePanic(t.id, t.name, fault.Value, fault.Stack)
		e.finish(t, &outcome{fault: fault})

	case completed:
		t.state.Store(stateReady)
		e.finish(t, &outcome{value: value})

	default:
		// Suspended. If a wake landed during the poll step the CAS loses
		// against stateNotified and the task goes straight back on the
		// queue instead of suspending.
		if !t.state.CompareAndSwap(statePolling, statePending) {
			t.state.Store(stateQueued)
			e.enqueue(t)
		}
	}
}

// pollStep invokes the task's poll step under a recover boundary, converting
// a panic into a TaskFault before it can unwind into the executor's frame.
func (e *Executor) pollStep(t *task, cx *Context) (value any, completed bool, fault *TaskFault) {
	defer func() {
		if rec := recover(); rec != nil {
			fault = &TaskFault{
				TaskID:   t.id,
				TaskName: t.name,
				Value:    rec,
				Stack:    debug.Stack(),
			}
		}
	}()
	value, completed = t.step(cx)
	return
}

// finish records the terminal outcome and wakes the joiner, if any.
func (e *Executor) finish(t *task, out *outcome) {
	t.mu.Lock()
	t.outcome = out
	w := t.joinWaker
	t.joinWaker = nil
	t.step = nil // release the captured computation
	close(t.done)
	t.mu.Unlock()

	w.Wake()
}

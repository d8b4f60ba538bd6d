// Package rtos maps the controller's preemptive scheduling substrate onto
// goroutines. A Task is one scheduled unit: it has an identity, a diagnostic
// name, a notification slot, and a private store for task-local slots.
//
// Tasks should be long-living; starting many short tasks is usually a sign
// the work belongs on an async executor inside one task instead.
package rtos

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Priority mirrors the scheduling priorities of the underlying kernel.
// The Go scheduler does not honor them; they are carried as metadata so
// diagnostics and ports of controller code keep their declared intent.
type Priority uint32

const (
	PriorityLow     Priority = 1
	PriorityDefault Priority = 8
	PriorityHigh    Priority = 16
)

// State is the lifecycle state of a scheduled unit.
type State int32

const (
	StateRunning State = iota
	StateFinished
)

var nextTaskID atomic.Uint64

// Task is one scheduled unit. Created only through Spawn or Builder.Spawn.
type Task struct {
	id       uint64
	name     string
	priority Priority

	state atomic.Int32
	done  chan struct{}

	// Coalescing notification slot, see Notify.
	notifyCh    chan struct{}
	notifyCount atomic.Uint32

	// Task-local slot storage. Only the owning unit's goroutine touches
	// this map, so it needs no lock; the local package enforces that by
	// resolving the task from the unit's own context.
	locals map[any]any
}

type taskKeyType struct{}

var taskKey taskKeyType

// Spawn creates a scheduled unit running fn with default settings.
// The context passed to fn identifies the unit and should flow through
// everything the unit calls.
func Spawn(fn func(ctx context.Context)) *Task {
	return NewBuilder().Spawn(fn)
}

// Current returns the scheduled unit owning ctx, or false when ctx did not
// originate from a spawned unit.
func Current(ctx context.Context) (*Task, bool) {
	t, ok := ctx.Value(taskKey).(*Task)
	return t, ok
}

// Builder configures a scheduled unit before spawning it.
type Builder struct {
	name     string
	priority Priority
}

// NewBuilder creates a builder with default name and priority.
func NewBuilder() *Builder {
	return &Builder{name: "<unnamed>", priority: PriorityDefault}
}

// Name sets the unit's diagnostic name.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Priority sets the unit's declared priority.
func (b *Builder) Priority(p Priority) *Builder {
	b.priority = p
	return b
}

// Spawn starts the unit. fn runs on a dedicated goroutine; a panic escaping
// fn is not contained here (the async executor is the isolation boundary for
// cooperative work) and will take the process down, matching kernel behavior
// for a crashed task.
func (b *Builder) Spawn(fn func(ctx context.Context)) *Task {
	t := &Task{
		id:       nextTaskID.Add(1),
		name:     b.name,
		priority: b.priority,
		done:     make(chan struct{}),
		notifyCh: make(chan struct{}, 1),
		locals:   make(map[any]any),
	}
	t.state.Store(int32(StateRunning))

	ctx := context.WithValue(context.Background(), taskKey, t)
	go func() {
		defer func() {
			t.state.Store(int32(StateFinished))
			close(t.done)
		}()
		fn(ctx)
	}()

	return t
}

// ID returns the unit's process-unique identity.
func (t *Task) ID() uint64 { return t.id }

// Name returns the unit's diagnostic name.
func (t *Task) Name() string { return t.name }

// Priority returns the unit's declared priority.
func (t *Task) Priority() Priority { return t.priority }

// State reports whether the unit is still running.
func (t *Task) State() State { return State(t.state.Load()) }

// Join blocks until the unit finishes or ctx is done.
func (t *Task) Join(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================
// Local slot storage (used by the rtos/local package)
// =============================================================================

// LocalLoad reads a task-local slot. It must only be called from the unit's
// own goroutine; the local package guarantees that.
func (t *Task) LocalLoad(key any) (any, bool) {
	v, ok := t.locals[key]
	return v, ok
}

// LocalStore writes a task-local slot. Owner-goroutine only.
func (t *Task) LocalStore(key, value any) {
	t.locals[key] = value
}

// LocalDelete removes a task-local slot, returning the removed value.
// Owner-goroutine only.
func (t *Task) LocalDelete(key any) (any, bool) {
	v, ok := t.locals[key]
	if ok {
		delete(t.locals, key)
	}
	return v, ok
}

// =============================================================================
// Clock
// =============================================================================

var startTime = time.Now()

// Millis returns the number of milliseconds since program start, the
// controller's uptime clock.
func Millis() uint32 {
	return uint32(time.Since(startTime) / time.Millisecond)
}

// Delay blocks the current scheduled unit for the given duration. Inside
// async code use the executor's sleep future instead, so sibling tasks keep
// running.
func Delay(d time.Duration) {
	time.Sleep(d)
}

var errNotATask = errors.New("rtos: context does not belong to a scheduled unit")

// Package robotruntime is an embedded runtime layer for a competition
// robotics controller: a cooperative async executor running atop the
// controller's preemptive scheduling substrate, task-local storage, and an
// exclusive ownership registry for physical ports.
//
// # Quick Start
//
// Spawn a scheduled unit and drive async robot logic inside it:
//
//	rtos.Spawn(func(ctx context.Context) {
//		value, err := robotruntime.BlockOn(ctx, async.FutureFunc[int](program))
//		...
//	})
//
// Claim hardware before building device wrappers:
//
//	port, err := peripherals.Default().TakeSmartPort(3)
//	if err != nil {
//		// port 3 is already owned by another driver
//	}
//	defer port.Close()
//
// # Key Concepts
//
// Executor: multiplexes many cooperative tasks over one logical execution
// context. Tasks suspend at await points and are resumed by Wakers; a
// panicking task is isolated at its poll boundary and never takes sibling
// tasks down.
//
// Scheduled unit (rtos.Task): one preemptively scheduled context. Each unit
// hosting async work gets its own executor, held in a task-local slot, so
// units never contend on a shared run queue.
//
// Port registry: the single source of truth for which smart and ADI ports
// are claimed. Exclusive handles release their claim on Close.
//
// # Threading
//
// An executor's run loop is single-threaded, but Wakers, Spawn and Cancel
// may be invoked from any goroutine, including timer callbacks and other
// scheduled units. The port registry is safe to use from anywhere.
package robotruntime

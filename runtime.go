package robotruntime

import (
	"context"
	"sync"
	"time"

	"github.com/vexgo/go-robot-runtime/async"
	"github.com/vexgo/go-robot-runtime/rtos"
	"github.com/vexgo/go-robot-runtime/rtos/local"
)

var (
	configMu      sync.Mutex
	defaultConfig = async.DefaultExecutorConfig()
)

// Configure sets the collaborators used for executors created by this
// facade from now on. Call it once at program start, before spawning units.
func Configure(cfg *async.ExecutorConfig) {
	configMu.Lock()
	defer configMu.Unlock()
	if cfg != nil {
		defaultConfig = cfg
	}
}

// executorCell holds one executor per scheduled unit. Keeping the executor
// in a task-local slot means every unit that runs async work gets its own
// run queue, and the waker bridge is the only cross-unit path.
var executorCell = local.NewCell(func() *async.Executor {
	configMu.Lock()
	cfg := defaultConfig
	configMu.Unlock()
	return async.NewExecutorWithConfig("runtime", cfg)
})

// Executor returns the calling unit's executor, creating it on first use.
func Executor(ctx context.Context) (*async.Executor, error) {
	return executorCell.Get(ctx)
}

// Spawn enqueues fut on the calling unit's executor and returns its handle.
// The task starts making progress once the unit drives its executor with
// BlockOn or Run.
func Spawn[T any](ctx context.Context, fut async.Future[T]) (*async.JoinHandle[T], error) {
	e, err := Executor(ctx)
	if err != nil {
		return nil, err
	}
	return async.Spawn(e, fut), nil
}

// BlockOn drives the calling unit's executor until fut completes.
func BlockOn[T any](ctx context.Context, fut async.Future[T]) (T, error) {
	e, err := Executor(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return async.BlockOn(e, fut)
}

// Run drives the calling unit's executor until ctx is cancelled, for units
// that only host spawned tasks and have no root future of their own.
func Run(ctx context.Context) error {
	e, err := Executor(ctx)
	if err != nil {
		return err
	}
	return e.Run(ctx)
}

// Sleep returns a future completing after d. Shorthand for async.Sleep.
func Sleep(d time.Duration) *async.SleepFuture {
	return async.Sleep(d)
}

// SpawnUnit starts a scheduled unit named name whose body immediately drives
// fn to completion on the unit's own executor. It is the common way to put a
// long-running async program on its own preemptive context.
func SpawnUnit[T any](name string, fn async.Future[T]) *rtos.Task {
	return rtos.NewBuilder().Name(name).Spawn(func(ctx context.Context) {
		// The unit's outcome is observable through executor metrics and
		// the panic handler; BlockOn's error is deliberately not re-raised
		// here so a faulting program cannot crash the hosting unit.
		_, _ = BlockOn(ctx, fn)
	})
}

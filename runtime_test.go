package robotruntime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vexgo/go-robot-runtime/async"
	"github.com/vexgo/go-robot-runtime/rtos"
	"github.com/vexgo/go-robot-runtime/rtos/local"
)

func joinUnit(t *testing.T, unit *rtos.Task) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := unit.Join(ctx); err != nil {
		t.Fatalf("unit %q did not finish: %v", unit.Name(), err)
	}
}

// TestExecutor_OnePerUnit tests that each scheduled unit lazily gets its own
// executor, stable across calls within the unit.
func TestExecutor_OnePerUnit(t *testing.T) {
	executors := make(chan *async.Executor, 3)

	first := rtos.Spawn(func(ctx context.Context) {
		a, err := Executor(ctx)
		if err != nil {
			t.Errorf("Executor: %v", err)
			return
		}
		b, err := Executor(ctx)
		if err != nil {
			t.Errorf("Executor: %v", err)
			return
		}
		executors <- a
		executors <- b
	})
	second := rtos.Spawn(func(ctx context.Context) {
		e, err := Executor(ctx)
		if err != nil {
			t.Errorf("Executor: %v", err)
			return
		}
		executors <- e
	})
	joinUnit(t, first)
	joinUnit(t, second)

	a, b, other := <-executors, <-executors, <-executors
	if a != b {
		t.Fatal("repeated lookups within a unit returned different executors")
	}
	if a == other {
		t.Fatal("two units share one executor")
	}
}

// TestExecutor_OutsideUnitFails tests the facade's guard against contexts
// that do not belong to a scheduled unit.
func TestExecutor_OutsideUnitFails(t *testing.T) {
	if _, err := Executor(context.Background()); !errors.Is(err, local.ErrNoTask) {
		t.Fatalf("err = %v, want local.ErrNoTask", err)
	}
	if _, err := Spawn(context.Background(), async.Ready(1)); !errors.Is(err, local.ErrNoTask) {
		t.Fatalf("Spawn err = %v, want local.ErrNoTask", err)
	}
	if _, err := BlockOn(context.Background(), async.Ready(1)); !errors.Is(err, local.ErrNoTask) {
		t.Fatalf("BlockOn err = %v, want local.ErrNoTask", err)
	}
}

// TestBlockOn_DrivesSpawnedTasks tests the facade's spawn/drive interplay
// inside one unit.
func TestBlockOn_DrivesSpawnedTasks(t *testing.T) {
	results := make(chan int, 1)

	unit := rtos.Spawn(func(ctx context.Context) {
		h, err := Spawn(ctx, async.Ready(41))
		if err != nil {
			t.Errorf("Spawn: %v", err)
			return
		}
		r, err := BlockOn(ctx, h.Join())
		if err != nil {
			t.Errorf("BlockOn: %v", err)
			return
		}
		if r.Err != nil {
			t.Errorf("join err: %v", r.Err)
			return
		}
		results <- r.Value + 1
	})
	joinUnit(t, unit)

	if v := <-results; v != 42 {
		t.Fatalf("value = %d, want 42", v)
	}
}

// TestSleep_InsideUnit tests the facade sleep shorthand end to end.
func TestSleep_InsideUnit(t *testing.T) {
	unit := rtos.Spawn(func(ctx context.Context) {
		start := time.Now()
		if _, err := BlockOn(ctx, Sleep(30*time.Millisecond)); err != nil {
			t.Errorf("BlockOn: %v", err)
			return
		}
		if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
			t.Errorf("woke after %v, before the deadline", elapsed)
		}
	})
	joinUnit(t, unit)
}

// TestSpawnUnit_RunsFutureToCompletion tests the unit-hosting helper.
func TestSpawnUnit_RunsFutureToCompletion(t *testing.T) {
	done := make(chan int, 1)
	unit := SpawnUnit("auton", async.FutureFunc[int](func(cx *async.Context) (int, bool) {
		done <- 7
		return 7, true
	}))

	if unit.Name() != "auton" {
		t.Fatalf("unit name = %q, want auton", unit.Name())
	}
	joinUnit(t, unit)
	select {
	case v := <-done:
		if v != 7 {
			t.Fatalf("value = %d, want 7", v)
		}
	default:
		t.Fatal("hosted future never ran")
	}
}

// TestSpawnUnit_SurvivesFaultingProgram tests that a panicking root future is
// contained by the executor and the hosting unit still finishes cleanly.
func TestSpawnUnit_SurvivesFaultingProgram(t *testing.T) {
	unit := SpawnUnit("faulty", async.FutureFunc[struct{}](func(*async.Context) (struct{}, bool) {
		panic("driver bug")
	}))
	joinUnit(t, unit)
	if got := unit.State(); got != rtos.StateFinished {
		t.Fatalf("state = %v, want finished", got)
	}
}

// TestRun_StopsWithContext tests the host-only drive loop through the facade.
func TestRun_StopsWithContext(t *testing.T) {
	errs := make(chan error, 1)
	unit := rtos.Spawn(func(ctx context.Context) {
		runCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		errs <- Run(runCtx)
	})
	joinUnit(t, unit)

	if err := <-errs; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run returned %v, want deadline exceeded", err)
	}
}

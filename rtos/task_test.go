package rtos

import (
	"context"
	"sync"
	"testing"
	"time"
)

// TestSpawn_RunsAndJoins tests the basic lifecycle of a scheduled unit.
func TestSpawn_RunsAndJoins(t *testing.T) {
	ran := make(chan struct{})
	unit := Spawn(func(ctx context.Context) {
		close(ran)
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("spawned unit never ran")
	}

	if err := unit.Join(context.Background()); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got := unit.State(); got != StateFinished {
		t.Fatalf("state = %v, want finished", got)
	}
}

// TestBuilder_CarriesNameAndPriority tests the builder metadata.
func TestBuilder_CarriesNameAndPriority(t *testing.T) {
	unit := NewBuilder().
		Name("odometry").
		Priority(PriorityHigh).
		Spawn(func(ctx context.Context) {})
	defer unit.Join(context.Background())

	if unit.Name() != "odometry" {
		t.Fatalf("name = %q, want odometry", unit.Name())
	}
	if unit.Priority() != PriorityHigh {
		t.Fatalf("priority = %d, want %d", unit.Priority(), PriorityHigh)
	}
	if unit.ID() == 0 {
		t.Fatal("unit id must be non-zero")
	}
}

// TestCurrent_ResolvesOwnUnitOnly tests context-based unit identity.
func TestCurrent_ResolvesOwnUnitOnly(t *testing.T) {
	if _, ok := Current(context.Background()); ok {
		t.Fatal("background context must not resolve to a unit")
	}

	got := make(chan *Task, 1)
	unit := Spawn(func(ctx context.Context) {
		self, ok := Current(ctx)
		if !ok {
			t.Error("unit context did not resolve")
		}
		got <- self
	})
	if err := unit.Join(context.Background()); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if self := <-got; self != unit {
		t.Fatalf("Current resolved %v, want the spawned unit", self)
	}
}

// TestJoin_HonorsContext tests the caller-side timeout path.
func TestJoin_HonorsContext(t *testing.T) {
	release := make(chan struct{})
	unit := Spawn(func(ctx context.Context) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := unit.Join(ctx); err != context.DeadlineExceeded {
		t.Fatalf("Join = %v, want deadline exceeded", err)
	}
	if got := unit.State(); got != StateRunning {
		t.Fatalf("state = %v, want still running", got)
	}
}

// TestNotify_CoalescesIntoOneWakeup tests that a burst of notifications is
// observed as one take carrying the count.
func TestNotify_CoalescesIntoOneWakeup(t *testing.T) {
	started := make(chan *Task, 1)
	counts := make(chan uint32, 1)
	unit := Spawn(func(ctx context.Context) {
		self, _ := Current(ctx)
		started <- self
		n, err := TakeNotification(ctx)
		if err != nil {
			t.Errorf("TakeNotification: %v", err)
			return
		}
		counts <- n
	})

	target := <-started
	for i := 0; i < 5; i++ {
		target.Notify()
	}

	select {
	case n := <-counts:
		if n != 5 {
			t.Fatalf("count = %d, want 5", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification never arrived")
	}
	unit.Join(context.Background())
}

// TestNotify_ConcurrentSendersAllCounted tests that no notification is lost
// across takes even under concurrent senders.
func TestNotify_ConcurrentSendersAllCounted(t *testing.T) {
	const total = 64

	started := make(chan *Task, 1)
	sum := make(chan uint32, 1)
	unit := Spawn(func(ctx context.Context) {
		self, _ := Current(ctx)
		started <- self

		var seen uint32
		for seen < total {
			n, err := TakeNotification(ctx)
			if err != nil {
				t.Errorf("TakeNotification: %v", err)
				return
			}
			seen += n
		}
		sum <- seen
	})

	target := <-started
	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			target.Notify()
		}()
	}
	wg.Wait()

	select {
	case seen := <-sum:
		if seen != total {
			t.Fatalf("seen = %d, want %d", seen, total)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notifications lost; receiver still blocked")
	}
	unit.Join(context.Background())
}

// TestNotify_FinishedUnitIsNoop tests the post-exit notify path.
func TestNotify_FinishedUnitIsNoop(t *testing.T) {
	unit := Spawn(func(ctx context.Context) {})
	if err := unit.Join(context.Background()); err != nil {
		t.Fatalf("Join: %v", err)
	}
	unit.Notify() // must not block or panic
}

// TestTakeNotification_StaleWakeupTokenIsIgnored tests the interleaving
// where a notifier is preempted between bumping the count and posting its
// wakeup token: a take on the fast path consumes the count, the token lands
// afterwards, and the next take must wait for a real notification instead of
// returning a zero count.
func TestTakeNotification_StaleWakeupTokenIsIgnored(t *testing.T) {
	started := make(chan *Task, 1)
	takeNow := make(chan struct{})
	counts := make(chan uint32, 2)
	unit := Spawn(func(ctx context.Context) {
		self, _ := Current(ctx)
		started <- self
		for i := 0; i < 2; i++ {
			<-takeNow
			n, err := TakeNotification(ctx)
			if err != nil {
				t.Errorf("TakeNotification: %v", err)
				return
			}
			counts <- n
		}
	})

	target := <-started

	// First half of a notify: the count is bumped, the token not yet posted.
	target.notifyCount.Add(1)

	takeNow <- struct{}{}
	select {
	case n := <-counts:
		if n != 1 {
			t.Fatalf("first take = %d, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first take never returned")
	}

	// Second half of the preempted notify lands as a stale token.
	target.notifyCh <- struct{}{}

	takeNow <- struct{}{}
	select {
	case n := <-counts:
		t.Fatalf("take returned %d on a stale token with no notification posted", n)
	case <-time.After(50 * time.Millisecond):
		// Still blocked, as it must be.
	}

	target.Notify()
	select {
	case n := <-counts:
		if n != 1 {
			t.Fatalf("second take = %d, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("take did not observe the real notification")
	}
	unit.Join(context.Background())
}

// TestTakeNotification_OutsideUnitFails tests the non-unit context path.
func TestTakeNotification_OutsideUnitFails(t *testing.T) {
	if _, err := TakeNotification(context.Background()); err == nil {
		t.Fatal("TakeNotification accepted a non-unit context")
	}
}

// TestInterval_KeepsAverageRate tests drift-free pacing: N short delays take
// N*delta from the anchor, not N*delta plus accumulated overhead.
func TestInterval_KeepsAverageRate(t *testing.T) {
	const (
		delta = 10 * time.Millisecond
		loops = 8
	)

	start := time.Now()
	iv := StartInterval()
	for i := 0; i < loops; i++ {
		// Simulated loop body overhead; the interval absorbs it.
		time.Sleep(time.Millisecond)
		iv.Delay(delta)
	}
	elapsed := time.Since(start)

	if elapsed < loops*delta {
		t.Fatalf("elapsed %v, want at least %v", elapsed, loops*delta)
	}
	if elapsed > loops*delta+200*time.Millisecond {
		t.Fatalf("elapsed %v, interval is drifting", elapsed)
	}
}

// TestInterval_SkipsForwardAfterOverrun tests that a long overrun does not
// make subsequent delays burst to catch up.
func TestInterval_SkipsForwardAfterOverrun(t *testing.T) {
	iv := StartInterval()
	time.Sleep(30 * time.Millisecond) // overrun well past one delta

	start := time.Now()
	iv.Delay(5 * time.Millisecond)
	if d := time.Since(start); d > 5*time.Millisecond {
		t.Fatalf("post-overrun delay blocked %v, want immediate return", d)
	}

	// The anchor moved to now, so the next delay paces normally.
	start = time.Now()
	iv.Delay(20 * time.Millisecond)
	if d := time.Since(start); d < 15*time.Millisecond {
		t.Fatalf("next delay only blocked %v, anchor did not reset", d)
	}
}

// TestMillis_Advances tests the uptime clock.
func TestMillis_Advances(t *testing.T) {
	before := Millis()
	Delay(15 * time.Millisecond)
	after := Millis()
	if after < before+10 {
		t.Fatalf("millis %d -> %d, clock did not advance", before, after)
	}
}

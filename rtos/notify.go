package rtos

import "context"

// Notify posts one notification to the unit. Notifications are counted and
// coalesced: any number posted before the unit next takes them is observed
// as a single wakeup carrying the count. Safe to call from any goroutine,
// including timer callbacks; notifying a finished unit is a no-op.
func (t *Task) Notify() {
	if t.State() == StateFinished {
		return
	}
	t.notifyCount.Add(1)
	select {
	case t.notifyCh <- struct{}{}:
	default:
		// A wakeup is already pending; the count carries the rest.
	}
}

// TakeNotification blocks the calling unit until at least one notification
// has been posted to it, then clears and returns the accumulated count. It
// never returns a zero count: a wakeup token whose count was already taken
// is ignored. Returns an error if ctx does not belong to a scheduled unit
// or is done.
func TakeNotification(ctx context.Context) (uint32, error) {
	t, ok := Current(ctx)
	if !ok {
		return 0, errNotATask
	}

	for {
		if n := t.notifyCount.Swap(0); n > 0 {
			// Drain a pending wakeup token so the next take does not fire
			// early for the count we just took.
			select {
			case <-t.notifyCh:
			default:
			}
			return n, nil
		}

		// A notifier bumps the count before posting its token, so a token
		// received while the count is zero is stale: an earlier take already
		// consumed its count between the notifier's two steps. Re-check the
		// count rather than report a notification that was never posted.
		select {
		case <-t.notifyCh:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

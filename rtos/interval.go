package rtos

import "time"

// Interval runs code at a fixed rate without drift: each delay is measured
// from the previous target instant, not from wakeup, so late wakeups shorten
// the next delay to keep the average rate.
type Interval struct {
	lastUnblock time.Time
}

// StartInterval begins an interval anchored at the current instant.
func StartInterval() *Interval {
	return &Interval{lastUnblock: time.Now()}
}

// Delay blocks the current scheduled unit until the next multiple of delta
// past the anchor. If the loop overran by more than delta, the anchor skips
// forward to now so the interval does not burst to catch up.
func (i *Interval) Delay(delta time.Duration) {
	target := i.lastUnblock.Add(delta)
	now := time.Now()
	if target.Before(now) {
		i.lastUnblock = now
		return
	}
	time.Sleep(target.Sub(now))
	i.lastUnblock = target
}

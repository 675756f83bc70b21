package raft

// Timer is the election alarm of a node. It counts down one step per tick and
// fires when it reaches zero; the tick after firing rearms it, so the period
// between two fires is defaultTimeout+1 ticks.
type Timer struct {
	defaultTimeout uint64
	ticksLeft      uint64
}

// NewTimer starts armed with timeout ticks left. A zero timeout is treated as one.
func NewTimer(timeout uint64) *Timer {
	if timeout == 0 {
		timeout = 1
	}
	return &Timer{defaultTimeout: timeout, ticksLeft: timeout}
}

// Tick advances the timer and reports whether this tick fired it.
func (t *Timer) Tick() bool {
	if t.ticksLeft == 0 {
		t.ticksLeft = t.defaultTimeout
		return false
	}
	t.ticksLeft--
	return t.ticksLeft == 0
}

// Reset rearms the timer to its full timeout.
func (t *Timer) Reset() {
	t.ticksLeft = t.defaultTimeout
}

// Set moves the countdown, clamped to the default timeout.
func (t *Timer) Set(ticksLeft uint64) {
	t.ticksLeft = min(ticksLeft, t.defaultTimeout)
}

func (t *Timer) TicksLeft() uint64 {
	return t.ticksLeft
}

func (t *Timer) DefaultTimeout() uint64 {
	return t.defaultTimeout
}

func (t *Timer) Expired() bool {
	return t.ticksLeft == 0
}

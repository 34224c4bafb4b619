package core

import "testing"

// steppingClock advances by step on every read, like a free-running timer
type steppingClock struct {
	now   uint32
	step  uint32
	reads int
}

func (c *steppingClock) NowMicros() uint32 {
	c.reads++
	c.now += c.step
	return c.now
}

func TestBusyWaitMicroseconds(t *testing.T) {
	clock := &steppingClock{now: 0, step: 10}
	BusyWait{Clock: clock}.Wait(100, Microseconds)

	if clock.now < 100 {
		t.Errorf("returned after %dus, expected at least 100us", clock.now)
	}
}

func TestBusyWaitMilliseconds(t *testing.T) {
	clock := &steppingClock{now: 0, step: 100}
	BusyWait{Clock: clock}.Wait(2, Milliseconds)

	if clock.now < 2000 {
		t.Errorf("returned after %dus, expected at least 2000us", clock.now)
	}
}

func TestBusyWaitAcrossTimerWrap(t *testing.T) {
	clock := &steppingClock{now: 0xFFFFFF00, step: 0x40}
	BusyWait{Clock: clock}.Wait(0x200, Microseconds)

	// Without modular arithmetic the wrap would end the wait immediately
	if clock.reads < 8 {
		t.Errorf("wait ended after %d reads", clock.reads)
	}
}

func TestBusyWaitZero(t *testing.T) {
	clock := &steppingClock{step: 1}
	BusyWait{Clock: clock}.Wait(0, Microseconds)

	if clock.reads > 2 {
		t.Errorf("zero wait read the clock %d times", clock.reads)
	}
}

func TestVirtualClock(t *testing.T) {
	clock := NewVirtualClock(500)
	if clock.NowMicros() != 500 {
		t.Fatalf("expected 500, got %d", clock.NowMicros())
	}

	clock.Wait(250, Microseconds)
	clock.Wait(3, Milliseconds)
	if clock.NowMicros() != 3750 {
		t.Errorf("expected 3750, got %d", clock.NowMicros())
	}

	clock.Set(0xFFFFFFFF)
	clock.Advance(2)
	if clock.NowMicros() != 1 {
		t.Errorf("expected wrap to 1, got %d", clock.NowMicros())
	}
}

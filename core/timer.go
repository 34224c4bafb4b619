package core

import "sync/atomic"

// TimeUnit selects the resolution of a Wait
type TimeUnit uint8

const (
	Microseconds TimeUnit = iota
	Milliseconds
)

// Clock is a free-running microsecond counter.
// It wraps at 2^32; consumers use modular differences.
type Clock interface {
	NowMicros() uint32
}

// Sleeper blocks the main loop for a duration
type Sleeper interface {
	Wait(duration uint32, unit TimeUnit)
}

// toMicros converts a duration to microseconds
func toMicros(duration uint32, unit TimeUnit) uint32 {
	if unit == Milliseconds {
		return duration * 1000
	}
	return duration
}

// BusyWait spins on a Clock until the duration has elapsed.
// There is no scheduler to yield to during replay, so it never sleeps.
type BusyWait struct {
	Clock Clock
}

// Wait spins until duration has passed on the clock
func (b BusyWait) Wait(duration uint32, unit TimeUnit) {
	us := toMicros(duration, unit)
	start := b.Clock.NowMicros()
	for b.Clock.NowMicros()-start < us {
	}
}

// VirtualClock is a Clock and Sleeper whose time only moves when told to.
// Wait advances the clock instead of blocking, which makes replay timing
// exact on the host.
type VirtualClock struct {
	now atomic.Uint32
}

// NewVirtualClock creates a clock starting at start microseconds
func NewVirtualClock(start uint32) *VirtualClock {
	c := &VirtualClock{}
	c.now.Store(start)
	return c
}

func (c *VirtualClock) NowMicros() uint32 {
	return c.now.Load()
}

// Set jumps the clock to an absolute time
func (c *VirtualClock) Set(us uint32) {
	c.now.Store(us)
}

// Advance moves the clock forward
func (c *VirtualClock) Advance(us uint32) {
	c.now.Add(us)
}

func (c *VirtualClock) Wait(duration uint32, unit TimeUnit) {
	c.Advance(toMicros(duration, unit))
}

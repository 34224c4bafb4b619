package core

// SignalBuffer is a bounded record of captured bits and the absolute
// microsecond timestamps they were captured at. Bits and timestamps live in
// two independent rings of the same capacity; when a ring is full the oldest
// element is evicted before the new one is stored.
//
// Index accessors panic on an out-of-range index. There is no clamped
// fallback: a bad index is a caller bug.
type SignalBuffer struct {
	capacity int

	bits    []bool
	bitHead int // index of the oldest bit
	bitLen  int

	stamps    []uint32
	stampHead int
	stampLen  int
}

// NewSignalBuffer creates an empty buffer holding at most capacity samples
func NewSignalBuffer(capacity int) *SignalBuffer {
	if capacity <= 0 {
		panic("signal buffer capacity must be positive")
	}
	return &SignalBuffer{
		capacity: capacity,
		bits:     make([]bool, capacity),
		stamps:   make([]uint32, capacity),
	}
}

// AddBit appends a bit, evicting the oldest one if the ring is full
func (b *SignalBuffer) AddBit(value bool) {
	if b.bitLen == b.capacity {
		b.bits[b.bitHead] = value
		b.bitHead = (b.bitHead + 1) % b.capacity
		return
	}
	b.bits[(b.bitHead+b.bitLen)%b.capacity] = value
	b.bitLen++
}

// AddTimestamp appends a timestamp, evicting the oldest one if the ring is full.
// Callers keep it in lockstep with AddBit; the buffer does not pair them.
func (b *SignalBuffer) AddTimestamp(ts uint32) {
	if b.stampLen == b.capacity {
		b.stamps[b.stampHead] = ts
		b.stampHead = (b.stampHead + 1) % b.capacity
		return
	}
	b.stamps[(b.stampHead+b.stampLen)%b.capacity] = ts
	b.stampLen++
}

// Append stores one logical sample
func (b *SignalBuffer) Append(value bool, ts uint32) {
	b.AddBit(value)
	b.AddTimestamp(ts)
}

// Bit returns the i-th oldest bit
func (b *SignalBuffer) Bit(i int) bool {
	if i < 0 || i >= b.bitLen {
		panic("signal buffer: bit index " + itoa(i) + " out of range [0," + itoa(b.bitLen) + ")")
	}
	return b.bits[(b.bitHead+i)%b.capacity]
}

// Timestamp returns the i-th oldest absolute timestamp
func (b *SignalBuffer) Timestamp(i int) uint32 {
	if i < 0 || i >= b.stampLen {
		panic("signal buffer: timestamp index " + itoa(i) + " out of range [0," + itoa(b.stampLen) + ")")
	}
	return b.stamps[(b.stampHead+i)%b.capacity]
}

// RelativeTimestamps computes the delay before each sample.
// The first entry is 0; every other entry is the difference to the previous
// timestamp modulo 2^32, so a timer wrap between two samples still yields
// the elapsed microseconds.
func (b *SignalBuffer) RelativeTimestamps() []uint32 {
	rel := make([]uint32, b.stampLen)
	for i := 1; i < b.stampLen; i++ {
		rel[i] = b.Timestamp(i) - b.Timestamp(i-1)
	}
	return rel
}

// Size returns the number of bits held
func (b *SignalBuffer) Size() int {
	return b.bitLen
}

// TimestampCount returns the number of timestamps held
func (b *SignalBuffer) TimestampCount() int {
	return b.stampLen
}

// Capacity returns the maximum sample count
func (b *SignalBuffer) Capacity() int {
	return b.capacity
}

// Bits returns the bits oldest-first as a fresh slice
func (b *SignalBuffer) Bits() []bool {
	out := make([]bool, b.bitLen)
	for i := range out {
		out[i] = b.Bit(i)
	}
	return out
}

// Timestamps returns the absolute timestamps oldest-first as a fresh slice
func (b *SignalBuffer) Timestamps() []uint32 {
	out := make([]uint32, b.stampLen)
	for i := range out {
		out[i] = b.Timestamp(i)
	}
	return out
}

// Reset empties both rings
func (b *SignalBuffer) Reset() {
	for i := range b.bits {
		b.bits[i] = false
		b.stamps[i] = 0
	}
	b.bitHead, b.bitLen = 0, 0
	b.stampHead, b.stampLen = 0, 0
}

// Load replaces the contents with the given sequences.
// Anything beyond capacity keeps only the newest entries.
func (b *SignalBuffer) Load(bits []bool, timestamps []uint32) {
	b.Reset()
	for _, v := range bits {
		b.AddBit(v)
	}
	for _, ts := range timestamps {
		b.AddTimestamp(ts)
	}
}

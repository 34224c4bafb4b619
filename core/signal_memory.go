package core

// Persisted signal record layout, starting at the configured offset:
//
//	+0        uint32  signal length in bytes (S)
//	+4        uint32  timestamp length in bytes (T)
//	+8        S bytes, one per bit
//	+8+S      T bytes, uint32 absolute timestamps
//
// Every write phase is committed and read back before the next one starts.
// Readback is the only integrity check; there is no checksum.
const (
	boolSize       = 1
	uint32Size     = 4
	recordHeaderSz = 2 * uint32Size
)

// SignalMemoryError is the failure kind reported by SignalMemory
type SignalMemoryError uint8

const (
	NoError SignalMemoryError = iota
	CantAllocate
	SignalWriteError
	TimestampWriteError
	MemoryClearError
)

func (e SignalMemoryError) Error() string {
	switch e {
	case NoError:
		return "no error"
	case CantAllocate:
		return "cannot allocate signal record in store"
	case SignalWriteError:
		return "signal write verification failed"
	case TimestampWriteError:
		return "timestamp write verification failed"
	case MemoryClearError:
		return "store clear failed"
	default:
		return "unknown signal memory error " + utoa(uint32(e))
	}
}

// SignalMemory reads and writes a signal record on a ByteStore
type SignalMemory struct {
	store ByteStore
	start int
}

// NewSignalMemory creates a codec writing at start within store
func NewSignalMemory(store ByteStore, start int) *SignalMemory {
	return &SignalMemory{store: store, start: start}
}

// SpaceNeeded returns the bytes a record of the given sample count occupies
func SpaceNeeded(samples int) int {
	return samples*boolSize + samples*uint32Size + recordHeaderSz
}

// WriteSignal persists bits and timestamps.
// No byte is written when the record does not fit. On a verification
// failure both headers are zeroed so the partial record reads back empty.
func (m *SignalMemory) WriteSignal(bits []bool, timestamps []uint32) error {
	signalBytes := len(bits) * boolSize
	stampBytes := len(timestamps) * uint32Size
	spaceNeeded := signalBytes + stampBytes + recordHeaderSz

	capacity := m.store.Length()
	if m.start < 0 || m.start > capacity || spaceNeeded > capacity-m.start {
		return CantAllocate
	}

	signalHeader := m.start
	stampHeader := m.start + uint32Size
	bitsAddr := m.start + recordHeaderSz
	stampsAddr := bitsAddr + signalBytes

	m.store.WriteUint32(signalHeader, uint32(signalBytes))
	if !m.store.Commit() || m.store.ReadUint32(signalHeader) != uint32(signalBytes) {
		m.invalidate()
		return SignalWriteError
	}

	m.store.WriteUint32(stampHeader, uint32(stampBytes))
	if !m.store.Commit() || m.store.ReadUint32(stampHeader) != uint32(stampBytes) {
		m.invalidate()
		return TimestampWriteError
	}

	for i, v := range bits {
		m.store.WriteBool(bitsAddr+i*boolSize, v)
	}
	if !m.store.Commit() {
		m.invalidate()
		return SignalWriteError
	}
	for i, v := range bits {
		if m.store.ReadBool(bitsAddr+i*boolSize) != v {
			m.invalidate()
			return SignalWriteError
		}
	}

	for i, ts := range timestamps {
		m.store.WriteUint32(stampsAddr+i*uint32Size, ts)
	}
	if !m.store.Commit() {
		m.invalidate()
		return TimestampWriteError
	}
	for i, ts := range timestamps {
		if m.store.ReadUint32(stampsAddr+i*uint32Size) != ts {
			m.invalidate()
			return TimestampWriteError
		}
	}

	return nil
}

// ReadSignal loads the persisted record.
// Headers that claim more bytes than remain in the store, or a timestamp
// length that is not a whole number of uint32s, are reported as
// CantAllocate rather than read past the end.
func (m *SignalMemory) ReadSignal() ([]bool, []uint32, error) {
	capacity := m.store.Length()
	if m.start < 0 || m.start > capacity || capacity-m.start < recordHeaderSz {
		return nil, nil, CantAllocate
	}

	signalBytes := m.store.ReadUint32(m.start)
	stampBytes := m.store.ReadUint32(m.start + uint32Size)

	remaining := uint64(capacity - m.start - recordHeaderSz)
	if uint64(signalBytes)+uint64(stampBytes) > remaining || stampBytes%uint32Size != 0 {
		return nil, nil, CantAllocate
	}

	bitsAddr := m.start + recordHeaderSz
	bits := make([]bool, int(signalBytes)/boolSize)
	for i := range bits {
		bits[i] = m.store.ReadBool(bitsAddr + i*boolSize)
	}

	stampsAddr := bitsAddr + int(signalBytes)
	timestamps := make([]uint32, int(stampBytes)/uint32Size)
	for i := range timestamps {
		timestamps[i] = m.store.ReadUint32(stampsAddr + i*uint32Size)
	}

	return bits, timestamps, nil
}

// ClearMemory zeroes every byte from the start offset to the end of the store
func (m *SignalMemory) ClearMemory() error {
	capacity := m.store.Length()
	if m.start < 0 || m.start > capacity {
		return CantAllocate
	}
	for addr := m.start; addr < capacity; addr++ {
		m.store.WriteBool(addr, false)
	}
	if !m.store.Commit() {
		return MemoryClearError
	}
	return nil
}

// invalidate zeroes both length headers, best effort
func (m *SignalMemory) invalidate() {
	if m.store.Length()-m.start < recordHeaderSz {
		return
	}
	m.store.WriteUint32(m.start, 0)
	m.store.WriteUint32(m.start+uint32Size, 0)
	m.store.Commit()
}

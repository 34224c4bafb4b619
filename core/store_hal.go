package core

import "encoding/binary"

// ByteStore is the abstract non-volatile store the signal codec uses.
// Writes land in a staging area and only become durable on Commit, the way
// flash-backed EEPROM emulation and page-buffered I2C EEPROMs behave.
// Multi-byte values are little-endian.
type ByteStore interface {
	// Length returns the usable capacity in bytes
	Length() int

	// WriteUint32 stages a 4-byte value at addr
	WriteUint32(addr int, value uint32)

	// WriteBool stages a single byte (0 or 1) at addr
	WriteBool(addr int, value bool)

	// ReadUint32 reads a 4-byte value at addr
	ReadUint32(addr int) uint32

	// ReadBool reads the byte at addr; any non-zero byte is true
	ReadBool(addr int) bool

	// Commit makes staged writes durable and reports success
	Commit() bool
}

// RAMStore is a ByteStore held entirely in memory.
// It keeps the staged bytes separate from the committed image so a failed
// or skipped Commit is observable.
type RAMStore struct {
	staged    []byte
	committed []byte
	dirty     bool

	// CommitHook, when set, decides whether Commit succeeds
	CommitHook func() bool
}

// NewRAMStore creates an empty store; call Begin before use
func NewRAMStore() *RAMStore {
	return &RAMStore{}
}

// Begin sizes the store. Existing committed bytes up to size are kept.
func (s *RAMStore) Begin(size int) bool {
	if size <= 0 {
		return false
	}
	committed := make([]byte, size)
	copy(committed, s.committed)
	s.committed = committed
	s.staged = make([]byte, size)
	copy(s.staged, committed)
	s.dirty = false
	return true
}

func (s *RAMStore) Length() int {
	return len(s.staged)
}

func (s *RAMStore) WriteUint32(addr int, value uint32) {
	if addr < 0 || addr+4 > len(s.staged) {
		return
	}
	binary.LittleEndian.PutUint32(s.staged[addr:], value)
	s.dirty = true
}

func (s *RAMStore) WriteBool(addr int, value bool) {
	if addr < 0 || addr >= len(s.staged) {
		return
	}
	s.staged[addr] = boolByte(value)
	s.dirty = true
}

func (s *RAMStore) ReadUint32(addr int) uint32 {
	if addr < 0 || addr+4 > len(s.staged) {
		return 0
	}
	return binary.LittleEndian.Uint32(s.staged[addr:])
}

func (s *RAMStore) ReadBool(addr int) bool {
	if addr < 0 || addr >= len(s.staged) {
		return false
	}
	return s.staged[addr] != 0
}

func (s *RAMStore) Commit() bool {
	if s.CommitHook != nil && !s.CommitHook() {
		return false
	}
	if !s.dirty {
		return true
	}
	copy(s.committed, s.staged)
	s.dirty = false
	return true
}

// Committed returns a copy of the durable image
func (s *RAMStore) Committed() []byte {
	out := make([]byte, len(s.committed))
	copy(out, s.committed)
	return out
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

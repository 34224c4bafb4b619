package core

import (
	"encoding/binary"
	"errors"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/at24cx"
)

// AT24Config describes an external AT24Cxx I2C EEPROM
type AT24Config struct {
	Address  uint16 // 7-bit bus address (0x50 with A0-A2 low)
	PageSize uint16 // write page size in bytes
	Size     int    // usable bytes
}

var errAT24NotStarted = errors.New("at24 store not started")

// AT24Store is a ByteStore backed by an AT24Cxx EEPROM.
// Reads and writes go to a RAM shadow of the chip. Commit writes the
// dirty range to the chip and then reads it back into the shadow, so any
// verification done after Commit sees what the chip actually holds.
type AT24Store struct {
	dev    at24cx.Device
	cfg    AT24Config
	shadow []byte

	dirtyLo int
	dirtyHi int // exclusive; dirtyLo >= dirtyHi means clean

	err error
}

// NewAT24Store wraps an EEPROM on the given bus. Call Begin before use.
func NewAT24Store(bus drivers.I2C, cfg AT24Config) *AT24Store {
	if cfg.Address == 0 {
		cfg.Address = 0x50
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 32
	}
	if cfg.Size <= 0 || cfg.Size > 0xFFFF {
		cfg.Size = 4096
	}

	dev := at24cx.New(bus)
	dev.Address = cfg.Address
	dev.Configure(at24cx.Config{
		PageSize:        cfg.PageSize,
		StartRAMAddress: 0,
		EndRAMAddress:   uint16(cfg.Size),
	})

	return &AT24Store{dev: dev, cfg: cfg}
}

// Begin loads size bytes from the chip into the shadow
func (s *AT24Store) Begin(size int) error {
	if size <= 0 || size > s.cfg.Size {
		return errors.New("at24 store size out of range: " + itoa(size))
	}
	shadow := make([]byte, size)
	if _, err := s.dev.ReadAt(shadow, 0); err != nil {
		s.err = err
		return err
	}
	s.shadow = shadow
	s.markClean()
	s.err = nil
	return nil
}

// Err returns the last bus error seen by Begin or Commit
func (s *AT24Store) Err() error {
	return s.err
}

func (s *AT24Store) Length() int {
	return len(s.shadow)
}

func (s *AT24Store) WriteUint32(addr int, value uint32) {
	if addr < 0 || addr+4 > len(s.shadow) {
		return
	}
	binary.LittleEndian.PutUint32(s.shadow[addr:], value)
	s.markDirty(addr, addr+4)
}

func (s *AT24Store) WriteBool(addr int, value bool) {
	if addr < 0 || addr >= len(s.shadow) {
		return
	}
	s.shadow[addr] = boolByte(value)
	s.markDirty(addr, addr+1)
}

func (s *AT24Store) ReadUint32(addr int) uint32 {
	if addr < 0 || addr+4 > len(s.shadow) {
		return 0
	}
	return binary.LittleEndian.Uint32(s.shadow[addr:])
}

func (s *AT24Store) ReadBool(addr int) bool {
	if addr < 0 || addr >= len(s.shadow) {
		return false
	}
	return s.shadow[addr] != 0
}

// Commit flushes the dirty range and refreshes it from the chip
func (s *AT24Store) Commit() bool {
	if s.shadow == nil {
		s.err = errAT24NotStarted
		return false
	}
	if s.dirtyLo >= s.dirtyHi {
		return true
	}

	lo, hi := s.dirtyLo, s.dirtyHi
	if _, err := s.dev.WriteAt(s.shadow[lo:hi], int64(lo)); err != nil {
		s.err = err
		return false
	}
	s.markClean()

	readback := make([]byte, hi-lo)
	if _, err := s.dev.ReadAt(readback, int64(lo)); err != nil {
		s.err = err
		return false
	}
	copy(s.shadow[lo:hi], readback)
	return true
}

func (s *AT24Store) markDirty(lo, hi int) {
	if s.dirtyLo >= s.dirtyHi {
		s.dirtyLo, s.dirtyHi = lo, hi
		return
	}
	if lo < s.dirtyLo {
		s.dirtyLo = lo
	}
	if hi > s.dirtyHi {
		s.dirtyHi = hi
	}
}

func (s *AT24Store) markClean() {
	s.dirtyLo, s.dirtyHi = 0, 0
}

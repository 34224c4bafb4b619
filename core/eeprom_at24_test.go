package core

import (
	"errors"
	"testing"
)

// fakeEEPROM models the I2C side of an AT24Cxx: a two-byte address pointer
// followed by data on writes, sequential reads from the pointer.
type fakeEEPROM struct {
	address uint16
	mem     []byte
	pointer int

	failWrites bool
	stuck      map[int]bool // cells that ignore writes
}

func newFakeEEPROM(size int) *fakeEEPROM {
	return &fakeEEPROM{address: 0x50, mem: make([]byte, size), stuck: make(map[int]bool)}
}

func (e *fakeEEPROM) Tx(addr uint16, w, r []byte) error {
	if addr != e.address {
		return errors.New("no ack")
	}
	if len(w) >= 2 {
		e.pointer = int(w[0])<<8 | int(w[1])
		data := w[2:]
		if len(data) > 0 && e.failWrites {
			return errors.New("write nack")
		}
		for _, b := range data {
			if e.pointer < len(e.mem) && !e.stuck[e.pointer] {
				e.mem[e.pointer] = b
			}
			e.pointer++
		}
	}
	for i := range r {
		if e.pointer < len(e.mem) {
			r[i] = e.mem[e.pointer]
		}
		e.pointer++
	}
	return nil
}

func TestAT24StoreBeginLoadsChip(t *testing.T) {
	chip := newFakeEEPROM(64)
	chip.mem[0] = 0x78
	chip.mem[1] = 0x56
	chip.mem[2] = 0x34
	chip.mem[3] = 0x12
	chip.mem[10] = 1

	store := NewAT24Store(chip, AT24Config{Size: 64})
	if err := store.Begin(64); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	if store.Length() != 64 {
		t.Errorf("expected length 64, got %d", store.Length())
	}
	if got := store.ReadUint32(0); got != 0x12345678 {
		t.Errorf("expected 0x12345678, got 0x%08X", got)
	}
	if !store.ReadBool(10) {
		t.Error("expected byte 10 to read true")
	}
}

func TestAT24StoreBeginRejectsOversize(t *testing.T) {
	store := NewAT24Store(newFakeEEPROM(64), AT24Config{Size: 64})
	if err := store.Begin(65); err == nil {
		t.Error("expected error for size beyond chip")
	}
}

func TestAT24StoreCommitWritesChip(t *testing.T) {
	chip := newFakeEEPROM(64)
	store := NewAT24Store(chip, AT24Config{Size: 64})
	if err := store.Begin(64); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	store.WriteUint32(20, 0xCAFEBABE)
	store.WriteBool(30, true)

	if chip.mem[20] != 0 {
		t.Fatal("write reached chip before commit")
	}
	if !store.Commit() {
		t.Fatalf("Commit failed: %v", store.Err())
	}
	if chip.mem[20] != 0xBE || chip.mem[23] != 0xCA || chip.mem[30] != 1 {
		t.Errorf("chip contents not updated: % X", chip.mem[20:31])
	}
}

func TestAT24StoreCommitReadsBack(t *testing.T) {
	chip := newFakeEEPROM(64)
	chip.stuck[5] = true
	store := NewAT24Store(chip, AT24Config{Size: 64})
	if err := store.Begin(64); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	store.WriteBool(5, true)
	if !store.Commit() {
		t.Fatalf("Commit failed: %v", store.Err())
	}
	if store.ReadBool(5) {
		t.Error("shadow kept a value the chip never stored")
	}
}

func TestAT24StoreBusError(t *testing.T) {
	chip := newFakeEEPROM(64)
	store := NewAT24Store(chip, AT24Config{Size: 64})
	if err := store.Begin(64); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	chip.failWrites = true
	store.WriteBool(0, true)
	if store.Commit() {
		t.Error("Commit reported success on a failing bus")
	}
	if store.Err() == nil {
		t.Error("expected bus error to be recorded")
	}
}

func TestAT24StoreCommitBeforeBegin(t *testing.T) {
	store := NewAT24Store(newFakeEEPROM(64), AT24Config{Size: 64})
	if store.Commit() {
		t.Error("Commit succeeded before Begin")
	}
}

func TestAT24StoreSignalRoundTrip(t *testing.T) {
	chip := newFakeEEPROM(128)
	store := NewAT24Store(chip, AT24Config{Size: 128})
	if err := store.Begin(128); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	mem := NewSignalMemory(store, 0)
	bits := []bool{true, false, true, true}
	stamps := []uint32{10, 20, 35, 60}
	if err := mem.WriteSignal(bits, stamps); err != nil {
		t.Fatalf("WriteSignal failed: %v", err)
	}

	// A fresh store on the same chip sees the record
	reopened := NewAT24Store(chip, AT24Config{Size: 128})
	if err := reopened.Begin(128); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	gotBits, gotStamps, err := NewSignalMemory(reopened, 0).ReadSignal()
	if err != nil {
		t.Fatalf("ReadSignal failed: %v", err)
	}
	for i := range bits {
		if gotBits[i] != bits[i] || gotStamps[i] != stamps[i] {
			t.Errorf("sample %d: expected (%v, %d), got (%v, %d)", i, bits[i], stamps[i], gotBits[i], gotStamps[i])
		}
	}
}

func TestAT24StoreStuckCellFailsVerification(t *testing.T) {
	chip := newFakeEEPROM(128)
	chip.stuck[8] = true // first bit cell
	store := NewAT24Store(chip, AT24Config{Size: 128})
	if err := store.Begin(128); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	err := NewSignalMemory(store, 0).WriteSignal([]bool{true}, []uint32{1})
	if !errors.Is(err, SignalWriteError) {
		t.Errorf("expected SignalWriteError, got %v", err)
	}
}

//go:build rp2040 || rp2350

package main

import (
	"runtime/volatile"
	"unsafe"
)

// RP2040/RP2350 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))

// HardwareClock reads the 1MHz system timer. Only the low word is used;
// the core works in modular uint32 microseconds.
type HardwareClock struct{}

// NowMicros returns the low 32 bits of the microsecond counter
func (HardwareClock) NowMicros() uint32 {
	return timerRAWL.Get()
}

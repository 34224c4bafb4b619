//go:build !tinygo

package core

// irqState is a placeholder for the saved interrupt mask on regular Go
type irqState uintptr

// disableInterrupts is a no-op on regular Go; callers pair it with a mutex
func disableInterrupts() irqState {
	return 0
}

// restoreInterrupts is a no-op on regular Go
func restoreInterrupts(state irqState) {}

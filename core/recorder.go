// Capture and replay orchestration
// Edge interrupts append samples while recording; the main loop performs the
// long-running save and replay work outside interrupt context.
package core

import (
	"sync"
	"sync/atomic"

	"sigreplay/protocol"
)

// BlinkPattern is a blocking LED blink sequence
type BlinkPattern struct {
	Times uint8
	OnMS  uint32
	OffMS uint32
}

// RecorderConfig holds pin assignments and replay behavior
type RecorderConfig struct {
	SignalInput  GPIOPin
	SignalOutput GPIOPin
	LED          GPIOPin // NoPin if absent
	ListenButton GPIOPin // NoPin if absent
	ReplayButton GPIOPin // NoPin if absent

	// ButtonsActiveLow selects pull-ups and treats a low level as pressed
	ButtonsActiveLow bool

	// ReplayRepeat is how many times a loaded signal is played back
	ReplayRepeat int

	// ReplayGapMS is the pause after the last sample of each pass
	ReplayGapMS uint32

	SaveBlink   BlinkPattern
	ReplayBlink BlinkPattern
}

// Hardware bundles the collaborators a Recorder drives
type Hardware struct {
	GPIO    GPIODriver
	Clock   Clock
	Sleeper Sleeper
	Memory  *SignalMemory
	Buffer  *SignalBuffer
	Machine *StateMachine
}

// Recorder moves the state machine through the record/save/replay cycle.
//
// The buffer is written from the signal edge interrupt and read by the main
// loop. Both sides take mu with interrupts masked, so an interrupt can never
// find mu held, and the check of Recording plus the append is atomic with
// respect to any transition out of Recording.
type Recorder struct {
	cfg     RecorderConfig
	gpio    GPIODriver
	clock   Clock
	sleeper Sleeper
	memory  *SignalMemory
	buffer  *SignalBuffer
	machine *StateMachine

	mu       sync.Mutex
	captured uint32 // samples appended since recording started
	reported uint32 // samples already logged

	// Main loop only
	lastState State
	lastErr   error

	aborted atomic.Bool
}

// NewRecorder wires a Recorder to its hardware.
// Panics if a collaborator is missing.
func NewRecorder(cfg RecorderConfig, hw Hardware) *Recorder {
	switch {
	case hw.GPIO == nil:
		panic("recorder: GPIO driver not configured")
	case hw.Clock == nil:
		panic("recorder: clock not configured")
	case hw.Sleeper == nil:
		panic("recorder: sleeper not configured")
	case hw.Memory == nil:
		panic("recorder: signal memory not configured")
	case hw.Buffer == nil:
		panic("recorder: signal buffer not configured")
	case hw.Machine == nil:
		panic("recorder: state machine not configured")
	}
	if cfg.ReplayRepeat < 1 {
		cfg.ReplayRepeat = 1
	}

	return &Recorder{
		cfg:       cfg,
		gpio:      hw.GPIO,
		clock:     hw.Clock,
		sleeper:   hw.Sleeper,
		memory:    hw.Memory,
		buffer:    hw.Buffer,
		machine:   hw.Machine,
		lastState: hw.Machine.CurrentState(),
	}
}

// Configure sets up the pins and attaches the edge interrupts
func (r *Recorder) Configure() error {
	if err := r.gpio.ConfigureOutput(r.cfg.SignalOutput); err != nil {
		return err
	}
	if err := r.gpio.SetPin(r.cfg.SignalOutput, false); err != nil {
		return err
	}
	if r.cfg.LED != NoPin {
		if err := r.gpio.ConfigureOutput(r.cfg.LED); err != nil {
			return err
		}
		if err := r.gpio.SetPin(r.cfg.LED, false); err != nil {
			return err
		}
	}

	if err := r.gpio.ConfigureInput(r.cfg.SignalInput); err != nil {
		return err
	}
	if err := r.gpio.SetEdgeInterrupt(r.cfg.SignalInput, r.OnSignalEdge); err != nil {
		return err
	}

	buttons := []struct {
		pin     GPIOPin
		handler func()
	}{
		{r.cfg.ListenButton, r.OnListenButton},
		{r.cfg.ReplayButton, r.OnReplayButton},
	}
	for _, b := range buttons {
		if b.pin == NoPin {
			continue
		}
		var err error
		if r.cfg.ButtonsActiveLow {
			err = r.gpio.ConfigureInputPullUp(b.pin)
		} else {
			err = r.gpio.ConfigureInputPullDown(b.pin)
		}
		if err != nil {
			return err
		}
		if err := r.gpio.SetEdgeInterrupt(b.pin, b.handler); err != nil {
			return err
		}
	}
	return nil
}

// State returns the current state
func (r *Recorder) State() State {
	return r.machine.CurrentState()
}

// LastError returns the error of the most recent failed save or replay
func (r *Recorder) LastError() error {
	return r.lastErr
}

// Abort stops a running replay before its next sample
func (r *Recorder) Abort() {
	r.aborted.Store(true)
}

func (r *Recorder) lockCapture() irqState {
	state := disableInterrupts()
	r.mu.Lock()
	return state
}

func (r *Recorder) unlockCapture(state irqState) {
	r.mu.Unlock()
	restoreInterrupts(state)
}

// OnSignalEdge is the signal line interrupt handler.
// Outside Recording it only notes the ignored edge.
func (r *Recorder) OnSignalEdge() {
	state := r.lockCapture()
	defer r.unlockCapture(state)

	now := r.clock.NowMicros()
	current := r.machine.CurrentState()
	if current != StateRecording {
		RecordTiming(EvtEdgeIgnored, 0, now, uint32(current), 0)
		return
	}

	level := r.gpio.ReadPin(r.cfg.SignalInput)
	r.buffer.Append(level, now)
	r.captured++
	RecordTiming(EvtCapture, uint8(r.captured-1), now, btou(level), 0)
}

// OnListenButton starts recording from Idle and stops it from Recording
func (r *Recorder) OnListenButton() {
	if !r.buttonPressed(r.cfg.ListenButton) {
		return
	}
	switch r.machine.CurrentState() {
	case StateIdle:
		r.Request(StateRecording)
	case StateRecording:
		r.Request(StateSaving)
	}
}

// OnReplayButton starts a replay from Idle
func (r *Recorder) OnReplayButton() {
	if r.machine.CurrentState() != StateIdle {
		return
	}
	if r.buttonPressed(r.cfg.ReplayButton) {
		r.Request(StateReplaying)
	}
}

func (r *Recorder) buttonPressed(pin GPIOPin) bool {
	level := r.gpio.ReadPin(pin)
	if r.cfg.ButtonsActiveLow {
		return !level
	}
	return level
}

// legalTransition reports whether the cycle allows from -> to
func legalTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateRecording || to == StateReplaying
	case StateRecording:
		return to == StateSaving
	case StateSaving, StateReplaying:
		return to == StateIdle
	}
	return false
}

// Request applies a transition if the cycle allows it from the current
// state. Anything else is ignored. Safe from interrupt context.
func (r *Recorder) Request(target State) bool {
	from := r.machine.CurrentState()
	if !legalTransition(from, target) {
		return false
	}

	// Entering or leaving Recording must not interleave with a capture
	if from != StateRecording && target != StateRecording {
		return r.transition(from, target)
	}

	state := r.lockCapture()
	defer r.unlockCapture(state)
	if target == StateRecording {
		r.buffer.Reset()
		r.captured = 0
		r.reported = 0
	}
	return r.transition(from, target)
}

func (r *Recorder) transition(from, to State) bool {
	if !r.machine.ChangeStateFrom(from, to) {
		return false
	}
	RecordTiming(EvtStateChange, 0, r.clock.NowMicros(), uint32(from), uint32(to))
	return true
}

// Step runs one main loop pass
func (r *Recorder) Step() {
	current := r.machine.CurrentState()
	if current != r.lastState {
		DebugPrintln(protocol.FormatStateChange(r.lastState.String(), current.String()))
		r.lastState = current
	}

	switch current {
	case StateIdle:
		r.setLED(false)

	case StateRecording:
		r.setLED(true)
		r.reportCaptured()

	case StateSaving:
		r.reportCaptured()
		r.blink(r.cfg.SaveBlink)
		if err := r.Save(); err != nil {
			DebugPrintln("Save failed: " + err.Error())
		}
		r.Request(StateIdle)

	case StateReplaying:
		r.blink(r.cfg.ReplayBlink)
		if err := r.Replay(); err != nil {
			DebugPrintln("Replay failed: " + err.Error())
		}
		r.Request(StateIdle)
	}
}

// Save persists the captured samples
func (r *Recorder) Save() error {
	state := r.lockCapture()
	bits := r.buffer.Bits()
	timestamps := r.buffer.Timestamps()
	r.unlockCapture(state)

	DebugPrintln("Saving " + itoa(len(bits)) + " samples")
	if err := r.memory.WriteSignal(bits, timestamps); err != nil {
		r.storeFailed(err)
		return err
	}
	r.lastErr = nil
	return nil
}

// Replay loads the persisted signal and plays it ReplayRepeat times.
// The output is left low afterwards.
func (r *Recorder) Replay() error {
	r.aborted.Store(false)

	state := r.lockCapture()
	r.buffer.Reset()
	r.unlockCapture(state)

	bits, timestamps, err := r.memory.ReadSignal()
	if err != nil {
		r.storeFailed(err)
		return err
	}

	state = r.lockCapture()
	r.buffer.Load(bits, timestamps)
	bits = r.buffer.Bits()
	delays := r.buffer.RelativeTimestamps()
	r.unlockCapture(state)

	// A record with mismatched lengths plays only the paired samples
	if len(delays) < len(bits) {
		bits = bits[:len(delays)]
	}
	DebugPrintln("Replaying " + itoa(len(bits)) + " samples x" + itoa(r.cfg.ReplayRepeat))

	r.lastErr = nil
	for pass := 0; pass < r.cfg.ReplayRepeat; pass++ {
		if err := r.playPass(bits, delays); err != nil {
			r.lastErr = err
			break
		}
		if r.aborted.Load() {
			DebugPrintln("Replay aborted")
			break
		}
	}

	if err := r.gpio.SetPin(r.cfg.SignalOutput, false); err != nil && r.lastErr == nil {
		r.lastErr = err
	}
	return r.lastErr
}

func (r *Recorder) playPass(bits []bool, delays []uint32) error {
	for i, bit := range bits {
		if r.aborted.Load() {
			return nil
		}
		r.sleeper.Wait(delays[i], Microseconds)
		if err := r.gpio.SetPin(r.cfg.SignalOutput, bit); err != nil {
			return err
		}
		RecordTiming(EvtReplayBit, uint8(i), r.clock.NowMicros(), btou(bit), delays[i])
		CommsAsync(protocol.FormatReport(bit, delays[i]))
	}
	if r.cfg.ReplayGapMS > 0 {
		r.sleeper.Wait(r.cfg.ReplayGapMS, Milliseconds)
	}
	return nil
}

// reportCaptured logs samples appended since the last call
func (r *Recorder) reportCaptured() {
	if !IsDebugEnabled() {
		return
	}

	state := r.lockCapture()
	captured := r.captured
	size := uint32(r.buffer.Size())
	first := captured - size // total index of buffer slot 0
	if r.reported < first {
		r.reported = first
	}
	var lines []string
	for ; r.reported < captured; r.reported++ {
		i := int(r.reported - first)
		var delta uint32
		if i > 0 {
			delta = r.buffer.Timestamp(i) - r.buffer.Timestamp(i-1)
		}
		lines = append(lines, protocol.FormatCapture(r.buffer.Bit(i), delta, int(r.reported)))
	}
	r.unlockCapture(state)

	for _, line := range lines {
		DebugPrintln(line)
	}
}

func (r *Recorder) storeFailed(err error) {
	r.lastErr = err
	kind := uint32(0)
	if k, ok := err.(SignalMemoryError); ok {
		kind = uint32(k)
	}
	RecordTiming(EvtStoreError, 0, r.clock.NowMicros(), kind, 0)
}

func (r *Recorder) setLED(on bool) {
	if r.cfg.LED == NoPin {
		return
	}
	_ = r.gpio.SetPin(r.cfg.LED, on)
}

func (r *Recorder) blink(p BlinkPattern) {
	if r.cfg.LED == NoPin {
		return
	}
	for i := uint8(0); i < p.Times; i++ {
		_ = r.gpio.SetPin(r.cfg.LED, true)
		r.sleeper.Wait(p.OnMS, Milliseconds)
		_ = r.gpio.SetPin(r.cfg.LED, false)
		r.sleeper.Wait(p.OffMS, Milliseconds)
	}
}

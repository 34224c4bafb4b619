package core

import "sync/atomic"

// DebugWriter is a function type for writing one line of output
type DebugWriter func(string)

// TimingEvent captures a capture/replay event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	Index     uint8  // Sample index (low 8 bits)
	Clock     uint32 // Monotonic microseconds at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtCapture     = 1 // Sample appended (v1=level)
	EvtReplayBit   = 2 // Output driven (v1=level, v2=delay before it)
	EvtStateChange = 3 // Transition (v1=from, v2=to)
	EvtStoreError  = 4 // Codec failure (v1=SignalMemoryError)
	EvtEdgeIgnored = 5 // Signal edge outside Recording (v1=state)
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln and commsPrintln are set by platform code
	debugPrintln DebugWriter = func(s string) {}
	commsPrintln DebugWriter = func(s string) {}

	debugEnabled bool
	commsEnabled bool

	// Timing capture ring. Slots are claimed with an atomic counter so
	// interrupt handlers and the main loop can both record.
	timingRing     [TimingRingSize]TimingEvent
	timingRingNext atomic.Uint32
	timingEnabled  = true

	// Async output channel
	debugChan chan asyncLine
)

type asyncLine struct {
	comms bool
	text  string
}

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetCommsWriter sets the output function for replay reports.
// It may share a port with the debug writer.
func SetCommsWriter(writer DebugWriter) {
	commsPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// SetCommsEnabled enables or disables replay reports
func SetCommsEnabled(enabled bool) {
	commsEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the goroutine that drains DebugAsync and CommsAsync.
// Call this from main() after the writers are set.
func InitAsyncDebug() {
	debugChan = make(chan asyncLine, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for line := range debugChan {
		if line.comms {
			commsPrintln(line.text)
		} else {
			debugPrintln(line.text)
		}
	}
}

// DebugPrintln writes a debug line, blocking on the writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// CommsPrintln writes a replay report line, blocking on the writer
func CommsPrintln(msg string) {
	if commsEnabled && commsPrintln != nil {
		commsPrintln(msg)
	}
}

// DebugAsync queues a debug line without blocking.
// The line is dropped if the queue is full or async output is not started.
func DebugAsync(msg string) {
	if debugEnabled {
		queueLine(asyncLine{text: msg})
	}
}

// CommsAsync queues a report line without blocking
func CommsAsync(msg string) {
	if commsEnabled {
		queueLine(asyncLine{comms: true, text: msg})
	}
}

func queueLine(line asyncLine) {
	if debugChan == nil {
		return
	}
	select {
	case debugChan <- line:
	default:
	}
}

// RecordTiming captures an event in the ring buffer. Never blocks.
func RecordTiming(eventType, index uint8, clock, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	slot := (timingRingNext.Add(1) - 1) % TimingRingSize
	timingRing[slot] = TimingEvent{
		EventType: eventType,
		Index:     index,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
}

// TimingEvents returns the recorded events oldest first
func TimingEvents() []TimingEvent {
	next := timingRingNext.Load()
	count := next
	if count > TimingRingSize {
		count = TimingRingSize
	}
	events := make([]TimingEvent, 0, count)
	for i := next - count; i != next; i++ {
		events = append(events, timingRing[i%TimingRingSize])
	}
	return events
}

// DumpTimingRing writes the timing ring to the debug writer
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		var name string
		switch evt.EventType {
		case EvtCapture:
			name = "CAPTURE"
		case EvtReplayBit:
			name = "REPLAY_BIT"
		case EvtStateChange:
			name = "STATE"
		case EvtStoreError:
			name = "STORE_ERR!"
		case EvtEdgeIgnored:
			name = "EDGE_IGNORED"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[TIMING] " + name +
			" idx=" + itoa(int(evt.Index)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingNext.Store(0)
}

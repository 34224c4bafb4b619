package core

import (
	"strings"
	"testing"
	"time"
)

func TestTimingRingKeepsNewest(t *testing.T) {
	ClearTimingRing()
	defer ClearTimingRing()

	for i := 0; i < TimingRingSize+5; i++ {
		RecordTiming(EvtCapture, uint8(i), uint32(i*10), 1, 0)
	}

	events := TimingEvents()
	if len(events) != TimingRingSize {
		t.Fatalf("expected %d events, got %d", TimingRingSize, len(events))
	}
	if events[0].Index != 5 {
		t.Errorf("oldest event index %d, expected 5", events[0].Index)
	}
	if last := events[len(events)-1]; last.Clock != uint32((TimingRingSize+4)*10) {
		t.Errorf("newest event clock %d", last.Clock)
	}
}

func TestDumpTimingRing(t *testing.T) {
	ClearTimingRing()
	defer ClearTimingRing()

	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})

	RecordTiming(EvtStateChange, 0, 42, uint32(StateIdle), uint32(StateRecording))
	RecordTiming(EvtStoreError, 0, 99, uint32(CantAllocate), 0)
	DumpTimingRing()

	if len(lines) != 4 {
		t.Fatalf("expected header, 2 events and footer, got %q", lines)
	}
	if !strings.Contains(lines[1], "STATE") || !strings.Contains(lines[1], "clock=42") || !strings.Contains(lines[1], "v2=1") {
		t.Errorf("unexpected state line %q", lines[1])
	}
	if !strings.Contains(lines[2], "STORE_ERR!") {
		t.Errorf("unexpected store line %q", lines[2])
	}
}

func TestDebugPrintlnGating(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	SetCommsWriter(func(s string) { lines = append(lines, s) })
	defer func() {
		SetDebugWriter(func(string) {})
		SetCommsWriter(func(string) {})
		SetDebugEnabled(false)
		SetCommsEnabled(false)
	}()

	SetDebugEnabled(false)
	SetCommsEnabled(false)
	DebugPrintln("hidden")
	CommsPrintln("hidden")
	if len(lines) != 0 {
		t.Fatalf("disabled output written: %q", lines)
	}

	SetDebugEnabled(true)
	SetCommsEnabled(true)
	DebugPrintln("debug")
	CommsPrintln("!comms: 1, 0")
	if len(lines) != 2 || lines[0] != "debug" || lines[1] != "!comms: 1, 0" {
		t.Errorf("unexpected output %q", lines)
	}
}

func TestAsyncOutput(t *testing.T) {
	debugLines := make(chan string, 4)
	commsLines := make(chan string, 4)
	SetDebugWriter(func(s string) { debugLines <- s })
	SetCommsWriter(func(s string) { commsLines <- s })
	SetDebugEnabled(true)
	SetCommsEnabled(true)
	defer func() {
		SetDebugEnabled(false)
		SetCommsEnabled(false)
	}()

	InitAsyncDebug()
	DebugAsync("queued")
	CommsAsync("!comms: 0, 5")

	for _, tc := range []struct {
		ch       chan string
		expected string
	}{
		{debugLines, "queued"},
		{commsLines, "!comms: 0, 5"},
	} {
		select {
		case got := <-tc.ch:
			if got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", tc.expected)
		}
	}
}

func TestItoa(t *testing.T) {
	testCases := map[int]string{0: "0", 7: "7", 1234: "1234", -56: "-56"}
	for n, want := range testCases {
		if got := itoa(n); got != want {
			t.Errorf("itoa(%d) = %q, want %q", n, got, want)
		}
	}
	if got := utoa(4294967295); got != "4294967295" {
		t.Errorf("utoa(max) = %q", got)
	}
}

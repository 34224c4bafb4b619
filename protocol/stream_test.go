package protocol

import (
	"errors"
	"testing"
)

func TestFormatLines(t *testing.T) {
	testCases := []struct {
		got      string
		expected string
	}{
		{FormatReport(true, 500), "!comms: 1, 500"},
		{FormatReport(false, 0), "!comms: 0, 0"},
		{FormatStateChange("Idle", "Recording"), "State: Idle -> Recording"},
		{FormatCapture(true, 1100, 2), "Signal received: 1 - 1100 - (2)"},
	}

	for _, tc := range testCases {
		if tc.got != tc.expected {
			t.Errorf("expected %q, got %q", tc.expected, tc.got)
		}
	}
}

func TestParseFormattedLines(t *testing.T) {
	line, err := ParseLine(FormatReport(true, 4294967276) + "\r\n")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if line.Kind != LineReport || !line.Bit || line.Interval != 4294967276 {
		t.Errorf("report decoded as %+v", line)
	}

	line, err = ParseLine(FormatStateChange("Saving", "Idle"))
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if line.Kind != LineState || line.From != "Saving" || line.To != "Idle" {
		t.Errorf("state decoded as %+v", line)
	}

	line, err = ParseLine(FormatCapture(false, 500, 1))
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if line.Kind != LineCapture || line.Bit || line.Interval != 500 || line.Index != 1 {
		t.Errorf("capture decoded as %+v", line)
	}
}

func TestParseDebugLine(t *testing.T) {
	line, err := ParseLine("Saving 3 samples")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line.Kind != LineDebug || line.Raw != "Saving 3 samples" {
		t.Errorf("debug decoded as %+v", line)
	}
}

func TestParseMalformedLines(t *testing.T) {
	testCases := []struct {
		line     string
		expected error
	}{
		{"!comms: 1", ErrMalformedReport},
		{"!comms: 2, 10", ErrMalformedReport},
		{"!comms: 1, -5", ErrMalformedReport},
		{"!comms: 1, 99999999999", ErrMalformedReport},
		{"State: Idle", ErrMalformedState},
		{"State:  -> Idle", ErrMalformedState},
		{"Signal received: 1 - 10", ErrMalformedCapture},
		{"Signal received: 1 - 10 - 3", ErrMalformedCapture},
		{"Signal received: x - 10 - (3)", ErrMalformedCapture},
	}

	for _, tc := range testCases {
		if _, err := ParseLine(tc.line); !errors.Is(err, tc.expected) {
			t.Errorf("%q: expected %v, got %v", tc.line, tc.expected, err)
		}
	}
}

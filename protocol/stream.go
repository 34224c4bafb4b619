// Text stream protocol
// The firmware has no command channel; its only output is a line-oriented
// text stream on the serial port carrying debug lines and replay reports.
package protocol

import (
	"errors"
	"strconv"
	"strings"
)

// Line prefixes written by the firmware
const (
	ReportPrefix  = "!comms: "
	StatePrefix   = "State: "
	CapturePrefix = "Signal received: "

	stateArrow = " -> "
)

var (
	ErrMalformedReport  = errors.New("malformed report line")
	ErrMalformedState   = errors.New("malformed state line")
	ErrMalformedCapture = errors.New("malformed capture line")
)

// LineKind classifies a stream line
type LineKind uint8

const (
	LineDebug   LineKind = iota // free-form debug text
	LineReport                  // replayed sample report
	LineState                   // state transition observed by the main loop
	LineCapture                 // sample captured while recording
)

// Line is one parsed stream line
type Line struct {
	Kind     LineKind
	Raw      string
	Bit      bool
	Interval uint32 // microseconds since the previous sample
	Index    int    // sample index (capture lines only)
	From     string // state lines only
	To       string
}

// FormatReport renders a replayed sample: "!comms: 1, 500"
func FormatReport(bit bool, interval uint32) string {
	return ReportPrefix + bitString(bit) + ", " + strconv.FormatUint(uint64(interval), 10)
}

// FormatStateChange renders a transition: "State: Idle -> Recording"
func FormatStateChange(from, to string) string {
	return StatePrefix + from + stateArrow + to
}

// FormatCapture renders a captured sample: "Signal received: 1 - 500 - (0)"
func FormatCapture(bit bool, interval uint32, index int) string {
	return CapturePrefix + bitString(bit) + " - " + strconv.FormatUint(uint64(interval), 10) +
		" - (" + strconv.Itoa(index) + ")"
}

// ParseLine classifies and decodes one line. Trailing CR/LF is ignored.
// Lines without a known prefix are returned as LineDebug.
func ParseLine(s string) (Line, error) {
	s = strings.TrimRight(s, "\r\n")
	line := Line{Kind: LineDebug, Raw: s}

	switch {
	case strings.HasPrefix(s, ReportPrefix):
		line.Kind = LineReport
		parts := strings.Split(strings.TrimPrefix(s, ReportPrefix), ",")
		if len(parts) != 2 {
			return line, ErrMalformedReport
		}
		bit, ok := parseBit(parts[0])
		if !ok {
			return line, ErrMalformedReport
		}
		interval, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
		if err != nil {
			return line, ErrMalformedReport
		}
		line.Bit = bit
		line.Interval = uint32(interval)

	case strings.HasPrefix(s, StatePrefix):
		line.Kind = LineState
		from, to, found := strings.Cut(strings.TrimPrefix(s, StatePrefix), stateArrow)
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !found || from == "" || to == "" {
			return line, ErrMalformedState
		}
		line.From = from
		line.To = to

	case strings.HasPrefix(s, CapturePrefix):
		line.Kind = LineCapture
		parts := strings.Split(strings.TrimPrefix(s, CapturePrefix), " - ")
		if len(parts) != 3 {
			return line, ErrMalformedCapture
		}
		bit, ok := parseBit(parts[0])
		if !ok {
			return line, ErrMalformedCapture
		}
		interval, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
		if err != nil {
			return line, ErrMalformedCapture
		}
		idx := strings.TrimSpace(parts[2])
		if !strings.HasPrefix(idx, "(") || !strings.HasSuffix(idx, ")") {
			return line, ErrMalformedCapture
		}
		index, err := strconv.Atoi(idx[1 : len(idx)-1])
		if err != nil {
			return line, ErrMalformedCapture
		}
		line.Bit = bit
		line.Interval = uint32(interval)
		line.Index = index
	}

	return line, nil
}

func bitString(bit bool) string {
	if bit {
		return "1"
	}
	return "0"
}

func parseBit(s string) (bool, bool) {
	switch strings.TrimSpace(s) {
	case "1":
		return true, true
	case "0":
		return false, true
	}
	return false, false
}

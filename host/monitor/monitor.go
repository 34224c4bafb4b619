// Package monitor follows the firmware's text stream and reassembles the
// replay reports into passes.
package monitor

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"

	"sigreplay/protocol"
)

// Sample is one replayed level with the delay that preceded it
type Sample struct {
	Bit      bool
	Interval uint32 // microseconds
}

// Pass is one complete replay of the stored signal
type Pass struct {
	Number  int // 1-based, counted since the monitor started
	Samples []Sample
}

// Duration is the sum of all intervals in microseconds
func (p Pass) Duration() uint64 {
	var total uint64
	for _, s := range p.Samples {
		total += uint64(s.Interval)
	}
	return total
}

// Bits returns the replayed levels in order
func (p Pass) Bits() []bool {
	bits := make([]bool, len(p.Samples))
	for i, s := range p.Samples {
		bits[i] = s.Bit
	}
	return bits
}

// Monitor parses stream lines and groups reports into passes.
//
// Every replay pass starts with a zero-interval sample, so a report with
// Interval 0 closes the pass in progress. A state line or the end of the
// stream closes it too.
type Monitor struct {
	r io.Reader

	// Callbacks; nil callbacks are skipped. They run on the goroutine
	// calling Run or HandleLine.
	OnReport  func(Sample)
	OnPass    func(Pass)
	OnState   func(from, to string)
	OnDebug   func(line string)
	OnCapture func(protocol.Line)

	mu        sync.Mutex
	current   []Sample
	passes    int
	malformed int
}

// New creates a monitor reading from r
func New(r io.Reader) *Monitor {
	return &Monitor{r: r}
}

// Run reads lines until EOF, a read error or ctx is cancelled. The pass in
// progress is flushed before returning. EOF is not an error.
func (m *Monitor) Run(ctx context.Context) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(m.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			m.Flush()
			return ctx.Err()
		case line := <-lines:
			m.HandleLine(line)
		case err := <-errc:
			m.Flush()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// HandleLine processes one line of the stream
func (m *Monitor) HandleLine(text string) {
	line, err := protocol.ParseLine(text)
	if err != nil {
		m.mu.Lock()
		m.malformed++
		m.mu.Unlock()
		if m.OnDebug != nil {
			m.OnDebug(line.Raw)
		}
		return
	}

	switch line.Kind {
	case protocol.LineReport:
		sample := Sample{Bit: line.Bit, Interval: line.Interval}
		if sample.Interval == 0 {
			m.Flush()
		}
		m.mu.Lock()
		m.current = append(m.current, sample)
		m.mu.Unlock()
		if m.OnReport != nil {
			m.OnReport(sample)
		}

	case protocol.LineState:
		m.Flush()
		if m.OnState != nil {
			m.OnState(line.From, line.To)
		}

	case protocol.LineCapture:
		if m.OnCapture != nil {
			m.OnCapture(line)
		}

	default:
		if m.OnDebug != nil && line.Raw != "" {
			m.OnDebug(line.Raw)
		}
	}
}

// Flush closes the pass in progress, if any
func (m *Monitor) Flush() {
	m.mu.Lock()
	if len(m.current) == 0 {
		m.mu.Unlock()
		return
	}
	m.passes++
	pass := Pass{Number: m.passes, Samples: m.current}
	m.current = nil
	m.mu.Unlock()

	if m.OnPass != nil {
		m.OnPass(pass)
	}
}

// Passes returns the number of completed passes
func (m *Monitor) Passes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.passes
}

// Malformed returns the number of lines that carried a known prefix but
// could not be decoded
func (m *Monitor) Malformed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.malformed
}

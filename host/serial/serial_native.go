//go:build !wasm

package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

var errNilConfig = errors.New("config cannot be nil")

// rawPort is the subset of *serial.Port the stream needs
type rawPort interface {
	io.ReadWriteCloser
	Flush() error
}

// openRaw is replaced in tests
var openRaw = func(c *serial.Config) (rawPort, error) {
	return serial.OpenPort(c)
}

// NativePort is a tarm/serial port that hides read timeouts from line
// scanners
type NativePort struct {
	raw    rawPort
	device string
}

// Open opens a native serial port
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, errNilConfig
	}

	raw, err := openRaw(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	return &NativePort{raw: raw, device: cfg.Device}, nil
}

// Device returns the path the port was opened with
func (p *NativePort) Device() string {
	return p.device
}

// Read blocks until at least one byte arrives. tarm/serial reports a read
// timeout as (0, nil), which bufio.Scanner gives up on after 100 tries.
func (p *NativePort) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	for {
		n, err := p.raw.Read(b)
		if n > 0 || err != nil {
			return n, err
		}
	}
}

func (p *NativePort) Write(b []byte) (int, error) {
	return p.raw.Write(b)
}

func (p *NativePort) Close() error {
	return p.raw.Close()
}

// Flush discards unread input so the monitor starts on a fresh line
func (p *NativePort) Flush() error {
	return p.raw.Flush()
}

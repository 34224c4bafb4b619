//go:build !wasm

package serial

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarm/serial"
)

// timeoutPort returns (0, nil) a few times before each chunk, the way
// tarm/serial reports an expired ReadTimeout
type timeoutPort struct {
	chunks   []string
	timeouts int
	pending  int
	flushed  bool
	closed   bool
}

func (p *timeoutPort) Read(b []byte) (int, error) {
	if len(p.chunks) == 0 {
		return 0, io.EOF
	}
	if p.pending < p.timeouts {
		p.pending++
		return 0, nil
	}
	p.pending = 0
	n := copy(b, p.chunks[0])
	p.chunks = p.chunks[1:]
	return n, nil
}

func (p *timeoutPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *timeoutPort) Close() error                { p.closed = true; return nil }
func (p *timeoutPort) Flush() error                { p.flushed = true; return nil }

func withRaw(t *testing.T, raw rawPort, err error) *serial.Config {
	t.Helper()
	var seen serial.Config
	orig := openRaw
	openRaw = func(c *serial.Config) (rawPort, error) {
		seen = *c
		return raw, err
	}
	t.Cleanup(func() { openRaw = orig })
	return &seen
}

func TestOpenPassesConfig(t *testing.T) {
	seen := withRaw(t, &timeoutPort{}, nil)

	port, err := Open(DefaultConfig("/dev/ttyACM1"))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM1", seen.Name)
	assert.Equal(t, 9600, seen.Baud)
	assert.Equal(t, "/dev/ttyACM1", port.(*NativePort).Device())
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(nil)
	assert.ErrorIs(t, err, errNilConfig)

	boom := errors.New("no such device")
	withRaw(t, nil, boom)
	_, err = Open(DefaultConfig("/dev/missing"))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "/dev/missing")
}

func TestReadSkipsTimeouts(t *testing.T) {
	raw := &timeoutPort{chunks: []string{"!comms: 1, 0\n", "!comms: 0, 5\n"}, timeouts: 150}
	withRaw(t, raw, nil)

	port, err := Open(DefaultConfig("/dev/ttyACM0"))
	require.NoError(t, err)

	data, err := io.ReadAll(port)
	require.NoError(t, err)
	assert.Equal(t, "!comms: 1, 0\n!comms: 0, 5\n", string(data))

	require.NoError(t, port.Flush())
	require.NoError(t, port.Close())
	assert.True(t, raw.flushed)
	assert.True(t, raw.closed)
}

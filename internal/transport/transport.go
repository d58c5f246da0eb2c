// Package transport moves encoded frames to the LED data line.
//
// The core only needs a sink that takes a whole byte buffer at a given clock
// rate; SPI wraps a periph.io SPI port, Console prints the decoded frame to
// the terminal and Sim records frames in memory.
package transport

import (
	"errors"

	"periph.io/x/conn/v3/physic"
)

var (
	// ErrClosed is returned by a transport after Close.
	ErrClosed = errors.New("transport: closed")
	// ErrNotStarted is returned by Transfer before Begin.
	ErrNotStarted = errors.New("transport: not started")
	// ErrTooLarge is returned when a buffer exceeds the maximum transfer
	// size. Transfers are never truncated.
	ErrTooLarge = errors.New("transport: buffer exceeds maximum transfer size")
	// ErrPin is returned by Begin when the port is not wired to the requested
	// pins.
	ErrPin = errors.New("transport: pin mismatch")
)

// Pins names the lines a transport drives. Empty names are not checked. Only
// MOSI carries data; the LEDs have no clock input and send nothing back.
type Pins struct {
	MOSI string
	CLK  string
	MISO string
	CS   string
}

// Transport is a write-only sink for transmit buffers.
//
// The call order is Alloc, Configure, Begin, then Transfer once per frame.
type Transport interface {
	// Alloc returns a buffer of size bytes the transport can send.
	Alloc(size int) ([]byte, error)
	// Configure sets the clock rate and the largest buffer the caller will
	// submit. maxTxSize 0 means no caller limit.
	Configure(f physic.Frequency, maxTxSize int) error
	// Begin acquires the hardware.
	Begin(pins Pins) error
	// Transfer sends tx. rx may be nil. Failures are *TransportError.
	Transfer(tx, rx []byte) error
	Close() error
}

// Setup runs the Alloc, Configure, Begin sequence and returns the frame
// buffer. Allocating first lets every later step check the frame size.
func Setup(t Transport, size int, f physic.Frequency, maxTxSize int, pins Pins) ([]byte, error) {
	buf, err := t.Alloc(size)
	if err != nil {
		return nil, err
	}
	if err := t.Configure(f, maxTxSize); err != nil {
		return nil, err
	}
	if err := t.Begin(pins); err != nil {
		return nil, err
	}
	return buf, nil
}

// TransportError is a failed frame submission. The frame is lost; the next
// one may succeed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

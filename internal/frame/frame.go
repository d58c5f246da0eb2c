// Package frame assembles the SPI transmit buffer for one refresh.
//
// A frame is a reset region of zero bytes followed by the encoded G, R and B
// channels of every LED in wiring order:
//
//	| reset (zeros) | LED 0 G R B | LED 1 G R B | ... | LED n-1 G R B |
//
// The buffer is allocated once and rewritten in full before every transfer.
package frame

import (
	"errors"
	"fmt"

	"github.com/coreman2200/ws2812spi/internal/encoding"
	"github.com/coreman2200/ws2812spi/internal/model"
)

// ErrBufferSize is returned when a buffer does not match the frame layout.
var ErrBufferSize = errors.New("frame: buffer size does not match layout")

// channel shifts in wire order.
var channels = [3]uint8{model.GREEN_OFFSET, model.RED_OFFSET, model.BLUE_OFFSET}

// Layout describes where things live in a transmit buffer.
type Layout struct {
	Enc      *encoding.Encoding
	ResetLen int
	LEDs     int
}

// Validate checks the layout can describe a frame.
func (l Layout) Validate() error {
	if l.Enc == nil {
		return errors.New("frame: nil encoding")
	}
	if l.LEDs <= 0 || l.ResetLen < 0 {
		return fmt.Errorf("frame: invalid layout (%d LEDs, %d reset bytes)", l.LEDs, l.ResetLen)
	}
	return nil
}

// Size is the exact buffer length of a frame.
func (l Layout) Size() int {
	return l.ResetLen + l.LEDs*l.Enc.BytesPerLED()
}

// PackReset zero-fills the reset region of buf and leaves the rest
// untouched.
func (l Layout) PackReset(buf []byte) {
	reset := buf[:l.ResetLen]
	for i := range reset {
		reset[i] = 0
	}
}

// PackColor writes the encoded G, R, B channels of c to the start of dst,
// each channel MSB first. dst must hold at least BytesPerLED bytes.
func (l Layout) PackColor(dst []byte, c model.ColorVal) {
	e := l.Enc
	_ = dst[e.BytesPerLED()-1]
	mask := e.Mask()
	spc := e.SymbolsPerChannel()
	o := 0
	for _, shift := range channels {
		v := uint8(uint32(c) >> shift)
		for k := spc - 1; k >= 0; k-- {
			sym := (v >> uint(k*e.SymbolBits)) & mask
			o += copy(dst[o:], e.Encode(sym))
		}
	}
}

// Frame is a transmit buffer together with its layout.
type Frame struct {
	Layout
	buf []byte
}

// New wraps buf, which must be exactly l.Size() bytes long.
func New(l Layout, buf []byte) (*Frame, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if want := l.Size(); len(buf) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrBufferSize, len(buf), want)
	}
	return &Frame{Layout: l, buf: buf}, nil
}

// Bytes returns the whole transmit buffer.
func (f *Frame) Bytes() []byte { return f.buf }

// Len is the buffer length.
func (f *Frame) Len() int { return len(f.buf) }

// Pack rewrites the whole buffer: reset region then every LED. colors must
// have one entry per LED.
func (f *Frame) Pack(colors []model.ColorVal) {
	if len(colors) != f.LEDs {
		panic(fmt.Sprintf("frame: %d colors for %d LEDs", len(colors), f.LEDs))
	}
	f.PackReset(f.buf)
	per := f.Enc.BytesPerLED()
	for i, c := range colors {
		off := f.ResetLen + i*per
		f.PackColor(f.buf[off:off+per], c)
	}
}

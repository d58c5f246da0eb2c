package frame

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/ws2812spi/internal/encoding"
	"github.com/coreman2200/ws2812spi/internal/model"
)

// ErrDecode is returned when a buffer does not measure as a valid frame.
var ErrDecode = errors.New("frame: cannot decode")

// Decode measures the waveform of buf as it would leave the SPI port at freq and
// returns the colors it carries. The reset region must be all zeros and every
// pulse must fit t.
func (l Layout) Decode(buf []byte, freq physic.Frequency, t encoding.Timing) ([]model.ColorVal, error) {
	if len(buf) != l.Size() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrBufferSize, len(buf), l.Size())
	}
	for i, b := range buf[:l.ResetLen] {
		if b != 0 {
			return nil, fmt.Errorf("%w: reset byte %d is %#02x", ErrDecode, i, b)
		}
	}
	per := l.Enc.BytesPerLED()
	out := make([]model.ColorVal, l.LEDs)
	for i := range out {
		off := l.ResetLen + i*per
		ps := encoding.Pulses(buf[off:off+per], freq)
		if len(ps) != 24 {
			return nil, fmt.Errorf("%w: LED %d has %d pulses", ErrDecode, i, len(ps))
		}
		var v uint32
		for k, p := range ps {
			bit, ok := t.Classify(p)
			if !ok {
				return nil, fmt.Errorf("%w: LED %d bit %d pulse %s outside %s", ErrDecode, i, k, p, t.Name)
			}
			v = v<<1 | uint32(bit)
		}
		out[i] = model.ColorVal(v)
	}
	return out, nil
}

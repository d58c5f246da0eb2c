package transport

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"

	"github.com/coreman2200/ws2812spi/internal/encoding"
	"github.com/coreman2200/ws2812spi/internal/frame"
)

// NRZLEDFreq is the only SPI clock periph's nrzled driver accepts. It sends
// 4 SPI bits per protocol bit ("0" is 1000, "1" is 1110).
const NRZLEDFreq = 2500 * physic.KiloHertz

// OpenNRZLED opens the SPI port registered as name and drives the strip
// through periph's nrzled driver. Frames are decoded back to colors and
// re-encoded by nrzled, which gives a reference output to compare the local
// encodings against on real hardware.
func OpenNRZLED(name string, l frame.Layout, t encoding.Timing) (*Console, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("transport: open spi %q: %w", name, err)
	}
	c, err := NewNRZLED(p, l, t)
	if err != nil {
		p.Close()
		return nil, err
	}
	c.closer = p
	return c, nil
}

// NewNRZLED is OpenNRZLED on an already opened port. The caller keeps
// ownership of p.
func NewNRZLED(p spi.Port, l frame.Layout, t encoding.Timing) (*Console, error) {
	d, err := nrzled.NewSPI(p, &nrzled.Opts{NumPixels: l.LEDs, Channels: 3, Freq: NRZLEDFreq})
	if err != nil {
		return nil, fmt.Errorf("transport: nrzled: %w", err)
	}
	return NewConsole(d, l, t), nil
}

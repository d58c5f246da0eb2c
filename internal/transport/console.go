package transport

import (
	"fmt"
	"image"
	"io"
	"sync"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/ws2812spi/internal/encoding"
	"github.com/coreman2200/ws2812spi/internal/frame"
)

// Console decodes every frame back into colors and draws it as one row on a
// display.Drawer, the terminal by default. It needs no hardware.
type Console struct {
	mu     sync.Mutex
	drawer display.Drawer
	layout frame.Layout
	timing encoding.Timing
	freq   physic.Frequency
	img    *image.NRGBA
	closer io.Closer
	closed bool
}

// OpenConsole prints frames to the terminal with ANSI colors.
func OpenConsole(l frame.Layout, t encoding.Timing) *Console {
	return NewConsole(screen.New(l.LEDs), l, t)
}

// NewConsole draws decoded frames on d.
func NewConsole(d display.Drawer, l frame.Layout, t encoding.Timing) *Console {
	return &Console{
		drawer: d,
		layout: l,
		timing: t,
		freq:   l.Enc.Freq,
		img:    image.NewNRGBA(image.Rect(0, 0, l.LEDs, 1)),
	}
}

func (c *Console) Alloc(size int) ([]byte, error) {
	if want := c.layout.Size(); size != want {
		return nil, fmt.Errorf("%w: console expects %d bytes, got %d", frame.ErrBufferSize, want, size)
	}
	return make([]byte, size), nil
}

// Configure sets the clock rate used to measure pulses.
func (c *Console) Configure(f physic.Frequency, maxTxSize int) error {
	if f < physic.Hertz {
		return fmt.Errorf("transport: invalid clock rate %s", f)
	}
	c.mu.Lock()
	c.freq = f
	c.mu.Unlock()
	return nil
}

func (c *Console) Begin(Pins) error { return nil }

func (c *Console) Transfer(tx, rx []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return &TransportError{Op: "draw", Err: ErrClosed}
	}
	colors, err := c.layout.Decode(tx, c.freq, c.timing)
	if err != nil {
		return &TransportError{Op: "decode", Err: err}
	}
	for x, col := range colors {
		c.img.SetNRGBA(x, 0, col.NRGBA())
	}
	if err := c.drawer.Draw(c.drawer.Bounds(), c.img, image.Point{}); err != nil {
		return &TransportError{Op: "draw", Err: err}
	}
	return nil
}

func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.drawer.Halt()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

var _ Transport = &Console{}

package model

import (
	"fmt"
	"image/color"
)

// Channel offsets inside a packed ColorVal.
const (
	GREEN_OFFSET uint8 = 0x10
	RED_OFFSET   uint8 = 0x08
	BLUE_OFFSET  uint8 = 0x0
)

// ColorMask keeps the bits a ColorVal actually carries.
const ColorMask uint32 = 0x00FFFFFF

// ColorVal is a 24 bit color packed as 0xGGRRBB, which is the order the LEDs
// expect on the wire. The top byte is ignored.
type ColorVal uint32

// NewColor packs three channel intensities.
func NewColor(g, r, b uint8) ColorVal {
	var c ColorVal
	c.SetG(g)
	c.SetR(r)
	c.SetB(b)
	return c
}

func setcolor(c uint32, n uint8, off uint8) uint32 {
	var val uint32 = uint32(n) << off
	var mask uint32 = 0xFF << off
	return (c & (^mask)) | val
}

func getcolor(c uint32, off uint8) uint8 {
	var mask uint32 = 0xFF << off
	return uint8((c & (mask)) >> off)
}

// Masked drops everything above bit 23.
func (c ColorVal) Masked() ColorVal {
	return ColorVal(uint32(c) & ColorMask)
}

func (c *ColorVal) SetG(g uint8) {
	*c = ColorVal(setcolor(uint32(*c), g, GREEN_OFFSET))
}
func (c *ColorVal) SetR(r uint8) {
	*c = ColorVal(setcolor(uint32(*c), r, RED_OFFSET))
}
func (c *ColorVal) SetB(b uint8) {
	*c = ColorVal(setcolor(uint32(*c), b, BLUE_OFFSET))
}

func (c ColorVal) G() uint8 {
	return getcolor(uint32(c), GREEN_OFFSET)
}
func (c ColorVal) R() uint8 {
	return getcolor(uint32(c), RED_OFFSET)
}
func (c ColorVal) B() uint8 {
	return getcolor(uint32(c), BLUE_OFFSET)
}

// NRGBA converts to an opaque image color, for previews.
func (c ColorVal) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R(), G: c.G(), B: c.B(), A: 255}
}

func (c ColorVal) String() string {
	return fmt.Sprintf("#%06x", uint32(c.Masked()))
}

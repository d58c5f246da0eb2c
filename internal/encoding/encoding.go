// Package encoding expands WS281x protocol bits into SPI bit patterns.
//
// An SPI peripheral clocked at a fixed rate emits one output bit per clock
// period. A run of ones followed by a run of zeros is a pulse whose high and
// low times are multiples of that period, which is enough to reproduce the NRZ
// waveform WS2812-family LEDs expect on their data line.
//
// Each Encoding is a lookup table keyed by a small symbol (a group of protocol
// bits) together with the SPI clock it was designed for.
package encoding

import (
	"fmt"
	"strings"

	"periph.io/x/conn/v3/physic"
)

// Encoding describes one (clock rate, expansion factor) solution.
type Encoding struct {
	// Name is the short name used in configuration files.
	Name string
	// Freq is the SPI clock the table was designed for.
	Freq physic.Frequency
	// SymbolBits is the number of protocol bits carried by one symbol.
	SymbolBits int
	// PatternLen is the number of bytes emitted per symbol.
	PatternLen int
	// Timing is the LED family the table targets.
	Timing Timing

	table []byte
}

var (
	// A runs at 10MHz with 12 SPI bits per protocol bit. A symbol is two
	// protocol bits packed into 3 bytes; "0" is 0xE00 (300ns/900ns) and "1" is
	// 0xFC0 (600ns/600ns).
	A = &Encoding{
		Name:       "A",
		Freq:       10 * physic.MegaHertz,
		SymbolBits: 2,
		PatternLen: 3,
		Timing:     WS2812B,
		table: []byte{
			0xE0, 0x0E, 0x00, // 00
			0xE0, 0x0F, 0xC0, // 01
			0xFC, 0x0E, 0x00, // 10
			0xFC, 0x0F, 0xC0, // 11
		},
	}

	// B runs at 3.2MHz with 4 SPI bits per protocol bit, so one symbol of two
	// protocol bits fits a single byte. "0" is 1000 and "1" is 1100.
	B = &Encoding{
		Name:       "B",
		Freq:       3200 * physic.KiloHertz,
		SymbolBits: 2,
		PatternLen: 1,
		Timing:     WS2812B,
		table:      []byte{0x88, 0x8C, 0xC8, 0xCC},
	}

	// C runs at 2.4MHz with 3 SPI bits per protocol bit. A symbol is a whole
	// channel byte expanded to 3 bytes, "0" is 100 and "1" is 110, the same
	// table a raw spidev WS2812 driver builds.
	C = &Encoding{
		Name:       "C",
		Freq:       2400 * physic.KiloHertz,
		SymbolBits: 8,
		PatternLen: 3,
		Timing:     WS2812,
		table:      nrzTable(),
	}
)

var aliases = map[string]*Encoding{
	"A":   A,
	"X12": A,
	"B":   B,
	"X4":  B,
	"C":   C,
	"X3":  C,
}

// Lookup returns the encoding registered under name. Matching is case
// insensitive and accepts the expansion factor ("x12", "x4", "x3") as well.
func Lookup(name string) (*Encoding, error) {
	if e, ok := aliases[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("encoding: unknown variant %q", name)
}

// Encode returns the pattern for sym. The slice aliases the lookup table and
// must not be modified.
//
// sym must already be masked with Mask; Encode does not check it.
func (e *Encoding) Encode(sym uint8) []byte {
	i := int(sym) * e.PatternLen
	return e.table[i : i+e.PatternLen : i+e.PatternLen]
}

// Mask is the bit mask callers apply before calling Encode.
func (e *Encoding) Mask() uint8 {
	return uint8(e.Symbols() - 1)
}

// Symbols is the size of the symbol domain.
func (e *Encoding) Symbols() int {
	return 1 << e.SymbolBits
}

// SymbolsPerChannel is the number of symbols needed for one 8 bit channel.
func (e *Encoding) SymbolsPerChannel() int {
	return 8 / e.SymbolBits
}

// BytesPerChannel is the encoded size of one 8 bit channel.
func (e *Encoding) BytesPerChannel() int {
	return e.SymbolsPerChannel() * e.PatternLen
}

// BytesPerLED is the encoded size of one G, R, B triplet.
func (e *Encoding) BytesPerLED() int {
	return 3 * e.BytesPerChannel()
}

// Expansion is the number of SPI bits emitted per protocol bit.
func (e *Encoding) Expansion() int {
	return e.PatternLen * 8 / e.SymbolBits
}

func (e *Encoding) String() string {
	return fmt.Sprintf("%s(x%d@%s)", e.Name, e.Expansion(), e.Freq)
}

// expandNRZ converts a 8 bit channel intensity into the encoded 24 bits.
//
// The stream is 1x01x01x01x01x01x01x01x0 with the x bits being the bits from
// b, MSB first.
func expandNRZ(b byte) uint32 {
	out := uint32(0x924924)
	for i := 7; i >= 0; i-- {
		if b&(1<<uint(i)) != 0 {
			out |= 1 << uint(3*i+1)
		}
	}
	return out
}

func nrzTable() []byte {
	t := make([]byte, 256*3)
	for v := 0; v < 256; v++ {
		out := expandNRZ(byte(v))
		t[3*v+0] = byte(out >> 16)
		t[3*v+1] = byte(out >> 8)
		t[3*v+2] = byte(out)
	}
	return t
}

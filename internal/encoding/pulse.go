package encoding

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

// ErrOutOfTolerance is returned by Validate when a pattern does not decode
// inside the LED family's timing windows.
var ErrOutOfTolerance = errors.New("encoding: pulse outside timing tolerance")

// Pulse is one high run followed by the low run that precedes the next
// rising edge.
type Pulse struct {
	High, Low time.Duration
}

func (p Pulse) String() string {
	return fmt.Sprintf("%s/%s", p.High, p.Low)
}

// Duration is the time taken to shift out bits at f.
func Duration(bits int, f physic.Frequency) time.Duration {
	hz := int64(f / physic.Hertz)
	if hz == 0 {
		return 0
	}
	return time.Duration(int64(bits) * int64(time.Second) / hz)
}

// Pulses measures the waveform produced by shifting data out MSB first at f.
// Leading zeros are skipped; the low run of the last pulse extends to the end
// of data.
func Pulses(data []byte, f physic.Frequency) []Pulse {
	var out []Pulse
	high, low := 0, 0
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			switch set := (b>>uint(i))&1 == 1; {
			case set && low > 0:
				out = append(out, Pulse{High: Duration(high, f), Low: Duration(low, f)})
				high, low = 1, 0
			case set:
				high++
			case high > 0:
				low++
			}
		}
	}
	if high > 0 {
		out = append(out, Pulse{High: Duration(high, f), Low: Duration(low, f)})
	}
	return out
}

// Validate checks that every symbol of e, clocked at f, decodes back to its
// own bits within the windows of t.
func Validate(e *Encoding, f physic.Frequency, t Timing) error {
	if f < physic.Hertz {
		return fmt.Errorf("encoding: invalid clock rate %s", f)
	}
	for sym := 0; sym < e.Symbols(); sym++ {
		ps := Pulses(e.Encode(uint8(sym)), f)
		if len(ps) != e.SymbolBits {
			return fmt.Errorf("%w: variant %s symbol %#x yields %d pulses at %s, want %d",
				ErrOutOfTolerance, e.Name, sym, len(ps), f, e.SymbolBits)
		}
		for k, p := range ps {
			want := uint8(sym>>uint(e.SymbolBits-1-k)) & 1
			got, ok := t.Classify(p)
			if !ok || got != want {
				return fmt.Errorf("%w: variant %s symbol %#x bit %d is %s at %s (%s)",
					ErrOutOfTolerance, e.Name, sym, k, p, f, t.Name)
			}
		}
	}
	return nil
}

// ResetBytes is the number of zero bytes that keep the line low for at least
// d at f.
func ResetBytes(f physic.Frequency, d time.Duration) int {
	hz := int64(f / physic.Hertz)
	bits := (d.Nanoseconds()*hz + int64(time.Second) - 1) / int64(time.Second)
	return int((bits + 7) / 8)
}

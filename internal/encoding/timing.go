package encoding

import (
	"fmt"
	"strings"
	"time"
)

// Window is an inclusive duration range.
type Window struct {
	Min, Max time.Duration
}

// Contains reports whether d lies inside the window.
func (w Window) Contains(d time.Duration) bool {
	return d >= w.Min && d <= w.Max
}

// Timing holds the pulse tolerances of an LED family.
type Timing struct {
	Name string
	// T0H and T0L are the high and low times of a "0" bit.
	T0H, T0L Window
	// T1H and T1L are the high and low times of a "1" bit.
	T1H, T1L Window
	// Reset is the minimum low time that latches a frame.
	Reset time.Duration
}

var (
	// WS2812B uses the V5 datasheet windows.
	WS2812B = Timing{
		Name:  "ws2812b",
		T0H:   Window{220 * time.Nanosecond, 380 * time.Nanosecond},
		T0L:   Window{580 * time.Nanosecond, 1000 * time.Nanosecond},
		T1H:   Window{580 * time.Nanosecond, 1000 * time.Nanosecond},
		T1L:   Window{580 * time.Nanosecond, 1000 * time.Nanosecond},
		Reset: 80 * time.Microsecond,
	}

	// WS2812 is the classic family, nominal values ±150ns.
	WS2812 = Timing{
		Name:  "ws2812",
		T0H:   Window{250 * time.Nanosecond, 550 * time.Nanosecond},
		T0L:   Window{700 * time.Nanosecond, 1000 * time.Nanosecond},
		T1H:   Window{650 * time.Nanosecond, 950 * time.Nanosecond},
		T1L:   Window{300 * time.Nanosecond, 600 * time.Nanosecond},
		Reset: 50 * time.Microsecond,
	}
)

// TimingByName returns a known LED family.
func TimingByName(name string) (Timing, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case WS2812B.Name:
		return WS2812B, nil
	case WS2812.Name, "ws2811", "sk6812":
		return WS2812, nil
	}
	return Timing{}, fmt.Errorf("encoding: unknown led family %q", name)
}

// Classify decodes a pulse into a protocol bit. ok is false when the pulse
// matches neither the "0" nor the "1" windows.
func (t Timing) Classify(p Pulse) (bit uint8, ok bool) {
	switch {
	case t.T0H.Contains(p.High) && t.T0L.Contains(p.Low):
		return 0, true
	case t.T1H.Contains(p.High) && t.T1L.Contains(p.Low):
		return 1, true
	}
	return 0, false
}

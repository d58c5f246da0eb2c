// Package model holds the LED color values and the built-in animation.
package model

// UpdateColorMap fills m with the rotating three channel band for frame
// offset.
//
// LED i shows position val = (i+offset) mod len(m). val%3 picks the channel
// (0 blue, 1 red, 2 green) and val/2 its intensity, truncated to 8 bits. A
// full rotation (offset += len(m)) yields the same map.
func UpdateColorMap(m []ColorVal, offset uint64) {
	n := uint64(len(m))
	if n == 0 {
		return
	}
	for i := range m {
		val := (uint64(i) + offset%n) % n
		level := uint32(val/2) & 0xFF
		switch val % 3 {
		case 0:
			m[i] = ColorVal(level << BLUE_OFFSET)
		case 1:
			m[i] = ColorVal(level << RED_OFFSET)
		case 2:
			m[i] = ColorVal(level << GREEN_OFFSET)
		}
	}
}

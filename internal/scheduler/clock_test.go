package scheduler

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestElapsed(t *testing.T) {
	tests := []struct {
		name      string
		last, now uint32
		want      uint32
	}{
		{"same", 100, 100, 0},
		{"forward", 100, 250, 150},
		{"from zero", 0, 99, 99},
		{"wrapped", math.MaxUint32 - 40, 60, 100},
		{"wrapped to zero", math.MaxUint32 - 5, 0, 5},
		{"just before wrap", math.MaxUint32 - 5, math.MaxUint32, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Elapsed(tt.last, tt.now))
		})
	}
}

func TestElapsedAcrossWrapStaysPlausible(t *testing.T) {
	samples := []uint32{
		math.MaxUint32 - 250, math.MaxUint32 - 150, math.MaxUint32 - 50,
		math.MaxUint32, 49, 149, 249,
	}
	for i := 1; i < len(samples); i++ {
		e := Elapsed(samples[i-1], samples[i])
		assert.LessOrEqual(t, e, uint32(100), "sample %d", i)
		assert.GreaterOrEqual(t, e, uint32(49), "sample %d", i)
	}
}

func TestClockMillis(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := NewClock(fc)
	assert.Equal(t, uint32(0), c.Millis())
	fc.Advance(1500 * time.Millisecond)
	assert.Equal(t, uint32(1500), c.Millis())
}

func TestClockWraps(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := NewClock(fc)
	fc.Advance(time.Duration(math.MaxUint32) * time.Millisecond)
	assert.Equal(t, uint32(math.MaxUint32), c.Millis())
	fc.Advance(11 * time.Millisecond)
	assert.Equal(t, uint32(10), c.Millis())
}

func TestClockFunc(t *testing.T) {
	var c Clock = ClockFunc(func() uint32 { return 42 })
	assert.Equal(t, uint32(42), c.Millis())
}

package scheduler

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is a monotonic millisecond counter that wraps at math.MaxUint32.
type Clock interface {
	Millis() uint32
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint32

func (f ClockFunc) Millis() uint32 { return f() }

type uptime struct {
	c     clockwork.Clock
	start time.Time
}

// NewClock counts milliseconds since the call on c. The counter wraps after
// about 49.7 days.
func NewClock(c clockwork.Clock) Clock {
	return &uptime{c: c, start: c.Now()}
}

func (u *uptime) Millis() uint32 {
	return uint32(u.c.Since(u.start).Milliseconds())
}

// Elapsed is the time from last to now on a counter that wraps at
// math.MaxUint32. A now smaller than last means the counter wrapped once.
func Elapsed(last, now uint32) uint32 {
	if now >= last {
		return now - last
	}
	return (math.MaxUint32 - last) + now
}

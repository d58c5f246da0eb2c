// Package scheduler rebuilds and submits a frame once per refresh interval.
//
// The Scheduler is polled from a single cooperative loop. When the interval
// has not elapsed Tick returns immediately; otherwise it regenerates the color
// map, repacks the whole frame buffer and hands it to the transport. The
// buffer is never touched after submission until the next tick.
package scheduler

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/coreman2200/ws2812spi/internal/frame"
	"github.com/coreman2200/ws2812spi/internal/model"
	"github.com/coreman2200/ws2812spi/internal/transport"
)

// Phase is the scheduler state.
type Phase int

const (
	// Idle waits for the interval to elapse.
	Idle Phase = iota
	// Transmitting is building and submitting a frame.
	Transmitting
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Transmitting:
		return "transmitting"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// State is the tick clock state.
type State struct {
	// LastTransfer is the timestamp of the last successful submission.
	LastTransfer uint32
	// LastAttempt is the timestamp of the last submission, failed or not.
	// The interval is measured from it.
	LastAttempt uint32
	// Frames counts successful submissions. It is also the animation offset
	// of the next frame.
	Frames uint64
}

// Observer is told about every frame that reached the transport. colors is
// only valid for the duration of the call.
type Observer interface {
	Observe(frame uint64, colors []model.ColorVal)
}

// FailureObserver is an Observer that also wants dropped frames.
type FailureObserver interface {
	Observer
	Dropped(frame uint64, err error)
}

// Options configures a Scheduler.
type Options struct {
	Frame     *frame.Frame
	Transport transport.Transport
	Clock     Clock
	Interval  time.Duration
	Observers []Observer
}

// Scheduler owns the color map, the frame buffer and the tick state.
type Scheduler struct {
	frame     *frame.Frame
	tx        transport.Transport
	clock     Clock
	interval  uint32
	colors    []model.ColorVal
	state     State
	phase     Phase
	observers []Observer
}

// New returns an idle scheduler.
func New(o Options) (*Scheduler, error) {
	switch {
	case o.Frame == nil:
		return nil, errors.New("scheduler: nil frame")
	case o.Transport == nil:
		return nil, errors.New("scheduler: nil transport")
	case o.Clock == nil:
		return nil, errors.New("scheduler: nil clock")
	}
	ms := o.Interval.Milliseconds()
	if ms < 1 || ms > math.MaxUint32/2 {
		return nil, fmt.Errorf("scheduler: invalid interval %s", o.Interval)
	}
	return &Scheduler{
		frame:     o.Frame,
		tx:        o.Transport,
		clock:     o.Clock,
		interval:  uint32(ms),
		colors:    make([]model.ColorVal, o.Frame.LEDs),
		observers: o.Observers,
	}, nil
}

// Poll is Tick at the clock's current time.
func (s *Scheduler) Poll() (bool, error) {
	return s.Tick(s.clock.Millis())
}

// Tick sends a frame if at least one interval passed since the last attempt.
// It reports whether a frame was submitted.
//
// A transport failure drops the frame: the error is returned as a
// *transport.TransportError, the frame counter does not move and the next
// attempt waits a full interval.
func (s *Scheduler) Tick(now uint32) (bool, error) {
	if Elapsed(s.state.LastAttempt, now) < s.interval {
		return false, nil
	}
	s.phase = Transmitting
	defer func() { s.phase = Idle }()

	s.state.LastAttempt = now
	model.UpdateColorMap(s.colors, s.state.Frames)
	s.frame.Pack(s.colors)
	if err := s.tx.Transfer(s.frame.Bytes(), nil); err != nil {
		var te *transport.TransportError
		if !errors.As(err, &te) {
			err = &transport.TransportError{Op: "transfer", Err: err}
		}
		for _, o := range s.observers {
			if fo, ok := o.(FailureObserver); ok {
				fo.Dropped(s.state.Frames, err)
			}
		}
		return false, err
	}

	n := s.state.Frames
	s.state.Frames++
	s.state.LastTransfer = now
	for _, o := range s.observers {
		o.Observe(n, s.colors)
	}
	return true, nil
}

// State returns a copy of the tick state.
func (s *Scheduler) State() State { return s.state }

// Phase is the current state machine phase.
func (s *Scheduler) Phase() Phase { return s.phase }

// Colors is the color map of the last built frame. It must not be modified.
func (s *Scheduler) Colors() []model.ColorVal { return s.colors }

// Interval is the refresh interval.
func (s *Scheduler) Interval() time.Duration {
	return time.Duration(s.interval) * time.Millisecond
}

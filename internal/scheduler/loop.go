package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/ws2812spi/internal/transport"
)

// DefaultPollInterval is how often a Looper polls its scheduler.
const DefaultPollInterval = time.Millisecond

// Looper polls a Scheduler until its context is cancelled.
type Looper struct {
	s     *Scheduler
	clock clockwork.Clock
	every time.Duration
}

// NewLooper polls s every period on c. A zero period uses
// DefaultPollInterval.
func NewLooper(s *Scheduler, c clockwork.Clock, every time.Duration) *Looper {
	if every <= 0 {
		every = DefaultPollInterval
	}
	return &Looper{s: s, clock: c, every: every}
}

// Run polls until ctx is done. Transport failures are logged and the loop
// carries on with the next interval; any other error stops it.
func (l *Looper) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("frames", l.s.State().Frames).Msg("scheduler stopped")
			return nil

		case <-ticker.Chan():
			sent, err := l.s.Poll()
			var te *transport.TransportError
			switch {
			case errors.As(err, &te):
				log.Warn().Err(err).Uint64("frame", l.s.State().Frames).Msg("transfer failed; frame dropped")
			case err != nil:
				return err
			case sent:
				log.Trace().Uint64("frame", l.s.State().Frames-1).Msg("frame sent")
			}
		}
	}
}

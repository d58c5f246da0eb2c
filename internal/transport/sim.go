package transport

import (
	"sync"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
)

// Sim keeps the last frame in memory and logs a compact summary, useful for
// headless runs and tests.
type Sim struct {
	mu     sync.Mutex
	frames int
	last   []byte
	freq   physic.Frequency
	maxTx  int
	size   int
	fail   error
	closed bool
}

// NewSim returns an in-memory transport.
func NewSim() *Sim { return &Sim{} }

func (s *Sim) Alloc(size int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxTx > 0 && size > s.maxTx {
		return nil, ErrTooLarge
	}
	s.size = size
	return make([]byte, size), nil
}

func (s *Sim) Configure(f physic.Frequency, maxTxSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freq = f
	s.maxTx = maxTxSize
	if maxTxSize > 0 && s.size > maxTxSize {
		return ErrTooLarge
	}
	return nil
}

func (s *Sim) Begin(Pins) error { return nil }

// FailWith makes the following transfers return err; nil clears it.
func (s *Sim) FailWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *Sim) Transfer(tx, rx []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return &TransportError{Op: "transfer", Err: ErrClosed}
	case s.fail != nil:
		return &TransportError{Op: "transfer", Err: s.fail}
	case s.maxTx > 0 && len(tx) > s.maxTx:
		return &TransportError{Op: "transfer", Err: ErrTooLarge}
	}
	s.frames++
	s.last = append(s.last[:0], tx...)
	head := tx
	if len(head) > 8 {
		head = head[:8]
	}
	log.Trace().Int("frame", s.frames).Int("len", len(tx)).Hex("head", head).Msg("sim transfer")
	return nil
}

// Frames is the number of successful transfers.
func (s *Sim) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Last returns a copy of the last transferred buffer.
func (s *Sim) Last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.last...)
}

// Freq is the configured clock rate.
func (s *Sim) Freq() physic.Frequency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freq
}

func (s *Sim) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

var _ Transport = &Sim{}

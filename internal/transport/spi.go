package transport

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// SPI sends frames over a periph.io SPI port. Only MOSI is used.
type SPI struct {
	mu     sync.Mutex
	port   spi.Port
	closer io.Closer
	c      spi.Conn
	freq   physic.Frequency
	maxTx  int
	size   int
	closed bool
}

// NewSPI wraps an already opened port. The caller keeps ownership of p.
func NewSPI(p spi.Port) *SPI {
	return &SPI{port: p}
}

// OpenSPI opens the SPI port registered as name ("" picks the first one).
// periph's host drivers must be initialized first.
func OpenSPI(name string) (*SPI, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("transport: open spi %q: %w", name, err)
	}
	return &SPI{port: p, closer: p}, nil
}

func (s *SPI) String() string {
	return "spi{" + s.port.String() + "}"
}

// Alloc returns a zeroed buffer. spidev copies the buffer into kernel DMA
// memory, so any Go slice will do.
func (s *SPI) Alloc(size int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(size); err != nil {
		return nil, err
	}
	s.size = size
	return make([]byte, size), nil
}

// Configure records the clock rate used by Begin.
func (s *SPI) Configure(f physic.Frequency, maxTxSize int) error {
	if f < physic.Hertz {
		return fmt.Errorf("transport: invalid clock rate %s", f)
	}
	if maxTxSize < 0 {
		return fmt.Errorf("transport: invalid max transfer size %d", maxTxSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freq = f
	s.maxTx = maxTxSize
	return s.check(s.size)
}

// Begin connects to the port in mode 3 without chip select, 8 bits per word.
func (s *SPI) Begin(pins Pins) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.freq == 0 {
		return fmt.Errorf("transport: Begin before Configure")
	}
	c, err := s.port.Connect(s.freq, spi.Mode3|spi.NoCS, 8)
	if err != nil {
		return fmt.Errorf("transport: connect %s at %s: %w", s.port, s.freq, err)
	}
	if err := s.checkSize(s.size, c); err != nil {
		return err
	}
	if err := s.checkPins(pins, c); err != nil {
		return err
	}
	s.c = c
	log.Debug().Str("port", s.port.String()).Stringer("freq", s.freq).Int("max_tx", s.limit(c)).Msg("spi connected")
	return nil
}

// Transfer sends tx in a single transaction.
func (s *SPI) Transfer(tx, rx []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return &TransportError{Op: "transfer", Err: ErrClosed}
	case s.c == nil:
		return &TransportError{Op: "transfer", Err: ErrNotStarted}
	}
	if l := s.limit(s.c); l > 0 && len(tx) > l {
		return &TransportError{Op: "transfer", Err: fmt.Errorf("%w: %d > %d", ErrTooLarge, len(tx), l)}
	}
	if err := s.c.Tx(tx, rx); err != nil {
		return &TransportError{Op: "transfer", Err: err}
	}
	return nil
}

func (s *SPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.c = nil
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// limit is the smallest of the configured and hardware transfer sizes, 0 when
// neither is known. c may be nil before Begin.
func (s *SPI) limit(c spi.Conn) int {
	l := s.maxTx
	for _, v := range []interface{}{c, s.port} {
		lim, ok := v.(conn.Limits)
		if !ok {
			continue
		}
		if m := lim.MaxTxSize(); m > 0 && (l == 0 || m < l) {
			l = m
		}
	}
	return l
}

func (s *SPI) check(size int) error {
	return s.checkSize(size, s.c)
}

func (s *SPI) checkSize(size int, c spi.Conn) error {
	if l := s.limit(c); l > 0 && size > l {
		return fmt.Errorf("%w: frame is %d bytes, %s accepts %d", ErrTooLarge, size, s.port, l)
	}
	return nil
}

func (s *SPI) checkPins(want Pins, c spi.Conn) error {
	var p spi.Pins
	if v, ok := s.port.(spi.Pins); ok {
		p = v
	} else if v, ok := c.(spi.Pins); ok {
		p = v
	}
	if p == nil {
		if want.MOSI != "" {
			log.Warn().Str("port", s.port.String()).Str("mosi", want.MOSI).Msg("port does not report its pins; not checked")
		}
		return nil
	}
	checks := []struct {
		name, want string
		got        interface{ Name() string }
	}{
		{"MOSI", want.MOSI, p.MOSI()},
		{"CLK", want.CLK, p.CLK()},
		{"MISO", want.MISO, p.MISO()},
		{"CS", want.CS, p.CS()},
	}
	for _, c := range checks {
		if c.want == "" || c.got == nil {
			continue
		}
		if got := c.got.Name(); got != c.want {
			return fmt.Errorf("%w: %s is %s, want %s", ErrPin, c.name, got, c.want)
		}
	}
	return nil
}

var _ Transport = &SPI{}

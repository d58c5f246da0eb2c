package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestSimRecordsFrames(t *testing.T) {
	s := NewSim()
	buf, err := s.Alloc(4)
	require.NoError(t, err)
	require.NoError(t, s.Configure(10*physic.MegaHertz, 0))
	require.NoError(t, s.Begin(Pins{MOSI: "GPIO8"}))

	copy(buf, []byte{1, 2, 3, 4})
	require.NoError(t, s.Transfer(buf, nil))
	buf[0] = 9
	assert.Equal(t, []byte{1, 2, 3, 4}, s.Last(), "sim keeps its own copy")
	assert.Equal(t, 1, s.Frames())
	assert.Equal(t, 10*physic.MegaHertz, s.Freq())
}

func TestSimFailure(t *testing.T) {
	s := NewSim()
	s.FailWith(errors.New("boom"))
	err := s.Transfer([]byte{0}, nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, s.Frames())

	s.FailWith(nil)
	assert.NoError(t, s.Transfer([]byte{0}, nil))
}

func TestSimLimits(t *testing.T) {
	s := NewSim()
	require.NoError(t, s.Configure(physic.MegaHertz, 8))
	_, err := s.Alloc(9)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.ErrorIs(t, s.Transfer(make([]byte, 9), nil), ErrTooLarge)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Transfer([]byte{0}, nil), ErrClosed)
}

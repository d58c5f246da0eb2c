package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/ws2812spi/internal/encoding"
	"github.com/coreman2200/ws2812spi/internal/transport"
)

func TestDefaultResolves144LEDStrip(t *testing.T) {
	hw, err := Default().Resolve()
	require.NoError(t, err)
	assert.Same(t, encoding.A, hw.Encoding)
	assert.Equal(t, encoding.WS2812B, hw.Timing)
	assert.Equal(t, 10*physic.MegaHertz, hw.Freq)
	assert.Equal(t, 100, hw.Layout.ResetLen)
	assert.Equal(t, 144, hw.Layout.LEDs)
	assert.Equal(t, 5284, hw.Layout.Size())
}

func TestResolveVariants(t *testing.T) {
	c := Default()
	c.Variant = "x3"
	hw, err := c.Resolve()
	require.NoError(t, err)
	assert.Same(t, encoding.C, hw.Encoding)
	assert.Equal(t, encoding.WS2812, hw.Timing)
	assert.Equal(t, 15+144*9, hw.Layout.Size())

	c = Default()
	c.Variant = "b"
	c.SPI.ResetUs = 300
	c.SPI.MOSIPin = "GPIO10"
	hw, err = c.Resolve()
	require.NoError(t, err)
	assert.Same(t, encoding.B, hw.Encoding)
	assert.Equal(t, 120, hw.Layout.ResetLen)
	assert.Equal(t, transport.Pins{MOSI: "GPIO10"}, hw.Pins)
}

func TestResolveCustomClock(t *testing.T) {
	c := Default()
	c.SPI.SpeedHz = 9_500_000
	hw, err := c.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 9500*physic.KiloHertz, hw.Freq)
	assert.Equal(t, 95, hw.Layout.ResetLen)
}

func TestResolveRejects(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(c *Config)
		field string
	}{
		{"zero leds", func(c *Config) { c.LEDs = 0 }, "leds"},
		{"unknown variant", func(c *Config) { c.Variant = "D" }, "variant"},
		{"empty variant", func(c *Config) { c.Variant = "" }, "variant"},
		{"unknown family", func(c *Config) { c.Family = "ws9999" }, "family"},
		{"unknown driver", func(c *Config) { c.Driver = "pwm" }, "driver"},
		{"zero interval", func(c *Config) { c.Interval = 0 }, "interval"},
		{"interval past clock wrap", func(c *Config) { c.Interval = 30 * 24 * time.Hour }, "interval"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"slow clock", func(c *Config) { c.SPI.SpeedHz = 8_000_000 }, "spi.speed_hz"},
		{"fast clock", func(c *Config) { c.SPI.SpeedHz = 12_000_000 }, "spi.speed_hz"},
		{"wrong family", func(c *Config) { c.Variant = "C"; c.Family = "ws2812b" }, "spi.speed_hz"},
		{"short reset", func(c *Config) { c.SPI.ResetUs = 20 }, "spi.reset_us"},
		{"frame too large", func(c *Config) { c.SPI.MaxTransfer = 4096 }, "spi.max_transfer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.edit(c)
			err := c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestResolveWrapsCauses(t *testing.T) {
	c := Default()
	c.SPI.SpeedHz = 8_000_000
	assert.ErrorIs(t, c.Validate(), encoding.ErrOutOfTolerance)

	c = Default()
	c.SPI.MaxTransfer = 4096
	assert.ErrorIs(t, c.Validate(), transport.ErrTooLarge)

	c.SPI.MaxTransfer = 5284
	assert.NoError(t, c.Validate())
}

func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{Field: "leds", Err: errors.New("must be positive")}
	assert.EqualError(t, err, "config: leds: must be positive")
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Driver = "console"
	c.Variant = "B"
	c.LEDs = 60
	c.Interval = 40 * time.Millisecond
	c.PreviewAddr = ":8080"
	c.SPI.Dev = "/dev/spidev0.0"
	c.SPI.MaxTransfer = 4096
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("leds: 30\ninterval: 50ms\nspi:\n  speed_hz: 3200000\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, c.LEDs)
	assert.Equal(t, 50*time.Millisecond, c.Interval)
	assert.Equal(t, 3200000, c.SPI.SpeedHz)
	assert.Equal(t, "A", c.Variant)
	assert.Equal(t, "spi", c.Driver)
	assert.Equal(t, time.Millisecond, c.PollInterval)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("leds: [1, 2\n"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := NewFlags(fs)
	require.NoError(t, fs.Parse([]string{"-leds", "60", "-variant", "b", "-spi-hz", "3100000", "-interval", "20ms"}))

	c := Default()
	c.Driver = "sim"
	c.PreviewAddr = ":9000"
	f.Apply(c)

	assert.Equal(t, 60, c.LEDs)
	assert.Equal(t, "b", c.Variant)
	assert.Equal(t, 3100000, c.SPI.SpeedHz)
	assert.Equal(t, 20*time.Millisecond, c.Interval)
	assert.Equal(t, "sim", c.Driver)
	assert.Equal(t, ":9000", c.PreviewAddr)
	assert.NoError(t, c.Validate())
}

func TestLevel(t *testing.T) {
	c := Default()
	assert.Equal(t, zerolog.InfoLevel, c.Level())
	c.LogLevel = "debug"
	assert.Equal(t, zerolog.DebugLevel, c.Level())
	c.LogLevel = ""
	assert.Equal(t, zerolog.InfoLevel, c.Level())
}

func TestDrivers(t *testing.T) {
	for _, d := range []string{"spi", "nrzled", "console", "sim"} {
		c := Default()
		c.Driver = d
		assert.NoError(t, c.Validate(), d)
	}
}

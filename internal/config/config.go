package config

import (
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type SPI struct {
	Dev         string `yaml:"dev"`                           // e.g. /dev/spidev0.0; empty picks the first port
	SpeedHz     int    `yaml:"speed_hz" validate:"gte=0"`     // 0 uses the variant's clock
	ResetUs     int    `yaml:"reset_us" validate:"gte=0"`     // 0 uses the LED family minimum
	MOSIPin     string `yaml:"mosi_pin,omitempty"`            // checked against the port when set
	MaxTransfer int    `yaml:"max_transfer" validate:"gte=0"` // 0 trusts the port limit
}

type Config struct {
	Driver  string `yaml:"driver" validate:"oneof=spi nrzled console sim"`
	Variant string `yaml:"variant" validate:"variant"`
	Family  string `yaml:"family,omitempty" validate:"omitempty,family"`

	LEDs         int           `yaml:"leds" validate:"gte=1"`
	Interval     time.Duration `yaml:"interval" validate:"gte=1ms"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"gte=0"`

	PreviewAddr string `yaml:"preview_addr,omitempty"`
	LogLevel    string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`

	SPI SPI `yaml:"spi"`
}

// Default is a 144 LED strip refreshed every 100ms with variant A.
func Default() *Config {
	return &Config{
		Driver:       "spi",
		Variant:      "A",
		LEDs:         144,
		Interval:     100 * time.Millisecond,
		PollInterval: time.Millisecond,
		LogLevel:     "info",
	}
}

// Load reads path over the defaults; keys missing from the file keep their
// default value.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Level is the configured log level, info when unset.
func (c *Config) Level() zerolog.Level {
	if c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

// ErrInvalid matches every ConfigurationError.
var ErrInvalid = errors.New("invalid configuration")

// ConfigurationError is a setting that cannot drive the strip.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return "config: " + e.Field + ": " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrInvalid }

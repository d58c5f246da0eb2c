package config

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/ws2812spi/internal/encoding"
	"github.com/coreman2200/ws2812spi/internal/frame"
	"github.com/coreman2200/ws2812spi/internal/transport"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("variant", func(fl validator.FieldLevel) bool {
		_, err := encoding.Lookup(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("family", func(fl validator.FieldLevel) bool {
		_, err := encoding.TimingByName(fl.Field().String())
		return err == nil
	})
	return v
}

// Hardware is a validated configuration resolved to encoder, clock and
// frame layout.
type Hardware struct {
	Encoding *encoding.Encoding
	Timing   encoding.Timing
	Freq     physic.Frequency
	Layout   frame.Layout
	Pins     transport.Pins
}

// Validate reports the first setting that cannot drive the strip.
func (c *Config) Validate() error {
	_, err := c.Resolve()
	return err
}

// Resolve checks the configuration and derives the hardware settings: the
// clock must keep every pulse of the variant inside the LED family's windows
// and the whole frame must fit one transfer.
func (c *Config) Resolve() (*Hardware, error) {
	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			fe := ve[0]
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			return nil, &ConfigurationError{Field: field, Err: fmt.Errorf("failed %q check (value %v)", fe.Tag(), fe.Value())}
		}
		return nil, &ConfigurationError{Field: "config", Err: err}
	}

	enc, err := encoding.Lookup(c.Variant)
	if err != nil {
		return nil, &ConfigurationError{Field: "variant", Err: err}
	}
	t := enc.Timing
	if c.Family != "" {
		if t, err = encoding.TimingByName(c.Family); err != nil {
			return nil, &ConfigurationError{Field: "family", Err: err}
		}
	}

	if c.Interval.Milliseconds() > math.MaxUint32/2 {
		return nil, &ConfigurationError{Field: "interval", Err: fmt.Errorf("%s overflows the millisecond clock", c.Interval)}
	}

	f := enc.Freq
	if c.SPI.SpeedHz > 0 {
		f = physic.Frequency(c.SPI.SpeedHz) * physic.Hertz
	}
	if err := encoding.Validate(enc, f, t); err != nil {
		return nil, &ConfigurationError{Field: "spi.speed_hz", Err: fmt.Errorf("%s with %s: %w", f, enc, err)}
	}

	reset := t.Reset
	if c.SPI.ResetUs > 0 {
		reset = time.Duration(c.SPI.ResetUs) * time.Microsecond
		if reset < t.Reset {
			return nil, &ConfigurationError{Field: "spi.reset_us", Err: fmt.Errorf("%s is below the %s latch time %s", reset, t.Name, t.Reset)}
		}
	}

	l := frame.Layout{Enc: enc, ResetLen: encoding.ResetBytes(f, reset), LEDs: c.LEDs}
	if err := l.Validate(); err != nil {
		return nil, &ConfigurationError{Field: "leds", Err: err}
	}
	if c.SPI.MaxTransfer > 0 && l.Size() > c.SPI.MaxTransfer {
		return nil, &ConfigurationError{
			Field: "spi.max_transfer",
			Err:   fmt.Errorf("%d byte frame: %w (limit %d)", l.Size(), transport.ErrTooLarge, c.SPI.MaxTransfer),
		}
	}

	return &Hardware{
		Encoding: enc,
		Timing:   t,
		Freq:     f,
		Layout:   l,
		Pins:     transport.Pins{MOSI: c.SPI.MOSIPin},
	}, nil
}

package config

import "flag"

// Flags are command line overrides. Only flags given on the command line
// replace values loaded from the config file.
type Flags struct {
	fs *flag.FlagSet
	v  Config
}

// NewFlags registers the overrides on fs.
func NewFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	d := Default()
	fs.StringVar(&f.v.Driver, "driver", d.Driver, "driver: spi | nrzled | console | sim")
	fs.StringVar(&f.v.Variant, "variant", d.Variant, "encoding variant: A (x12 @10MHz) | B (x4 @3.2MHz) | C (x3 @2.4MHz)")
	fs.StringVar(&f.v.Family, "family", d.Family, "LED timing family: ws2812b | ws2812 (default: the variant's)")
	fs.IntVar(&f.v.LEDs, "leds", d.LEDs, "number of LEDs on the strip")
	fs.DurationVar(&f.v.Interval, "interval", d.Interval, "refresh interval")
	fs.DurationVar(&f.v.PollInterval, "poll", d.PollInterval, "scheduler poll period")
	fs.StringVar(&f.v.PreviewAddr, "preview", d.PreviewAddr, "preview HTTP listen address (empty disables)")
	fs.StringVar(&f.v.LogLevel, "log-level", d.LogLevel, "log level: trace | debug | info | warn | error")
	fs.StringVar(&f.v.SPI.Dev, "spi-dev", d.SPI.Dev, "SPI port name (empty: first available)")
	fs.IntVar(&f.v.SPI.SpeedHz, "spi-hz", d.SPI.SpeedHz, "SPI clock in Hz (0: the variant's)")
	fs.IntVar(&f.v.SPI.ResetUs, "reset-us", d.SPI.ResetUs, "reset time in µs (0: the family minimum)")
	fs.StringVar(&f.v.SPI.MOSIPin, "mosi", d.SPI.MOSIPin, "expected MOSI pin name")
	fs.IntVar(&f.v.SPI.MaxTransfer, "max-transfer", d.SPI.MaxTransfer, "maximum bytes per transfer (0: port limit)")
	return f
}

// Apply copies the flags that were set into c.
func (f *Flags) Apply(c *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "driver":
			c.Driver = f.v.Driver
		case "variant":
			c.Variant = f.v.Variant
		case "family":
			c.Family = f.v.Family
		case "leds":
			c.LEDs = f.v.LEDs
		case "interval":
			c.Interval = f.v.Interval
		case "poll":
			c.PollInterval = f.v.PollInterval
		case "preview":
			c.PreviewAddr = f.v.PreviewAddr
		case "log-level":
			c.LogLevel = f.v.LogLevel
		case "spi-dev":
			c.SPI.Dev = f.v.SPI.Dev
		case "spi-hz":
			c.SPI.SpeedHz = f.v.SPI.SpeedHz
		case "reset-us":
			c.SPI.ResetUs = f.v.SPI.ResetUs
		case "mosi":
			c.SPI.MOSIPin = f.v.SPI.MOSIPin
		case "max-transfer":
			c.SPI.MaxTransfer = f.v.SPI.MaxTransfer
		}
	})
}

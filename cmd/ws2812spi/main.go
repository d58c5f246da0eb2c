package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/host/v3"

	"github.com/coreman2200/ws2812spi/internal/config"
	"github.com/coreman2200/ws2812spi/internal/frame"
	"github.com/coreman2200/ws2812spi/internal/preview"
	"github.com/coreman2200/ws2812spi/internal/scheduler"
	"github.com/coreman2200/ws2812spi/internal/transport"
)

func main() {
	// ---- Flags (config.yaml is loaded first; flags given override it) ----
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	saveConfig := flag.Bool("save-config", false, "write the effective configuration to -config and exit")
	overrides := config.NewFlags(flag.CommandLine)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Config ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults and flags")
		cfg = config.Default()
	}
	overrides.Apply(cfg)
	zerolog.SetGlobalLevel(cfg.Level())

	hw, err := cfg.Resolve()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if *saveConfig {
		if err := config.Save(*configPath, cfg); err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("save config")
		}
		log.Info().Str("path", *configPath).Msg("config saved")
		return
	}
	log.Info().
		Stringer("encoding", hw.Encoding).
		Stringer("freq", hw.Freq).
		Str("family", hw.Timing.Name).
		Int("leds", hw.Layout.LEDs).
		Int("reset_bytes", hw.Layout.ResetLen).
		Int("frame_bytes", hw.Layout.Size()).
		Dur("interval", cfg.Interval).
		Msg("strip configured")

	// ---- Transport ----
	tx, buf, driver := openTransport(cfg, hw)
	defer func() {
		if err := tx.Close(); err != nil {
			log.Warn().Err(err).Msg("close transport")
		}
	}()
	f, err := frame.New(hw.Layout, buf)
	if err != nil {
		log.Fatal().Err(err).Msg("frame")
	}

	// ---- Scheduler & preview ----
	clock := clockwork.NewRealClock()
	opts := scheduler.Options{
		Frame:     f,
		Transport: tx,
		Clock:     scheduler.NewClock(clock),
		Interval:  cfg.Interval,
	}

	var srv *http.Server
	if cfg.PreviewAddr != "" {
		hub := preview.NewHub(hw.Layout.LEDs, driver, clock)
		defer hub.Close()
		opts.Observers = append(opts.Observers, hub)
		srv = &http.Server{
			Addr:         cfg.PreviewAddr,
			Handler:      withCORS(hub.Handler()),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.PreviewAddr).Msg("preview server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("preview server stopped")
			}
		}()
	}

	s, err := scheduler.New(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}

	// ---- Run until SIGINT/SIGTERM ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("driver", driver).Msg("running")
	if err := scheduler.NewLooper(s, clock, cfg.PollInterval).Run(ctx); err != nil {
		log.Error().Err(err).Msg("scheduler failed")
	}

	if srv != nil {
		_ = srv.Close()
	}
	log.Info().Uint64("frames", s.State().Frames).Msg("shutting down")
}

// openTransport selects the configured driver and returns it ready to
// transfer, with the frame buffer it allocated. A strip that cannot be
// reached falls back to the simulated sink so previews keep working.
func openTransport(cfg *config.Config, hw *config.Hardware) (transport.Transport, []byte, string) {
	switch cfg.Driver {
	case "spi", "nrzled":
		tx, buf, err := openHardware(cfg, hw)
		if err == nil {
			return tx, buf, cfg.Driver
		}
		log.Warn().Err(err).
			Str("driver", cfg.Driver).
			Str("dev", cfg.SPI.Dev).
			Stringer("freq", hw.Freq).
			Msg("SPI init failed; falling back to SIM")

	case "console":
		c := transport.OpenConsole(hw.Layout, hw.Timing)
		buf, err := transport.Setup(c, hw.Layout.Size(), hw.Freq, cfg.SPI.MaxTransfer, hw.Pins)
		if err != nil {
			log.Fatal().Err(err).Msg("console")
		}
		return c, buf, "console"
	}

	sim := transport.NewSim()
	buf, err := transport.Setup(sim, hw.Layout.Size(), hw.Freq, cfg.SPI.MaxTransfer, hw.Pins)
	if err != nil {
		log.Fatal().Err(err).Msg("sim")
	}
	return sim, buf, "sim"
}

func openHardware(cfg *config.Config, hw *config.Hardware) (transport.Transport, []byte, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	var tx transport.Transport
	if cfg.Driver == "nrzled" {
		c, err := transport.OpenNRZLED(cfg.SPI.Dev, hw.Layout, hw.Timing)
		if err != nil {
			return nil, nil, err
		}
		tx = c
	} else {
		p, err := transport.OpenSPI(cfg.SPI.Dev)
		if err != nil {
			return nil, nil, err
		}
		tx = p
	}
	buf, err := transport.Setup(tx, hw.Layout.Size(), hw.Freq, cfg.SPI.MaxTransfer, hw.Pins)
	if err != nil {
		tx.Close()
		return nil, nil, err
	}
	return tx, buf, nil
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}

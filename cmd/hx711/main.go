package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/warthog618/config"

	"github.com/yunginnanet/ftdi-hx711/pkg/ft232h"
	"github.com/yunginnanet/ftdi-hx711/pkg/gpiochip"
	"github.com/yunginnanet/ftdi-hx711/pkg/hx711"
	"github.com/yunginnanet/ftdi-hx711/pkg/periph"
)

var log zerolog.Logger

func init() {
	cw := zerolog.ConsoleWriter{Out: os.Stdout}
	log = zerolog.New(cw).With().Timestamp().Logger()
}

// openLines opens the clock and data lines on the configured backend. The
// returned closer releases anything beyond the lines themselves.
func openLines(cfg *config.Config) (clock, data hx711.Line, closer func() error, err error) {
	closer = func() error { return nil }

	switch backend := cfg.MustGet("backend").String(); backend {
	case backendGPIOD:
		gc := gpiochip.Config{
			Chip:   cfg.MustGet("chip").String(),
			Clock:  cfg.MustGet("clock").Int(),
			Data:   cfg.MustGet("data").Int(),
			PullUp: cfg.MustGet("pullup").Bool(),
		}
		log.Debug().Any("config", gc).Msg("opening gpiochip lines")
		clock, data, err = gpiochip.Open(gc)

	case backendPeriph:
		clock, data, err = periph.Open(cfg.MustGet("clockpin").String(), cfg.MustGet("datapin").String())

	case backendFT232H:
		var ft *ft232h.FT232H
		ft, err = ft232h.ConnectFT232h(ft232h.Select(cfg.MustGet("index").Int(), cfg.MustGet("serial").String())...)
		if err != nil {
			return nil, nil, closer, fmt.Errorf("failed to connect to FT232H: %w", err)
		}
		log.Info().Any("info", ft.Info()).Msgf("connected to FT232H: %s", ft)
		if !ft.Info().IsHighSpeed {
			log.Warn().Msg("FT232H is not on a high speed port, clock pulses may power the HX711 down")
		}
		closer = ft.Close
		clock, data, err = ft.Lines(uint(cfg.MustGet("clock").Int()), uint(cfg.MustGet("data").Int()))
		if err != nil {
			err = errors.Join(err, ft.Close())
		}

	default:
		err = fmt.Errorf("unknown backend %q", backend)
	}

	return clock, data, closer, err
}

func waitForEnter(prompt string) {
	log.Info().Msg(prompt)
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
}

// calibrate tares and scales hx from cfg, prompting for the reference weight
// when one is configured.
func calibrate(hx *hx711.HX711, cfg *config.Config) error {
	samples := cfg.MustGet("samples").Int()

	if cfg.MustGet("tare").Bool() {
		waitForEnter("remove all weight from the scale and press enter to tare")
		offset, err := hx.Tare(samples)
		if err != nil {
			return fmt.Errorf("failed to tare: %w", err)
		}
		log.Info().Int32("offset", offset).Msg("tared")
	} else {
		hx.SetOffset(int32(cfg.MustGet("offset").Int()))
	}

	if scale := cfg.MustGet("scale").Float(); scale != 0 {
		if err := hx.SetScale(scale); err != nil {
			return fmt.Errorf("bad scale: %w", err)
		}
		return nil
	}

	ref := cfg.MustGet("reference").Float()
	if ref == 0 {
		log.Warn().Msg("no scale or reference weight configured, reporting raw counts")
		return nil
	}

	waitForEnter(fmt.Sprintf("place the %gg reference weight on the scale and press enter", ref))
	scale, err := hx.Calibrate(ref, samples)
	if err != nil {
		return fmt.Errorf("failed to calibrate: %w", err)
	}
	log.Info().Float64("scale", scale).Msg("calibrated")
	return nil
}

func main() {
	cfg := loadConfig()

	if cfg.MustGet("debug").Bool() {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	dc, err := driverConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("bad configuration")
	}
	interval, err := scanInterval(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("bad configuration")
	}
	dc.Logger = &log

	clock, data, closer, err := openLines(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open lines")
	}

	log.Debug().Any("config", dc.Timing).Stringer("gain", dc.Gain).Msg("initializing HX711")
	hx, err := hx711.New(clock, data, dc)
	if err != nil {
		_ = errors.Join(clock.Close(), data.Close(), closer())
		log.Fatal().Err(err).Msg("failed to initialize HX711")
	}

	// log.Fatal exits without running defers
	shutdown := func() {
		if cfg.MustGet("sleep").Bool() {
			if err := hx.SetPowerDown(true); err != nil {
				log.Error().Err(err).Msg("failed to power down HX711")
			}
		}
		if err := errors.Join(hx.Close(), closer()); err != nil {
			log.Error().Err(err).Msg("failed to close HX711")
			return
		}
		log.Info().Msg("closed HX711")
	}

	if dc.Gain != hx711.DefaultGain {
		if err = hx.ApplyGain(); err != nil {
			shutdown()
			log.Fatal().Err(err).Msg("failed to apply gain")
		}
	}

	if err = calibrate(hx, cfg); err != nil {
		shutdown()
		log.Fatal().Err(err).Msg("calibration failed")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	count := cfg.MustGet("count").Int()
	seen := 0
	ws, err := hx.Scan(ctx, interval, func(r hx711.Reading) {
		log.Info().Int32("raw", r.Raw).Stringer("gain", r.Gain).
			Msgf("%.2f %s", r.Weight, r.Unit)
		seen++
		if count > 0 && seen >= count {
			cancel()
		}
	})
	if err != nil {
		shutdown()
		log.Fatal().Err(err).Msg("failed to start scan")
	}

	if err = ws.Wait(context.Background()); err != nil {
		log.Error().Err(err).Msg("scan finished with errors")
	}

	shutdown()
}

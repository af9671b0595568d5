package main

import (
	"fmt"
	"time"

	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/config/pflag"
	"github.com/warthog618/gpiod/device/rpi"

	"github.com/yunginnanet/ftdi-hx711/pkg/hx711"
)

// Backends the lines can be opened on.
const (
	backendGPIOD  = "gpiod"
	backendPeriph = "periph"
	backendFT232H = "ft232h"
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"backend": backendGPIOD,

		// gpiod: line offsets, ft232h: C-bus positions
		"chip":  "gpiochip0",
		"clock": rpi.GPIO6,
		"data":  rpi.GPIO5,
		// periph: pin names
		"clockpin": "GPIO6",
		"datapin":  "GPIO5",
		"pullup":   false,
		// ft232h: a serial wins over an index, -1 opens the first device
		"index":  -1,
		"serial": "",

		"gain":    int(hx711.DefaultGain),
		"timeout": hx711.DefaultReadyTimeout.String(),
		"poll":    hx711.DefaultPollInterval.String(),
		"hold":    hx711.DefaultPulseHold.String(),
		"pdhold":  hx711.DefaultPowerDownHold.String(),

		"tare":      true,
		"offset":    0,
		"samples":   hx711.DefaultSamples,
		"reference": 0.0, // grams; > 0 calibrates
		"scale":     0.0, // skips calibration when non-zero

		"count":    10, // readings; 0 runs until interrupted
		"interval": "500ms",
		"sleep":    false, // power down before exiting

		"debug": false,
	}
}

func loadConfig() *config.Config {
	def := dict.New(dict.WithMap(defaults()))
	flags := []pflag.Flag{
		{Short: 'c', Name: "config-file"},
		{Short: 'b', Name: "backend"},
		{Short: 'g', Name: "gain"},
		{Short: 'r', Name: "reference"},
		{Short: 'n', Name: "count"},
	}
	cfg := config.New(
		pflag.New(pflag.WithFlags(flags)),
		env.New(env.WithEnvPrefix("HX711_")),
		config.WithDefault(def))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", "hx711.json", json.NewDecoder()))
	cfg = cfg.GetConfig("", config.WithMust)
	return cfg
}

// driverConfig builds the driver config from cfg.
func driverConfig(cfg *config.Config) (hx711.Config, error) {
	dc := hx711.DefaultConfig()

	gain, err := hx711.ParseGain(cfg.MustGet("gain").Int())
	if err != nil {
		return dc, err
	}
	dc.Gain = gain

	dc.Timing = hx711.Timing{
		ReadyTimeout:  cfg.MustGet("timeout").Duration(),
		PollInterval:  cfg.MustGet("poll").Duration(),
		PulseHold:     cfg.MustGet("hold").Duration(),
		PowerDownHold: cfg.MustGet("pdhold").Duration(),
	}
	if err = dc.Timing.Validate(); err != nil {
		return dc, err
	}

	return dc, nil
}

func scanInterval(cfg *config.Config) (time.Duration, error) {
	interval := cfg.MustGet("interval").Duration()
	if interval <= 0 {
		return 0, fmt.Errorf("%w: interval must be positive", hx711.ErrInvalidArgument)
	}
	return interval, nil
}

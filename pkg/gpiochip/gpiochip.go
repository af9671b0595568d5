// Package gpiochip provides HX711 clock and data lines on a Linux GPIO
// character device (/dev/gpiochipN).
package gpiochip

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/gpiod"
	"github.com/warthog618/gpiod/device/rpi"

	"github.com/yunginnanet/ftdi-hx711/pkg/hx711"
)

const consumer = "hx711"

// Config selects the chip and line offsets.
type Config struct {
	Chip   string // e.g. "gpiochip0"
	Clock  int    // PD_SCK line offset
	Data   int    // DOUT line offset
	PullUp bool   // Bias DOUT high so a missing chip reads as not ready
}

// DefaultConfig uses the usual Raspberry Pi wiring: DOUT on GPIO5, PD_SCK on GPIO6.
func DefaultConfig() Config {
	return Config{
		Chip:  "gpiochip0",
		Clock: rpi.GPIO6,
		Data:  rpi.GPIO5,
	}
}

var _ hx711.Line = (*Line)(nil)

// Line is a requested gpiod line.
type Line struct {
	mu     sync.Mutex
	l      *gpiod.Line
	closed bool
}

// Open requests the clock line as an output driven low and the data line as an input.
func Open(cfg Config) (clock *Line, data *Line, err error) {
	if cfg.Clock == cfg.Data {
		return nil, nil, fmt.Errorf("%w: clock and data share line %d", hx711.ErrInvalidArgument, cfg.Clock)
	}

	c, err := gpiod.NewChip(cfg.Chip, gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", cfg.Chip, err)
	}
	// requested lines stay valid after the chip is closed
	defer c.Close()

	clk, err := c.RequestLine(cfg.Clock, gpiod.AsOutput(0))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to request clock line %d: %w", cfg.Clock, err)
	}

	dataOpts := []gpiod.LineReqOption{gpiod.AsInput}
	if cfg.PullUp {
		dataOpts = append(dataOpts, gpiod.WithPullUp)
	}
	dout, err := c.RequestLine(cfg.Data, dataOpts...)
	if err != nil {
		clock = &Line{l: clk}
		return nil, nil, errors.Join(
			fmt.Errorf("failed to request data line %d: %w", cfg.Data, err),
			clock.Close(),
		)
	}

	return &Line{l: clk}, &Line{l: dout}, nil
}

func (l *Line) set(v int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return hx711.ErrClosed
	}
	return l.l.SetValue(v)
}

func (l *Line) High() error {
	return l.set(1)
}

func (l *Line) Low() error {
	return l.set(0)
}

func (l *Line) Read() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false, hx711.ErrClosed
	}
	v, err := l.l.Value()
	return v == 1, err
}

// Close reconfigures the line as an input so it no longer drives the pin, then releases it.
func (l *Line) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return errors.Join(l.l.Reconfigure(gpiod.AsInput), l.l.Close())
}

func (l *Line) String() string {
	return fmt.Sprintf("%s:%d", consumer, l.l.Offset())
}

// Package periph provides HX711 clock and data lines on periph.io GPIO pins.
package periph

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/yunginnanet/ftdi-hx711/pkg/hx711"
)

var ErrNoPin = errors.New("no such GPIO pin")

var _ hx711.Line = (*Line)(nil)

// Line wraps a periph pin.
type Line struct {
	mu     sync.Mutex
	pin    gpio.PinIO
	closed bool
}

// Output drives pin low and returns it as an output line.
func Output(pin gpio.PinIO) (*Line, error) {
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to set %s as output: %w", pin, err)
	}
	return &Line{pin: pin}, nil
}

// Input returns pin as an input line with the given pull.
func Input(pin gpio.PinIO, pull gpio.Pull) (*Line, error) {
	if err := pin.In(pull, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to set %s as input: %w", pin, err)
	}
	return &Line{pin: pin}, nil
}

// Open initializes the host drivers and looks the pins up by name, e.g. "GPIO6".
func Open(clockName, dataName string) (clock *Line, data *Line, err error) {
	if clockName == dataName {
		return nil, nil, fmt.Errorf("%w: clock and data share pin %s", hx711.ErrInvalidArgument, clockName)
	}
	if _, err = host.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	cp := gpioreg.ByName(clockName)
	if cp == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoPin, clockName)
	}
	dp := gpioreg.ByName(dataName)
	if dp == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoPin, dataName)
	}

	if clock, err = Output(cp); err != nil {
		return nil, nil, err
	}
	if data, err = Input(dp, gpio.PullNoChange); err != nil {
		return nil, nil, errors.Join(err, clock.Close())
	}
	return clock, data, nil
}

func (l *Line) set(level gpio.Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return hx711.ErrClosed
	}
	return l.pin.Out(level)
}

func (l *Line) High() error {
	return l.set(gpio.High)
}

func (l *Line) Low() error {
	return l.set(gpio.Low)
}

func (l *Line) Read() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false, hx711.ErrClosed
	}
	return l.pin.Read() == gpio.High, nil
}

// Close leaves the pin as a floating input and halts it.
func (l *Line) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return errors.Join(l.pin.In(gpio.Float, gpio.NoEdge), l.pin.Halt())
}

func (l *Line) String() string {
	return l.pin.Name()
}

package ft232h

import (
	"errors"
	"fmt"
	"sync"

	"github.com/yunginnanet/ft232h"

	"github.com/yunginnanet/ftdi-hx711/pkg/hx711"
)

var _ hx711.Line = (*Line)(nil)

// Line is a single C-bus GPIO pin of an FT232H.
//
// Every level change is a USB transfer. On a full speed host the PD_SCK high
// time can exceed the 60µs that powers the HX711 down, so prefer a high speed
// port (see [DeviceInfo.IsHighSpeed]).
type Line struct {
	ft  *FT232H
	pin ft232h.CPin

	mu     sync.Mutex
	closed bool
}

func (ft *FT232H) claim(pin ft232h.CPin) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if ft.claimed&uint8(pin) != 0 {
		return fmt.Errorf("%w: %v", ErrPinInUse, pin)
	}
	ft.claimed |= uint8(pin)
	return nil
}

func (ft *FT232H) release(pin ft232h.CPin) {
	ft.mu.Lock()
	ft.claimed &^= uint8(pin)
	ft.mu.Unlock()
}

// Output claims C-bus pin pos as an output, initially low.
func (ft *FT232H) Output(pos uint) (*Line, error) {
	return ft.line(pos, ft232h.Output)
}

// Input claims C-bus pin pos as an input.
func (ft *FT232H) Input(pos uint) (*Line, error) {
	return ft.line(pos, ft232h.Input)
}

func (ft *FT232H) line(pos uint, dir ft232h.Dir) (*Line, error) {
	pin, err := cPin(pos)
	if err != nil {
		return nil, err
	}
	if err = ft.claim(pin); err != nil {
		return nil, err
	}
	if err = ft.GPIO.ConfigPin(pin, dir, false); err != nil {
		ft.release(pin)
		return nil, fmt.Errorf("failed to configure %v: %w", pin, err)
	}
	return &Line{ft: ft, pin: pin}, nil
}

// Lines claims the HX711 clock (PD_SCK, output) and data (DOUT, input) pins.
func (ft *FT232H) Lines(clock, data uint) (*Line, *Line, error) {
	clk, err := ft.Output(clock)
	if err != nil {
		return nil, nil, fmt.Errorf("clock: %w", err)
	}
	dout, err := ft.Input(data)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("data: %w", err), clk.Close())
	}
	return clk, dout, nil
}

func (l *Line) set(high bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return hx711.ErrClosed
	}
	if err := l.ft.GPIO.Set(l.pin, high); err != nil {
		return fmt.Errorf("failed to set %v: %w", l.pin, err)
	}
	return nil
}

func (l *Line) High() error {
	return l.set(true)
}

func (l *Line) Low() error {
	return l.set(false)
}

func (l *Line) Read() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false, hx711.ErrClosed
	}
	hl, err := l.ft.GPIO.Get(l.pin)
	if err != nil {
		return false, fmt.Errorf("failed to read %v: %w", l.pin, err)
	}
	return hl, nil
}

// Close returns the pin to an input and releases it. It does not close the FT232H.
func (l *Line) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	err := l.ft.GPIO.ConfigPin(l.pin, ft232h.Input, false)
	l.ft.release(l.pin)
	return err
}

func (l *Line) String() string {
	return fmt.Sprintf("%s:%v", l.ft.info.Serial, l.pin)
}

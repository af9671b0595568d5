// Package hx711 drives an HX711 24-bit load cell ADC over two bit-banged lines.
//
// Datasheet: https://cdn.sparkfun.com/datasheets/Sensors/ForceFlex/hx711_english.pdf
package hx711

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrNotReady means DOUT did not go low within [Timing.ReadyTimeout]. Transient; callers may retry.
	ErrNotReady = errors.New("hx711: not ready")
	// ErrPoweredDown means a read was attempted while the chip is powered down.
	ErrPoweredDown = errors.New("hx711: powered down")
	// ErrInvalidArgument is returned for illegal gains, sample counts, scales and reference weights.
	ErrInvalidArgument = errors.New("hx711: invalid argument")
	// ErrUninitializedScale means a weight was requested before a scale was set.
	ErrUninitializedScale = errors.New("hx711: scale not initialized")
	// ErrClosed means the device lines have already been released.
	ErrClosed = errors.New("hx711: closed")
)

// Line is a single digital line. The HX711 drives PD_SCK through one Line and
// reads DOUT through another.
type Line interface {
	// High drives the line high.
	High() error
	// Low drives the line low.
	Low() error
	// Read returns true if the line is high.
	Read() (bool, error)
	// Close releases the line, leaving it as a floating input.
	Close() error
}

// Timing holds the chip timing parameters.
type Timing struct {
	ReadyTimeout  time.Duration // Maximum wait for DOUT low before ErrNotReady
	PollInterval  time.Duration // Delay between DOUT polls
	PulseHold     time.Duration // PD_SCK high and low time per pulse
	PowerDownHold time.Duration // PD_SCK high time to enter power down
}

// DefaultTiming returns timing values consistent with the datasheet.
func DefaultTiming() Timing {
	return Timing{
		ReadyTimeout:  DefaultReadyTimeout,
		PollInterval:  DefaultPollInterval,
		PulseHold:     DefaultPulseHold,
		PowerDownHold: DefaultPowerDownHold,
	}
}

// Validate checks t for values the chip cannot work with.
func (t Timing) Validate() error {
	switch {
	case t.ReadyTimeout <= 0:
		return fmt.Errorf("%w: ready timeout must be positive", ErrInvalidArgument)
	case t.PollInterval < 0:
		return fmt.Errorf("%w: negative poll interval", ErrInvalidArgument)
	case t.PulseHold < 0 || t.PulseHold > MaxPulseHold:
		return fmt.Errorf("%w: pulse hold must be within [0, %s]", ErrInvalidArgument, MaxPulseHold)
	case t.PowerDownHold < MinPowerDownHold:
		return fmt.Errorf("%w: power down hold must be at least %s", ErrInvalidArgument, MinPowerDownHold)
	}
	return nil
}

// Config represents user-level configuration parameters
type Config struct {
	Gain   Gain            // Gain128, Gain64 or Gain32
	Timing Timing          // Chip timing, the zero value uses DefaultTiming
	Logger *zerolog.Logger // Optional, nil disables logging
}

// DefaultConfig provides default config. You can adjust as needed
func DefaultConfig() Config {
	return Config{
		Gain:   DefaultGain,
		Timing: DefaultTiming(),
	}
}

// HX711 provides control over an Avia Semiconductor HX711 load cell ADC.
//
// The device exclusively owns its clock and data [Line]s until [HX711.Close].
// All operations are serialized on an internal mutex, since interleaved clock
// pulses from two callers would corrupt both readings.
type HX711 struct {
	mu sync.Mutex

	clock Line // PD_SCK, host driven
	data  Line // DOUT, chip driven

	timing Timing
	log    zerolog.Logger

	// gain requested for the next conversion.
	gain Gain
	// configured is the gain the chip is currently converting with. It is
	// updated by each read cycle, so samples lag a SetGain by one reading.
	configured Gain

	offset   int32
	scale    float64
	scaleSet bool

	powered bool
	closed  bool
}

// New constructs an HX711 on the given clock and data lines and drives the
// clock low so the chip is awake.
func New(clock, data Line, cfg Config) (*HX711, error) {
	if clock == nil || data == nil {
		return nil, fmt.Errorf("%w: clock and data lines are required", ErrInvalidArgument)
	}
	if cfg.Gain == 0 {
		cfg.Gain = DefaultGain
	}
	if !cfg.Gain.Valid() {
		return nil, fmt.Errorf("%w: gain must be one of 128, 64, 32, got %d", ErrInvalidArgument, int(cfg.Gain))
	}
	if cfg.Timing == (Timing{}) {
		cfg.Timing = DefaultTiming()
	}
	if err := cfg.Timing.Validate(); err != nil {
		return nil, err
	}

	hx := &HX711{
		clock:      clock,
		data:       data,
		timing:     cfg.Timing,
		log:        zerolog.Nop(),
		gain:       cfg.Gain,
		configured: DefaultGain,
		scale:      1,
		powered:    true,
	}
	if cfg.Logger != nil {
		hx.log = cfg.Logger.With().Str("caller", "hx711").Logger()
	}

	if err := hx.clockLow(); err != nil {
		return nil, err
	}

	hx.log.Debug().Stringer("gain", hx.gain).Msg("initialized")

	return hx, nil
}

// Close releases both lines. It is safe to call more than once.
func (hx *HX711) Close() error {
	hx.mu.Lock()
	defer hx.mu.Unlock()

	if hx.closed {
		return nil
	}
	hx.closed = true

	err := hx.clock.Close()
	if err != nil {
		err = fmt.Errorf("clock: %w", err)
	}
	if derr := hx.data.Close(); derr != nil {
		err = errors.Join(err, fmt.Errorf("data: %w", derr))
	}

	hx.log.Debug().Err(err).Msg("closed")
	return err
}

// Gain returns the gain requested for upcoming conversions.
func (hx *HX711) Gain() Gain {
	hx.mu.Lock()
	g := hx.gain
	hx.mu.Unlock()
	return g
}

// SetGain selects the gain (and with it the channel) for upcoming conversions.
//
// The HX711 latches the gain at the end of a read cycle, so the selection only
// takes effect for the conversion *after* the next read: the next sample is
// still converted with the previous gain. Call [HX711.ApplyGain] to discard
// that sample. Gain32 also switches the input to channel B.
func (hx *HX711) SetGain(g Gain) error {
	if !g.Valid() {
		return fmt.Errorf("%w: gain must be one of 128, 64, 32, got %d", ErrInvalidArgument, int(g))
	}
	hx.mu.Lock()
	if hx.gain != g {
		hx.log.Debug().Stringer("from", hx.gain).Stringer("to", g).Msg("gain changed")
	}
	hx.gain = g
	hx.mu.Unlock()
	return nil
}

// Offset returns the zero point subtracted from raw readings.
func (hx *HX711) Offset() int32 {
	hx.mu.Lock()
	o := hx.offset
	hx.mu.Unlock()
	return o
}

// SetOffset assigns the zero point directly, e.g. from a previous [HX711.Tare].
func (hx *HX711) SetOffset(offset int32) {
	hx.mu.Lock()
	hx.offset = offset
	hx.mu.Unlock()
}

// Scale returns the raw units per gram divisor.
func (hx *HX711) Scale() float64 {
	hx.mu.Lock()
	s := hx.scale
	hx.mu.Unlock()
	return s
}

// SetScale assigns the raw units per gram divisor directly. Any finite non-zero
// value, including 1, marks the scale as initialized.
func (hx *HX711) SetScale(scale float64) error {
	if err := validScale(scale); err != nil {
		return err
	}
	hx.mu.Lock()
	hx.scale = scale
	hx.scaleSet = true
	hx.mu.Unlock()
	return nil
}

func validScale(scale float64) error {
	if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return fmt.Errorf("%w: scale must be finite and non-zero, got %v", ErrInvalidArgument, scale)
	}
	return nil
}

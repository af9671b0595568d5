package hx711

import (
	"fmt"
	"time"
)

// Constants from the datasheet

// Conversion frame
const (
	// DataBits is the number of data bits shifted out per conversion, MSB first.
	DataBits = 24
	// SignBit is the two's complement sign bit of a 24 bit sample.
	SignBit = 0x800000
	// DataMask covers the 24 data bits.
	DataMask = 0xFFFFFF

	// MinRaw and MaxRaw bound a decoded sample.
	MinRaw = -SignBit
	MaxRaw = SignBit - 1
)

// Channel is an analog input of the HX711.
type Channel int

//goland:noinspection GoSnakeCaseUsage
const (
	CH_A Channel = iota
	CH_B
)

func (c Channel) String() string {
	switch c {
	case CH_A:
		return "CH_A"
	case CH_B:
		return "CH_B"
	default:
		return "(invalid channel)"
	}
}

// Gain is the PGA gain of the HX711. The gain also selects the input channel:
// 128 and 64 read channel A, 32 reads channel B.
type Gain int

const (
	Gain128 Gain = 128
	Gain64  Gain = 64
	Gain32  Gain = 32
)

// DefaultGain is the gain the chip resets to after power-on or power-down.
const DefaultGain = Gain128

// ParseGain validates a plain integer gain.
func ParseGain(g int) (Gain, error) {
	gain := Gain(g)
	if !gain.Valid() {
		return 0, fmt.Errorf("%w: gain must be one of 128, 64, 32, got %d", ErrInvalidArgument, g)
	}
	return gain, nil
}

// Valid reports whether g is one of 128, 64 or 32.
func (g Gain) Valid() bool {
	switch g {
	case Gain128, Gain64, Gain32:
		return true
	default:
		return false
	}
}

// Pulses returns the total number of PD_SCK pulses in a read cycle that select g
// (and its channel) for the *next* conversion.
//
//	25 => channel A, gain 128
//	26 => channel B, gain 32
//	27 => channel A, gain 64
func (g Gain) Pulses() int {
	switch g {
	case Gain64:
		return 27
	case Gain32:
		return 26
	case Gain128:
		return 25
	default:
		return 0
	}
}

// Channel returns the input channel that g implies.
func (g Gain) Channel() Channel {
	if g == Gain32 {
		return CH_B
	}
	return CH_A
}

func (g Gain) String() string {
	if !g.Valid() {
		return fmt.Sprintf("(invalid gain %d)", int(g))
	}
	return fmt.Sprintf("%s/x%d", g.Channel(), int(g))
}

// DefaultSamples is the number of readings averaged by [HX711.Tare] and
// [HX711.Calibrate] when the caller has no better figure.
const DefaultSamples = 10

// Timing defaults. See [Timing].
const (
	// DefaultReadyTimeout bounds the wait for DOUT to go low. The chip converts at
	// 10 or 80 SPS and needs up to 400ms to settle after a reset.
	DefaultReadyTimeout = time.Second
	// DefaultPollInterval is the delay between DOUT polls.
	DefaultPollInterval = time.Millisecond
	// DefaultPulseHold is the PD_SCK high/low time (T3/T4, min 0.2µs).
	DefaultPulseHold = time.Microsecond
	// DefaultPowerDownHold keeps PD_SCK high long enough to power down (min 60µs).
	DefaultPowerDownHold = 100 * time.Microsecond

	// MaxPulseHold is kept below the 60µs PD_SCK high time that powers the chip down.
	MaxPulseHold = 50 * time.Microsecond
	// MinPowerDownHold is the datasheet minimum for entering power down.
	MinPowerDownHold = 60 * time.Microsecond
)

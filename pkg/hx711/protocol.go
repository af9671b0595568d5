package hx711

import (
	"errors"
	"fmt"
	"time"
)

// Sample is a single decoded conversion.
type Sample struct {
	// Raw is the two's complement conversion result in [MinRaw, MaxRaw].
	Raw int32
	// Gain is the gain (and channel) Raw was converted with. This is the gain
	// selected by the read cycle *before* the one that produced the sample.
	Gain Gain
}

// ReadRaw waits for a conversion and shifts it out. See [HX711.ReadSample].
func (hx *HX711) ReadRaw() (int32, error) {
	s, err := hx.ReadSample()
	return s.Raw, err
}

// ReadSample waits for a conversion, shifts out its 24 bits and pulses the
// clock 1 to 3 more times to select the gain for the next conversion.
//
// It fails with [ErrPoweredDown] without touching the lines if the chip is
// powered down, and with [ErrNotReady] if DOUT does not go low within the
// ready timeout. It never retries.
func (hx *HX711) ReadSample() (Sample, error) {
	hx.mu.Lock()
	s, err := hx.readSample()
	hx.mu.Unlock()
	return s, err
}

// ApplyGain performs one read cycle and discards the result, so that every
// sample after it is converted with the current gain.
func (hx *HX711) ApplyGain() error {
	hx.mu.Lock()
	_, err := hx.readSample()
	hx.mu.Unlock()
	return err
}

func (hx *HX711) checkUsable() error {
	if hx.closed {
		return ErrClosed
	}
	if !hx.powered {
		return ErrPoweredDown
	}
	return nil
}

// readSample is the full read cycle. Callers must hold hx.mu.
func (hx *HX711) readSample() (Sample, error) {
	if err := hx.checkUsable(); err != nil {
		return Sample{}, err
	}

	if err := hx.waitReady(); err != nil {
		return Sample{}, err
	}

	// Once shifting starts it runs to completion; an interrupted frame leaves
	// the chip mid-phase until the next conversion.
	var bits uint32
	for i := 0; i < DataBits; i++ {
		b, err := hx.pulse(true)
		if err != nil {
			return Sample{}, errors.Join(err, hx.clockLow())
		}
		bits <<= 1
		if b {
			bits |= 0x01
		}
	}

	next := hx.gain
	for i := DataBits; i < next.Pulses(); i++ {
		if _, err := hx.pulse(false); err != nil {
			return Sample{}, errors.Join(err, hx.clockLow())
		}
	}

	s := Sample{Raw: Convert24To32(bits), Gain: hx.configured}
	hx.configured = next

	return s, nil
}

// waitReady polls DOUT until the chip pulls it low.
func (hx *HX711) waitReady() error {
	deadline := time.Now().Add(hx.timing.ReadyTimeout)
	for {
		hl, err := hx.readData()
		if err != nil {
			return err
		}
		if !hl {
			return nil
		}
		if !time.Now().Before(deadline) {
			hx.log.Debug().Dur("timeout", hx.timing.ReadyTimeout).Msg("DOUT never went low")
			return fmt.Errorf("%w: no conversion within %s", ErrNotReady, hx.timing.ReadyTimeout)
		}
		time.Sleep(hx.timing.PollInterval)
	}
}

// pulse raises PD_SCK, optionally samples DOUT while it is high, then lowers it.
// The chip shifts the next bit out on the rising edge.
func (hx *HX711) pulse(sample bool) (bit bool, err error) {
	if err = hx.clockHigh(); err != nil {
		return false, err
	}
	hold(hx.timing.PulseHold)
	if sample {
		if bit, err = hx.readData(); err != nil {
			return false, err
		}
	}
	if err = hx.clockLow(); err != nil {
		return false, err
	}
	hold(hx.timing.PulseHold)
	return bit, nil
}

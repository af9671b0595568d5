package hx711

import "time"

// PowerDown reports whether the chip has been put into power down.
func (hx *HX711) PowerDown() bool {
	hx.mu.Lock()
	pd := !hx.powered
	hx.mu.Unlock()
	return pd
}

// SetPowerDown enters (true) or leaves (false) power down mode.
//
// Entering holds PD_SCK high for the power down hold time. Leaving drives
// PD_SCK low, which resets the chip to channel A, gain 128; the next sample is
// converted with that gain regardless of [HX711.Gain]. The analog front end
// needs time to settle after waking and the driver does not wait for it.
func (hx *HX711) SetPowerDown(down bool) error {
	hx.mu.Lock()
	defer hx.mu.Unlock()

	if hx.closed {
		return ErrClosed
	}
	if down == !hx.powered {
		return nil
	}

	if down {
		if err := hx.clockLow(); err != nil {
			return err
		}
		if err := hx.clockHigh(); err != nil {
			return err
		}
		time.Sleep(hx.timing.PowerDownHold)
		hx.powered = false
		hx.log.Debug().Msg("powered down")
		return nil
	}

	if err := hx.clockLow(); err != nil {
		return err
	}
	hx.powered = true
	hx.configured = DefaultGain
	hx.log.Debug().Msg("powered up")
	return nil
}

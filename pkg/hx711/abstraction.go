package hx711

import (
	"fmt"
	"time"
)

func (hx *HX711) clockHigh() error {
	if err := hx.clock.High(); err != nil {
		return fmt.Errorf("clock: %w", err)
	}
	return nil
}

func (hx *HX711) clockLow() error {
	if err := hx.clock.Low(); err != nil {
		return fmt.Errorf("clock: %w", err)
	}
	return nil
}

func (hx *HX711) readData() (bool, error) {
	hl, err := hx.data.Read()
	if err != nil {
		return false, fmt.Errorf("data: %w", err)
	}
	return hl, nil
}

// hold spins for d. time.Sleep overshoots by tens of microseconds on most
// hosts, which is enough for PD_SCK to cross the 60µs power down threshold.
func hold(d time.Duration) {
	if d <= 0 {
		return
	}
	start := time.Now()
	for time.Since(start) < d {
	}
}

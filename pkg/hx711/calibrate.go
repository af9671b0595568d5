package hx711

import (
	"fmt"
	"math"
)

// readN takes n raw samples, aborting on the first failure. Callers must hold hx.mu.
func (hx *HX711) readN(n int) ([]int32, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: sample count must be at least 1, got %d", ErrInvalidArgument, n)
	}
	samples := make([]int32, 0, n)
	for i := 0; i < n; i++ {
		s, err := hx.readSample()
		if err != nil {
			return nil, fmt.Errorf("sample %d/%d: %w", i+1, n, err)
		}
		samples = append(samples, s.Raw)
	}
	return samples, nil
}

// Tare averages samples raw readings of the unloaded cell, stores the mean
// (rounded to the nearest integer) as the offset and returns it. Nothing is
// stored if any reading fails.
func (hx *HX711) Tare(samples int) (int32, error) {
	hx.mu.Lock()
	defer hx.mu.Unlock()

	values, err := hx.readN(samples)
	if err != nil {
		return 0, err
	}

	hx.offset = int32(math.Round(mean(values)))
	hx.log.Debug().Int32("offset", hx.offset).Int("samples", samples).Msg("tared")
	return hx.offset, nil
}

// Calibrate averages samples raw readings with referenceWeight grams on the
// cell and stores (mean - offset) / referenceWeight as the scale. Tare first,
// otherwise the result includes whatever offset was set before. Nothing is
// stored if any reading fails.
func (hx *HX711) Calibrate(referenceWeight float64, samples int) (float64, error) {
	if !(referenceWeight > 0) || math.IsInf(referenceWeight, 0) {
		return 0, fmt.Errorf("%w: reference weight must be positive, got %v", ErrInvalidArgument, referenceWeight)
	}

	hx.mu.Lock()
	defer hx.mu.Unlock()

	values, err := hx.readN(samples)
	if err != nil {
		return 0, err
	}

	scale := (mean(values) - float64(hx.offset)) / referenceWeight
	if err = validScale(scale); err != nil {
		return 0, fmt.Errorf("reading did not change from offset %d: %w", hx.offset, err)
	}

	hx.scale = scale
	hx.scaleSet = true
	hx.log.Debug().Float64("scale", scale).Float64("reference", referenceWeight).
		Int("samples", samples).Msg("calibrated")
	return scale, nil
}

// Weight takes one reading and converts it to grams using the current offset
// and scale. It fails with [ErrUninitializedScale] until the scale has been set
// by [HX711.Calibrate] or [HX711.SetScale].
func (hx *HX711) Weight() (float64, error) {
	hx.mu.Lock()
	defer hx.mu.Unlock()

	w, _, err := hx.weight()
	return w, err
}

// weight returns the weight along with the sample it was computed from. Callers must hold hx.mu.
func (hx *HX711) weight() (float64, Sample, error) {
	if !hx.scaleSet {
		return 0, Sample{}, ErrUninitializedScale
	}
	s, err := hx.readSample()
	if err != nil {
		return 0, Sample{}, err
	}
	return (float64(s.Raw) - float64(hx.offset)) / hx.scale, s, nil
}

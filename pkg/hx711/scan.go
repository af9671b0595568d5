package hx711

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Unit denotes the unit of a [Reading].
type Unit string

const (
	// UnitGrams is used once a scale has been set.
	UnitGrams Unit = "g"
	// UnitRaw is used before calibration; the weight is raw counts minus the offset.
	UnitRaw Unit = "raw"
)

// maxScanErrors stops a scan that keeps failing.
const maxScanErrors = 50

// Reading is a single scan result.
type Reading struct {
	TimeStamp time.Time
	Raw       int32
	Gain      Gain
	Weight    float64
	Unit      Unit
}

// ReadingCallback receives each successful reading of a [WeightScan].
type ReadingCallback func(r Reading)

type WeightScan struct {
	Interval time.Duration
	done     *atomic.Bool
	running  *atomic.Bool
	finished chan struct{}
	callback ReadingCallback
	err      []error
	errMu    sync.Mutex
}

func newWeightScan(interval time.Duration, onReading ReadingCallback) *WeightScan {
	return &WeightScan{
		Interval: interval,
		done:     &atomic.Bool{},
		running:  &atomic.Bool{},
		finished: make(chan struct{}),
		callback: onReading,
		err:      make([]error, 0),
	}
}

func (ws *WeightScan) addErr(err error) {
	if err == nil {
		return
	}
	ws.errMu.Lock()
	ws.err = append(ws.err, err)
	if len(ws.err) > maxScanErrors {
		ws.done.Store(true)
	}
	ws.errMu.Unlock()
}

// Err returns every error the scan has run into, joined.
func (ws *WeightScan) Err() error {
	ws.errMu.Lock()
	defer ws.errMu.Unlock()
	if len(ws.err) == 0 {
		return nil
	}
	return fmt.Errorf("weight scan errors: %w", errors.Join(ws.err...))
}

// Stop asks the scan to finish after the current reading.
func (ws *WeightScan) Stop() {
	ws.done.Store(true)
}

func (ws *WeightScan) IsDone() bool {
	return ws.done.Load()
}

// IsRunning reports whether the scan goroutine is still sampling.
func (ws *WeightScan) IsRunning() bool {
	return ws.running.Load()
}

// Wait blocks until the scan goroutine has exited or ctx is done.
func (ws *WeightScan) Wait(ctx context.Context) error {
	select {
	case <-ws.finished:
		return ws.Err()
	case <-ctx.Done():
		return errors.Join(ctx.Err(), ws.Err())
	}
}

func (hx *HX711) scanOnce(ws *WeightScan) {
	hx.mu.Lock()

	var (
		r   = Reading{Unit: UnitRaw}
		s   Sample
		err error
	)

	if hx.scaleSet {
		r.Unit = UnitGrams
		r.Weight, s, err = hx.weight()
	} else {
		s, err = hx.readSample()
		r.Weight = float64(s.Raw) - float64(hx.offset)
	}

	hx.mu.Unlock()

	if err != nil {
		ws.addErr(err)
		if errors.Is(err, ErrClosed) {
			ws.done.Store(true)
		}
		return
	}

	r.TimeStamp = time.Now()
	r.Raw = s.Raw
	r.Gain = s.Gain

	ws.callback(r)
}

// Scan samples the weight every interval in a new goroutine and passes each
// reading to onReading. Before a scale is set the readings carry raw counts
// net of the offset ([UnitRaw]).
//
// Reads share the device lock with every other operation, so calling Tare or
// SetGain during a scan is safe. Failed reads are collected (see
// [WeightScan.Err]); the scan gives up after too many of them, when the
// device is closed, when ctx is done, or on [WeightScan.Stop].
func (hx *HX711) Scan(ctx context.Context, interval time.Duration, onReading ReadingCallback) (*WeightScan, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: scan interval must be positive", ErrInvalidArgument)
	}
	if onReading == nil {
		return nil, fmt.Errorf("%w: no reading callback", ErrInvalidArgument)
	}

	ws := newWeightScan(interval, onReading)
	ws.running.Store(true)

	go func() {
		defer func() {
			ws.done.Store(true)
			ws.running.Store(false)
			close(ws.finished)
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if ws.done.Load() {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}

			hx.scanOnce(ws)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return ws, nil
}

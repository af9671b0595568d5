package hx711

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakePowerDownAfter is how long PD_SCK must stay high for the fake to reset.
// It is well above any pulse the driver produces under test timing.
const fakePowerDownAfter = 2 * time.Millisecond

// fakeChip simulates the HX711 side of the PD_SCK/DOUT handshake.
//
// DOUT is low while a queued conversion is waiting. Each rising edge of PD_SCK
// shifts out the next bit, MSB first. When DOUT is polled again after a frame
// of at least 24 pulses the frame is finished: the pulse count is recorded and
// the next queued conversion becomes current. Holding PD_SCK high for
// fakePowerDownAfter aborts the frame in progress, as a power down would.
type fakeChip struct {
	mu sync.Mutex

	queue   []int32
	current uint32
	pulses  int
	high    bool
	highAt  time.Time

	frames     []int // pulse count of each finished frame
	edges      int   // every clock transition, including power down
	powerDowns int
	ioErr      error // returned by every line call when set

	clockClosed int
	dataClosed  int
}

func newFakeChip(samples ...int32) *fakeChip {
	return &fakeChip{queue: samples}
}

func (f *fakeChip) push(samples ...int32) {
	f.mu.Lock()
	f.queue = append(f.queue, samples...)
	f.mu.Unlock()
}

// finish closes the frame in progress, if any. Callers hold f.mu.
func (f *fakeChip) finish() {
	if f.pulses < DataBits || f.high {
		return
	}
	f.frames = append(f.frames, f.pulses)
	f.pulses = 0
	if len(f.queue) > 0 {
		f.queue = f.queue[1:]
	}
}

func (f *fakeChip) Frames() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finish()
	return append([]int(nil), f.frames...)
}

func (f *fakeChip) Edges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edges
}

func (f *fakeChip) PowerDowns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.powerDowns
}

func (f *fakeChip) lines() (Line, Line) {
	return &fakeClock{f}, &fakeData{f}
}

type fakeClock struct{ f *fakeChip }

func (c *fakeClock) High() error {
	f := c.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ioErr != nil {
		return f.ioErr
	}
	f.edges++
	if f.high {
		return nil
	}
	f.high = true
	f.highAt = time.Now()
	if f.pulses == 0 && len(f.queue) > 0 {
		f.current = Convert32To24(f.queue[0])
	}
	f.pulses++
	return nil
}

func (c *fakeClock) Low() error {
	f := c.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ioErr != nil {
		return f.ioErr
	}
	f.edges++
	if f.high && time.Since(f.highAt) >= fakePowerDownAfter {
		// the power down pulse is not part of a frame
		f.powerDowns++
		f.pulses--
		f.high = false
		f.finish()
		f.pulses = 0
	}
	f.high = false
	return nil
}

func (c *fakeClock) Read() (bool, error) {
	return false, errors.New("clock is an output")
}

func (c *fakeClock) Close() error {
	c.f.mu.Lock()
	c.f.clockClosed++
	c.f.mu.Unlock()
	return nil
}

type fakeData struct{ f *fakeChip }

func (d *fakeData) High() error { return errors.New("data is an input") }
func (d *fakeData) Low() error  { return errors.New("data is an input") }

func (d *fakeData) Read() (bool, error) {
	f := d.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ioErr != nil {
		return false, f.ioErr
	}
	f.finish()
	switch {
	case f.pulses == 0:
		return len(f.queue) == 0, nil
	case f.pulses <= DataBits:
		return (f.current>>(DataBits-f.pulses))&0x01 == 0x01, nil
	default:
		return true, nil
	}
}

func (d *fakeData) Close() error {
	d.f.mu.Lock()
	d.f.dataClosed++
	d.f.mu.Unlock()
	return nil
}

func testTiming() Timing {
	return Timing{
		ReadyTimeout:  5 * time.Millisecond,
		PollInterval:  0,
		PulseHold:     0,
		PowerDownHold: 2 * fakePowerDownAfter,
	}
}

func newTestHX711(t *testing.T, gain Gain, samples ...int32) (*HX711, *fakeChip) {
	t.Helper()
	chip := newFakeChip(samples...)
	clock, data := chip.lines()
	cfg := DefaultConfig()
	cfg.Gain = gain
	cfg.Timing = testTiming()
	hx, err := New(clock, data, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = hx.Close() })
	return hx, chip
}

func repeat(v int32, n int) []int32 {
	s := make([]int32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

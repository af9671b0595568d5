package hx711

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/l0nax/go-spew/spew"
)

var pprint = spew.ConfigState{
	Indent:                  "\t",
	MaxDepth:                0,
	DisableMethods:          false,
	DisablePointerMethods:   false,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	ContinueOnMethod:        true,
	SortKeys:                true,
	SpewKeys:                true,
}

func TestNew(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		hx, chip := newTestHX711(t, 0)
		if hx.Gain() != Gain128 {
			t.Errorf("expected gain 128, got %s", hx.Gain())
		}
		if hx.Offset() != 0 {
			t.Errorf("expected offset 0, got %d", hx.Offset())
		}
		if hx.Scale() != 1 {
			t.Errorf("expected scale 1, got %f", hx.Scale())
		}
		if hx.PowerDown() {
			t.Error("expected device to be powered")
		}
		if chip.Edges() != 1 {
			t.Errorf("expected clock to be driven low once, got %d edges", chip.Edges())
		}
	})

	t.Run("InvalidGain", func(t *testing.T) {
		clock, data := newFakeChip().lines()
		cfg := DefaultConfig()
		cfg.Gain = 100
		if _, err := New(clock, data, cfg); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("MissingLine", func(t *testing.T) {
		clock, _ := newFakeChip().lines()
		if _, err := New(clock, nil, DefaultConfig()); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("InvalidTiming", func(t *testing.T) {
		bad := []Timing{
			{ReadyTimeout: 0, PowerDownHold: DefaultPowerDownHold},
			{ReadyTimeout: time.Second, PollInterval: -1, PowerDownHold: DefaultPowerDownHold},
			{ReadyTimeout: time.Second, PulseHold: MinPowerDownHold, PowerDownHold: DefaultPowerDownHold},
			{ReadyTimeout: time.Second, PowerDownHold: -1},
			{ReadyTimeout: time.Second},
			{ReadyTimeout: time.Second, PowerDownHold: 10 * time.Microsecond},
		}
		for _, timing := range bad {
			clock, data := newFakeChip().lines()
			cfg := DefaultConfig()
			cfg.Timing = timing
			if _, err := New(clock, data, cfg); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("timing %+v: expected ErrInvalidArgument, got %v", timing, err)
			}
		}
	})

	t.Run("ZeroTiming", func(t *testing.T) {
		clock, data := newFakeChip().lines()
		hx, err := New(clock, data, Config{Gain: Gain64})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hx.timing != DefaultTiming() {
			t.Errorf("expected default timing, got:\n%s", pprint.Sdump(hx.timing))
		}
		if hx.Gain() != Gain64 {
			t.Errorf("expected gain 64, got %s", hx.Gain())
		}
	})

	t.Run("DefaultTimingIsValid", func(t *testing.T) {
		if err := DefaultTiming().Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestReadRaw(t *testing.T) {
	values := []int32{0, 1, -1, 500, -500, 0x123456, MaxRaw, MinRaw}
	hx, chip := newTestHX711(t, Gain128, values...)

	for _, want := range values {
		got, err := hx.ReadRaw()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}

	frames := chip.Frames()
	if len(frames) != len(values) {
		t.Fatalf("expected %d frames, got:\n%s", len(values), pprint.Sdump(frames))
	}
	for _, n := range frames {
		if n != 25 {
			t.Errorf("expected 25 pulses per frame, got:\n%s", pprint.Sdump(frames))
			break
		}
	}
}

func TestGainPulses(t *testing.T) {
	cases := map[Gain]struct {
		pulses  int
		channel Channel
	}{
		Gain128: {25, CH_A},
		Gain64:  {27, CH_A},
		Gain32:  {26, CH_B},
	}

	for gain, want := range cases {
		t.Run(gain.String(), func(t *testing.T) {
			if gain.Pulses() != want.pulses {
				t.Errorf("expected %d pulses, got %d", want.pulses, gain.Pulses())
			}
			if gain.Channel() != want.channel {
				t.Errorf("expected %s, got %s", want.channel, gain.Channel())
			}

			hx, chip := newTestHX711(t, gain, 42)
			if _, err := hx.ReadRaw(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			frames := chip.Frames()
			if len(frames) != 1 || frames[0] != want.pulses {
				t.Errorf("expected one frame of %d pulses, got:\n%s", want.pulses, pprint.Sdump(frames))
			}
		})
	}

	t.Run("Invalid", func(t *testing.T) {
		if Gain(16).Valid() || Gain(16).Pulses() != 0 {
			t.Error("expected gain 16 to be invalid")
		}
		if _, err := ParseGain(16); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if g, err := ParseGain(64); err != nil || g != Gain64 {
			t.Errorf("expected Gain64, got %s, %v", g, err)
		}
	})
}

func TestSetGain(t *testing.T) {
	t.Run("Invalid", func(t *testing.T) {
		hx, _ := newTestHX711(t, Gain128)
		if err := hx.SetGain(0); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if hx.Gain() != Gain128 {
			t.Errorf("expected gain to stay 128, got %s", hx.Gain())
		}
	})

	t.Run("AppliesOneReadLate", func(t *testing.T) {
		hx, chip := newTestHX711(t, Gain128, 1, 2, 3)

		if err := hx.SetGain(Gain64); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hx.Gain() != Gain64 {
			t.Errorf("expected gain 64, got %s", hx.Gain())
		}

		// converted before the change took effect
		s, err := hx.ReadSample()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Gain != Gain128 {
			t.Errorf("expected first sample at gain 128, got %s", s.Gain)
		}

		s, err = hx.ReadSample()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Gain != Gain64 || s.Raw != 2 {
			t.Errorf("expected second sample 2 at gain 64, got %s", pprint.Sdump(s))
		}

		if frames := chip.Frames(); len(frames) != 2 || frames[0] != 27 || frames[1] != 27 {
			t.Errorf("expected two frames of 27 pulses, got:\n%s", pprint.Sdump(frames))
		}
	})

	t.Run("ApplyGain", func(t *testing.T) {
		hx, chip := newTestHX711(t, Gain128, 10, 20)

		if err := hx.SetGain(Gain32); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := hx.ApplyGain(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s, err := hx.ReadSample()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Raw != 20 || s.Gain != Gain32 || s.Gain.Channel() != CH_B {
			t.Errorf("expected 20 from channel B at gain 32, got %s", pprint.Sdump(s))
		}
		if frames := chip.Frames(); len(frames) != 2 {
			t.Errorf("expected ApplyGain to consume one conversion, got:\n%s", pprint.Sdump(frames))
		}
	})
}

func TestNotReady(t *testing.T) {
	hx, chip := newTestHX711(t, Gain128)
	edges := chip.Edges()

	start := time.Now()
	_, err := hx.ReadRaw()
	elapsed := time.Since(start)

	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if elapsed < testTiming().ReadyTimeout {
		t.Errorf("gave up after %s, before the %s budget", elapsed, testTiming().ReadyTimeout)
	}
	if elapsed > time.Second {
		t.Errorf("wait took %s", elapsed)
	}
	if chip.Edges() != edges {
		t.Errorf("expected no clock pulses, got %d", chip.Edges()-edges)
	}

	t.Run("RecoversWhenReady", func(t *testing.T) {
		chip.push(77)
		v, err := hx.ReadRaw()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != 77 {
			t.Errorf("expected 77, got %d", v)
		}
	})
}

func TestPowerDown(t *testing.T) {
	t.Run("RefusesToRead", func(t *testing.T) {
		hx, chip := newTestHX711(t, Gain128, 5)
		if err := hx.SetPowerDown(true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !hx.PowerDown() {
			t.Fatal("expected device to be powered down")
		}

		edges := chip.Edges()
		if _, err := hx.ReadRaw(); !errors.Is(err, ErrPoweredDown) {
			t.Errorf("expected ErrPoweredDown, got %v", err)
		}
		if _, err := hx.Tare(DefaultSamples); !errors.Is(err, ErrPoweredDown) {
			t.Errorf("expected ErrPoweredDown, got %v", err)
		}
		if chip.Edges() != edges {
			t.Errorf("expected no pin toggling, got %d edges", chip.Edges()-edges)
		}
	})

	t.Run("HoldsClockHigh", func(t *testing.T) {
		hx, chip := newTestHX711(t, Gain128)
		if err := hx.SetPowerDown(true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// already down: no further signalling
		edges := chip.Edges()
		if err := hx.SetPowerDown(true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if chip.Edges() != edges {
			t.Errorf("expected no edges, got %d", chip.Edges()-edges)
		}
		if err := hx.SetPowerDown(false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if chip.PowerDowns() != 1 {
			t.Errorf("expected the chip to see one power down, got %d", chip.PowerDowns())
		}
	})

	t.Run("WakeResetsGain", func(t *testing.T) {
		hx, _ := newTestHX711(t, Gain64, 1, 2, 3)
		if _, err := hx.ReadRaw(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := hx.SetPowerDown(true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := hx.SetPowerDown(false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hx.PowerDown() {
			t.Fatal("expected device to be powered")
		}
		s, err := hx.ReadSample()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Raw != 2 || s.Gain != Gain128 {
			t.Errorf("expected 2 at the reset gain 128, got %s", pprint.Sdump(s))
		}
	})
}

func TestClose(t *testing.T) {
	hx, chip := newTestHX711(t, Gain128, 1)

	for i := 0; i < 3; i++ {
		if err := hx.Close(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if chip.clockClosed != 1 || chip.dataClosed != 1 {
		t.Errorf("expected each line closed once, got clock=%d data=%d", chip.clockClosed, chip.dataClosed)
	}

	if _, err := hx.ReadRaw(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := hx.SetPowerDown(true); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestLineError(t *testing.T) {
	hx, chip := newTestHX711(t, Gain128, 1, 2)
	ioErr := errors.New("usb transfer failed")

	chip.mu.Lock()
	chip.ioErr = ioErr
	chip.mu.Unlock()

	_, err := hx.ReadRaw()
	if !errors.Is(err, ioErr) {
		t.Errorf("expected the line error, got %v", err)
	}
	if errors.Is(err, ErrNotReady) {
		t.Errorf("line errors must not look like ErrNotReady: %v", err)
	}
}

func TestConcurrentReads(t *testing.T) {
	const n = 64
	a, b := int32(0x123456), int32(-0x2468AC)

	samples := make([]int32, 0, n)
	for i := 0; i < n/2; i++ {
		samples = append(samples, a, b)
	}
	hx, chip := newTestHX711(t, Gain64, samples...)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int32]int{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := hx.ReadRaw()
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			seen[v]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if seen[a] != n/2 || seen[b] != n/2 || len(seen) != 2 {
		t.Errorf("readings were corrupted:\n%s", pprint.Sdump(seen))
	}
	if frames := chip.Frames(); len(frames) != n {
		t.Errorf("expected %d frames, got %d", n, len(frames))
	}
}

func TestGainString(t *testing.T) {
	if s := Gain32.String(); s != "CH_B/x32" {
		t.Errorf("expected CH_B/x32, got %s", s)
	}
	if s := Gain(3).String(); s != "(invalid gain 3)" {
		t.Errorf("unexpected string %q", s)
	}
	if s := Channel(math.MaxInt8).String(); s != "(invalid channel)" {
		t.Errorf("unexpected string %q", s)
	}
}

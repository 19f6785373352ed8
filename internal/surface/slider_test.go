package surface

import (
	"testing"
)

// distanceFor returns a pinch distance that quantizes to v under the
// default pinch range.
func distanceFor(v int) float64 {
	return DefaultPinchMin + (float64(v)+0.5)*(DefaultPinchMax-DefaultPinchMin)/MaxValue
}

func newTestSurface(t *testing.T, mutate func(*Config)) *Surface {
	t.Helper()

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     int
	}{
		{name: "minimum maps to zero", distance: DefaultPinchMin, want: 0},
		{name: "maximum maps to 127", distance: DefaultPinchMax, want: 127},
		{name: "below range clamps", distance: 0, want: 0},
		{name: "above range clamps", distance: 500, want: 127},
		{name: "midpoint truncates", distance: 110, want: 63},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quantize(tt.distance, DefaultPinchMin, DefaultPinchMax)
			if got != tt.want {
				t.Errorf("Quantize(%v) = %d, want %d", tt.distance, got, tt.want)
			}
		})
	}

	t.Run("monotonic non-decreasing", func(t *testing.T) {
		prev := Quantize(-10, DefaultPinchMin, DefaultPinchMax)
		for d := -10.0; d <= 300; d += 0.25 {
			got := Quantize(d, DefaultPinchMin, DefaultPinchMax)
			if got < prev {
				t.Fatalf("Quantize(%v) = %d, less than previous %d", d, got, prev)
			}
			if got < 0 || got > MaxValue {
				t.Fatalf("Quantize(%v) = %d out of range", d, got)
			}
			prev = got
		}
	})
}

func TestSlider_InitialState(t *testing.T) {
	s := newTestSurface(t, nil)
	sl := s.Slider(Left)

	if sl.Value() != 0 {
		t.Errorf("expected initial value 0, got %d", sl.Value())
	}
	if sl.LastSent() != -1 {
		t.Errorf("expected last sent -1, got %d", sl.LastSent())
	}

	window := sl.Window()
	if len(window) != DefaultSmoothingWindow {
		t.Fatalf("expected window of %d, got %d", DefaultSmoothingWindow, len(window))
	}
	for i, v := range window {
		if v != 0 {
			t.Errorf("window[%d] = %d, want 0", i, v)
		}
	}
}

func TestSlider_ValueIsWindowMean(t *testing.T) {
	s := newTestSurface(t, nil)
	sl := s.Slider(Left)

	inputs := []int{127, 3, 64, 90, 11, 0, 127, 55, 42, 101}
	for i, v := range inputs {
		sl.Update(distanceFor(v), 640, 200)

		window := sl.Window()
		if len(window) != DefaultSmoothingWindow {
			t.Fatalf("step %d: window length = %d, want %d", i, len(window), DefaultSmoothingWindow)
		}
		sum := 0
		for _, w := range window {
			sum += w
		}
		if want := sum / DefaultSmoothingWindow; sl.Value() != want {
			t.Errorf("step %d: value = %d, want %d", i, sl.Value(), want)
		}
		if window[len(window)-1] != v {
			t.Errorf("step %d: newest sample = %d, want %d", i, window[len(window)-1], v)
		}
	}
}

func TestSlider_FreezesOutsideZone(t *testing.T) {
	s := newTestSurface(t, nil)
	sl := s.Slider(Left)

	for i := 0; i < 4; i++ {
		sl.Update(distanceFor(100), 640, 200)
	}
	value := sl.Value()
	window := sl.Window()

	// Pinch center far below the slider zone.
	sl.Update(distanceFor(0), 640, 600)

	if sl.Active() {
		t.Error("slider should be inactive outside its zone")
	}
	if sl.InZoneNow() {
		t.Error("slider should report out of zone")
	}
	if sl.Value() != value {
		t.Errorf("value changed outside zone: got %d, want %d", sl.Value(), value)
	}
	after := sl.Window()
	for i := range window {
		if window[i] != after[i] {
			t.Fatalf("window changed outside zone: got %v, want %v", after, window)
		}
	}
}

func TestSlider_Deadzone(t *testing.T) {
	s := newTestSurface(t, func(c *Config) {
		c.SmoothingWindow = 1
	})
	sl := s.Slider(Left)

	sl.Update(distanceFor(10), 640, 200)
	if _, ok := sl.Emit(); !ok {
		t.Fatal("expected first emission from the -1 sentinel")
	}

	sl.Update(distanceFor(11), 640, 200)
	if _, ok := sl.Emit(); ok {
		t.Error("a change of 1 should be suppressed")
	}

	sl.Update(distanceFor(12), 640, 200)
	ev, ok := sl.Emit()
	if !ok {
		t.Fatal("a change of 2 should emit")
	}
	if ev.Value != 12 || ev.Number != 20 || ev.Kind != ControlChange {
		t.Errorf("unexpected event %v", ev)
	}
	if sl.LastSent() != 12 {
		t.Errorf("expected last sent 12, got %d", sl.LastSent())
	}
}

func TestSlider_StableInputStopsEmitting(t *testing.T) {
	s := newTestSurface(t, nil)
	sl := s.Slider(Right)

	var emitted []int
	for i := 0; i < 20; i++ {
		sl.Update(110, 640, 300)
		if ev, ok := sl.Emit(); ok {
			emitted = append(emitted, int(ev.Value))
		}
	}

	want := []int{9, 18, 27, 36, 45, 54, 63}
	if len(emitted) != len(want) {
		t.Fatalf("emitted %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Errorf("emission %d = %d, want %d", i, emitted[i], want[i])
		}
	}
	if sl.Value() != 63 {
		t.Errorf("expected settled value 63, got %d", sl.Value())
	}
}

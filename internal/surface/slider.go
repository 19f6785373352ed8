package surface

// MaxValue is the largest 7-bit MIDI data value.
const MaxValue = 127

// Slider turns a pinch distance into a smoothed 0-127 controller value.
//
// The smoothing window always holds exactly SmoothingWindow samples and
// starts out filled with zeros, so Value is 0 right after construction.
type Slider struct {
	cfg      SliderConfig
	zone     Rect
	padMinY  float64
	pinchMin float64
	pinchMax float64
	deadzone int
	channel  uint8

	window []int
	next   int
	sum    int

	value    int
	lastSent int
	pinch    float64

	active bool
	inZone bool
}

func newSlider(c *Config, s SliderConfig) *Slider {
	return &Slider{
		cfg:      s,
		zone:     sliderZone(c, &s),
		padMinY:  c.PadMinY,
		pinchMin: c.PinchMin,
		pinchMax: c.PinchMax,
		deadzone: c.Deadzone,
		channel:  c.Channel,
		window:   make([]int, c.SmoothingWindow),
		lastSent: -1,
	}
}

// Quantize clamps distance to [lo, hi] and scales it onto 0-127,
// truncating toward zero.
func Quantize(distance, lo, hi float64) int {
	distance = max(lo, min(distance, hi))
	normalized := (distance - lo) / (hi - lo)
	return int(normalized * MaxValue)
}

// InZone reports whether (x, y) lies in this slider's activation zone.
func (s *Slider) InZone(x, y float64) bool {
	return InSliderZone(s.zone, s.padMinY, x, y)
}

// Update feeds one pinch reading. Outside the zone the value is frozen and
// the window is left untouched.
func (s *Slider) Update(distance, centerX, centerY float64) {
	s.inZone = s.InZone(centerX, centerY)
	s.active = s.inZone
	if !s.inZone {
		return
	}

	s.pinch = distance
	s.push(Quantize(distance, s.pinchMin, s.pinchMax))
}

func (s *Slider) push(v int) {
	s.sum += v - s.window[s.next]
	s.window[s.next] = v
	s.next = (s.next + 1) % len(s.window)
	s.value = s.sum / len(s.window)
}

// Emit returns a control change when the smoothed value has moved at least
// the deadzone away from the last value sent.
func (s *Slider) Emit() (Event, bool) {
	d := s.value - s.lastSent
	if d < 0 {
		d = -d
	}
	if d < s.deadzone {
		return Event{}, false
	}
	s.lastSent = s.value
	return controlChange(s.channel, s.cfg.CC, s.value, s.cfg.Label), true
}

func (s *Slider) resetActive() {
	s.active = false
}

// Value returns the current smoothed value.
func (s *Slider) Value() int { return s.value }

// LastSent returns the last transmitted value, or -1 if nothing was sent.
func (s *Slider) LastSent() int { return s.lastSent }

// Active reports whether the slider received an in-zone sample this frame.
func (s *Slider) Active() bool { return s.active }

// InZoneNow reports whether the last routed sample was inside the zone.
func (s *Slider) InZoneNow() bool { return s.inZone }

// Zone returns the activation rectangle.
func (s *Slider) Zone() Rect { return s.zone }

// Config returns the slider's bindings and geometry.
func (s *Slider) Config() SliderConfig { return s.cfg }

// Window returns a copy of the smoothing window, oldest sample first.
func (s *Slider) Window() []int {
	out := make([]int, 0, len(s.window))
	out = append(out, s.window[s.next:]...)
	out = append(out, s.window[:s.next]...)
	return out
}

func (s *Slider) status() SliderStatus {
	st := SliderStatus{
		Label:    s.cfg.Label,
		Hand:     s.cfg.Hand,
		CC:       s.cfg.CC,
		Value:    s.value,
		LastSent: s.lastSent,
		Active:   s.active,
		InZone:   s.inZone,
		Zone:     s.zone,
	}
	if s.active {
		st.Pinch = s.pinch
	}
	return st
}

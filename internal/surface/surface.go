package surface

import "time"

// Surface owns the sliders and pads and advances them one frame at a time.
// It is not safe for concurrent use; the host loop is its only caller.
type Surface struct {
	cfg     Config
	sliders [NumSliders]*Slider
	pads    [NumPads]*Pad

	// byHand maps a handedness to its slider index.
	byHand [numHands]int

	frame  uint64
	last   time.Time
	nhands int
}

// New validates cfg and builds a Surface.
func New(cfg Config) (*Surface, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Surface{cfg: cfg}
	for i, sc := range cfg.Sliders {
		s.sliders[i] = newSlider(&s.cfg, sc)
		s.byHand[sc.Hand] = i
	}
	for i, pc := range cfg.Pads {
		s.pads[i] = newPad(&s.cfg, pc)
	}
	return s, nil
}

// Advance runs one frame. now is read once by the caller and used for every
// timestamp comparison in the frame. Control changes are returned before
// note events.
func (s *Surface) Advance(hands Hands, now time.Time) []Event {
	var events []Event

	for _, sl := range s.sliders {
		sl.resetActive()
	}

	hands.Each(func(h HandSample) {
		sl := s.sliders[s.byHand[h.Hand]]
		sl.Update(h.PinchDistance, h.PinchCenter.X, h.PinchCenter.Y)
		if sl.Active() {
			if ev, ok := sl.Emit(); ok {
				events = append(events, ev)
			}
		}
	})

	hands.Each(func(h HandSample) {
		for _, p := range s.pads {
			if ev, ok := p.CheckTouch(h.PalmCenter.X, h.PalmCenter.Y, now); ok {
				events = append(events, ev)
			}
		}
	})

	for _, p := range s.pads {
		if ev, ok := p.Update(now); ok {
			events = append(events, ev)
		}
	}

	s.frame++
	s.last = now
	s.nhands = hands.Len()
	return events
}

// Reset returns the shutdown sequence: CC 0 for every slider and a note-off
// for every pad, regardless of current state.
func (s *Surface) Reset() []Event {
	events := make([]Event, 0, NumSliders+NumPads)
	for _, sl := range s.sliders {
		events = append(events, controlChange(s.cfg.Channel, sl.cfg.CC, 0, sl.cfg.Label))
	}
	for _, p := range s.pads {
		events = append(events, noteOff(s.cfg.Channel, p.cfg.Note, p.cfg.Label))
	}
	return events
}

// Status returns a snapshot of every control after the last Advance.
func (s *Surface) Status() Status {
	st := Status{
		Frame:   s.frame,
		At:      s.last,
		Hands:   s.nhands,
		PadMinY: s.cfg.PadMinY,
	}
	for i, sl := range s.sliders {
		st.Sliders[i] = sl.status()
	}
	for i, p := range s.pads {
		st.Pads[i] = p.status()
	}
	return st
}

// Slider returns the slider bound to hand.
func (s *Surface) Slider(hand Handedness) *Slider {
	if !hand.Valid() {
		return nil
	}
	return s.sliders[s.byHand[hand]]
}

// Pad returns the i-th pad, or nil when out of range.
func (s *Surface) Pad(i int) *Pad {
	if i < 0 || i >= NumPads {
		return nil
	}
	return s.pads[i]
}

// Config returns the configuration the surface was built with.
func (s *Surface) Config() Config {
	return s.cfg
}

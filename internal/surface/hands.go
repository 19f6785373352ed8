// Package surface maps per-frame hand samples onto a fixed MIDI control
// surface of two pinch sliders and four palm pads.
package surface

import (
	"fmt"
	"strings"
)

// Handedness identifies which hand a sample belongs to.
type Handedness int

const (
	Left Handedness = iota
	Right

	numHands
)

// ParseHandedness maps a detector label ("Left"/"Right", any case) to a
// Handedness. Unknown labels report false.
func ParseHandedness(label string) (Handedness, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "left":
		return Left, true
	case "right":
		return Right, true
	default:
		return 0, false
	}
}

// Valid reports whether h is Left or Right.
func (h Handedness) Valid() bool {
	return h >= Left && h < numHands
}

func (h Handedness) String() string {
	switch h {
	case Left:
		return "Left"
	case Right:
		return "Right"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the handedness as its label.
func (h Handedness) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText decodes a label accepted by ParseHandedness.
func (h *Handedness) UnmarshalText(b []byte) error {
	v, ok := ParseHandedness(string(b))
	if !ok {
		return fmt.Errorf("unknown handedness %q", b)
	}
	*h = v
	return nil
}

// Point is a position in frame pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HandSample is the per-frame reading for one hand.
type HandSample struct {
	Hand          Handedness
	PinchDistance float64
	PinchCenter   Point
	PalmCenter    Point
}

// Hands holds at most one sample per handedness for a single frame.
type Hands struct {
	slots [numHands]*HandSample
}

// Set stores s in its handedness slot, replacing any earlier sample for the
// same hand. Samples with an invalid handedness are dropped.
func (h *Hands) Set(s HandSample) {
	if !s.Hand.Valid() {
		return
	}
	sample := s
	h.slots[s.Hand] = &sample
}

// Get returns the sample for hand, if one was seen this frame.
func (h *Hands) Get(hand Handedness) (HandSample, bool) {
	if !hand.Valid() || h.slots[hand] == nil {
		return HandSample{}, false
	}
	return *h.slots[hand], true
}

// Len returns the number of occupied slots.
func (h *Hands) Len() int {
	n := 0
	for _, s := range h.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Each calls fn for every present sample, Left before Right.
func (h *Hands) Each(fn func(HandSample)) {
	for _, s := range h.slots {
		if s != nil {
			fn(*s)
		}
	}
}

// HandsOf builds a Hands from a list of samples.
func HandsOf(samples ...HandSample) Hands {
	var h Hands
	for _, s := range samples {
		h.Set(s)
	}
	return h
}

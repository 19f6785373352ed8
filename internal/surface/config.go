package surface

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when a surface configuration violates a
// geometric or numeric invariant.
var ErrInvalidConfig = errors.New("invalid surface config")

// Defaults for a 1280x720 frame.
const (
	DefaultFrameWidth      = 1280
	DefaultFrameHeight     = 720
	DefaultPinchMin        = 20
	DefaultPinchMax        = 200
	DefaultBarWidth        = 500
	DefaultBarHeight       = 60
	DefaultSliderMargin    = 100
	DefaultSliderMinY      = 80
	DefaultSliderMaxY      = 380
	DefaultPadMinY         = 420
	DefaultPadSize         = 140
	DefaultPadTouchArea    = 170
	DefaultPadMargin       = 50
	DefaultPadVelocity     = 100
	DefaultSmoothingWindow = 7
	DefaultDeadzone        = 2
	DefaultDebounce        = 120 * time.Millisecond
	DefaultSustain         = 150 * time.Millisecond
)

// NumSliders and NumPads fix the shape of the control surface.
const (
	NumSliders = 2
	NumPads    = 4
)

// SliderConfig binds one continuous control to a hand and a CC number.
type SliderConfig struct {
	Label  string
	Hand   Handedness
	CC     uint8
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// PadConfig describes one square pad and the note it triggers.
type PadConfig struct {
	Label     string
	Note      uint8
	X         float64
	Y         float64
	Size      float64
	TouchArea float64
}

// Config is the immutable configuration of a Surface.
type Config struct {
	Channel uint8

	PinchMin float64
	PinchMax float64

	// Zone thresholds, in frame pixels.
	SliderMinY   float64
	SliderMaxY   float64
	SliderMargin float64
	PadMinY      float64

	SmoothingWindow int
	Deadzone        int

	Debounce    time.Duration
	Sustain     time.Duration
	PadVelocity uint8

	Sliders [NumSliders]SliderConfig
	Pads    [NumPads]PadConfig
}

// Layout holds the sizes used to place controls on a frame.
type Layout struct {
	FrameWidth   float64
	FrameHeight  float64
	BarWidth     float64
	BarHeight    float64
	PadSize      float64
	PadTouchArea float64
	PadMargin    float64
}

// DefaultLayout returns the layout for a 1280x720 frame.
func DefaultLayout() Layout {
	return Layout{
		FrameWidth:   DefaultFrameWidth,
		FrameHeight:  DefaultFrameHeight,
		BarWidth:     DefaultBarWidth,
		BarHeight:    DefaultBarHeight,
		PadSize:      DefaultPadSize,
		PadTouchArea: DefaultPadTouchArea,
		PadMargin:    DefaultPadMargin,
	}
}

// SliderX returns the left edge of a horizontally centred slider bar.
func (l Layout) SliderX() float64 {
	return float64(int(l.FrameWidth-l.BarWidth) / 2)
}

// PadCorners returns the top-left corners of the four pads in the order
// top-left, top-right, bottom-left, bottom-right.
func (l Layout) PadCorners() [NumPads][2]float64 {
	top := l.FrameHeight - 2*l.PadMargin - 2*l.PadSize - 20
	bottom := l.FrameHeight - l.PadMargin - l.PadSize
	left := l.PadMargin
	right := l.FrameWidth - l.PadMargin - l.PadSize
	return [NumPads][2]float64{
		{left, top},
		{right, top},
		{left, bottom},
		{right, bottom},
	}
}

// DefaultConfig returns the two-slider, four-pad surface on a 1280x720
// frame: CC 20/21 on the left/right hand, drum-rack notes 36/38/42/46.
func DefaultConfig() Config {
	l := DefaultLayout()
	x := l.SliderX()
	corners := l.PadCorners()

	cfg := Config{
		Channel:         0,
		PinchMin:        DefaultPinchMin,
		PinchMax:        DefaultPinchMax,
		SliderMinY:      DefaultSliderMinY,
		SliderMaxY:      DefaultSliderMaxY,
		SliderMargin:    DefaultSliderMargin,
		PadMinY:         DefaultPadMinY,
		SmoothingWindow: DefaultSmoothingWindow,
		Deadzone:        DefaultDeadzone,
		Debounce:        DefaultDebounce,
		Sustain:         DefaultSustain,
		PadVelocity:     DefaultPadVelocity,
		Sliders: [NumSliders]SliderConfig{
			{Label: "SLIDER 1", Hand: Left, CC: 20, X: x, Y: 150, Width: l.BarWidth, Height: l.BarHeight},
			{Label: "SLIDER 2", Hand: Right, CC: 21, X: x, Y: 250, Width: l.BarWidth, Height: l.BarHeight},
		},
	}

	notes := [NumPads]uint8{36, 38, 42, 46}
	for i, c := range corners {
		cfg.Pads[i] = PadConfig{
			Label:     fmt.Sprintf("PAD %d", i+1),
			Note:      notes[i],
			X:         c[0],
			Y:         c[1],
			Size:      l.PadSize,
			TouchArea: l.PadTouchArea,
		}
	}

	return cfg
}

// Validate checks the numeric ranges and the slider/pad mutual exclusion
// invariant. Every error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Channel > 15 {
		return invalid("channel %d out of range 0-15", c.Channel)
	}
	if c.PinchMin < 0 || c.PinchMin >= c.PinchMax {
		return invalid("pinch range [%g, %g] is empty", c.PinchMin, c.PinchMax)
	}
	if c.SmoothingWindow < 1 {
		return invalid("smoothing window must be >= 1, got %d", c.SmoothingWindow)
	}
	if c.Deadzone < 1 {
		return invalid("deadzone must be >= 1, got %d", c.Deadzone)
	}
	if c.Debounce <= 0 || c.Sustain <= 0 {
		return invalid("debounce and sustain must be positive")
	}
	if c.PadVelocity == 0 || c.PadVelocity > 127 {
		return invalid("pad velocity %d out of range 1-127", c.PadVelocity)
	}
	if c.SliderMargin < 0 {
		return invalid("slider margin must be >= 0")
	}
	if c.SliderMinY > c.SliderMaxY {
		return invalid("slider_min_y %g > slider_max_y %g", c.SliderMinY, c.SliderMaxY)
	}
	if c.SliderMaxY >= c.PadMinY {
		return invalid("slider zone (max y %g) overlaps pad zone (min y %g)", c.SliderMaxY, c.PadMinY)
	}

	var seen [numHands]bool
	for i := range c.Sliders {
		s := &c.Sliders[i]
		if !s.Hand.Valid() {
			return invalid("slider %q has no handedness", s.Label)
		}
		if seen[s.Hand] {
			return invalid("two sliders bound to the %s hand", s.Hand)
		}
		seen[s.Hand] = true
		if s.CC > 127 {
			return invalid("slider %q cc %d out of range", s.Label, s.CC)
		}
		if s.Width <= 0 || s.Height <= 0 {
			return invalid("slider %q has empty bar", s.Label)
		}
		zone := sliderZone(c, s)
		if zone.MinY > zone.MaxY {
			return invalid("slider %q activation zone is empty", s.Label)
		}
		if zone.MaxY >= c.PadMinY {
			return invalid("slider %q zone reaches pad zone", s.Label)
		}
	}

	for i := range c.Pads {
		p := &c.Pads[i]
		if p.Note > 127 {
			return invalid("pad %q note %d out of range", p.Label, p.Note)
		}
		if p.Size <= 0 || p.TouchArea <= 0 {
			return invalid("pad %q has non-positive size", p.Label)
		}
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

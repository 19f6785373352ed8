package surface

import (
	"math"
	"time"
)

// Pad is a palm-triggered drum pad. A rising touch edge fires a note-on
// (subject to debounce) and every note-on releases itself after the sustain
// duration, however long the palm stays on the pad.
type Pad struct {
	cfg      PadConfig
	center   Point
	radius   float64
	padMinY  float64
	channel  uint8
	velocity uint8
	debounce time.Duration
	sustain  time.Duration

	touching      bool
	active        bool
	triggeredAt   time.Time
	lastTriggerAt time.Time
}

func newPad(c *Config, p PadConfig) *Pad {
	half := math.Floor(p.Size / 2)
	return &Pad{
		cfg:      p,
		center:   Point{X: p.X + half, Y: p.Y + half},
		radius:   p.TouchArea / 2,
		padMinY:  c.PadMinY,
		channel:  c.Channel,
		velocity: c.PadVelocity,
		debounce: c.Debounce,
		sustain:  c.Sustain,
	}
}

// Contains reports whether the palm point is within the touch radius.
func (p *Pad) Contains(x, y float64) bool {
	return math.Hypot(x-p.center.X, y-p.center.Y) < p.radius
}

// CheckTouch updates the touch state from one palm position and returns a
// note-on if this is an accepted rising edge. Above the pad separator the
// pad is inert and the touch state is cleared.
func (p *Pad) CheckTouch(palmX, palmY float64, now time.Time) (Event, bool) {
	if !InPadZone(p.padMinY, palmY) {
		p.touching = false
		return Event{}, false
	}

	touching := p.Contains(palmX, palmY)
	rising := touching && !p.touching
	p.touching = touching

	if !rising {
		return Event{}, false
	}
	return p.Trigger(now)
}

// Trigger fires the pad unless the previous trigger was less than the
// debounce interval ago.
func (p *Pad) Trigger(now time.Time) (Event, bool) {
	if !p.lastTriggerAt.IsZero() && now.Sub(p.lastTriggerAt) < p.debounce {
		return Event{}, false
	}

	p.lastTriggerAt = now
	p.triggeredAt = now
	p.active = true
	return noteOn(p.channel, p.cfg.Note, p.velocity, p.cfg.Label), true
}

// Update releases the pad once more than the sustain duration has elapsed
// since it was triggered.
func (p *Pad) Update(now time.Time) (Event, bool) {
	if !p.active || now.Sub(p.triggeredAt) <= p.sustain {
		return Event{}, false
	}
	p.active = false
	return noteOff(p.channel, p.cfg.Note, p.cfg.Label), true
}

// Active reports whether a note-on is still sustaining.
func (p *Pad) Active() bool { return p.active }

// Touching reports whether the palm was on the pad at the last check.
func (p *Pad) Touching() bool { return p.touching }

// Center returns the centre of the touch circle.
func (p *Pad) Center() Point { return p.center }

// Config returns the pad's bindings and geometry.
func (p *Pad) Config() PadConfig { return p.cfg }

func (p *Pad) status() PadStatus {
	return PadStatus{
		Label:    p.cfg.Label,
		Note:     p.cfg.Note,
		Active:   p.active,
		Touching: p.touching,
		Center:   p.center,
		Radius:   p.radius,
	}
}

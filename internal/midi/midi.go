// Package midi delivers control surface events to MIDI outputs: rtmidi
// ports, raw serial DIN adapters, or an in-memory recorder.
package midi

import (
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"

	"github.com/ayusman/pinchpad/internal/surface"
)

// ErrNoPort is returned when no usable MIDI output port is available.
var ErrNoPort = errors.New("no MIDI output port available")

// ErrClosed is returned by Send after a sink has been closed.
var ErrClosed = errors.New("midi sink closed")

// Sink accepts surface events in order. Send is called from the frame loop,
// so implementations should not block for long.
type Sink interface {
	Send(ev surface.Event) error
	Close() error
	Name() string
}

// Encode converts an event to its MIDI wire message.
func Encode(ev surface.Event) (midi.Message, error) {
	if ev.Channel > 15 || ev.Number > 127 || ev.Value > 127 {
		return nil, fmt.Errorf("encode %s: value out of range", ev)
	}

	switch ev.Kind {
	case surface.ControlChange:
		return midi.ControlChange(ev.Channel, ev.Number, ev.Value), nil
	case surface.NoteOn:
		return midi.NoteOn(ev.Channel, ev.Number, ev.Value), nil
	case surface.NoteOff:
		return midi.NoteOff(ev.Channel, ev.Number), nil
	default:
		return nil, fmt.Errorf("encode: unknown event kind %d", ev.Kind)
	}
}

// Tee fans each event out to every sink. A failing sink does not stop
// delivery to the others; the errors are joined.
type Tee []Sink

func (t Tee) Send(ev surface.Event) error {
	var errs []error
	for _, s := range t {
		if err := s.Send(ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (t Tee) Close() error {
	var errs []error
	for _, s := range t {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (t Tee) Name() string {
	name := ""
	for i, s := range t {
		if i > 0 {
			name += ", "
		}
		name += s.Name()
	}
	return name
}

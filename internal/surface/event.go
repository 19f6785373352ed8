package surface

import "fmt"

// EventKind is the type of MIDI message an Event represents.
type EventKind int

const (
	ControlChange EventKind = iota
	NoteOn
	NoteOff
)

func (k EventKind) String() string {
	switch k {
	case ControlChange:
		return "control_change"
	case NoteOn:
		return "note_on"
	case NoteOff:
		return "note_off"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// MarshalText encodes the kind as its name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is a single MIDI message produced by the surface.
// Number is the controller for ControlChange and the note otherwise;
// Value is the controller value or the note velocity.
type Event struct {
	Kind    EventKind `json:"kind"`
	Channel uint8     `json:"channel"`
	Number  uint8     `json:"number"`
	Value   uint8     `json:"value"`
	Source  string    `json:"source"`
}

func (e Event) String() string {
	switch e.Kind {
	case ControlChange:
		return fmt.Sprintf("CC ch=%d cc=%d value=%d (%s)", e.Channel, e.Number, e.Value, e.Source)
	case NoteOn:
		return fmt.Sprintf("NoteOn ch=%d note=%d vel=%d (%s)", e.Channel, e.Number, e.Value, e.Source)
	default:
		return fmt.Sprintf("NoteOff ch=%d note=%d (%s)", e.Channel, e.Number, e.Source)
	}
}

func controlChange(ch, cc uint8, value int, source string) Event {
	return Event{Kind: ControlChange, Channel: ch, Number: cc, Value: uint8(value), Source: source}
}

func noteOn(ch, note, velocity uint8, source string) Event {
	return Event{Kind: NoteOn, Channel: ch, Number: note, Value: velocity, Source: source}
}

func noteOff(ch, note uint8, source string) Event {
	return Event{Kind: NoteOff, Channel: ch, Number: note, Value: 0, Source: source}
}

// Package app wires the camera, the hand detector and the control surface
// into the per-frame loop, and fans the resulting MIDI events out to the
// sink, the session journal and the status publishers.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/pinchpad/internal/capture"
	"github.com/ayusman/pinchpad/internal/detector"
	"github.com/ayusman/pinchpad/internal/log"
	"github.com/ayusman/pinchpad/internal/midi"
	"github.com/ayusman/pinchpad/internal/server"
	"github.com/ayusman/pinchpad/internal/store"
	"github.com/ayusman/pinchpad/internal/surface"
	"github.com/ayusman/pinchpad/internal/tray"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate while no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate while detection runs.
	ActiveFPS = capture.DefaultFPS
)

// ErrNoCamera is returned by Run when the app was built without a camera
// or detector.
var ErrNoCamera = errors.New("app has no camera or detector")

// Config holds the collaborators of an App. Only Surface and Sink are
// required; the rest are optional.
type Config struct {
	Surface surface.Config
	Sink    midi.Sink

	Camera   capture.Camera
	Detector detector.Detector

	Store *store.Store
	Hub   *server.StatusHub
	Tray  *tray.Tray

	// MotionThreshold is the changed-pixel percentage that counts as
	// motion. Zero disables motion gating and detection runs on every frame.
	MotionThreshold float64
	// IdleHold keeps detection running after the last motion or hand.
	IdleHold time.Duration

	IdleFPS   int
	ActiveFPS int

	// SessionConfig is stored with the journal session.
	SessionConfig any
}

// App is the host loop around a Surface.
type App struct {
	config  Config
	surface *surface.Surface
	sink    midi.Sink

	// motion is nil when gating is off.
	motion *capture.MotionDetector
	gate   *capture.IdleGate

	enabled    atomic.Bool
	sinkErrors atomic.Int64
	sessionID  string
	journal    *journal

	// Touched only by the goroutine calling Step.
	wasEnabled bool
	// sounding maps pad labels to the notes the receiver was sent a
	// note-on for and has not yet seen released.
	sounding map[string]uint8

	shutdownOnce sync.Once
}

// New validates the surface configuration and starts a journal session
// when a store is configured.
func New(config Config) (*App, error) {
	if config.Sink == nil {
		return nil, errors.New("app: nil sink")
	}

	s, err := surface.New(config.Surface)
	if err != nil {
		return nil, err
	}

	if config.IdleFPS <= 0 {
		config.IdleFPS = IdleFPS
	}
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = ActiveFPS
	}

	a := &App{
		config:   config,
		surface:  s,
		sink:     config.Sink,
		gate:     capture.NewIdleGate(config.IdleHold),
		sounding: make(map[string]uint8, surface.NumPads),
	}
	a.enabled.Store(true)
	a.wasEnabled = true

	if config.Store != nil {
		if err := a.startSession(); err != nil {
			return nil, fmt.Errorf("start session: %w", err)
		}
		a.journal = newJournal(config.Store.Events(), a.sessionID, journalQueueSize)
	}
	if config.MotionThreshold > 0 {
		a.motion = capture.NewMotionDetector(config.MotionThreshold)
	}

	return a, nil
}

func (a *App) startSession() error {
	raw := json.RawMessage("{}")
	if a.config.SessionConfig != nil {
		b, err := json.Marshal(a.config.SessionConfig)
		if err != nil {
			return err
		}
		raw = b
	}

	sess := &store.Session{
		Output: a.sink.Name(),
		Config: raw,
	}
	if err := a.config.Store.Sessions().Create(sess); err != nil {
		return err
	}
	a.sessionID = sess.ID
	log.Info("journal session started", "session", sess.ID, "path", a.config.Store.Path())
	return nil
}

// SetEnabled turns MIDI output on or off. The surface keeps tracking hands
// while output is off.
func (a *App) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) == enabled {
		return
	}
	log.Info("output toggled", "enabled", enabled)
	if a.config.Tray != nil {
		a.config.Tray.SetEnabled(enabled)
	}
}

// Enabled reports whether MIDI output is on.
func (a *App) Enabled() bool {
	return a.enabled.Load()
}

// SessionID returns the journal session, or "" without a store.
func (a *App) SessionID() string {
	return a.sessionID
}

// SinkErrors returns how many events the sink has rejected.
func (a *App) SinkErrors() int64 {
	return a.sinkErrors.Load()
}

// Surface returns the control surface. It must only be used from the
// goroutine that calls Step.
func (a *App) Surface() *surface.Surface {
	return a.surface
}

// Step advances the surface by one frame and delivers the events. now is
// read once by the caller for the whole frame. The events produced by the
// surface are returned whether or not output is enabled.
func (a *App) Step(hands surface.Hands, now time.Time) []surface.Event {
	events := a.surface.Advance(hands, now)
	st := a.surface.Status()

	enabled := a.enabled.Load()
	var out []surface.Event
	switch {
	case enabled:
		if !a.wasEnabled {
			// Slider values moved on while output was off.
			out = resendSliders(st, events, a.surface.Config().Channel)
		}
		out = append(out, a.track(events)...)
	case a.wasEnabled:
		out = a.silence(st)
	}
	a.wasEnabled = enabled

	a.deliver(out, now)

	if a.config.Hub != nil {
		a.config.Hub.Publish(st, enabled)
	}
	if a.config.Tray != nil {
		a.config.Tray.SetActive(st.ActiveLabels())
	}
	return events
}

// deliver sends events to the sink, journals the ones that went out and
// logs them.
func (a *App) deliver(events []surface.Event, now time.Time) {
	if len(events) == 0 {
		return
	}

	sent := events[:0:0]
	for _, ev := range events {
		if err := a.sink.Send(ev); err != nil {
			n := a.sinkErrors.Add(1)
			log.Warn("midi send failed", "event", ev.String(), "err", err, "errors", n)
			continue
		}
		sent = append(sent, ev)

		switch ev.Kind {
		case surface.NoteOn:
			log.Info("pad triggered", "pad", ev.Source, "note", ev.Number, "velocity", ev.Value)
			if a.config.Tray != nil {
				a.config.Tray.SetLastTriggered(ev.Source)
			}
		case surface.ControlChange:
			log.Debug("control change", "slider", ev.Source, "cc", ev.Number, "value", ev.Value)
		default:
			log.Debug("note off", "pad", ev.Source, "note", ev.Number)
		}
	}

	if a.journal != nil && len(sent) > 0 {
		a.journal.write(now, sent)
	}
}

// track records which pads the receiver hears and drops note-offs for
// note-ons it never got.
func (a *App) track(events []surface.Event) []surface.Event {
	out := events[:0:0]
	for _, ev := range events {
		switch ev.Kind {
		case surface.NoteOn:
			a.sounding[ev.Source] = ev.Number
		case surface.NoteOff:
			if _, ok := a.sounding[ev.Source]; !ok {
				continue
			}
			delete(a.sounding, ev.Source)
		}
		out = append(out, ev)
	}
	return out
}

// silence releases every pad the receiver is still hearing, in pad order.
func (a *App) silence(st surface.Status) []surface.Event {
	channel := a.surface.Config().Channel
	var events []surface.Event
	for _, p := range st.Pads {
		note, ok := a.sounding[p.Label]
		if !ok {
			continue
		}
		delete(a.sounding, p.Label)
		events = append(events, surface.Event{
			Kind:    surface.NoteOff,
			Channel: channel,
			Number:  note,
			Source:  p.Label,
		})
	}
	return events
}

// resendSliders returns the current value of every slider that has sent
// before and has no control change of its own in events.
func resendSliders(st surface.Status, events []surface.Event, channel uint8) []surface.Event {
	var out []surface.Event
	for _, sl := range st.Sliders {
		if sl.LastSent < 0 || hasControlChange(events, sl.CC) {
			continue
		}
		out = append(out, surface.Event{
			Kind:    surface.ControlChange,
			Channel: channel,
			Number:  sl.CC,
			Value:   uint8(sl.LastSent),
			Source:  sl.Label,
		})
	}
	return out
}

func hasControlChange(events []surface.Event, cc uint8) bool {
	for _, ev := range events {
		if ev.Kind == surface.ControlChange && ev.Number == cc {
			return true
		}
	}
	return false
}

// Shutdown sends the reset sequence, closes the sink and ends the journal
// session. Output enablement is ignored so the receiver is always left
// silent. Calling Shutdown more than once is a no-op.
func (a *App) Shutdown() error {
	var errs []error
	a.shutdownOnce.Do(func() {
		now := time.Now()
		reset := a.surface.Reset()
		for _, ev := range reset {
			if err := a.sink.Send(ev); err != nil {
				errs = append(errs, fmt.Errorf("reset %s: %w", ev, err))
			}
		}
		log.Info("surface reset", "events", len(reset), "output", a.sink.Name())

		if err := a.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink: %w", err))
		}

		if a.journal != nil {
			if dropped := a.journal.close(); dropped > 0 {
				log.Warn("journal dropped batches", "session", a.sessionID, "batches", dropped)
			}
			if err := a.config.Store.Events().Append(a.sessionID, now, reset); err != nil {
				errs = append(errs, fmt.Errorf("journal reset: %w", err))
			}
			if err := a.config.Store.Sessions().End(a.sessionID, now); err != nil {
				errs = append(errs, fmt.Errorf("end session: %w", err))
			}
		}

		if a.config.Detector != nil {
			if err := a.config.Detector.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close detector: %w", err))
			}
		}
		if a.motion != nil {
			a.motion.Close()
		}
	})
	return errors.Join(errs...)
}

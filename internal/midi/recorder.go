package midi

import (
	"sync"

	"github.com/ayusman/pinchpad/internal/log"
	"github.com/ayusman/pinchpad/internal/surface"
)

// Recorder keeps every event it receives. It backs the dry-run mode and
// tests.
type Recorder struct {
	mu      sync.Mutex
	events  []surface.Event
	err     error
	closed  bool
	verbose bool
}

// NewRecorder returns an empty recorder. When verbose is set each event is
// logged at info level.
func NewRecorder(verbose bool) *Recorder {
	return &Recorder{verbose: verbose}
}

// FailWith makes subsequent Send calls return err. Pass nil to clear.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Send(ev surface.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.err != nil {
		return r.err
	}
	if _, err := Encode(ev); err != nil {
		return err
	}
	r.events = append(r.events, ev)
	if r.verbose {
		log.Info("midi: dry run", "event", ev.String())
	}
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *Recorder) Name() string { return "recorder" }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []surface.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]surface.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Closed reports whether Close has been called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

package midi

import (
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/ayusman/pinchpad/internal/log"
	"github.com/ayusman/pinchpad/internal/surface"
)

// DefaultPreferPatterns match virtual buses that DAWs listen on.
var DefaultPreferPatterns = []string{"IAC", "Bus"}

// PortOptions selects an output port.
type PortOptions struct {
	// Name, when set, must match a port name (case-insensitive substring).
	Name string
	// Prefer patterns are tried in order before falling back to the first port.
	Prefer []string
	// Exclude patterns remove ports from consideration.
	Exclude []string
}

// SelectPort picks a port name from the available outputs.
func SelectPort(names []string, opts PortOptions) (string, error) {
	var candidates []string
	for _, name := range names {
		if !matchesAny(name, opts.Exclude) {
			candidates = append(candidates, name)
		}
	}

	if opts.Name != "" {
		for _, name := range candidates {
			if containsCI(name, opts.Name) {
				return name, nil
			}
		}
		return "", fmt.Errorf("%w: no port matches %q", ErrNoPort, opts.Name)
	}

	if len(candidates) == 0 {
		return "", ErrNoPort
	}
	for _, pat := range opts.Prefer {
		for _, name := range candidates {
			if containsCI(name, pat) {
				return name, nil
			}
		}
	}
	return candidates[0], nil
}

// PortSink writes events to an rtmidi output port.
type PortSink struct {
	mu     sync.Mutex
	drv    *rtmididrv.Driver
	out    drivers.Out
	name   string
	closed bool
}

// OpenPort opens the rtmidi driver and the port chosen by opts.
func OpenPort(opts PortOptions) (*PortSink, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}

	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list outputs: %w", err)
	}

	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	log.Debug("midi: outputs found", "count", len(names), "devices", strings.Join(names, ", "))

	name, err := SelectPort(names, opts)
	if err != nil {
		drv.Close()
		return nil, err
	}

	var out drivers.Out
	for _, o := range outs {
		if o.String() == name {
			out = o
			break
		}
	}
	if err := out.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open %q: %w", name, err)
	}

	log.Info("midi: connected", "device", name)
	return &PortSink{drv: drv, out: out, name: name}, nil
}

// ListPorts returns the names of the available output ports.
func ListPorts() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	defer drv.Close()

	outs, err := drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	return names, nil
}

func (p *PortSink) Send(ev surface.Event) error {
	msg, err := Encode(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if err := p.out.Send(msg); err != nil {
		return fmt.Errorf("send %s: %w", ev, err)
	}
	return nil
}

func (p *PortSink) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.out.Close()
	p.drv.Close()
	log.Info("midi: port closed", "device", p.name)
	return err
}

func (p *PortSink) Name() string { return p.name }

func matchesAny(name string, patterns []string) bool {
	for _, pat := range patterns {
		if containsCI(name, pat) {
			return true
		}
	}
	return false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

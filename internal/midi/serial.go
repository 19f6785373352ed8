package midi

import (
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/ayusman/pinchpad/internal/log"
	"github.com/ayusman/pinchpad/internal/surface"
)

// DefaultSerialBaud is the MIDI DIN current-loop rate.
const DefaultSerialBaud = 31250

// SerialSink writes raw MIDI bytes to a serial device, for USB-serial
// adapters and microcontrollers wired to a DIN socket.
type SerialSink struct {
	mu     sync.Mutex
	port   io.WriteCloser
	name   string
	closed bool
}

// OpenSerial opens the named serial device at the given baud rate.
func OpenSerial(device string, baud int) (*SerialSink, error) {
	if baud <= 0 {
		baud = DefaultSerialBaud
	}
	p, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	log.Info("serial: port opened", "device", device, "baud", baud)
	return NewSerialSink(device, p), nil
}

// SerialPorts lists the serial devices present on the system.
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

// NewSerialSink wraps an already open writer.
func NewSerialSink(name string, w io.WriteCloser) *SerialSink {
	return &SerialSink{port: w, name: name}
}

func (s *SerialSink) Send(ev surface.Event) error {
	msg, err := Encode(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.port.Write(msg); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

func (s *SerialSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	log.Info("serial: closing port", "device", s.name)
	return s.port.Close()
}

func (s *SerialSink) Name() string { return "serial:" + s.name }

// Package config loads the pinchpad YAML configuration, applies command-line
// overrides, and converts it into the settings each component takes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/pinchpad/internal/capture"
	"github.com/ayusman/pinchpad/internal/detector"
	"github.com/ayusman/pinchpad/internal/midi"
	"github.com/ayusman/pinchpad/internal/surface"
)

// Config is the top-level YAML configuration.
//
// Defaults reproduce the stock two-slider, four-pad layout on a 1280x720
// mirrored camera, so an empty file is a valid configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Surface  SurfaceConfig  `yaml:"surface"`
	MIDI     MIDIConfig     `yaml:"midi"`
	Journal  JournalConfig  `yaml:"journal"`
	Server   ServerConfig   `yaml:"server"`
	Tray     TrayConfig     `yaml:"tray"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type CameraConfig struct {
	Device int  `yaml:"device"`
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	FPS    int  `yaml:"fps"`
	Mirror bool `yaml:"mirror"`
	// MotionThreshold is the changed-pixel percentage that wakes the
	// detector. Zero runs detection on every frame.
	MotionThreshold float64 `yaml:"motion_threshold"`
	// IdleHoldMS keeps detection running after the last motion or hand.
	// Zero stops it on the first still frame.
	IdleHoldMS int `yaml:"idle_hold_ms"`
}

type DetectorConfig struct {
	MaxHands     int     `yaml:"max_hands"`
	MinDetection float64 `yaml:"min_detection"`
	MinTracking  float64 `yaml:"min_tracking"`
	ScriptPath   string  `yaml:"script_path,omitempty"`
}

// SurfaceConfig is the user-facing surface configuration. Durations are in
// milliseconds and pad positions may be omitted to use the corner layout.
type SurfaceConfig struct {
	Channel         int     `yaml:"channel"`
	PinchMin        float64 `yaml:"pinch_min"`
	PinchMax        float64 `yaml:"pinch_max"`
	SliderMinY      float64 `yaml:"slider_min_y"`
	SliderMaxY      float64 `yaml:"slider_max_y"`
	SliderMargin    float64 `yaml:"slider_margin"`
	PadMinY         float64 `yaml:"pad_min_y"`
	BarWidth        float64 `yaml:"bar_width"`
	BarHeight       float64 `yaml:"bar_height"`
	SmoothingWindow int     `yaml:"smoothing_window"`
	Deadzone        int     `yaml:"deadzone"`
	DebounceMS      int     `yaml:"debounce_ms"`
	SustainMS       int     `yaml:"sustain_ms"`
	PadSize         float64 `yaml:"pad_size"`
	PadTouchArea    float64 `yaml:"pad_touch_area"`
	PadMargin       float64 `yaml:"pad_margin"`
	PadVelocity     int     `yaml:"pad_velocity"`

	Sliders []SliderEntry `yaml:"sliders"`
	Pads    []PadEntry    `yaml:"pads"`
}

type SliderEntry struct {
	Label string  `yaml:"label"`
	Hand  string  `yaml:"hand"`
	CC    int     `yaml:"cc"`
	Y     float64 `yaml:"y"`
}

type PadEntry struct {
	Label string   `yaml:"label"`
	Note  int      `yaml:"note"`
	X     *float64 `yaml:"x,omitempty"`
	Y     *float64 `yaml:"y,omitempty"`
}

type MIDIConfig struct {
	// Port selects an output by case-insensitive substring. Empty picks the
	// first preferred port, then the first port.
	Port         string   `yaml:"port"`
	Prefer       []string `yaml:"prefer"`
	Exclude      []string `yaml:"exclude"`
	SerialDevice string   `yaml:"serial_device"`
	SerialBaud   int      `yaml:"serial_baud"`
	DryRun       bool     `yaml:"dry_run"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type ServerConfig struct {
	// Addr is the listen address. Empty disables the HTTP server.
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	sc := surface.DefaultConfig()

	sliders := make([]SliderEntry, 0, surface.NumSliders)
	for _, s := range sc.Sliders {
		sliders = append(sliders, SliderEntry{Label: s.Label, Hand: s.Hand.String(), CC: int(s.CC), Y: s.Y})
	}
	pads := make([]PadEntry, 0, surface.NumPads)
	for _, p := range sc.Pads {
		pads = append(pads, PadEntry{Label: p.Label, Note: int(p.Note)})
	}

	return Config{
		Camera: CameraConfig{
			Device:          0,
			Width:           capture.DefaultWidth,
			Height:          capture.DefaultHeight,
			FPS:             capture.DefaultFPS,
			Mirror:          true,
			MotionThreshold: 0,
			IdleHoldMS:      int(capture.DefaultIdleHold / time.Millisecond),
		},
		Detector: DetectorConfig{
			MaxHands:     2,
			MinDetection: 0.7,
			MinTracking:  0.8,
		},
		Surface: SurfaceConfig{
			Channel:         int(sc.Channel),
			PinchMin:        sc.PinchMin,
			PinchMax:        sc.PinchMax,
			SliderMinY:      sc.SliderMinY,
			SliderMaxY:      sc.SliderMaxY,
			SliderMargin:    sc.SliderMargin,
			PadMinY:         sc.PadMinY,
			BarWidth:        surface.DefaultBarWidth,
			BarHeight:       surface.DefaultBarHeight,
			SmoothingWindow: sc.SmoothingWindow,
			Deadzone:        sc.Deadzone,
			DebounceMS:      int(sc.Debounce / time.Millisecond),
			SustainMS:       int(sc.Sustain / time.Millisecond),
			PadSize:         surface.DefaultPadSize,
			PadTouchArea:    surface.DefaultPadTouchArea,
			PadMargin:       surface.DefaultPadMargin,
			PadVelocity:     int(sc.PadVelocity),
			Sliders:         sliders,
			Pads:            pads,
		},
		MIDI: MIDIConfig{
			Prefer:     append([]string(nil), midi.DefaultPreferPatterns...),
			SerialBaud: midi.DefaultSerialBaud,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    "~/.pinchpad/journal.db",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8765",
		},
		Tray: TrayConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFile reads and parses a YAML config file on top of the defaults.
// Unknown fields and trailing documents are rejected.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds values set on the command line. Nil pointers are
// left alone; non-nil values are applied even when zero.
type FlagOverrides struct {
	CameraDevice *int
	Mirror       *bool

	MIDIPort     *string
	SerialDevice *string
	DryRun       *bool

	JournalPath    *string
	JournalEnabled *bool

	ServerAddr *string
	StaticDir  *string
	Tray       *bool

	LogLevel *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.CameraDevice != nil {
		cfg.Camera.Device = *o.CameraDevice
	}
	if o.Mirror != nil {
		cfg.Camera.Mirror = *o.Mirror
	}
	if o.MIDIPort != nil {
		cfg.MIDI.Port = *o.MIDIPort
	}
	if o.SerialDevice != nil {
		cfg.MIDI.SerialDevice = *o.SerialDevice
	}
	if o.DryRun != nil {
		cfg.MIDI.DryRun = *o.DryRun
	}
	if o.JournalPath != nil {
		cfg.Journal.Path = *o.JournalPath
	}
	if o.JournalEnabled != nil {
		cfg.Journal.Enabled = *o.JournalEnabled
	}
	if o.ServerAddr != nil {
		cfg.Server.Addr = *o.ServerAddr
	}
	if o.StaticDir != nil {
		cfg.Server.StaticDir = *o.StaticDir
	}
	if o.Tray != nil {
		cfg.Tray.Enabled = *o.Tray
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Surface errors wrap surface.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return errors.New("camera.width and camera.height must be > 0")
	}
	if c.Camera.FPS <= 0 || c.Camera.FPS > 240 {
		return errors.New("camera.fps must be between 1 and 240")
	}
	if c.Camera.MotionThreshold < 0 || c.Camera.MotionThreshold > 100 {
		return errors.New("camera.motion_threshold must be between 0 and 100")
	}
	if c.Camera.IdleHoldMS < 0 {
		return errors.New("camera.idle_hold_ms must be >= 0")
	}

	if c.Detector.MaxHands < 1 {
		return errors.New("detector.max_hands must be >= 1")
	}
	if c.Detector.MinDetection < 0 || c.Detector.MinDetection > 1 ||
		c.Detector.MinTracking < 0 || c.Detector.MinTracking > 1 {
		return errors.New("detector confidences must be between 0 and 1")
	}

	sc, err := c.ToSurfaceConfig()
	if err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return err
	}

	if c.MIDI.SerialBaud < 0 {
		return errors.New("midi.serial_baud must be >= 0")
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		return errors.New("journal.enabled is true but journal.path is empty")
	}

	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}

	return nil
}

// ToSurfaceConfig converts the file config into the surface engine config.
// Pad positions left unset take the corner layout for the camera size.
func (c *Config) ToSurfaceConfig() (surface.Config, error) {
	s := c.Surface

	if len(s.Sliders) != surface.NumSliders {
		return surface.Config{}, invalid("surface.sliders must list exactly %d sliders, got %d", surface.NumSliders, len(s.Sliders))
	}
	if len(s.Pads) != surface.NumPads {
		return surface.Config{}, invalid("surface.pads must list exactly %d pads, got %d", surface.NumPads, len(s.Pads))
	}
	if err := midiRange("surface.channel", s.Channel, 15); err != nil {
		return surface.Config{}, err
	}
	if err := midiRange("surface.pad_velocity", s.PadVelocity, 127); err != nil {
		return surface.Config{}, err
	}

	layout := surface.Layout{
		FrameWidth:   float64(c.Camera.Width),
		FrameHeight:  float64(c.Camera.Height),
		BarWidth:     s.BarWidth,
		BarHeight:    s.BarHeight,
		PadSize:      s.PadSize,
		PadTouchArea: s.PadTouchArea,
		PadMargin:    s.PadMargin,
	}

	out := surface.Config{
		Channel:         uint8(s.Channel),
		PinchMin:        s.PinchMin,
		PinchMax:        s.PinchMax,
		SliderMinY:      s.SliderMinY,
		SliderMaxY:      s.SliderMaxY,
		SliderMargin:    s.SliderMargin,
		PadMinY:         s.PadMinY,
		SmoothingWindow: s.SmoothingWindow,
		Deadzone:        s.Deadzone,
		Debounce:        time.Duration(s.DebounceMS) * time.Millisecond,
		Sustain:         time.Duration(s.SustainMS) * time.Millisecond,
		PadVelocity:     uint8(s.PadVelocity),
	}

	x := layout.SliderX()
	for i, e := range s.Sliders {
		hand, ok := surface.ParseHandedness(e.Hand)
		if !ok {
			return surface.Config{}, invalid("surface.sliders[%d].hand %q must be left or right", i, e.Hand)
		}
		if err := midiRange(fmt.Sprintf("surface.sliders[%d].cc", i), e.CC, 127); err != nil {
			return surface.Config{}, err
		}
		out.Sliders[i] = surface.SliderConfig{
			Label:  labelOr(e.Label, "SLIDER", i),
			Hand:   hand,
			CC:     uint8(e.CC),
			X:      x,
			Y:      e.Y,
			Width:  s.BarWidth,
			Height: s.BarHeight,
		}
	}

	corners := layout.PadCorners()
	for i, e := range s.Pads {
		if err := midiRange(fmt.Sprintf("surface.pads[%d].note", i), e.Note, 127); err != nil {
			return surface.Config{}, err
		}
		px, py := corners[i][0], corners[i][1]
		if e.X != nil {
			px = *e.X
		}
		if e.Y != nil {
			py = *e.Y
		}
		out.Pads[i] = surface.PadConfig{
			Label:     labelOr(e.Label, "PAD", i),
			Note:      uint8(e.Note),
			X:         px,
			Y:         py,
			Size:      s.PadSize,
			TouchArea: s.PadTouchArea,
		}
	}

	return out, nil
}

// CameraOptions converts the camera section.
func (c *Config) CameraOptions() capture.Options {
	return capture.Options{
		Device: c.Camera.Device,
		Width:  c.Camera.Width,
		Height: c.Camera.Height,
		FPS:    c.Camera.FPS,
		Mirror: c.Camera.Mirror,
	}
}

// DetectorOptions converts the detector section.
func (c *Config) DetectorOptions() detector.Config {
	return detector.Config{
		MaxHands:        c.Detector.MaxHands,
		MinConfidence:   c.Detector.MinDetection,
		MinTrackingConf: c.Detector.MinTracking,
		ScriptPath:      ExpandPath(c.Detector.ScriptPath),
	}
}

// PortOptions converts the MIDI port selection settings.
func (c *Config) PortOptions() midi.PortOptions {
	return midi.PortOptions{
		Name:    c.MIDI.Port,
		Prefer:  c.MIDI.Prefer,
		Exclude: c.MIDI.Exclude,
	}
}

// IdleHold returns the detection hold after motion stops.
func (c *Config) IdleHold() time.Duration {
	return time.Duration(c.Camera.IdleHoldMS) * time.Millisecond
}

func labelOr(label, prefix string, i int) string {
	if label != "" {
		return label
	}
	return fmt.Sprintf("%s %d", prefix, i+1)
}

func midiRange(field string, v, hi int) error {
	if v < 0 || v > hi {
		return invalid("%s %d out of range 0-%d", field, v, hi)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", surface.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
